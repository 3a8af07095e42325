package m_scenario_package

import (
	"sort"

	"cloud.google.com/go/spanner"
)

// Model provides a facade for type-safe operations on the scenario_packages table.
type Model struct{}

// NewModel creates a new Model instance.
func NewModel() *Model {
	return &Model{}
}

// InsertMut creates a Spanner mutation for inserting a package.
func (m *Model) InsertMut(data *Data) *spanner.Mutation {
	return spanner.Insert(TableName, AllColumns(), []interface{}{
		data.PackageID,
		data.Status,
		data.Version,
		data.BasicInfo,
		data.Packages,
		data.Addons,
		data.TimeSlots,
		data.Publish,
		spanner.CommitTimestamp,
		spanner.CommitTimestamp,
	})
}

// UpdateMut creates a Spanner mutation for updating specific package columns.
// updated_at is always set to the commit timestamp.
func (m *Model) UpdateMut(packageID string, updates map[string]interface{}) *spanner.Mutation {
	if len(updates) == 0 {
		return nil
	}

	cols := make([]string, 0, len(updates))
	for col := range updates {
		if col != PackageID && col != UpdatedAt {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)

	columns := append([]string{PackageID}, cols...)
	values := []interface{}{packageID}
	for _, col := range cols {
		values = append(values, updates[col])
	}
	columns = append(columns, UpdatedAt)
	values = append(values, spanner.CommitTimestamp)

	return spanner.Update(TableName, columns, values)
}

// DeleteMut creates a Spanner mutation for deleting a package.
func (m *Model) DeleteMut(packageID string) *spanner.Mutation {
	return spanner.Delete(TableName, spanner.Key{packageID})
}
