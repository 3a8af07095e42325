package m_outbox

import (
	"cloud.google.com/go/spanner"
)

// Model provides a facade for type-safe operations on the outbox_events table.
type Model struct{}

// NewModel creates a new Model instance.
func NewModel() *Model {
	return &Model{}
}

// InsertMut creates a Spanner mutation for inserting a pending outbox event.
func (m *Model) InsertMut(data *Data) *spanner.Mutation {
	return spanner.Insert(TableName,
		[]string{EventID, EventType, AggregateType, AggregateID, Payload, Status, CreatedAt},
		[]interface{}{
			data.EventID,
			data.EventType,
			data.AggregateType,
			data.AggregateID,
			data.Payload,
			data.Status,
			spanner.CommitTimestamp,
		},
	)
}
