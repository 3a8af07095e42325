package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/grpc/codes"

	"github.com/light-bringer/procat-editor/internal/app/scenario/contracts"
	"github.com/light-bringer/procat-editor/internal/app/scenario/domain"
	"github.com/light-bringer/procat-editor/internal/models/m_scenario_package"
)

// PackageRepo implements PackageRepository for Spanner.
type PackageRepo struct {
	client *spanner.Client
	model  *m_scenario_package.Model
}

// NewPackageRepo creates a new PackageRepo.
func NewPackageRepo(client *spanner.Client) contracts.PackageRepository {
	return &PackageRepo{
		client: client,
		model:  m_scenario_package.NewModel(),
	}
}

// InsertMut creates a mutation for inserting a new package.
func (r *PackageRepo) InsertMut(pkg *domain.ScenarioPackage) (*spanner.Mutation, error) {
	data := &m_scenario_package.Data{
		PackageID: pkg.ID(),
		Status:    string(pkg.Status()),
		Version:   pkg.Version(),
	}
	cols := map[string]*spanner.NullJSON{
		domain.SectionBasic:     &data.BasicInfo,
		domain.SectionPackages:  &data.Packages,
		domain.SectionAddons:    &data.Addons,
		domain.SectionTimeSlots: &data.TimeSlots,
		domain.SectionPublish:   &data.Publish,
	}
	for section, dst := range cols {
		*dst = toNullJSON(pkg.Section(section))
	}
	return r.model.InsertMut(data), nil
}

// UpdateMut creates a mutation for the modified sections and the next version.
func (r *PackageRepo) UpdateMut(pkg *domain.ScenarioPackage) (*spanner.Mutation, error) {
	changes := pkg.Changes()
	if !changes.HasChanges() {
		return nil, nil
	}

	updates := make(map[string]interface{})
	for _, section := range changes.DirtySections() {
		if section == domain.FieldStatus {
			updates[m_scenario_package.Status] = string(pkg.Status())
			continue
		}
		col, ok := m_scenario_package.SectionColumn(section)
		if !ok {
			return nil, fmt.Errorf("no column for section %q: %w", section, domain.ErrUnknownSection)
		}
		updates[col] = toNullJSON(pkg.Section(section))
	}

	// Increment version for optimistic locking
	updates[m_scenario_package.Version] = pkg.Version() + 1

	return r.model.UpdateMut(pkg.ID(), updates), nil
}

// GetByID retrieves a package by ID, reconstructing the aggregate.
func (r *PackageRepo) GetByID(ctx context.Context, packageID string) (*domain.ScenarioPackage, error) {
	row, err := r.client.Single().ReadRow(ctx, m_scenario_package.TableName, spanner.Key{packageID}, m_scenario_package.AllColumns())
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return nil, domain.ErrPackageNotFound
		}
		return nil, fmt.Errorf("failed to read scenario package: %w", err)
	}

	var data m_scenario_package.Data
	if err := row.ToStruct(&data); err != nil {
		return nil, fmt.Errorf("failed to parse scenario package: %w", err)
	}
	return dataToDomain(&data)
}

func dataToDomain(data *m_scenario_package.Data) (*domain.ScenarioPackage, error) {
	sections, err := sectionsFromData(data)
	if err != nil {
		return nil, err
	}
	return domain.ReconstructScenarioPackage(
		data.PackageID,
		domain.PackageStatus(data.Status),
		data.Version,
		sections,
		data.CreatedAt,
		data.UpdatedAt,
	), nil
}

func sectionsFromData(data *m_scenario_package.Data) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage)
	for section, v := range data.SectionValues() {
		if !v.Valid {
			continue
		}
		raw, err := json.Marshal(v.Value)
		if err != nil {
			return nil, fmt.Errorf("decode section %s: %w", section, err)
		}
		out[section] = raw
	}
	return out, nil
}

func toNullJSON(raw json.RawMessage) spanner.NullJSON {
	if len(raw) == 0 {
		return spanner.NullJSON{}
	}
	return spanner.NullJSON{Value: raw, Valid: true}
}
