package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"

	"github.com/light-bringer/procat-editor/internal/app/scenario/contracts"
	"github.com/light-bringer/procat-editor/internal/app/scenario/domain"
	"github.com/light-bringer/procat-editor/internal/models/m_outbox"
	"github.com/light-bringer/procat-editor/internal/models/m_scenario_package"
	"github.com/light-bringer/procat-editor/internal/pkg/query"
)

// DefaultHistoryLimit caps ListSectionSaves when no limit is given.
const DefaultHistoryLimit = 50

// ReadModelImpl implements ReadModel for Spanner.
type ReadModelImpl struct {
	client *spanner.Client
}

// NewReadModel creates a new ReadModel implementation.
func NewReadModel(client *spanner.Client) contracts.ReadModel {
	return &ReadModelImpl{client: client}
}

// GetPackageStatement builds the statement used by GetPackage.
func GetPackageStatement(packageID string) spanner.Statement {
	return query.From(m_scenario_package.TableName).
		Select(m_scenario_package.AllColumns()...).
		Where(query.Eq(m_scenario_package.PackageID, packageID)).
		Limit(1).
		Build()
}

// ListSectionSavesStatement builds the statement used by ListSectionSaves.
func ListSectionSavesStatement(packageID, section string, limit int64) spanner.Statement {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	q := query.From(m_outbox.TableName).
		Select(m_outbox.EventID, m_outbox.Payload, m_outbox.CreatedAt).
		Where(query.Eq(m_outbox.AggregateID, packageID)).
		Where(query.Eq(m_outbox.EventType, (&domain.SectionSavedEvent{}).EventType()))
	if section != "" {
		q = q.Where(query.JSONValueEq(m_outbox.Payload, "$.section", section))
	}
	return q.OrderBy(m_outbox.CreatedAt, query.Desc).Limit(limit).Build()
}

// GetPackage retrieves a package DTO by ID.
func (rm *ReadModelImpl) GetPackage(ctx context.Context, packageID string) (*contracts.PackageDTO, error) {
	iter := rm.client.Single().Query(ctx, GetPackageStatement(packageID))
	defer iter.Stop()

	row, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, domain.ErrPackageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query scenario package: %w", err)
	}

	var data m_scenario_package.Data
	if err := row.ToStruct(&data); err != nil {
		return nil, fmt.Errorf("failed to parse scenario package: %w", err)
	}
	pkg, err := dataToDomain(&data)
	if err != nil {
		return nil, err
	}

	dto := &contracts.PackageDTO{
		PackageID: pkg.ID(),
		Status:    string(pkg.Status()),
		Version:   pkg.Version(),
		Sections:  make(map[string]json.RawMessage),
		CreatedAt: pkg.CreatedAt(),
		UpdatedAt: pkg.UpdatedAt(),
	}
	for _, s := range domain.Sections() {
		if raw := pkg.Section(s); raw != nil {
			dto.Sections[s] = raw
		}
	}
	return dto, nil
}

// ListSectionSaves returns recent section saves, newest first.
func (rm *ReadModelImpl) ListSectionSaves(ctx context.Context, packageID, section string, limit int64) ([]*contracts.SectionSaveDTO, error) {
	iter := rm.client.Single().Query(ctx, ListSectionSavesStatement(packageID, section, limit))
	defer iter.Stop()

	var out []*contracts.SectionSaveDTO
	for {
		row, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query section saves: %w", err)
		}

		var data m_outbox.Data
		if err := row.ToStruct(&data); err != nil {
			return nil, fmt.Errorf("failed to parse outbox event: %w", err)
		}
		dto, err := sectionSaveFromData(&data)
		if err != nil {
			return nil, err
		}
		out = append(out, dto)
	}
	return out, nil
}

func sectionSaveFromData(data *m_outbox.Data) (*contracts.SectionSaveDTO, error) {
	dto := &contracts.SectionSaveDTO{EventID: data.EventID, SavedAt: data.CreatedAt}
	if !data.Payload.Valid {
		return dto, nil
	}
	raw, err := json.Marshal(data.Payload.Value)
	if err != nil {
		return nil, fmt.Errorf("encode outbox payload %s: %w", data.EventID, err)
	}
	var evt domain.SectionSavedEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, fmt.Errorf("decode outbox payload %s: %w", data.EventID, err)
	}
	dto.Section = evt.Section
	dto.Version = evt.Version
	dto.Data = evt.Data
	return dto, nil
}
