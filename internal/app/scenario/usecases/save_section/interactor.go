package save_section

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/spanner"

	"github.com/light-bringer/procat-editor/internal/app/scenario/contracts"
	"github.com/light-bringer/procat-editor/internal/app/scenario/domain"
	"github.com/light-bringer/procat-editor/internal/models/m_scenario_package"
	"github.com/light-bringer/procat-editor/internal/pkg/clock"
	"github.com/light-bringer/procat-editor/internal/pkg/committer"
)

// Request contains one section payload to save.
type Request struct {
	PackageID string
	Section   string
	// ExpectedVersion is the version the editor loaded. Zero skips the check.
	ExpectedVersion int64
	Data            json.RawMessage
}

// Response reports the version after the save.
type Response struct {
	Version int64
	// Changed is false when the payload matched the stored section.
	Changed bool
}

// Interactor handles the save section use case.
type Interactor struct {
	repo       contracts.PackageRepository
	outboxRepo contracts.OutboxRepository
	committer  contracts.Committer
	clock      clock.Clock
}

// NewInteractor creates a new save section interactor.
func NewInteractor(
	repo contracts.PackageRepository,
	outboxRepo contracts.OutboxRepository,
	committer contracts.Committer,
	clock clock.Clock,
) *Interactor {
	return &Interactor{
		repo:       repo,
		outboxRepo: outboxRepo,
		committer:  committer,
		clock:      clock,
	}
}

// Execute saves one section following the Golden Mutation Pattern.
func (i *Interactor) Execute(ctx context.Context, req *Request) (*Response, error) {
	// 1. Validate request
	if err := i.validate(req); err != nil {
		return nil, err
	}

	// 2. Load aggregate
	pkg, err := i.repo.GetByID(ctx, req.PackageID)
	if err != nil {
		return nil, err
	}
	if req.ExpectedVersion != 0 && req.ExpectedVersion != pkg.Version() {
		return nil, fmt.Errorf("expected version %d, found %d: %w", req.ExpectedVersion, pkg.Version(), domain.ErrVersionConflict)
	}

	// Clear events on function exit to prevent duplicates on retry
	defer pkg.ClearEvents()

	// 3. Call domain method
	if err := pkg.SaveSection(req.Section, req.Data, i.clock.Now()); err != nil {
		return nil, err
	}
	if !pkg.Changes().HasChanges() {
		return &Response{Version: pkg.Version()}, nil
	}

	// 4. Create commit plan
	plan := committer.NewPlan()

	// 5. Add repository mutation
	mut, err := i.repo.UpdateMut(pkg)
	if err != nil {
		return nil, err
	}
	plan.Add(mut)

	// 6. Add outbox events
	for _, event := range pkg.DomainEvents() {
		payload, err := serializeEvent(event)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize event: %w", err)
		}
		plan.Add(i.outboxRepo.InsertMut(i.outboxRepo.EnrichEvent(event, payload)))
	}

	// 7. Apply plan guarded by the loaded version
	row := committer.VersionedRow{
		Table:  m_scenario_package.TableName,
		Key:    spanner.Key{pkg.ID()},
		Column: m_scenario_package.Version,
	}
	if err := i.committer.ApplyWithVersionCheck(ctx, row, pkg.Version(), plan); err != nil {
		switch {
		case errors.Is(err, committer.ErrVersionConflict):
			return nil, fmt.Errorf("%w: %v", domain.ErrVersionConflict, err)
		case errors.Is(err, committer.ErrRowNotFound):
			return nil, domain.ErrPackageNotFound
		}
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &Response{Version: pkg.Version() + 1, Changed: true}, nil
}

func (i *Interactor) validate(req *Request) error {
	if req.PackageID == "" {
		return fmt.Errorf("package ID is required: %w", domain.ErrMalformedPayload)
	}
	if len(req.Data) == 0 {
		return fmt.Errorf("section data is required: %w", domain.ErrMalformedPayload)
	}
	return nil
}

func serializeEvent(event domain.DomainEvent) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
