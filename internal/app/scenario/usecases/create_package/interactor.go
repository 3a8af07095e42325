package create_package

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/light-bringer/procat-editor/internal/app/scenario/contracts"
	"github.com/light-bringer/procat-editor/internal/app/scenario/domain"
	"github.com/light-bringer/procat-editor/internal/pkg/clock"
	"github.com/light-bringer/procat-editor/internal/pkg/committer"
)

// Applier applies a plan without a version check. *committer.Committer implements it.
type Applier interface {
	Apply(ctx context.Context, plan *committer.CommitPlan) error
}

// Interactor creates empty draft packages.
type Interactor struct {
	repo      contracts.PackageRepository
	committer Applier
	clock     clock.Clock
}

// NewInteractor creates a new create package interactor.
func NewInteractor(repo contracts.PackageRepository, committer Applier, clock clock.Clock) *Interactor {
	return &Interactor{repo: repo, committer: committer, clock: clock}
}

// Execute creates a draft package and returns its ID.
func (i *Interactor) Execute(ctx context.Context) (string, error) {
	pkg := domain.NewScenarioPackage(uuid.New().String(), i.clock.Now())

	mut, err := i.repo.InsertMut(pkg)
	if err != nil {
		return "", err
	}
	plan := committer.NewPlan()
	plan.Add(mut)
	if err := i.committer.Apply(ctx, plan); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return pkg.ID(), nil
}
