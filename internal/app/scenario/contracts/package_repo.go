package contracts

import (
	"context"

	"cloud.google.com/go/spanner"

	"github.com/light-bringer/procat-editor/internal/app/scenario/domain"
)

// PackageRepository defines persistence of scenario packages.
// Repositories return mutations, they don't apply them.
type PackageRepository interface {
	// InsertMut creates a mutation for inserting a new package.
	InsertMut(pkg *domain.ScenarioPackage) (*spanner.Mutation, error)

	// UpdateMut creates a mutation writing only the modified sections and
	// bumping the version. It returns nil when nothing changed.
	UpdateMut(pkg *domain.ScenarioPackage) (*spanner.Mutation, error)

	// GetByID loads a package aggregate.
	GetByID(ctx context.Context, packageID string) (*domain.ScenarioPackage, error)
}
