package get_package

import (
	"context"

	"github.com/light-bringer/procat-editor/internal/app/scenario/contracts"
)

// Request contains the package ID to retrieve.
type Request struct {
	PackageID string
}

// Query handles the get package query.
type Query struct {
	readModel contracts.ReadModel
}

// NewQuery creates a new get package query.
func NewQuery(readModel contracts.ReadModel) *Query {
	return &Query{readModel: readModel}
}

// Execute retrieves a package with its sections.
func (q *Query) Execute(ctx context.Context, req *Request) (*contracts.PackageDTO, error) {
	return q.readModel.GetPackage(ctx, req.PackageID)
}
