package list_section_saves

import (
	"context"

	"github.com/light-bringer/procat-editor/internal/app/scenario/contracts"
	"github.com/light-bringer/procat-editor/internal/app/scenario/domain"
)

// Request filters the save history of one package.
type Request struct {
	PackageID string
	// Section is optional; empty lists every section.
	Section string
	Limit   int64
}

// Query handles the list section saves query.
type Query struct {
	readModel contracts.ReadModel
}

// NewQuery creates a new list section saves query.
func NewQuery(readModel contracts.ReadModel) *Query {
	return &Query{readModel: readModel}
}

// Execute lists saves newest first.
func (q *Query) Execute(ctx context.Context, req *Request) ([]*contracts.SectionSaveDTO, error) {
	if req.Section != "" && !isSection(req.Section) {
		return nil, domain.ErrUnknownSection
	}
	return q.readModel.ListSectionSaves(ctx, req.PackageID, req.Section, req.Limit)
}

func isSection(s string) bool {
	for _, known := range domain.Sections() {
		if s == known {
			return true
		}
	}
	return false
}
