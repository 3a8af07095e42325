package contracts

import (
	"context"

	"github.com/light-bringer/procat-editor/internal/pkg/committer"
)

// Committer applies commit plans. *committer.Committer implements it.
type Committer interface {
	ApplyWithVersionCheck(ctx context.Context, row committer.VersionedRow, expectedVersion int64, plan *committer.CommitPlan) error
}
