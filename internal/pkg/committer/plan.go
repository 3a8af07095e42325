// Package committer collects Spanner mutations from repositories into a
// plan and applies them atomically.
//
// Repositories never write. They return mutations; a usecase gathers the
// aggregate mutation and its outbox events into one CommitPlan and applies
// it, optionally guarded by an optimistic version check:
//
//	plan := committer.NewPlan()
//	plan.Add(pkgMut)
//	plan.Add(outboxMut)
//	err := c.ApplyWithVersionCheck(ctx, committer.VersionedRow{
//	    Table: "scenario_packages", Key: spanner.Key{id}, Column: "version",
//	}, loadedVersion, plan)
package committer

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/grpc/codes"
)

var (
	// ErrVersionConflict is returned when the stored version differs from the expected one.
	ErrVersionConflict = errors.New("optimistic lock conflict")
	// ErrRowNotFound is returned when the versioned row does not exist.
	ErrRowNotFound = errors.New("versioned row not found")
)

// CommitPlan collects mutations to apply in one transaction.
type CommitPlan struct {
	mutations []*spanner.Mutation
}

// NewPlan creates a new empty CommitPlan.
func NewPlan() *CommitPlan {
	return &CommitPlan{
		mutations: make([]*spanner.Mutation, 0),
	}
}

// Add adds a mutation to the plan. Nil mutations are ignored.
func (cp *CommitPlan) Add(mut *spanner.Mutation) {
	if mut != nil {
		cp.mutations = append(cp.mutations, mut)
	}
}

// AddMultiple adds multiple mutations to the plan.
func (cp *CommitPlan) AddMultiple(muts []*spanner.Mutation) {
	for _, mut := range muts {
		cp.Add(mut)
	}
}

// Mutations returns all collected mutations.
func (cp *CommitPlan) Mutations() []*spanner.Mutation {
	return cp.mutations
}

// IsEmpty returns true if the plan has no mutations.
func (cp *CommitPlan) IsEmpty() bool {
	return len(cp.mutations) == 0
}

// Count returns the number of mutations in the plan.
func (cp *CommitPlan) Count() int {
	return len(cp.mutations)
}

// VersionedRow identifies the row and column holding an aggregate's version.
type VersionedRow struct {
	Table  string
	Key    spanner.Key
	Column string
}

// Committer provides transaction execution for CommitPlans.
type Committer struct {
	client *spanner.Client
}

// NewCommitter creates a new Committer.
func NewCommitter(client *spanner.Client) *Committer {
	return &Committer{client: client}
}

// Apply executes the CommitPlan atomically.
func (c *Committer) Apply(ctx context.Context, plan *CommitPlan) error {
	if plan.IsEmpty() {
		return nil
	}
	if _, err := c.client.Apply(ctx, plan.Mutations()); err != nil {
		return fmt.Errorf("failed to apply commit plan: %w", err)
	}
	return nil
}

// ApplyWithVersionCheck executes the CommitPlan only if row still holds
// expectedVersion. A mismatch returns ErrVersionConflict and a missing row
// returns ErrRowNotFound; nothing is written in either case.
func (c *Committer) ApplyWithVersionCheck(ctx context.Context, row VersionedRow, expectedVersion int64, plan *CommitPlan) error {
	if plan.IsEmpty() {
		return nil
	}

	_, err := c.client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		r, err := txn.ReadRow(ctx, row.Table, row.Key, []string{row.Column})
		if err != nil {
			if spanner.ErrCode(err) == codes.NotFound {
				return ErrRowNotFound
			}
			return fmt.Errorf("read %s version: %w", row.Table, err)
		}

		var current int64
		if err := r.Column(0, &current); err != nil {
			return fmt.Errorf("parse %s version: %w", row.Table, err)
		}
		if current != expectedVersion {
			return fmt.Errorf("%w: expected version %d, found %d", ErrVersionConflict, expectedVersion, current)
		}
		return txn.BufferWrite(plan.Mutations())
	})
	if err != nil {
		if errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrRowNotFound) {
			return err
		}
		return fmt.Errorf("failed to apply commit plan with version check: %w", err)
	}
	return nil
}
