package save_section

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/procat-editor/internal/app/scenario/domain"
	"github.com/light-bringer/procat-editor/internal/app/scenario/repo"
	"github.com/light-bringer/procat-editor/internal/pkg/clock"
	"github.com/light-bringer/procat-editor/internal/pkg/committer"
)

type fakeRepo struct {
	pkg     *domain.ScenarioPackage
	getErr  error
	updated []string
}

func (f *fakeRepo) InsertMut(*domain.ScenarioPackage) (*spanner.Mutation, error) { return nil, nil }

func (f *fakeRepo) UpdateMut(pkg *domain.ScenarioPackage) (*spanner.Mutation, error) {
	f.updated = pkg.Changes().DirtySections()
	return spanner.Update("scenario_packages", []string{"package_id"}, []interface{}{pkg.ID()}), nil
}

func (f *fakeRepo) GetByID(context.Context, string) (*domain.ScenarioPackage, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.pkg, nil
}

type fakeCommitter struct {
	err      error
	calls    int
	expected int64
	row      committer.VersionedRow
	plan     *committer.CommitPlan
}

func (f *fakeCommitter) ApplyWithVersionCheck(_ context.Context, row committer.VersionedRow, expected int64, plan *committer.CommitPlan) error {
	f.calls++
	f.row = row
	f.expected = expected
	f.plan = plan
	return f.err
}

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newInteractor(pkg *domain.ScenarioPackage) (*Interactor, *fakeRepo, *fakeCommitter) {
	r := &fakeRepo{pkg: pkg}
	c := &fakeCommitter{}
	return NewInteractor(r, repo.NewOutboxRepo(), c, clock.NewMockClock(now)), r, c
}

func storedPackage(version int64) *domain.ScenarioPackage {
	return domain.ReconstructScenarioPackage("pkg-1", domain.StatusDraft, version, map[string]json.RawMessage{
		domain.SectionBasic: json.RawMessage(`{"name":"Sunset cruise","category":"boat"}`),
	}, now, now)
}

func TestInteractor_Execute(t *testing.T) {
	it, r, c := newInteractor(storedPackage(3))

	resp, err := it.Execute(context.Background(), &Request{
		PackageID:       "pkg-1",
		Section:         domain.SectionAddons,
		ExpectedVersion: 3,
		Data:            json.RawMessage(`[{"name":"Towel","price":4}]`),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), resp.Version)
	assert.True(t, resp.Changed)

	assert.Equal(t, []string{domain.SectionAddons}, r.updated)
	assert.Equal(t, 1, c.calls)
	assert.Equal(t, int64(3), c.expected)
	assert.Equal(t, "scenario_packages", c.row.Table)
	assert.Equal(t, "version", c.row.Column)
	// package update plus one section_saved outbox event
	assert.Equal(t, 2, c.plan.Count())
}

func TestInteractor_Execute_Publish(t *testing.T) {
	it, r, c := newInteractor(storedPackage(1))

	_, err := it.Execute(context.Background(), &Request{
		PackageID: "pkg-1",
		Section:   domain.SectionPublish,
		Data:      json.RawMessage(`{"published":true,"channels":["web"]}`),
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{domain.SectionPublish, domain.FieldStatus}, r.updated)
	// update, section_saved, published
	assert.Equal(t, 3, c.plan.Count())
}

func TestInteractor_Execute_Unchanged(t *testing.T) {
	it, _, c := newInteractor(storedPackage(3))

	resp, err := it.Execute(context.Background(), &Request{
		PackageID: "pkg-1",
		Section:   domain.SectionBasic,
		Data:      json.RawMessage(`{"category":"boat","name":"Sunset cruise"}`),
	})
	require.NoError(t, err)
	assert.False(t, resp.Changed)
	assert.Equal(t, int64(3), resp.Version)
	assert.Zero(t, c.calls)
}

func TestInteractor_Execute_Errors(t *testing.T) {
	valid := json.RawMessage(`{"name":"Sunset cruise","category":"sail"}`)

	t.Run("stale expected version", func(t *testing.T) {
		it, _, c := newInteractor(storedPackage(5))
		_, err := it.Execute(context.Background(), &Request{PackageID: "pkg-1", Section: domain.SectionBasic, ExpectedVersion: 4, Data: valid})
		assert.ErrorIs(t, err, domain.ErrVersionConflict)
		assert.Zero(t, c.calls)
	})

	t.Run("concurrent commit", func(t *testing.T) {
		it, _, c := newInteractor(storedPackage(5))
		c.err = committer.ErrVersionConflict
		_, err := it.Execute(context.Background(), &Request{PackageID: "pkg-1", Section: domain.SectionBasic, Data: valid})
		assert.ErrorIs(t, err, domain.ErrVersionConflict)
		assert.Equal(t, domain.CodeVersionConflict, domain.ErrorCode(err))
	})

	t.Run("row vanished", func(t *testing.T) {
		it, _, c := newInteractor(storedPackage(5))
		c.err = committer.ErrRowNotFound
		_, err := it.Execute(context.Background(), &Request{PackageID: "pkg-1", Section: domain.SectionBasic, Data: valid})
		assert.ErrorIs(t, err, domain.ErrPackageNotFound)
	})

	t.Run("commit failure", func(t *testing.T) {
		it, _, c := newInteractor(storedPackage(5))
		c.err = errors.New("spanner unavailable")
		_, err := it.Execute(context.Background(), &Request{PackageID: "pkg-1", Section: domain.SectionBasic, Data: valid})
		require.Error(t, err)
		assert.Empty(t, domain.ErrorCode(err))
	})

	t.Run("not found", func(t *testing.T) {
		it, r, _ := newInteractor(nil)
		r.getErr = domain.ErrPackageNotFound
		_, err := it.Execute(context.Background(), &Request{PackageID: "pkg-9", Section: domain.SectionBasic, Data: valid})
		assert.ErrorIs(t, err, domain.ErrPackageNotFound)
	})

	t.Run("invalid payload", func(t *testing.T) {
		it, _, c := newInteractor(storedPackage(5))
		_, err := it.Execute(context.Background(), &Request{PackageID: "pkg-1", Section: domain.SectionBasic, Data: json.RawMessage(`{"name":""}`)})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "name")
		assert.Zero(t, c.calls)
	})

	t.Run("missing fields", func(t *testing.T) {
		it, _, _ := newInteractor(storedPackage(5))
		_, err := it.Execute(context.Background(), &Request{Section: domain.SectionBasic, Data: valid})
		assert.ErrorIs(t, err, domain.ErrMalformedPayload)
		_, err = it.Execute(context.Background(), &Request{PackageID: "pkg-1", Section: domain.SectionBasic})
		assert.ErrorIs(t, err, domain.ErrMalformedPayload)
	})
}
