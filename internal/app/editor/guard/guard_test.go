package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/procat-editor/internal/app/editor/autosave"
	"github.com/light-bringer/procat-editor/internal/app/editor/domain"
	"github.com/light-bringer/procat-editor/internal/app/editor/errclass"
	"github.com/light-bringer/procat-editor/internal/app/editor/registry"
	"github.com/light-bringer/procat-editor/internal/pkg/clock"
)

const quiet = 3 * time.Second

// journal records save calls, failures and navigations in order.
type journal struct {
	mu      sync.Mutex
	entries []string
	saved   map[domain.Section][]any
	failed  map[domain.Section]*errclass.ClassifiedError
}

func newJournal() *journal {
	return &journal{
		saved:  map[domain.Section][]any{},
		failed: map[domain.Section]*errclass.ClassifiedError{},
	}
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func (j *journal) SaveSucceeded(section domain.Section) { j.add("saved " + string(section)) }

func (j *journal) SaveFailed(section domain.Section, err *errclass.ClassifiedError) {
	j.mu.Lock()
	j.failed[section] = err
	j.mu.Unlock()
	j.add("failed " + string(section))
}

func (j *journal) saveFn(section domain.Section, err error) autosave.SaveFunc {
	return func(_ context.Context, data any) error {
		j.mu.Lock()
		j.saved[section] = append(j.saved[section], data)
		j.mu.Unlock()
		return err
	}
}

type fixture struct {
	clk   *clock.MockClock
	reg   *registry.Registry
	sched *autosave.Scheduler
	guard *Guard
	log   *journal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clk: clock.NewMockClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		reg: registry.New(domain.ScenarioPackageSections()),
		log: newJournal(),
	}
	f.reg.Mount("pkg-1")
	f.sched = autosave.New(f.reg, autosave.WithClock(f.clk), autosave.WithNotifier(f.log))
	f.guard = New(f.reg, f.sched, WithNotifier(f.log))
	return f
}

func (f *fixture) edit(t *testing.T, section domain.Section, data any, err error) {
	t.Helper()
	require.NoError(t, f.reg.SetDirty(section, true))
	f.sched.Schedule(section, data, f.log.saveFn(section, err), quiet)
}

func (f *fixture) switchTo(target domain.Section) *domain.Action {
	return domain.NewSwitchAction(target, func() {
		_ = f.reg.SetActiveSection(target)
		f.log.add("switched " + string(target))
	})
}

func TestGuard_RequestNavigation(t *testing.T) {
	t.Run("clean session navigates immediately", func(t *testing.T) {
		f := newFixture(t)

		executed, err := f.guard.RequestNavigation(f.switchTo(domain.SectionAddons))
		require.NoError(t, err)
		assert.True(t, executed)
		assert.Equal(t, domain.SectionAddons, f.reg.ActiveSection())
		assert.Equal(t, domain.GuardIdle, f.guard.State())
	})

	t.Run("dirty session captures", func(t *testing.T) {
		f := newFixture(t)
		f.edit(t, domain.SectionBasic, "b", nil)
		action := f.switchTo(domain.SectionAddons)

		executed, err := f.guard.RequestNavigation(action)
		require.NoError(t, err)
		assert.False(t, executed)
		assert.Equal(t, domain.GuardConfirming, f.guard.State())
		assert.Same(t, action, f.guard.Pending())
		assert.Equal(t, domain.SectionBasic, f.reg.ActiveSection())
	})

	t.Run("second attempt does not overwrite", func(t *testing.T) {
		f := newFixture(t)
		f.edit(t, domain.SectionBasic, "b", nil)
		first := f.switchTo(domain.SectionAddons)
		_, err := f.guard.RequestNavigation(first)
		require.NoError(t, err)

		executed, err := f.guard.RequestNavigation(domain.NewLeaveAction(func() { f.log.add("left") }))
		assert.ErrorIs(t, err, domain.ErrNavigationPending)
		assert.False(t, executed)
		assert.Same(t, first, f.guard.Pending())
		assert.Empty(t, f.log.Entries())
	})

	t.Run("nil action", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.guard.RequestNavigation(nil)
		assert.ErrorIs(t, err, domain.ErrNilAction)
	})
}

func TestGuard_ResolveCancel(t *testing.T) {
	f := newFixture(t)
	f.edit(t, domain.SectionBasic, "b", nil)
	_, err := f.guard.RequestNavigation(f.switchTo(domain.SectionPublish))
	require.NoError(t, err)

	out, err := f.guard.Resolve(context.Background(), domain.ResolutionCancel)
	require.NoError(t, err)
	assert.False(t, out.Executed)
	assert.Equal(t, domain.GuardIdle, f.guard.State())
	assert.True(t, f.reg.Dirty(domain.SectionBasic))
	assert.Equal(t, domain.SectionBasic, f.reg.ActiveSection())
	assert.True(t, f.sched.Pending(domain.SectionBasic), "autosave keeps running after cancel")
}

func TestGuard_ResolveDiscard(t *testing.T) {
	f := newFixture(t)
	f.edit(t, domain.SectionBasic, "b", nil)
	f.edit(t, domain.SectionTimeSlots, "slots", nil)
	runs := 0
	_, err := f.guard.RequestNavigation(domain.NewLeaveAction(func() { runs++ }))
	require.NoError(t, err)

	out, err := f.guard.Resolve(context.Background(), domain.ResolutionDiscard)
	require.NoError(t, err)

	assert.True(t, out.Executed)
	assert.Equal(t, 1, runs)
	assert.False(t, f.reg.IsAnyDirty())
	assert.Equal(t, domain.GuardIdle, f.guard.State())

	f.clk.Advance(quiet)
	assert.Empty(t, f.log.saved, "discarded edits are never autosaved")
}

func TestGuard_ResolveSaveThenLeave(t *testing.T) {
	f := newFixture(t)
	var saving []bool
	f.reg.Watch(func(c registry.Change) {
		if e, ok := c.Event.(*domain.SavingChangedEvent); ok {
			saving = append(saving, e.Saving)
		}
	})

	f.edit(t, domain.SectionBasic, map[string]any{"name": "Spa day"}, nil)
	executed, err := f.guard.RequestNavigation(f.switchTo(domain.SectionPackages))
	require.NoError(t, err)
	require.False(t, executed)
	require.Equal(t, domain.GuardConfirming, f.guard.State())

	out, err := f.guard.Resolve(context.Background(), domain.ResolutionSaveThenLeave)
	require.NoError(t, err)

	assert.Equal(t, []any{map[string]any{"name": "Spa day"}}, f.log.saved[domain.SectionBasic])
	assert.False(t, f.reg.Dirty(domain.SectionBasic))
	assert.Equal(t, domain.GuardIdle, f.guard.State())
	assert.Equal(t, domain.SectionPackages, f.reg.ActiveSection())
	assert.True(t, out.Executed)
	assert.Empty(t, out.Failures)
	assert.Equal(t, []bool{true, false}, saving)
	assert.False(t, f.sched.Pending(domain.SectionBasic))

	f.clk.Advance(quiet)
	assert.Len(t, f.log.saved[domain.SectionBasic], 1, "the debounce timer was superseded")
}

func TestGuard_SaveThenLeaveWithFailure(t *testing.T) {
	f := newFixture(t)
	f.edit(t, domain.SectionBasic, "b", nil)
	f.edit(t, domain.SectionPackages, "p", &errclass.ResponseError{StatusCode: 409})
	_, err := f.guard.RequestNavigation(f.switchTo(domain.SectionPublish))
	require.NoError(t, err)

	out, err := f.guard.Resolve(context.Background(), domain.ResolutionSaveThenLeave)
	require.NoError(t, err)

	assert.True(t, out.Executed, "a failed save does not block navigation")
	require.Contains(t, out.Failures, domain.SectionPackages)
	assert.Equal(t, errclass.KindConflict, out.Failures[domain.SectionPackages].Kind)
	assert.NotContains(t, out.Failures, domain.SectionBasic)
	assert.True(t, f.reg.Dirty(domain.SectionPackages))
	assert.False(t, f.reg.Dirty(domain.SectionBasic))

	entries := f.log.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, "switched publish", entries[len(entries)-1], "failures are surfaced before navigating")
	assert.Contains(t, entries, "failed packages")
}

func TestGuard_SaveThenLeaveUntrackedSection(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.SetDirty(domain.SectionAddons, true))
	_, err := f.guard.RequestNavigation(domain.NewLeaveAction(nil))
	require.NoError(t, err)

	out, err := f.guard.Resolve(context.Background(), domain.ResolutionSaveThenLeave)
	require.NoError(t, err)

	require.Contains(t, out.Failures, domain.SectionAddons)
	assert.Equal(t, errclass.KindUnknown, out.Failures[domain.SectionAddons].Kind)
	assert.Same(t, out.Failures[domain.SectionAddons], f.log.failed[domain.SectionAddons])
	assert.True(t, out.Executed)
}

func TestGuard_SaveThenLeaveRunsSectionsConcurrently(t *testing.T) {
	f := newFixture(t)
	var started sync.WaitGroup
	started.Add(2)
	release := make(chan struct{})
	blocking := func(context.Context, any) error {
		started.Done()
		<-release
		return nil
	}
	for _, s := range []domain.Section{domain.SectionBasic, domain.SectionAddons} {
		require.NoError(t, f.reg.SetDirty(s, true))
		f.sched.Track(s, string(s), blocking)
	}
	_, err := f.guard.RequestNavigation(domain.NewLeaveAction(nil))
	require.NoError(t, err)

	done := make(chan Outcome, 1)
	go func() {
		out, _ := f.guard.Resolve(context.Background(), domain.ResolutionSaveThenLeave)
		done <- out
	}()

	started.Wait()
	assert.True(t, f.reg.Saving())
	assert.Equal(t, domain.GuardConfirming, f.guard.State(), "navigation waits for every save")

	_, err = f.guard.Resolve(context.Background(), domain.ResolutionCancel)
	assert.ErrorIs(t, err, ErrResolving)

	close(release)
	out := <-done
	assert.True(t, out.Executed)
	assert.False(t, f.reg.Saving())
	assert.False(t, f.reg.IsAnyDirty())
}

func TestGuard_ResolveErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.guard.Resolve(context.Background(), domain.ResolutionDiscard)
	assert.ErrorIs(t, err, domain.ErrNoPendingNavigation)

	_, err = f.guard.Resolve(context.Background(), domain.Resolution("stay"))
	assert.ErrorIs(t, err, domain.ErrUnknownResolution)
}

func TestGuard_ActionMayNavigateAgain(t *testing.T) {
	f := newFixture(t)
	f.edit(t, domain.SectionBasic, "b", nil)

	var inner error
	action := domain.NewLeaveAction(func() {
		_, inner = f.guard.RequestNavigation(f.switchTo(domain.SectionAddons))
	})
	_, err := f.guard.RequestNavigation(action)
	require.NoError(t, err)

	_, err = f.guard.Resolve(context.Background(), domain.ResolutionDiscard)
	require.NoError(t, err)
	assert.NoError(t, inner)
	assert.Equal(t, domain.SectionAddons, f.reg.ActiveSection())
}

func TestGuard_DiscardDuringFailingSave(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	calls := 0
	var mu sync.Mutex

	require.NoError(t, f.reg.SetDirty(domain.SectionBasic, true))
	f.sched.Schedule(domain.SectionBasic, "discard-me", func(context.Context, any) error {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return &errclass.ResponseError{StatusCode: 503}
	}, quiet)

	advanced := make(chan struct{})
	go func() {
		f.clk.Advance(quiet)
		close(advanced)
	}()
	require.Eventually(t, func() bool { return f.sched.InFlight(domain.SectionBasic) }, time.Second, time.Millisecond)

	executed, err := f.guard.RequestNavigation(f.switchTo(domain.SectionAddons))
	require.NoError(t, err)
	require.False(t, executed)

	out, err := f.guard.Resolve(context.Background(), domain.ResolutionDiscard)
	require.NoError(t, err)
	assert.True(t, out.Executed)

	close(release)
	<-advanced
	assert.Equal(t, []string{"switched addons", "failed basic"}, f.log.Entries())

	require.NoError(t, f.sched.SaveNow(context.Background(), domain.SectionBasic))
	mu.Lock()
	assert.Equal(t, 1, calls, "discarded data is not saved again")
	mu.Unlock()
	assert.False(t, f.reg.IsAnyDirty())
}
