package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/procat-editor/internal/app/editor/domain"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New(domain.ScenarioPackageSections())
	r.Mount("pkg-1")
	return r
}

func TestRegistry_SetDirty(t *testing.T) {
	r := newRegistry(t)

	require.NoError(t, r.SetDirty(domain.SectionBasic, true))
	assert.True(t, r.IsAnyDirty())
	assert.True(t, r.Dirty(domain.SectionBasic))
	assert.False(t, r.Dirty(domain.SectionPackages), "dirtying basic must not touch packages")

	require.NoError(t, r.SetDirty(domain.SectionBasic, false))
	assert.False(t, r.IsAnyDirty())

	assert.ErrorIs(t, r.SetDirty("unknown", true), domain.ErrUnknownSection)
}

func TestRegistry_RequestNavigation(t *testing.T) {
	t.Run("clean session does not capture", func(t *testing.T) {
		r := newRegistry(t)

		captured, err := r.RequestNavigation(domain.NewLeaveAction(nil))
		require.NoError(t, err)
		assert.False(t, captured)
		assert.Nil(t, r.Pending())
		assert.Equal(t, domain.GuardIdle, r.GuardState())
	})

	t.Run("dirty session captures", func(t *testing.T) {
		r := newRegistry(t)
		require.NoError(t, r.SetDirty(domain.SectionAddons, true))
		action := domain.NewSwitchAction(domain.SectionPublish, nil)

		captured, err := r.RequestNavigation(action)
		require.NoError(t, err)
		assert.True(t, captured)
		assert.Same(t, action, r.Pending())
		assert.True(t, r.Snapshot().ConfirmationPending)
	})

	t.Run("pending navigation is never overwritten", func(t *testing.T) {
		r := newRegistry(t)
		require.NoError(t, r.SetDirty(domain.SectionAddons, true))
		first := domain.NewLeaveAction(nil)
		_, err := r.RequestNavigation(first)
		require.NoError(t, err)

		captured, err := r.RequestNavigation(domain.NewLeaveAction(nil))
		assert.ErrorIs(t, err, domain.ErrNavigationPending)
		assert.False(t, captured)
		assert.Same(t, first, r.Pending())
	})

	t.Run("release clears pending", func(t *testing.T) {
		r := newRegistry(t)
		require.NoError(t, r.SetDirty(domain.SectionAddons, true))
		action := domain.NewLeaveAction(nil)
		_, err := r.RequestNavigation(action)
		require.NoError(t, err)

		released, err := r.ReleaseNavigation()
		require.NoError(t, err)
		assert.Same(t, action, released)
		assert.False(t, r.Snapshot().ConfirmationPending)
	})
}

func TestRegistry_Watch(t *testing.T) {
	r := newRegistry(t)

	var changes []Change
	unsubscribe := r.Watch(func(c Change) { changes = append(changes, c) })

	require.NoError(t, r.SetDirty(domain.SectionBasic, true))
	require.NoError(t, r.SetDirty(domain.SectionBasic, true)) // no flip, no change
	r.SetSaving(true)

	require.Len(t, changes, 2)
	dirtyEvt, ok := changes[0].Event.(*domain.DirtyChangedEvent)
	require.True(t, ok)
	assert.Equal(t, domain.SectionBasic, dirtyEvt.Section)
	assert.True(t, changes[0].State.Dirty[domain.SectionBasic])
	assert.True(t, changes[1].State.Saving)

	unsubscribe()
	unsubscribe()
	r.SetSaving(false)
	assert.Len(t, changes, 2)
}

func TestRegistry_WatcherPanicIsContained(t *testing.T) {
	r := newRegistry(t)
	delivered := 0
	r.Watch(func(Change) { panic("boom") })
	r.Watch(func(Change) { delivered++ })

	assert.NotPanics(t, func() {
		require.NoError(t, r.SetDirty(domain.SectionPublish, true))
	})
	assert.Equal(t, 1, delivered)
}

func TestRegistry_WatcherMayReenter(t *testing.T) {
	r := newRegistry(t)
	var seen bool
	r.Watch(func(c Change) {
		seen = r.IsAnyDirty()
	})

	require.NoError(t, r.SetDirty(domain.SectionBasic, true))
	assert.True(t, seen)
}

func TestRegistry_MountAndTeardown(t *testing.T) {
	r := newRegistry(t)
	require.NoError(t, r.SetDirty(domain.SectionBasic, true))
	require.NoError(t, r.SetActiveSection(domain.SectionTimeSlots))

	r.Mount("pkg-2")
	state := r.Snapshot()
	assert.Equal(t, "pkg-2", state.EntityID)
	assert.False(t, r.IsAnyDirty())
	assert.Equal(t, domain.SectionBasic, state.ActiveSection)

	require.NoError(t, r.SetDirty(domain.SectionBasic, true))
	r.Teardown()
	assert.Equal(t, "", r.Snapshot().EntityID)
	assert.False(t, r.IsAnyDirty())
}

func TestRegistry_ConcurrentSetDirty(t *testing.T) {
	r := newRegistry(t)
	sections := domain.ScenarioPackageSections()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = r.SetDirty(sections[i%len(sections)], i%2 == 0)
		}(i)
	}
	wg.Wait()

	for _, sec := range sections {
		require.NoError(t, r.SetDirty(sec, false))
	}
	assert.False(t, r.IsAnyDirty())
}
