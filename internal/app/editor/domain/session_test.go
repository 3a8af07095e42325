package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(t *testing.T) *EditorSession {
	t.Helper()
	s := NewEditorSession(ScenarioPackageSections())
	s.Mount("pkg-1")
	s.ClearEvents()
	return s
}

func TestNewEditorSession(t *testing.T) {
	s := NewEditorSession(ScenarioPackageSections())

	assert.NotEmpty(t, s.ID())
	assert.False(t, s.Mounted())
	assert.Equal(t, SectionBasic, s.ActiveSection())
	assert.False(t, s.IsAnyDirty())
	assert.Equal(t, GuardIdle, s.GuardState())
	assert.Len(t, s.DirtyFlags(), 5, "every section present")
	for sec, dirty := range s.DirtyFlags() {
		assert.False(t, dirty, "section %s should start clean", sec)
	}
}

func TestEditorSession_SetDirty(t *testing.T) {
	t.Run("sections are independent", func(t *testing.T) {
		s := newSession(t)

		require.NoError(t, s.SetDirty(SectionBasic, true))
		assert.True(t, s.Dirty(SectionBasic))
		assert.False(t, s.Dirty(SectionPackages))

		require.NoError(t, s.SetDirty(SectionPackages, true))
		require.NoError(t, s.SetDirty(SectionBasic, false))
		assert.False(t, s.Dirty(SectionBasic))
		assert.True(t, s.Dirty(SectionPackages))
		assert.Equal(t, []Section{SectionPackages}, s.DirtySections())
	})

	t.Run("idempotent writes emit one event", func(t *testing.T) {
		s := newSession(t)

		require.NoError(t, s.SetDirty(SectionAddons, true))
		require.NoError(t, s.SetDirty(SectionAddons, true))

		require.Len(t, s.Events(), 1)
		evt, ok := s.Events()[0].(*DirtyChangedEvent)
		require.True(t, ok)
		assert.Equal(t, SectionAddons, evt.Section)
		assert.True(t, evt.Dirty)
	})

	t.Run("unknown section rejected", func(t *testing.T) {
		s := newSession(t)
		assert.ErrorIs(t, s.SetDirty(Section("pricing"), true), ErrUnknownSection)
	})
}

func TestEditorSession_Navigation(t *testing.T) {
	t.Run("captured action is released once", func(t *testing.T) {
		s := newSession(t)
		action := NewSwitchAction(SectionPackages, nil)

		require.NoError(t, s.CaptureNavigation(action))
		assert.Equal(t, GuardConfirming, s.GuardState())
		assert.Same(t, action, s.Pending())

		released, err := s.ReleaseNavigation()
		require.NoError(t, err)
		assert.Same(t, action, released)
		assert.Equal(t, GuardIdle, s.GuardState())

		_, err = s.ReleaseNavigation()
		assert.ErrorIs(t, err, ErrNoPendingNavigation)
	})

	t.Run("second capture does not overwrite", func(t *testing.T) {
		s := newSession(t)
		first := NewLeaveAction(nil)

		require.NoError(t, s.CaptureNavigation(first))
		err := s.CaptureNavigation(NewSwitchAction(SectionPublish, nil))
		assert.ErrorIs(t, err, ErrNavigationPending)
		assert.Same(t, first, s.Pending())
	})

	t.Run("nil action rejected", func(t *testing.T) {
		s := newSession(t)
		assert.ErrorIs(t, s.CaptureNavigation(nil), ErrNilAction)
	})
}

func TestEditorSession_Mount(t *testing.T) {
	t.Run("mounting another entity resets state", func(t *testing.T) {
		s := newSession(t)
		require.NoError(t, s.SetDirty(SectionBasic, true))
		require.NoError(t, s.SetActiveSection(SectionPublish))
		s.SetSaving(true)
		require.NoError(t, s.CaptureNavigation(NewLeaveAction(nil)))

		s.Mount("pkg-2")

		assert.Equal(t, "pkg-2", s.EntityID())
		assert.False(t, s.IsAnyDirty())
		assert.False(t, s.Saving())
		assert.Nil(t, s.Pending())
		assert.Equal(t, SectionBasic, s.ActiveSection())
	})

	t.Run("remounting the same entity keeps state", func(t *testing.T) {
		s := newSession(t)
		require.NoError(t, s.SetDirty(SectionBasic, true))

		s.Mount("pkg-1")
		assert.True(t, s.Dirty(SectionBasic))
	})

	t.Run("reset unmounts", func(t *testing.T) {
		s := newSession(t)
		s.Reset()
		assert.False(t, s.Mounted())
		assert.Equal(t, "", s.EntityID())
	})
}

func TestParseResolution(t *testing.T) {
	for _, r := range []Resolution{ResolutionCancel, ResolutionDiscard, ResolutionSaveThenLeave} {
		got, err := ParseResolution(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	_, err := ParseResolution("maybe")
	assert.ErrorIs(t, err, ErrUnknownResolution)
}

func TestParseSection(t *testing.T) {
	sec, err := ParseSection("time_slots", ScenarioPackageSections())
	require.NoError(t, err)
	assert.Equal(t, SectionTimeSlots, sec)

	_, err = ParseSection("inventory", ScenarioPackageSections())
	assert.ErrorIs(t, err, ErrUnknownSection)
}

func TestAction_Execute(t *testing.T) {
	calls := 0
	NewLeaveAction(func() { calls++ }).Execute()
	assert.Equal(t, 1, calls)

	var nilAction *Action
	assert.NotPanics(t, func() { nilAction.Execute() })
	assert.NotPanics(t, func() { NewLeaveAction(nil).Execute() })
	assert.Equal(t, "switch_section(publish)", NewSwitchAction(SectionPublish, nil).String())
}
