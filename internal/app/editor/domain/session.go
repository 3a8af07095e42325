package domain

import "github.com/google/uuid"

// EditorSession is the aggregate root of the editor coordinator. It holds
// the per-section dirty flags, the active section, the save-and-leave
// flag, and the navigation awaiting confirmation for one editor instance.
//
// EditorSession is not safe for concurrent use; registry.Registry guards it.
type EditorSession struct {
	id            string
	entityID      string
	sections      []Section
	activeSection Section
	dirty         *DirtySet
	saving        bool

	// pending is non-nil exactly while the confirmation prompt is shown.
	pending *Action

	events []SessionEvent
}

// NewEditorSession creates an unmounted session over a closed set of sections.
// The first section is active by default.
func NewEditorSession(sections []Section) *EditorSession {
	s := &EditorSession{
		id:       uuid.New().String(),
		sections: append([]Section(nil), sections...),
		events:   make([]SessionEvent, 0),
	}
	s.resetFields()
	return s
}

// Getters
func (s *EditorSession) ID() string                   { return s.id }
func (s *EditorSession) EntityID() string             { return s.entityID }
func (s *EditorSession) Mounted() bool                { return s.entityID != "" }
func (s *EditorSession) ActiveSection() Section       { return s.activeSection }
func (s *EditorSession) Saving() bool                 { return s.saving }
func (s *EditorSession) Pending() *Action             { return s.pending }
func (s *EditorSession) Sections() []Section          { return append([]Section(nil), s.sections...) }
func (s *EditorSession) Dirty(sec Section) bool       { return s.dirty.Dirty(sec) }
func (s *EditorSession) DirtyFlags() map[Section]bool { return s.dirty.Copy() }
func (s *EditorSession) DirtySections() []Section     { return s.dirty.DirtySections() }
func (s *EditorSession) IsAnyDirty() bool             { return s.dirty.Any() }
func (s *EditorSession) Events() []SessionEvent       { return s.events }

// GuardState derives the guard state from the pending navigation.
func (s *EditorSession) GuardState() GuardState {
	if s.pending != nil {
		return GuardConfirming
	}
	return GuardIdle
}

// HasSection reports whether sec belongs to this editor.
func (s *EditorSession) HasSection(sec Section) bool {
	return s.dirty.Has(sec)
}

// Mount starts editing entityID. Mounting a different entity than the
// current one tears the session down first. Re-mounting the same entity is
// a no-op.
func (s *EditorSession) Mount(entityID string) {
	if entityID == s.entityID {
		return
	}
	if s.entityID != "" {
		s.Reset()
	}
	s.entityID = entityID
	s.recordEvent(&SessionMountedEvent{EntityID: entityID})
}

// Reset clears every field back to the unmounted state.
func (s *EditorSession) Reset() {
	prev := s.entityID
	s.resetFields()
	s.recordEvent(&SessionResetEvent{PreviousEntityID: prev})
}

// SetDirty records the dirty flag for a section. Last write wins.
func (s *EditorSession) SetDirty(sec Section, dirty bool) error {
	if !s.dirty.Has(sec) {
		return ErrUnknownSection
	}
	if s.dirty.Set(sec, dirty) {
		s.recordEvent(&DirtyChangedEvent{Section: sec, Dirty: dirty})
	}
	return nil
}

// ClearAllDirty marks every section clean.
func (s *EditorSession) ClearAllDirty() {
	for _, sec := range s.dirty.ClearAll() {
		s.recordEvent(&DirtyChangedEvent{Section: sec, Dirty: false})
	}
}

// SetSaving records whether a save-and-leave resolution is outstanding.
func (s *EditorSession) SetSaving(saving bool) {
	if s.saving == saving {
		return
	}
	s.saving = saving
	s.recordEvent(&SavingChangedEvent{Saving: saving})
}

// SetActiveSection switches the active tab.
func (s *EditorSession) SetActiveSection(sec Section) error {
	if !s.dirty.Has(sec) {
		return ErrUnknownSection
	}
	if s.activeSection == sec {
		return nil
	}
	from := s.activeSection
	s.activeSection = sec
	s.recordEvent(&ActiveSectionChangedEvent{From: from, To: sec})
	return nil
}

// CaptureNavigation stores action as the navigation awaiting confirmation.
// An outstanding confirmation is never overwritten.
func (s *EditorSession) CaptureNavigation(action *Action) error {
	if action == nil {
		return ErrNilAction
	}
	if s.pending != nil {
		return ErrNavigationPending
	}
	s.pending = action
	s.recordEvent(&NavigationCapturedEvent{Action: action})
	return nil
}

// ReleaseNavigation removes and returns the navigation awaiting confirmation.
func (s *EditorSession) ReleaseNavigation() (*Action, error) {
	if s.pending == nil {
		return nil, ErrNoPendingNavigation
	}
	action := s.pending
	s.pending = nil
	s.recordEvent(&NavigationReleasedEvent{Action: action})
	return action, nil
}

// ClearEvents clears all recorded events (called after publishing).
func (s *EditorSession) ClearEvents() {
	s.events = make([]SessionEvent, 0)
}

func (s *EditorSession) resetFields() {
	s.entityID = ""
	s.dirty = NewDirtySet(s.sections)
	s.saving = false
	s.pending = nil
	s.activeSection = ""
	if len(s.sections) > 0 {
		s.activeSection = s.sections[0]
	}
}

func (s *EditorSession) recordEvent(event SessionEvent) {
	s.events = append(s.events, event)
}
