package domain

// SessionEvent is emitted by EditorSession whenever observable state changes.
type SessionEvent interface {
	EventType() string
}

// SessionMountedEvent is emitted when a session starts editing an entity.
type SessionMountedEvent struct {
	EntityID string
}

func (e *SessionMountedEvent) EventType() string { return "editor.session.mounted" }

// SessionResetEvent is emitted when the session is torn down.
type SessionResetEvent struct {
	PreviousEntityID string
}

func (e *SessionResetEvent) EventType() string { return "editor.session.reset" }

// DirtyChangedEvent is emitted when a section's dirty flag flips.
type DirtyChangedEvent struct {
	Section Section
	Dirty   bool
}

func (e *DirtyChangedEvent) EventType() string { return "editor.section.dirty_changed" }

// SavingChangedEvent is emitted when the save-and-leave flag flips.
type SavingChangedEvent struct {
	Saving bool
}

func (e *SavingChangedEvent) EventType() string { return "editor.saving_changed" }

// ActiveSectionChangedEvent is emitted when the active tab changes.
type ActiveSectionChangedEvent struct {
	From Section
	To   Section
}

func (e *ActiveSectionChangedEvent) EventType() string { return "editor.section.activated" }

// NavigationCapturedEvent is emitted when a navigation is blocked for confirmation.
type NavigationCapturedEvent struct {
	Action *Action
}

func (e *NavigationCapturedEvent) EventType() string { return "editor.navigation.captured" }

// NavigationReleasedEvent is emitted when a captured navigation leaves the session.
type NavigationReleasedEvent struct {
	Action *Action
}

func (e *NavigationReleasedEvent) EventType() string { return "editor.navigation.released" }
