// Package registry holds the shared, session-scoped state of one editor
// instance: per-section dirty flags, the active section, the save-and-leave
// flag, and the navigation awaiting confirmation.
//
// A Registry is created per editor and injected into every collaborator;
// there is no package-level instance.
package registry

import (
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc/panics"

	"github.com/light-bringer/procat-editor/internal/app/editor/domain"
	"github.com/light-bringer/procat-editor/internal/pkg/logging"
)

// State is a point-in-time copy of the registry, safe to hand to UI code.
type State struct {
	SessionID           string
	EntityID            string
	ActiveSection       domain.Section
	Dirty               map[domain.Section]bool
	Saving              bool
	ConfirmationPending bool
	PendingAction       *domain.Action
}

// Change is delivered to watchers after every observable mutation.
type Change struct {
	Event domain.SessionEvent
	State State
}

// Watcher receives changes. It is called outside the registry lock and may
// call back into the registry.
type Watcher func(Change)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// Registry is the dirty registry. It is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	session *domain.EditorSession

	watchMu  sync.RWMutex
	watchers map[uint64]Watcher
	nextID   uint64

	logger *slog.Logger
}

// New creates a registry over a closed set of sections. Construction has no side effects.
func New(sections []domain.Section, opts ...Option) *Registry {
	r := &Registry{
		session:  domain.NewEditorSession(sections),
		watchers: make(map[uint64]Watcher),
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mount starts editing entityID, resetting everything if another entity was mounted.
func (r *Registry) Mount(entityID string) {
	r.mutate(func(s *domain.EditorSession) error {
		s.Mount(entityID)
		return nil
	})
	r.logger.Debug("editor session mounted", logging.KeyEntityID, entityID)
}

// Teardown resets every field. Called when the editor unmounts.
func (r *Registry) Teardown() {
	r.mutate(func(s *domain.EditorSession) error {
		s.Reset()
		return nil
	})
}

// SetDirty records a section's dirty flag. Idempotent and last-write-wins.
func (r *Registry) SetDirty(section domain.Section, dirty bool) error {
	return r.mutate(func(s *domain.EditorSession) error {
		return s.SetDirty(section, dirty)
	})
}

// ClearAllDirty marks every section clean.
func (r *Registry) ClearAllDirty() {
	r.mutate(func(s *domain.EditorSession) error {
		s.ClearAllDirty()
		return nil
	})
}

// SetSaving records whether a save-and-leave resolution is outstanding.
func (r *Registry) SetSaving(saving bool) {
	r.mutate(func(s *domain.EditorSession) error {
		s.SetSaving(saving)
		return nil
	})
}

// SetActiveSection switches the active section without any guarding.
func (r *Registry) SetActiveSection(section domain.Section) error {
	return r.mutate(func(s *domain.EditorSession) error {
		return s.SetActiveSection(section)
	})
}

// RequestNavigation atomically decides whether action may run now.
//
// With nothing dirty it returns captured=false and records nothing; the
// caller executes the action. Otherwise the action is stored as the pending
// navigation, captured=true is returned, and the caller must not execute it.
// A request while another navigation is pending fails with
// domain.ErrNavigationPending and leaves the first one in place.
func (r *Registry) RequestNavigation(action *domain.Action) (captured bool, err error) {
	err = r.mutate(func(s *domain.EditorSession) error {
		if action == nil {
			return domain.ErrNilAction
		}
		if s.Pending() != nil {
			return domain.ErrNavigationPending
		}
		if !s.IsAnyDirty() {
			return nil
		}
		captured = true
		return s.CaptureNavigation(action)
	})
	return captured, err
}

// ReleaseNavigation removes and returns the pending navigation.
func (r *Registry) ReleaseNavigation() (*domain.Action, error) {
	var action *domain.Action
	err := r.mutate(func(s *domain.EditorSession) error {
		var err error
		action, err = s.ReleaseNavigation()
		return err
	})
	return action, err
}

// IsAnyDirty returns true if any section has unsaved changes.
func (r *Registry) IsAnyDirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.IsAnyDirty()
}

// Dirty returns the dirty flag of one section.
func (r *Registry) Dirty(section domain.Section) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Dirty(section)
}

// DirtySections returns the dirty sections sorted by name.
func (r *Registry) DirtySections() []domain.Section {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.DirtySections()
}

// Saving reports whether a save-and-leave resolution is outstanding.
func (r *Registry) Saving() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Saving()
}

// ActiveSection returns the active section.
func (r *Registry) ActiveSection() domain.Section {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.ActiveSection()
}

// GuardState returns Confirming while a navigation is pending.
func (r *Registry) GuardState() domain.GuardState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.GuardState()
}

// Pending returns the navigation awaiting confirmation, or nil.
func (r *Registry) Pending() *domain.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Pending()
}

// HasSection reports whether section belongs to this editor.
func (r *Registry) HasSection(section domain.Section) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.HasSection(section)
}

// Sections returns the editor's sections in display order.
func (r *Registry) Sections() []domain.Section {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Sections()
}

// Snapshot returns a copy of the current state.
func (r *Registry) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

// Watch registers w for every subsequent change and returns a function that unregisters it.
func (r *Registry) Watch(w Watcher) (unsubscribe func()) {
	r.watchMu.Lock()
	id := r.nextID
	r.nextID++
	r.watchers[id] = w
	r.watchMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.watchMu.Lock()
			delete(r.watchers, id)
			r.watchMu.Unlock()
		})
	}
}

// mutate applies fn under the lock, then publishes recorded events outside it.
func (r *Registry) mutate(fn func(*domain.EditorSession) error) error {
	r.mu.Lock()
	err := fn(r.session)
	events := r.session.Events()
	r.session.ClearEvents()
	state := r.stateLocked()
	r.mu.Unlock()

	if len(events) > 0 {
		r.publish(events, state)
	}
	return err
}

func (r *Registry) stateLocked() State {
	pending := r.session.Pending()
	return State{
		SessionID:           r.session.ID(),
		EntityID:            r.session.EntityID(),
		ActiveSection:       r.session.ActiveSection(),
		Dirty:               r.session.DirtyFlags(),
		Saving:              r.session.Saving(),
		ConfirmationPending: pending != nil,
		PendingAction:       pending,
	}
}

func (r *Registry) publish(events []domain.SessionEvent, state State) {
	r.watchMu.RLock()
	watchers := make([]Watcher, 0, len(r.watchers))
	for _, w := range r.watchers {
		watchers = append(watchers, w)
	}
	r.watchMu.RUnlock()

	for _, evt := range events {
		for _, w := range watchers {
			r.safeCall(w, Change{Event: evt, State: state})
		}
	}
}

// safeCall invokes a watcher and recovers from any panic so one misbehaving
// watcher cannot break delivery to the rest.
func (r *Registry) safeCall(w Watcher, c Change) {
	var pc panics.Catcher
	pc.Try(func() { w(c) })
	if rec := pc.Recovered(); rec != nil {
		r.logger.Error("registry watcher panicked",
			"event", c.Event.EventType(),
			"panic", rec.Value,
			"stack", string(rec.Stack))
	}
}
