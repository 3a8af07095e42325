// Package bridge mirrors each section's local editing state into the dirty
// registry and, for sections that opt in, forwards snapshots to autosave.
package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/light-bringer/procat-editor/internal/app/editor/autosave"
	"github.com/light-bringer/procat-editor/internal/app/editor/domain"
	"github.com/light-bringer/procat-editor/internal/pkg/logging"
)

// ErrStaleBinding is returned when reporting through a binding that a later
// bind of the same section replaced, or that was unmounted.
var ErrStaleBinding = errors.New("section binding is no longer current")

// Report is what a section tells the bridge on every relevant change.
type Report struct {
	// IsDirty is true when the current values differ from the last committed ones.
	IsDirty bool
	// Snapshot is the current serializable data.
	Snapshot any
}

// DirtyStore is the part of the registry the bridge writes to.
type DirtyStore interface {
	SetDirty(section domain.Section, dirty bool) error
	HasSection(section domain.Section) bool
}

// Autosaver is the part of the scheduler the bridge forwards snapshots to.
type Autosaver interface {
	Seed(section domain.Section, snapshot any)
	Track(section domain.Section, data any, save autosave.SaveFunc) bool
	Schedule(section domain.Section, data any, save autosave.SaveFunc, quiet time.Duration) bool
	Cancel(section domain.Section)
	Forget(section domain.Section)
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithAutosaver forwards snapshots of sections bound with a save function.
func WithAutosaver(a Autosaver) Option {
	return func(b *Bridge) { b.autosaver = a }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// Bridge hands out section bindings. It is safe for concurrent use.
type Bridge struct {
	mu      sync.Mutex
	current map[domain.Section]uint64
	nextGen uint64

	store     DirtyStore
	autosaver Autosaver
	logger    *slog.Logger
}

// New creates a Bridge writing to store.
func New(store DirtyStore, opts ...Option) *Bridge {
	b := &Bridge{
		current: make(map[domain.Section]uint64),
		store:   store,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type bindConfig struct {
	save      autosave.SaveFunc
	quiet     time.Duration
	autosave  bool
	onUnmount func()
}

// BindOption configures one binding.
type BindOption func(*bindConfig)

// WithAutosave schedules a debounced save of every dirty snapshot.
func WithAutosave(save autosave.SaveFunc, quiet time.Duration) BindOption {
	return func(c *bindConfig) {
		c.save = save
		c.quiet = quiet
		c.autosave = true
	}
}

// WithSave records dirty snapshots for explicit saves without autosaving them.
func WithSave(save autosave.SaveFunc) BindOption {
	return func(c *bindConfig) {
		c.save = save
		c.autosave = false
	}
}

// WithOnUnmount runs fn when the binding unmounts.
func WithOnUnmount(fn func()) BindOption {
	return func(c *bindConfig) { c.onUnmount = fn }
}

// Binding connects one mounted section to the registry.
type Binding struct {
	bridge  *Bridge
	section domain.Section
	gen     uint64
	cfg     bindConfig
	once    sync.Once
}

// Bind starts mirroring section. Binding a section that is already bound
// replaces the earlier binding, which becomes stale.
func (b *Bridge) Bind(section domain.Section, opts ...BindOption) (*Binding, error) {
	if !b.store.HasSection(section) {
		return nil, fmt.Errorf("bind %q: %w", section, domain.ErrUnknownSection)
	}

	var cfg bindConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	b.mu.Lock()
	b.nextGen++
	gen := b.nextGen
	_, replaced := b.current[section]
	b.current[section] = gen
	b.mu.Unlock()

	if replaced {
		b.logger.Debug("section rebound, earlier binding is stale", logging.KeySection, section)
	}
	return &Binding{bridge: b, section: section, gen: gen, cfg: cfg}, nil
}

// Bound reports whether section currently has a binding.
func (b *Bridge) Bound(section domain.Section) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.current[section]
	return ok
}

func (b *Bridge) isCurrent(section domain.Section, gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current[section] == gen
}

// Section returns the bound section.
func (bd *Binding) Section() domain.Section { return bd.section }

// Current reports whether this binding is still the live one for its section.
func (bd *Binding) Current() bool {
	return bd.bridge.isCurrent(bd.section, bd.gen)
}

// Seed tells autosave which snapshot was loaded, so it is not saved back.
func (bd *Binding) Seed(snapshot any) {
	if bd.bridge.autosaver == nil || bd.cfg.save == nil || !bd.Current() {
		return
	}
	bd.bridge.autosaver.Seed(bd.section, snapshot)
}

// Report mirrors r into the registry. Dirty snapshots are forwarded to
// autosave when the binding has a save function; a clean report cancels any
// pending autosave. A dirty snapshot equal to the last saved one is recorded
// as clean.
func (bd *Binding) Report(r Report) error {
	if !bd.Current() {
		return ErrStaleBinding
	}

	dirty := r.IsDirty
	if a := bd.bridge.autosaver; a != nil && bd.cfg.save != nil {
		switch {
		case !r.IsDirty:
			a.Cancel(bd.section)
		case bd.cfg.autosave:
			dirty = a.Schedule(bd.section, r.Snapshot, bd.cfg.save, bd.cfg.quiet)
		default:
			dirty = a.Track(bd.section, r.Snapshot, bd.cfg.save)
		}
	}

	if err := bd.bridge.store.SetDirty(bd.section, dirty); err != nil {
		return fmt.Errorf("report %s: %w", bd.section, err)
	}
	return nil
}

// Unmount clears the section's dirty flag unconditionally and drops its
// autosave state. Unmounting a stale binding only runs its own callback.
// Unmount is idempotent.
func (bd *Binding) Unmount() {
	bd.once.Do(func() {
		b := bd.bridge
		b.mu.Lock()
		current := b.current[bd.section] == bd.gen
		if current {
			delete(b.current, bd.section)
		}
		b.mu.Unlock()

		if current {
			if err := b.store.SetDirty(bd.section, false); err != nil {
				b.logger.Warn("clear dirty flag on unmount", logging.KeySection, bd.section, "error", err)
			}
			if b.autosaver != nil {
				b.autosaver.Forget(bd.section)
			}
		}
		if bd.cfg.onUnmount != nil {
			bd.cfg.onUnmount()
		}
	})
}
