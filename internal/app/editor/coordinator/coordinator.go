// Package coordinator wires the dirty registry, section bridge, autosave
// scheduler, navigation guard and error classifier for one editor instance.
//
// Every Coordinator owns its own collaborators; nothing is shared between
// editors.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/light-bringer/procat-editor/internal/app/editor/autosave"
	"github.com/light-bringer/procat-editor/internal/app/editor/bridge"
	"github.com/light-bringer/procat-editor/internal/app/editor/domain"
	"github.com/light-bringer/procat-editor/internal/app/editor/errclass"
	"github.com/light-bringer/procat-editor/internal/app/editor/guard"
	"github.com/light-bringer/procat-editor/internal/app/editor/registry"
	"github.com/light-bringer/procat-editor/internal/pkg/clock"
	"github.com/light-bringer/procat-editor/internal/pkg/logging"
	"github.com/light-bringer/procat-editor/internal/platform/config"
)

const tracerName = "github.com/light-bringer/procat-editor/internal/app/editor"

// Settings holds the editor's timing and locale.
type Settings struct {
	Sections      []domain.Section
	QuietPeriod   time.Duration
	RetryInterval time.Duration
	Locale        string
}

// SettingsFromConfig builds Settings for the scenario package editor.
func SettingsFromConfig(cfg config.Editor) Settings {
	return Settings{
		Sections:      domain.ScenarioPackageSections(),
		QuietPeriod:   cfg.QuietPeriod,
		RetryInterval: cfg.RetryInterval,
		Locale:        cfg.Locale,
	}
}

// SectionStatus is what a section's UI renders.
type SectionStatus struct {
	Dirty     bool
	Saving    bool
	Pending   bool
	LastError *errclass.ClassifiedError
}

// Option configures a Coordinator.
type Option func(*options)

type options struct {
	clock    clock.Clock
	logger   *slog.Logger
	notifier autosave.Notifier
	equal    autosave.EqualFunc
	tracer   trace.Tracer
}

// WithClock sets the clock used for debounce timers.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger shared by every collaborator.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithNotifier adds a sink for save outcomes.
func WithNotifier(n autosave.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithEqual overrides the snapshot comparison used by autosave.
func WithEqual(eq autosave.EqualFunc) Option {
	return func(o *options) { o.equal = eq }
}

// WithTracer sets the tracer for save and resolution spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// Coordinator is the editor session coordinator. It is safe for concurrent use.
type Coordinator struct {
	settings   Settings
	registry   *registry.Registry
	scheduler  *autosave.Scheduler
	bridge     *bridge.Bridge
	guard      *guard.Guard
	classifier *errclass.Classifier
	outcomes   *outcomes
	logger     *slog.Logger
}

// New creates a Coordinator. Construction has no side effects.
func New(settings Settings, opts ...Option) *Coordinator {
	o := options{
		clock:  clock.NewRealClock(),
		logger: logging.Discard(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if len(settings.Sections) == 0 {
		settings.Sections = domain.ScenarioPackageSections()
	}
	if settings.QuietPeriod <= 0 {
		settings.QuietPeriod = 3 * time.Second
	}

	classifier := errclass.New(settings.Locale)
	out := newOutcomes(o.notifier)
	reg := registry.New(settings.Sections, registry.WithLogger(o.logger))

	schedOpts := []autosave.Option{
		autosave.WithClock(o.clock),
		autosave.WithRetryInterval(settings.RetryInterval),
		autosave.WithNotifier(out),
		autosave.WithClassifier(classifier),
		autosave.WithLogger(o.logger),
		autosave.WithTracer(o.tracer),
	}
	if o.equal != nil {
		schedOpts = append(schedOpts, autosave.WithEqual(o.equal))
	}
	sched := autosave.New(reg, schedOpts...)

	return &Coordinator{
		settings:  settings,
		registry:  reg,
		scheduler: sched,
		bridge:    bridge.New(reg, bridge.WithAutosaver(sched), bridge.WithLogger(o.logger)),
		guard: guard.New(reg, sched,
			guard.WithNotifier(out),
			guard.WithClassifier(classifier),
			guard.WithLogger(o.logger),
			guard.WithTracer(o.tracer)),
		classifier: classifier,
		outcomes:   out,
		logger:     o.logger,
	}
}

// Settings returns the effective settings.
func (c *Coordinator) Settings() Settings { return c.settings }

// Registry exposes the underlying registry for read-only UI bindings.
func (c *Coordinator) Registry() *registry.Registry { return c.registry }

// Mount starts editing entityID. Mounting another entity first tears the
// current session down.
func (c *Coordinator) Mount(entityID string) {
	if current := c.registry.Snapshot().EntityID; current != "" && current != entityID {
		c.forgetAll()
	}
	c.registry.Mount(entityID)
}

// Teardown discards the session and all autosave state.
func (c *Coordinator) Teardown() {
	c.forgetAll()
	c.registry.Teardown()
}

func (c *Coordinator) forgetAll() {
	for _, s := range c.settings.Sections {
		c.scheduler.Forget(s)
	}
	c.outcomes.reset()
}

// Bind starts mirroring a mounted section's editing state.
func (c *Coordinator) Bind(section domain.Section, opts ...bridge.BindOption) (*bridge.Binding, error) {
	if c.registry.Snapshot().EntityID == "" {
		return nil, fmt.Errorf("bind %s: %w", section, domain.ErrSessionNotMounted)
	}
	return c.bridge.Bind(section, opts...)
}

// BindAutosave binds section with autosave over the configured quiet period.
func (c *Coordinator) BindAutosave(section domain.Section, save autosave.SaveFunc) (*bridge.Binding, error) {
	return c.Bind(section, bridge.WithAutosave(save, c.settings.QuietPeriod))
}

// SetDirty records a section's dirty flag.
func (c *Coordinator) SetDirty(section domain.Section, dirty bool) error {
	return c.registry.SetDirty(section, dirty)
}

// IsAnyDirty returns true if any section has unsaved changes.
func (c *Coordinator) IsAnyDirty() bool { return c.registry.IsAnyDirty() }

// SetSaving records whether a save-and-leave resolution is outstanding.
func (c *Coordinator) SetSaving(saving bool) { c.registry.SetSaving(saving) }

// Schedule debounces a save of data. A non-positive quiet uses the configured period.
func (c *Coordinator) Schedule(section domain.Section, data any, save autosave.SaveFunc, quiet time.Duration) error {
	if !c.registry.HasSection(section) {
		return fmt.Errorf("schedule %q: %w", section, domain.ErrUnknownSection)
	}
	if quiet <= 0 {
		quiet = c.settings.QuietPeriod
	}
	c.scheduler.Schedule(section, data, save, quiet)
	return nil
}

// SaveNow saves section immediately.
func (c *Coordinator) SaveNow(ctx context.Context, section domain.Section) error {
	return c.scheduler.SaveNow(ctx, section)
}

// Cancel stops a pending autosave of section.
func (c *Coordinator) Cancel(section domain.Section) { c.scheduler.Cancel(section) }

// RequestNavigation runs action now or captures it for confirmation.
func (c *Coordinator) RequestNavigation(action *domain.Action) (executed bool, err error) {
	return c.guard.RequestNavigation(action)
}

// SwitchSection requests a guarded switch of the active section.
func (c *Coordinator) SwitchSection(target domain.Section) (executed bool, err error) {
	if !c.registry.HasSection(target) {
		return false, fmt.Errorf("switch to %q: %w", target, domain.ErrUnknownSection)
	}
	return c.guard.RequestNavigation(domain.NewSwitchAction(target, func() {
		if err := c.registry.SetActiveSection(target); err != nil {
			c.logger.Warn("switch section", logging.KeySection, target, "error", err)
		}
	}))
}

// Leave requests a guarded departure from the editor; run performs it.
func (c *Coordinator) Leave(run func()) (executed bool, err error) {
	return c.guard.RequestNavigation(domain.NewLeaveAction(run))
}

// ResolveNavigation answers the outstanding confirmation.
func (c *Coordinator) ResolveNavigation(ctx context.Context, resolution domain.Resolution) (guard.Outcome, error) {
	return c.guard.Resolve(ctx, resolution)
}

// GuardState returns Idle or Confirming.
func (c *Coordinator) GuardState() domain.GuardState { return c.guard.State() }

// Classify maps err into the error taxonomy in the editor's locale.
func (c *Coordinator) Classify(err error) *errclass.ClassifiedError {
	return c.classifier.Classify(err)
}

// State returns a copy of the session state.
func (c *Coordinator) State() registry.State { return c.registry.Snapshot() }

// Watch registers w for session changes.
func (c *Coordinator) Watch(w registry.Watcher) (unsubscribe func()) {
	return c.registry.Watch(w)
}

// SectionStatus returns what the section's UI renders.
func (c *Coordinator) SectionStatus(section domain.Section) SectionStatus {
	return SectionStatus{
		Dirty:     c.registry.Dirty(section),
		Saving:    c.scheduler.InFlight(section) || c.registry.Saving(),
		Pending:   c.scheduler.Pending(section),
		LastError: c.outcomes.last(section),
	}
}

// outcomes remembers the latest failure per section and forwards to the
// caller's notifier.
type outcomes struct {
	mu     sync.Mutex
	failed map[domain.Section]*errclass.ClassifiedError
	next   autosave.Notifier
}

func newOutcomes(next autosave.Notifier) *outcomes {
	return &outcomes{failed: make(map[domain.Section]*errclass.ClassifiedError), next: next}
}

func (o *outcomes) SaveSucceeded(section domain.Section) {
	o.mu.Lock()
	delete(o.failed, section)
	o.mu.Unlock()
	if o.next != nil {
		o.next.SaveSucceeded(section)
	}
}

func (o *outcomes) SaveFailed(section domain.Section, err *errclass.ClassifiedError) {
	o.mu.Lock()
	o.failed[section] = err
	o.mu.Unlock()
	if o.next != nil {
		o.next.SaveFailed(section, err)
	}
}

func (o *outcomes) last(section domain.Section) *errclass.ClassifiedError {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.failed[section]
}

func (o *outcomes) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = make(map[domain.Section]*errclass.ClassifiedError)
}
