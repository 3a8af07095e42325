// Package guard gates section switches and editor departure behind a
// save / discard / cancel decision whenever a section has unsaved changes.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/light-bringer/procat-editor/internal/app/editor/autosave"
	"github.com/light-bringer/procat-editor/internal/app/editor/domain"
	"github.com/light-bringer/procat-editor/internal/app/editor/errclass"
	"github.com/light-bringer/procat-editor/internal/pkg/logging"
)

// ErrResolving is returned when a resolution is requested while another one is still running.
var ErrResolving = errors.New("navigation resolution already in progress")

// Store is the part of the registry the guard drives.
type Store interface {
	RequestNavigation(action *domain.Action) (bool, error)
	ReleaseNavigation() (*domain.Action, error)
	Pending() *domain.Action
	GuardState() domain.GuardState
	Sections() []domain.Section
	DirtySections() []domain.Section
	ClearAllDirty()
	SetSaving(saving bool)
}

// Saver saves and cancels individual sections.
type Saver interface {
	SaveNow(ctx context.Context, section domain.Section) error
	Cancel(section domain.Section)
}

// Outcome describes a finished resolution.
type Outcome struct {
	Resolution domain.Resolution
	Action     *domain.Action
	Executed   bool
	Failures   map[domain.Section]*errclass.ClassifiedError
}

// Option configures a Guard.
type Option func(*Guard)

// WithNotifier sets the sink for failures the saver did not report itself.
func WithNotifier(n autosave.Notifier) Option {
	return func(g *Guard) { g.notifier = n }
}

// WithClassifier sets the classifier for failures the saver did not classify.
func WithClassifier(c *errclass.Classifier) Option {
	return func(g *Guard) {
		if c != nil {
			g.classifier = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// WithTracer sets the tracer for resolution spans.
func WithTracer(t trace.Tracer) Option {
	return func(g *Guard) { g.tracer = t }
}

// Guard is the navigation guard. It is safe for concurrent use.
type Guard struct {
	store      Store
	saver      Saver
	notifier   autosave.Notifier
	classifier *errclass.Classifier
	logger     *slog.Logger
	tracer     trace.Tracer

	mu        sync.Mutex
	resolving bool
}

// New creates a Guard over store, saving through saver.
func New(store Store, saver Saver, opts ...Option) *Guard {
	g := &Guard{
		store:      store,
		saver:      saver,
		classifier: errclass.New(errclass.BaseLocale),
		logger:     logging.Discard(),
		tracer:     otel.Tracer("github.com/light-bringer/procat-editor/internal/app/editor/guard"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State returns Idle or Confirming.
func (g *Guard) State() domain.GuardState { return g.store.GuardState() }

// Pending returns the navigation awaiting confirmation, or nil.
func (g *Guard) Pending() *domain.Action { return g.store.Pending() }

// RequestNavigation runs action right away when nothing is dirty. Otherwise
// the action is captured for confirmation and executed is false. A request
// while a confirmation is outstanding fails with domain.ErrNavigationPending.
func (g *Guard) RequestNavigation(action *domain.Action) (executed bool, err error) {
	captured, err := g.store.RequestNavigation(action)
	if err != nil {
		return false, fmt.Errorf("request %s: %w", describe(action), err)
	}
	if captured {
		g.logger.Debug("navigation captured", "action", action.String())
		return false, nil
	}
	action.Execute()
	return true, nil
}

// Resolve answers the outstanding confirmation.
//
// Cancel drops the captured navigation. Discard cancels pending autosaves,
// clears every dirty flag and executes it. SaveThenLeave saves every dirty
// section concurrently, waits for all of them to settle and executes it,
// even when some saves failed; those failures are surfaced before the
// navigation runs and returned in the outcome.
func (g *Guard) Resolve(ctx context.Context, resolution domain.Resolution) (out Outcome, err error) {
	if _, err := domain.ParseResolution(string(resolution)); err != nil {
		return Outcome{}, err
	}
	if err := g.begin(); err != nil {
		return Outcome{}, err
	}
	defer g.end()

	if g.store.Pending() == nil {
		return Outcome{}, domain.ErrNoPendingNavigation
	}

	ctx, span := g.tracer.Start(ctx, "guard.resolve",
		trace.WithAttributes(attribute.String(logging.KeyResolution, string(resolution))))
	defer span.End()

	out = Outcome{Resolution: resolution}
	switch resolution {
	case domain.ResolutionCancel:
		out.Action, err = g.store.ReleaseNavigation()
	case domain.ResolutionDiscard:
		for _, section := range g.store.Sections() {
			g.saver.Cancel(section)
		}
		g.store.ClearAllDirty()
		out.Action, err = g.store.ReleaseNavigation()
		out.Executed = err == nil
	case domain.ResolutionSaveThenLeave:
		out.Failures = g.saveAll(ctx, g.store.DirtySections())
		out.Action, err = g.store.ReleaseNavigation()
		out.Executed = err == nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return Outcome{}, fmt.Errorf("resolve %s: %w", resolution, err)
	}

	span.SetAttributes(attribute.Int("failed_sections", len(out.Failures)))
	g.logger.Info("navigation resolved",
		logging.KeyResolution, resolution,
		"action", out.Action.String(),
		"failed_sections", len(out.Failures))

	if out.Executed {
		out.Action.Execute()
	}
	return out, nil
}

// saveAll saves sections concurrently and returns the failures once every
// save has settled.
func (g *Guard) saveAll(ctx context.Context, sections []domain.Section) map[domain.Section]*errclass.ClassifiedError {
	if len(sections) == 0 {
		return nil
	}

	g.store.SetSaving(true)
	defer g.store.SetSaving(false)

	var mu sync.Mutex
	failures := make(map[domain.Section]*errclass.ClassifiedError)

	var wg conc.WaitGroup
	for _, section := range sections {
		wg.Go(func() {
			err := g.saver.SaveNow(ctx, section)
			if err == nil {
				return
			}
			ce := g.surface(section, err)
			mu.Lock()
			failures[section] = ce
			mu.Unlock()
		})
	}
	if r := wg.WaitAndRecover(); r != nil {
		g.logger.Error("save-then-leave worker panicked", "panic", r.Value)
	}

	if len(failures) == 0 {
		return nil
	}
	return failures
}

// surface classifies err. Save failures were already reported by the
// scheduler; anything else is reported here.
func (g *Guard) surface(section domain.Section, err error) *errclass.ClassifiedError {
	var ce *errclass.ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}
	ce = g.classifier.Classify(err)
	g.logger.Warn("section could not be saved before leaving",
		logging.KeySection, section,
		logging.KeyErrorKind, ce.Kind,
		"error", err)
	if g.notifier != nil {
		g.notifier.SaveFailed(section, ce)
	}
	return ce
}

func (g *Guard) begin() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resolving {
		return ErrResolving
	}
	g.resolving = true
	return nil
}

func (g *Guard) end() {
	g.mu.Lock()
	g.resolving = false
	g.mu.Unlock()
}

func describe(a *domain.Action) string {
	if a == nil {
		return "navigation"
	}
	return a.String()
}
