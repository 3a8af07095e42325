// Package autosave debounces section saves and keeps them single-flight per
// section.
//
// Each section owns its own state: the last snapshot that was saved, the
// latest snapshot that was not, an optional debounce timer and an in-flight
// flag. Sections never share state, so saves of different sections may run
// concurrently.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/light-bringer/procat-editor/internal/app/editor/domain"
	"github.com/light-bringer/procat-editor/internal/app/editor/errclass"
	"github.com/light-bringer/procat-editor/internal/pkg/clock"
	"github.com/light-bringer/procat-editor/internal/pkg/logging"
)

// DefaultRetryInterval is how long a timer that fired during an in-flight
// save waits before trying again.
const DefaultRetryInterval = 250 * time.Millisecond

// ErrNotTracked is returned by SaveNow for a section that never reported data.
var ErrNotTracked = errors.New("section has no autosave state")

// SaveFunc persists one section snapshot. It owns its own timeout and retry policy.
type SaveFunc func(ctx context.Context, data any) error

// EqualFunc reports whether two snapshots are structurally equal.
type EqualFunc func(a, b any) bool

// DirtyStore is the part of the registry the scheduler writes to.
type DirtyStore interface {
	SetDirty(section domain.Section, dirty bool) error
}

// Notifier receives save outcomes.
type Notifier interface {
	SaveSucceeded(section domain.Section)
	SaveFailed(section domain.Section, err *errclass.ClassifiedError)
}

type nopNotifier struct{}

func (nopNotifier) SaveSucceeded(domain.Section)                         {}
func (nopNotifier) SaveFailed(domain.Section, *errclass.ClassifiedError) {}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock used for debounce timers.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithRetryInterval sets the delay used when a timer fires during an in-flight save.
func WithRetryInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.retry = d
		}
	}
}

// WithEqual overrides reflect.DeepEqual as the snapshot comparison.
func WithEqual(eq EqualFunc) Option {
	return func(s *Scheduler) {
		if eq != nil {
			s.equal = eq
		}
	}
}

// WithNotifier sets the sink for save outcomes.
func WithNotifier(n Notifier) Option {
	return func(s *Scheduler) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClassifier sets the classifier used for failed saves.
func WithClassifier(c *errclass.Classifier) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithTracer sets the tracer for save spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Scheduler) { s.tracer = t }
}

type sectionState struct {
	save SaveFunc

	saved    any
	hasSaved bool

	latest    any
	hasLatest bool

	timer    clock.Timer
	timerGen uint64

	inFlight bool
	settled  chan struct{}

	// cancelled marks a snapshot dropped by Cancel while a save was in
	// flight; a failure of that save must not restore it.
	cancelled bool
}

// Scheduler is the autosave scheduler of one editor. It is safe for concurrent use.
type Scheduler struct {
	mu       sync.Mutex
	sections map[domain.Section]*sectionState

	store      DirtyStore
	clock      clock.Clock
	retry      time.Duration
	equal      EqualFunc
	notifier   Notifier
	classifier *errclass.Classifier
	logger     *slog.Logger
	tracer     trace.Tracer
}

// New creates a Scheduler that clears dirty flags in store after successful saves.
func New(store DirtyStore, opts ...Option) *Scheduler {
	s := &Scheduler{
		sections:   make(map[domain.Section]*sectionState),
		store:      store,
		clock:      clock.NewRealClock(),
		retry:      DefaultRetryInterval,
		equal:      reflect.DeepEqual,
		notifier:   nopNotifier{},
		classifier: errclass.New(errclass.BaseLocale),
		logger:     logging.Discard(),
		tracer:     otel.Tracer("github.com/light-bringer/procat-editor/internal/app/editor/autosave"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed records snapshot as already saved, typically with the data loaded on mount.
func (s *Scheduler) Seed(section domain.Section, snapshot any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stateLocked(section)
	st.saved = snapshot
	st.hasSaved = true
	if st.hasLatest && s.equal(st.latest, snapshot) {
		st.hasLatest = false
		s.stopTimerLocked(st)
	}
}

// Track records the latest snapshot and save function without arming a
// timer. SaveNow can then save it. It reports whether data differs from the
// last saved snapshot.
func (s *Scheduler) Track(section domain.Section, data any, save SaveFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, changed := s.trackLocked(section, data, save)
	return changed
}

// Schedule records data and restarts the section's debounce timer. Data
// equal to the last saved snapshot starts no timer, cancels any pending one
// and makes Schedule return false.
func (s *Scheduler) Schedule(section domain.Section, data any, save SaveFunc, quiet time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, changed := s.trackLocked(section, data, save)
	if !changed {
		return false
	}
	s.armLocked(section, st, quiet)
	return true
}

// SaveNow bypasses the debounce and saves the latest snapshot of section,
// waiting for an in-flight save to settle first. The returned error is a
// *errclass.ClassifiedError when the save itself failed.
func (s *Scheduler) SaveNow(ctx context.Context, section domain.Section) error {
	for {
		s.mu.Lock()
		st, ok := s.sections[section]
		if !ok || st.save == nil {
			s.mu.Unlock()
			return fmt.Errorf("save %s: %w", section, ErrNotTracked)
		}
		if st.inFlight {
			settled := st.settled
			s.mu.Unlock()
			select {
			case <-settled:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		s.stopTimerLocked(st)
		if !st.hasLatest || (st.hasSaved && s.equal(st.latest, st.saved)) {
			st.hasLatest = false
			s.mu.Unlock()
			s.clearDirty(section)
			return nil
		}
		data, save := s.beginLocked(st)
		s.mu.Unlock()

		return s.execute(ctx, section, st, data, save)
	}
}

// Cancel stops the pending debounce timer of section and drops its unsaved
// snapshot. An in-flight save is not affected.
func (s *Scheduler) Cancel(section domain.Section) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sections[section]
	if !ok {
		return
	}
	s.stopTimerLocked(st)
	st.hasLatest = false
	st.latest = nil
	st.cancelled = st.inFlight
}

// Forget cancels section and discards all of its state. An in-flight save
// still completes and still updates the dirty flag.
func (s *Scheduler) Forget(section domain.Section) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.sections[section]; ok {
		s.stopTimerLocked(st)
		delete(s.sections, section)
	}
}

// Pending reports whether a debounce timer is armed for section.
func (s *Scheduler) Pending(section domain.Section) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sections[section]
	return ok && st.timer != nil
}

// InFlight reports whether a save of section is awaiting its result.
func (s *Scheduler) InFlight(section domain.Section) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sections[section]
	return ok && st.inFlight
}

func (s *Scheduler) stateLocked(section domain.Section) *sectionState {
	st, ok := s.sections[section]
	if !ok {
		st = &sectionState{}
		s.sections[section] = st
	}
	return st
}

// trackLocked stores data as the latest snapshot. It reports false when data
// matches the last saved snapshot, in which case nothing is left to save.
func (s *Scheduler) trackLocked(section domain.Section, data any, save SaveFunc) (*sectionState, bool) {
	st := s.stateLocked(section)
	if save != nil {
		st.save = save
	}
	if st.hasSaved && s.equal(data, st.saved) {
		st.hasLatest = false
		st.latest = nil
		s.stopTimerLocked(st)
		return st, false
	}
	st.latest = data
	st.hasLatest = true
	st.cancelled = false
	return st, true
}

func (s *Scheduler) armLocked(section domain.Section, st *sectionState, d time.Duration) {
	s.stopTimerLocked(st)
	st.timerGen++
	gen := st.timerGen
	st.timer = s.clock.AfterFunc(d, func() { s.fire(section, st, gen) })
}

func (s *Scheduler) stopTimerLocked(st *sectionState) {
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	st.timerGen++
}

func (s *Scheduler) fire(section domain.Section, st *sectionState, gen uint64) {
	s.mu.Lock()
	if st.timerGen != gen {
		s.mu.Unlock()
		return
	}
	st.timer = nil

	if st.inFlight {
		s.logger.Debug("autosave deferred, save in flight", logging.KeySection, section)
		s.armLocked(section, st, s.retry)
		s.mu.Unlock()
		return
	}
	if !st.hasLatest || st.save == nil || (st.hasSaved && s.equal(st.latest, st.saved)) {
		st.hasLatest = false
		s.mu.Unlock()
		return
	}
	data, save := s.beginLocked(st)
	s.mu.Unlock()

	_ = s.execute(context.Background(), section, st, data, save)
}

func (s *Scheduler) beginLocked(st *sectionState) (any, SaveFunc) {
	data := st.latest
	st.latest = nil
	st.hasLatest = false
	st.inFlight = true
	st.cancelled = false
	st.settled = make(chan struct{})
	return data, st.save
}

// execute runs one save and processes its outcome. Failures never escape as
// panics; they are classified and handed to the notifier.
func (s *Scheduler) execute(ctx context.Context, section domain.Section, st *sectionState, data any, save SaveFunc) error {
	ctx, span := s.tracer.Start(ctx, "autosave.save",
		trace.WithAttributes(attribute.String(logging.KeySection, string(section))))
	defer span.End()

	var err error
	var pc panics.Catcher
	pc.Try(func() { err = save(ctx, data) })
	if r := pc.Recovered(); r != nil {
		err = fmt.Errorf("save %s panicked: %w", section, r.AsError())
	}

	s.mu.Lock()
	st.inFlight = false
	close(st.settled)
	newer := st.hasLatest
	if err == nil {
		st.saved = data
		st.hasSaved = true
		if newer && s.equal(st.latest, data) {
			st.hasLatest = false
			st.latest = nil
			s.stopTimerLocked(st)
			newer = false
		}
	} else if !st.hasLatest && !st.cancelled {
		st.latest = data
		st.hasLatest = true
	}
	st.cancelled = false
	s.mu.Unlock()

	if err != nil {
		ce := s.classifier.Classify(err)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, ce.Message)
		span.SetAttributes(attribute.String(logging.KeyErrorKind, string(ce.Kind)))
		s.logger.Warn("autosave failed",
			logging.KeySection, section,
			logging.KeyErrorKind, ce.Kind,
			"error", err)
		s.notifier.SaveFailed(section, ce)
		return ce
	}

	// Edits staged while this save ran are still unsaved.
	if !newer {
		s.clearDirty(section)
	}
	s.logger.Debug("autosave succeeded", logging.KeySection, section)
	s.notifier.SaveSucceeded(section)
	return nil
}

func (s *Scheduler) clearDirty(section domain.Section) {
	if s.store == nil {
		return
	}
	if err := s.store.SetDirty(section, false); err != nil {
		s.logger.Warn("clear dirty flag", logging.KeySection, section, "error", err)
	}
}
