package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/light-bringer/procat-editor/internal/app/editor/bridge"
	"github.com/light-bringer/procat-editor/internal/app/editor/coordinator"
	"github.com/light-bringer/procat-editor/internal/app/editor/domain"
	"github.com/light-bringer/procat-editor/internal/app/editor/errclass"
	"github.com/light-bringer/procat-editor/internal/app/editor/guard"
	"github.com/light-bringer/procat-editor/internal/pkg/logging"
)

// WaitFunc blocks for d of editor time.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Option configures a Runner.
type Option func(*Runner)

// WithWait replaces real sleeping, e.g. with a mock clock's Advance.
func WithWait(w WaitFunc) Option {
	return func(r *Runner) { r.wait = w }
}

// WithLogger sets the runner's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// Runner executes scripts and prints what the editor would show. It is also
// the coordinator's notifier so save outcomes appear in the transcript.
type Runner struct {
	backend Backend
	wait    WaitFunc
	logger  *slog.Logger

	outMu sync.Mutex
	out   io.Writer

	entity   string
	bindings map[domain.Section]*bridge.Binding
}

// NewRunner creates a Runner writing its transcript to out.
func NewRunner(out io.Writer, backend Backend, opts ...Option) *Runner {
	r := &Runner{
		backend:  backend,
		wait:     sleep,
		logger:   logging.Discard(),
		out:      out,
		bindings: make(map[domain.Section]*bridge.Binding),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SaveSucceeded prints a successful save.
func (r *Runner) SaveSucceeded(section domain.Section) {
	r.printf("saved %s", section)
}

// SaveFailed prints a classified save failure.
func (r *Runner) SaveFailed(section domain.Section, err *errclass.ClassifiedError) {
	r.printf("save failed %s: %s", section, describe(err))
}

// Run executes script against c. c must have been created with r as its
// notifier for save outcomes to be printed.
func (r *Runner) Run(ctx context.Context, c *coordinator.Coordinator, script *Script) error {
	defer r.unbindAll()

	for i, step := range script.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.step(ctx, c, step); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	r.printState(c)
	return nil
}

func (r *Runner) step(ctx context.Context, c *coordinator.Coordinator, st Step) error {
	switch {
	case st.Mount != "":
		return r.mount(ctx, c, st.Mount)

	case st.Edit != nil:
		section := domain.Section(st.Edit.Section)
		b, ok := r.bindings[section]
		if !ok {
			return fmt.Errorf("edit %s: %w", section, domain.ErrUnknownSection)
		}
		r.printf("edit %s dirty=%t", section, !st.Edit.Clean)
		return b.Report(bridge.Report{IsDirty: !st.Edit.Clean, Snapshot: st.Edit.Data})

	case st.Wait != "":
		r.printf("wait %s", st.wait)
		return r.wait(ctx, st.wait)

	case st.Navigate != "":
		return r.navigate(c, st.Navigate)

	case st.Resolve != "":
		res, err := domain.ParseResolution(st.Resolve)
		if err != nil {
			return err
		}
		outcome, err := c.ResolveNavigation(ctx, res)
		if err != nil {
			return err
		}
		r.printOutcome(outcome)
		return nil

	case st.SaveNow != "":
		section := domain.Section(st.SaveNow)
		if err := c.SaveNow(ctx, section); err != nil {
			var ce *errclass.ClassifiedError
			if !errors.As(err, &ce) {
				ce = c.Classify(err)
			}
			r.printf("save_now %s: %s", section, describe(ce))
			return nil
		}
		r.printf("save_now %s: ok", section)
		return nil

	case st.Teardown:
		r.unbindAll()
		c.Teardown()
		r.entity = ""
		r.printf("teardown")
		return nil
	}
	return fmt.Errorf("%w: empty step", ErrInvalidScript)
}

func (r *Runner) mount(ctx context.Context, c *coordinator.Coordinator, entityID string) error {
	loaded, err := r.backend.Load(ctx, entityID)
	if err != nil {
		ce := c.Classify(err)
		r.printf("mount %s: %s", entityID, describe(ce))
		return fmt.Errorf("load %s: %w", entityID, ce)
	}

	r.unbindAll()
	c.Mount(entityID)
	r.entity = entityID

	for _, section := range c.Settings().Sections {
		b, err := c.BindAutosave(section, r.backend.SaveFunc(entityID, section))
		if err != nil {
			return err
		}
		if snapshot, ok := loaded[section]; ok {
			b.Seed(snapshot)
		}
		r.bindings[section] = b
	}
	r.logger.Info("replay mounted", slog.String(logging.KeyEntityID, entityID), slog.Int("loaded", len(loaded)))
	r.printf("mount %s", entityID)
	return nil
}

func (r *Runner) navigate(c *coordinator.Coordinator, target string) error {
	var (
		executed bool
		err      error
	)
	if target == NavigateLeave {
		executed, err = c.Leave(func() { r.printf("left editor") })
	} else {
		executed, err = c.SwitchSection(domain.Section(target))
	}
	if err != nil {
		return err
	}
	if executed {
		r.printf("navigate %s: done", target)
		return nil
	}
	r.printf("navigate %s: confirm unsaved changes in %s", target, joinSections(c.Registry().DirtySections()))
	return nil
}

func (r *Runner) printOutcome(o guard.Outcome) {
	line := fmt.Sprintf("resolve %s: ", o.Resolution)
	if o.Executed {
		line += "navigated " + o.Action.String()
	} else {
		line += "stayed"
	}
	r.printf("%s", line)

	sections := make([]domain.Section, 0, len(o.Failures))
	for s := range o.Failures {
		sections = append(sections, s)
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i] < sections[j] })
	for _, s := range sections {
		r.printf("  failed %s: %s", s, describe(o.Failures[s]))
	}
}

func (r *Runner) printState(c *coordinator.Coordinator) {
	st := c.State()
	r.printf("state: entity=%s active=%s dirty=[%s] guard=%s",
		st.EntityID, st.ActiveSection, joinSections(c.Registry().DirtySections()), c.GuardState())
}

func (r *Runner) unbindAll() {
	for s, b := range r.bindings {
		b.Unmount()
		delete(r.bindings, s)
	}
}

func (r *Runner) printf(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.out, format+"\n", args...)
}

func describe(ce *errclass.ClassifiedError) string {
	if ce == nil {
		return "ok"
	}
	s := fmt.Sprintf("%s: %s", ce.Kind, ce.Message)
	if len(ce.FieldErrors) > 0 {
		fields := make([]string, 0, len(ce.FieldErrors))
		for f := range ce.FieldErrors {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		s += " [" + strings.Join(fields, ", ") + "]"
	}
	return s
}

func joinSections(sections []domain.Section) string {
	names := make([]string, len(sections))
	for i, s := range sections {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
