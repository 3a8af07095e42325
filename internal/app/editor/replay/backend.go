package replay

import (
	"context"
	"sort"
	"sync"

	"github.com/light-bringer/procat-editor/internal/app/editor/autosave"
	"github.com/light-bringer/procat-editor/internal/app/editor/domain"
	"github.com/light-bringer/procat-editor/internal/app/editor/errclass"
)

// Backend loads an entity's sections and saves them.
type Backend interface {
	// Load returns the saved snapshot of each section of entityID.
	Load(ctx context.Context, entityID string) (map[domain.Section]any, error)
	// SaveFunc returns the save function for one section.
	SaveFunc(entityID string, section domain.Section) autosave.SaveFunc
}

// DryRun keeps saves in memory. Queued failures are returned as HTTP
// response errors before any save of that section succeeds.
type DryRun struct {
	mu       sync.Mutex
	initial  map[string]any
	failures map[string][]int
	saved    map[domain.Section][]any
}

// NewDryRun creates a dry-run backend from a script's initial data and failures.
func NewDryRun(s *Script) *DryRun {
	d := &DryRun{
		initial:  map[string]any{},
		failures: map[string][]int{},
		saved:    map[domain.Section][]any{},
	}
	for k, v := range s.Initial {
		d.initial[k] = v
	}
	for k, v := range s.Failures {
		d.failures[k] = append([]int(nil), v...)
	}
	return d
}

// Load returns the script's initial snapshots.
func (d *DryRun) Load(_ context.Context, _ string) (map[domain.Section]any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[domain.Section]any, len(d.initial))
	for k, v := range d.initial {
		out[domain.Section(k)] = v
	}
	return out, nil
}

// SaveFunc records data or fails with the next queued status.
func (d *DryRun) SaveFunc(_ string, section domain.Section) autosave.SaveFunc {
	return func(ctx context.Context, data any) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		if queue := d.failures[string(section)]; len(queue) > 0 {
			d.failures[string(section)] = queue[1:]
			return &errclass.ResponseError{StatusCode: queue[0]}
		}
		d.saved[section] = append(d.saved[section], data)
		d.initial[string(section)] = data
		return nil
	}
}

// Saved returns every snapshot saved for section, oldest first.
func (d *DryRun) Saved(section domain.Section) []any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]any(nil), d.saved[section]...)
}

// SavedSections lists sections with at least one save, sorted.
func (d *DryRun) SavedSections() []domain.Section {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.Section, 0, len(d.saved))
	for s := range d.saved {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
