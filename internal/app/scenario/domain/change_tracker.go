package domain

import "sort"

// ChangeTracker records which sections of an aggregate were modified so the
// repository only writes those columns.
type ChangeTracker struct {
	dirty map[string]bool
}

// NewChangeTracker creates an empty ChangeTracker.
func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{dirty: make(map[string]bool)}
}

// MarkDirty marks a section as modified.
func (ct *ChangeTracker) MarkDirty(section string) {
	ct.dirty[section] = true
}

// Dirty reports whether a section was modified.
func (ct *ChangeTracker) Dirty(section string) bool {
	return ct.dirty[section]
}

// HasChanges returns true if any section was modified.
func (ct *ChangeTracker) HasChanges() bool {
	return len(ct.dirty) > 0
}

// DirtySections returns the modified sections sorted.
func (ct *ChangeTracker) DirtySections() []string {
	out := make([]string, 0, len(ct.dirty))
	for s := range ct.dirty {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Clear forgets all modifications.
func (ct *ChangeTracker) Clear() {
	ct.dirty = make(map[string]bool)
}
