package domain

import "sort"

// DirtySet tracks the unsaved-change flag of every section in a closed set.
// Every section is always present; flags default to false.
type DirtySet struct {
	flags map[Section]bool
}

// NewDirtySet creates a DirtySet with every section clean.
func NewDirtySet(sections []Section) *DirtySet {
	flags := make(map[Section]bool, len(sections))
	for _, s := range sections {
		flags[s] = false
	}
	return &DirtySet{flags: flags}
}

// Has reports whether section belongs to the set.
func (d *DirtySet) Has(section Section) bool {
	_, ok := d.flags[section]
	return ok
}

// Set records the flag for section and reports whether it changed.
func (d *DirtySet) Set(section Section, dirty bool) (changed bool) {
	prev := d.flags[section]
	d.flags[section] = dirty
	return prev != dirty
}

// Dirty returns the flag for section.
func (d *DirtySet) Dirty(section Section) bool {
	return d.flags[section]
}

// Any returns true if any section is dirty.
func (d *DirtySet) Any() bool {
	for _, dirty := range d.flags {
		if dirty {
			return true
		}
	}
	return false
}

// DirtySections returns the dirty sections sorted by name.
func (d *DirtySet) DirtySections() []Section {
	out := make([]Section, 0, len(d.flags))
	for s, dirty := range d.flags {
		if dirty {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ClearAll marks every section clean and returns the sections that were dirty.
func (d *DirtySet) ClearAll() []Section {
	cleared := d.DirtySections()
	for s := range d.flags {
		d.flags[s] = false
	}
	return cleared
}

// Copy returns a snapshot of all flags.
func (d *DirtySet) Copy() map[Section]bool {
	out := make(map[Section]bool, len(d.flags))
	for s, dirty := range d.flags {
		out[s] = dirty
	}
	return out
}
