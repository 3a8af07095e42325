// Package replay drives an editor coordinator through a scripted session.
package replay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidScript is returned for scripts that cannot be run.
var ErrInvalidScript = errors.New("invalid replay script")

// Script is a scripted editor session.
//
//	entity: pkg-1
//	initial:
//	  basic: {name: Cruise, category: boat}
//	failures:
//	  addons: [500]
//	steps:
//	  - mount: pkg-1
//	  - edit: {section: basic, data: {name: Sunset cruise, category: boat}}
//	  - wait: 3s
//	  - navigate: packages
//	  - resolve: save_then_leave
//	  - save_now: basic
type Script struct {
	// Initial section snapshots used by the dry-run backend.
	Initial map[string]any `yaml:"initial"`
	// Failures queues HTTP statuses the dry-run backend fails with, per section.
	Failures map[string][]int `yaml:"failures"`
	Steps    []Step           `yaml:"steps"`
}

// Step is one scripted action. Exactly one field is set.
type Step struct {
	Mount    string    `yaml:"mount,omitempty"`
	Edit     *EditStep `yaml:"edit,omitempty"`
	Wait     string    `yaml:"wait,omitempty"`
	Navigate string    `yaml:"navigate,omitempty"`
	Resolve  string    `yaml:"resolve,omitempty"`
	SaveNow  string    `yaml:"save_now,omitempty"`
	Teardown bool      `yaml:"teardown,omitempty"`
	wait     time.Duration
}

// EditStep reports a section's form state.
type EditStep struct {
	Section string `yaml:"section"`
	Data    any    `yaml:"data"`
	// Clean reports the form as unchanged from its saved state.
	Clean bool `yaml:"clean,omitempty"`
}

// NavigateLeave is the navigate target that leaves the editor.
const NavigateLeave = "leave"

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML script and validates every step.
func Parse(data []byte) (*Script, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", ErrInvalidScript)
	}
	for i := range s.Steps {
		if err := s.Steps[i].validate(); err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", ErrInvalidScript, i+1, err)
		}
	}
	for section, v := range s.Initial {
		n, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("%w: initial %s: %v", ErrInvalidScript, section, err)
		}
		s.Initial[section] = n
	}
	return &s, nil
}

func (st *Step) validate() error {
	set := 0
	for _, on := range []bool{st.Mount != "", st.Edit != nil, st.Wait != "", st.Navigate != "", st.Resolve != "", st.SaveNow != "", st.Teardown} {
		if on {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("want exactly one action, got %d", set)
	}

	switch {
	case st.Wait != "":
		d, err := time.ParseDuration(st.Wait)
		if err != nil || d < 0 {
			return fmt.Errorf("bad wait %q", st.Wait)
		}
		st.wait = d
	case st.Edit != nil:
		if st.Edit.Section == "" {
			return errors.New("edit needs a section")
		}
		n, err := normalize(st.Edit.Data)
		if err != nil {
			return fmt.Errorf("edit %s: %v", st.Edit.Section, err)
		}
		st.Edit.Data = n
	}
	return nil
}

// normalize round-trips v through JSON so snapshots loaded from a server
// and snapshots written in YAML compare equal.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
