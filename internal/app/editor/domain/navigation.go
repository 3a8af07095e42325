package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ActionKind distinguishes the two kinds of guarded navigation.
type ActionKind string

const (
	ActionSwitchSection ActionKind = "switch_section"
	ActionLeave         ActionKind = "leave"
)

// Action is a deferred navigation. Run performs the navigation and is
// executed at most once by whoever releases the action.
type Action struct {
	ID     string
	Kind   ActionKind
	Target Section // set for ActionSwitchSection
	Run    func()
}

// NewSwitchAction creates an action that switches the active section to target.
func NewSwitchAction(target Section, run func()) *Action {
	return &Action{
		ID:     uuid.New().String(),
		Kind:   ActionSwitchSection,
		Target: target,
		Run:    run,
	}
}

// NewLeaveAction creates an action that leaves the editor.
func NewLeaveAction(run func()) *Action {
	return &Action{
		ID:   uuid.New().String(),
		Kind: ActionLeave,
		Run:  run,
	}
}

// Execute runs the navigation callback if one was supplied.
func (a *Action) Execute() {
	if a != nil && a.Run != nil {
		a.Run()
	}
}

func (a *Action) String() string {
	if a.Kind == ActionSwitchSection {
		return fmt.Sprintf("%s(%s)", a.Kind, a.Target)
	}
	return string(a.Kind)
}

// Resolution is the user's answer to the unsaved-changes prompt.
type Resolution string

const (
	ResolutionCancel        Resolution = "cancel"
	ResolutionDiscard       Resolution = "discard"
	ResolutionSaveThenLeave Resolution = "save_then_leave"
)

// ParseResolution converts a string to a Resolution.
func ParseResolution(s string) (Resolution, error) {
	switch Resolution(s) {
	case ResolutionCancel, ResolutionDiscard, ResolutionSaveThenLeave:
		return Resolution(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownResolution, s)
	}
}

// GuardState is the navigation guard's state.
type GuardState string

const (
	GuardIdle       GuardState = "idle"
	GuardConfirming GuardState = "confirming"
)
