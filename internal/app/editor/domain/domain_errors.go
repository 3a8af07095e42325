package domain

import "errors"

// Domain errors as sentinel values
var (
	// Session errors
	ErrUnknownSection    = errors.New("unknown editor section")
	ErrSessionNotMounted = errors.New("editor session is not mounted")

	// Navigation errors
	ErrNavigationPending   = errors.New("a navigation is already awaiting confirmation")
	ErrNoPendingNavigation = errors.New("no navigation is awaiting confirmation")
	ErrUnknownResolution   = errors.New("unknown navigation resolution")
	ErrNilAction           = errors.New("navigation action is required")
)
