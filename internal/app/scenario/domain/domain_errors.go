package domain

import "errors"

// Domain errors as sentinel values
var (
	// Package errors
	ErrPackageNotFound = errors.New("scenario package not found")
	ErrPackageArchived = errors.New("cannot modify archived scenario package")
	ErrVersionConflict = errors.New("scenario package was modified concurrently")

	// Section errors
	ErrUnknownSection   = errors.New("unknown scenario package section")
	ErrMalformedPayload = errors.New("section payload is malformed")
	ErrInvalidSection   = errors.New("section payload is invalid")
)

// Error codes shared with editor clients.
const (
	CodeVersionConflict  = "VERSION_CONFLICT"
	CodePackageNotFound  = "PACKAGE_NOT_FOUND"
	CodePackageArchived  = "PACKAGE_ARCHIVED"
	CodeSectionUnknown   = "SECTION_UNKNOWN"
	CodeSectionInvalid   = "SECTION_INVALID"
	CodePayloadMalformed = "PAYLOAD_MALFORMED"
)

// ValidationError lists per-field violations of one section payload.
type ValidationError struct {
	Section string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	return "section " + e.Section + " is invalid"
}

// Is makes errors.Is(err, ErrInvalidSection) match.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidSection }

// FieldErrors returns the violations keyed by field path.
func (e *ValidationError) FieldErrors() map[string][]string { return e.Fields }

// ErrorCode returns the machine-readable code.
func (e *ValidationError) ErrorCode() string { return CodeSectionInvalid }

// ErrorCode returns the machine-readable code for a domain error, or "".
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrVersionConflict):
		return CodeVersionConflict
	case errors.Is(err, ErrPackageNotFound):
		return CodePackageNotFound
	case errors.Is(err, ErrPackageArchived):
		return CodePackageArchived
	case errors.Is(err, ErrUnknownSection):
		return CodeSectionUnknown
	case errors.Is(err, ErrInvalidSection):
		return CodeSectionInvalid
	case errors.Is(err, ErrMalformedPayload):
		return CodePayloadMalformed
	default:
		return ""
	}
}

// violations collects field errors while validating a payload.
type violations map[string][]string

func (v violations) add(field, msg string) {
	v[field] = append(v[field], msg)
}

func (v violations) err(section string) error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Section: section, Fields: v}
}
