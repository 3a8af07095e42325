// Package errclass turns failed save operations into a closed taxonomy of
// error kinds with user-facing, localized messages.
package errclass

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind is one value of the closed failure taxonomy.
type Kind string

const (
	KindNetwork      Kind = "network"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not-found"
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindServer       Kind = "server"
	KindUnknown      Kind = "unknown"
)

// Kinds returns every taxonomy value.
func Kinds() []Kind {
	return []Kind{
		KindNetwork,
		KindUnauthorized,
		KindForbidden,
		KindNotFound,
		KindValidation,
		KindConflict,
		KindServer,
		KindUnknown,
	}
}

// ClassifiedError is the result of classifying a failed operation.
type ClassifiedError struct {
	Kind    Kind
	Message string

	// Code is the server-supplied machine-readable code, if any.
	Code string
	// Status is the HTTP status (or its gRPC equivalent); 0 when no response arrived.
	Status int
	// FieldErrors maps field paths to violation messages. Only set for KindValidation.
	FieldErrors map[string][]string

	Cause error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ClassifiedError) Unwrap() error { return e.Cause }

// ResponseError is returned by HTTP transports for non-2xx responses.
// A zero StatusCode means the request never produced a response.
type ResponseError struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

func (e *ResponseError) Error() string {
	if e.StatusCode == 0 {
		return "no response"
	}
	return fmt.Sprintf("unexpected response status %d", e.StatusCode)
}

// HTTPStatus returns the response status.
func (e *ResponseError) HTTPStatus() int { return e.StatusCode }

// ResponseBody returns the raw response body.
func (e *ResponseError) ResponseBody() []byte { return e.Body }

// KindForStatus maps an HTTP status to a Kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusConflict:
		return KindConflict
	case status >= 500 && status <= 599:
		return KindServer
	default:
		return KindUnknown
	}
}

// joinFieldErrors renders field errors as "field: msg; field: msg" sorted by field.
func joinFieldErrors(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs := fields[k]
		if len(msgs) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(msgs, ", ")))
	}
	return strings.Join(parts, "; ")
}
