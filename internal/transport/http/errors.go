package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/light-bringer/procat-editor/internal/app/scenario/domain"
)

// ErrorEnvelope is the JSON body of every non-2xx response.
type ErrorEnvelope struct {
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// mapDomainError converts domain errors to an HTTP status and envelope.
func mapDomainError(err error) (int, ErrorEnvelope) {
	env := ErrorEnvelope{Code: domain.ErrorCode(err)}

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		env.Message = "section payload is invalid"
		env.Errors = verr.FieldErrors()
		return http.StatusBadRequest, env

	case errors.Is(err, domain.ErrMalformedPayload),
		errors.Is(err, domain.ErrUnknownSection):
		env.Message = err.Error()
		return http.StatusBadRequest, env

	case errors.Is(err, domain.ErrPackageNotFound):
		env.Message = "scenario package not found"
		return http.StatusNotFound, env

	case errors.Is(err, domain.ErrVersionConflict):
		env.Message = "scenario package was modified concurrently"
		return http.StatusConflict, env

	case errors.Is(err, domain.ErrPackageArchived):
		env.Message = "cannot modify archived scenario package"
		return http.StatusConflict, env

	default:
		return http.StatusInternalServerError, ErrorEnvelope{Message: "internal server error"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, env := mapDomainError(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	writeJSON(w, status, env)
}
