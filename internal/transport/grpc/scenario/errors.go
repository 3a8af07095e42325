package scenario

import (
	"errors"
	"sort"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/light-bringer/procat-editor/internal/app/scenario/domain"
)

// ErrorDomain is the ErrorInfo domain of scenario package errors.
const ErrorDomain = "scenario.procat"

// mapDomainErrorToGRPC converts domain errors to gRPC status errors that
// carry the error code as ErrorInfo and field violations as BadRequest.
func mapDomainErrorToGRPC(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return withDetails(codes.InvalidArgument, "section payload is invalid", domain.CodeSectionInvalid, verr.FieldErrors())

	case errors.Is(err, domain.ErrMalformedPayload):
		return withDetails(codes.InvalidArgument, "section payload is malformed", domain.CodePayloadMalformed, nil)

	case errors.Is(err, domain.ErrUnknownSection):
		return withDetails(codes.InvalidArgument, "unknown section", domain.CodeSectionUnknown, nil)

	case errors.Is(err, domain.ErrPackageNotFound):
		return withDetails(codes.NotFound, "scenario package not found", domain.CodePackageNotFound, nil)

	case errors.Is(err, domain.ErrVersionConflict):
		return withDetails(codes.Aborted, "scenario package was modified concurrently", domain.CodeVersionConflict, nil)

	case errors.Is(err, domain.ErrPackageArchived):
		return withDetails(codes.FailedPrecondition, "cannot modify archived scenario package", domain.CodePackageArchived, nil)

	default:
		// Don't leak internal errors
		return status.Error(codes.Internal, "internal server error")
	}
}

func withDetails(code codes.Code, msg, reason string, fields map[string][]string) error {
	st := status.New(code, msg)
	info := &errdetails.ErrorInfo{Reason: reason, Domain: ErrorDomain}

	var (
		detailed *status.Status
		err      error
	)
	if len(fields) == 0 {
		detailed, err = st.WithDetails(info)
	} else {
		detailed, err = st.WithDetails(info, badRequest(fields))
	}
	if err != nil {
		// If we can't attach details, return the basic status
		return st.Err()
	}
	return detailed.Err()
}

func badRequest(fields map[string][]string) *errdetails.BadRequest {
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)

	br := &errdetails.BadRequest{}
	for _, f := range names {
		for _, desc := range fields[f] {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{Field: f, Description: desc})
		}
	}
	return br
}
