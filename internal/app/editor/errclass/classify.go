package errclass

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"

	"cloud.google.com/go/spanner"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// httpStatuser is implemented by transport errors that carry a response status.
type httpStatuser interface {
	HTTPStatus() int
}

// bodyCarrier is implemented by transport errors that kept the response body.
type bodyCarrier interface {
	ResponseBody() []byte
}

// fieldErrorer is implemented by errors that carry per-field violations.
type fieldErrorer interface {
	FieldErrors() map[string][]string
}

// codeCarrier is implemented by errors that carry a machine-readable code.
type codeCarrier interface {
	ErrorCode() string
}

// Classifier classifies errors using one locale's catalog.
type Classifier struct {
	catalog *Catalog
}

// New creates a Classifier for locale using the embedded catalogs.
func New(locale string) *Classifier {
	return &Classifier{catalog: DefaultBundle().Catalog(locale)}
}

// NewWithCatalog creates a Classifier over an explicit catalog.
func NewWithCatalog(c *Catalog) *Classifier {
	return &Classifier{catalog: c}
}

// Classify classifies raw using the base locale.
func Classify(raw error) *ClassifiedError {
	return New(BaseLocale).Classify(raw)
}

// Classify maps raw into the taxonomy. It is total: every input, including
// nil and errors whose methods panic, yields a ClassifiedError.
func (c *Classifier) Classify(raw error) (ce *ClassifiedError) {
	defer func() {
		if p := recover(); p != nil {
			ce = &ClassifiedError{
				Kind:    KindUnknown,
				Message: c.catalog.KindMessage(KindUnknown),
				Cause:   fmt.Errorf("classify panicked: %v", p),
			}
		}
	}()

	if raw == nil {
		return &ClassifiedError{Kind: KindUnknown, Message: c.catalog.KindMessage(KindUnknown)}
	}

	var already *ClassifiedError
	if errors.As(raw, &already) && already != nil {
		out := *already
		out.FieldErrors = copyFields(already.FieldErrors)
		return &out
	}

	d := c.detect(raw)
	ce = &ClassifiedError{
		Kind:   d.kind,
		Code:   d.code,
		Status: d.status,
		Cause:  raw,
	}
	if d.kind == KindValidation && len(d.fields) > 0 {
		ce.FieldErrors = copyFields(d.fields)
	}
	ce.Message = c.resolveMessage(ce.Kind, d)
	return ce
}

// detail is what detection could learn about a failure.
type detail struct {
	kind    Kind
	status  int
	code    string
	message string
	fields  map[string][]string
}

func (c *Classifier) detect(raw error) detail {
	// Transport errors that carry an HTTP status.
	var hs httpStatuser
	if errors.As(raw, &hs) {
		st := hs.HTTPStatus()
		if st == 0 {
			return detail{kind: KindNetwork}
		}
		d := detail{kind: KindForStatus(st), status: st}
		var bc bodyCarrier
		if errors.As(raw, &bc) {
			d.code, d.message, d.fields = parseBody(bc.ResponseBody())
		}
		mergeCarriers(raw, &d)
		return d
	}

	// gRPC status errors, including Spanner errors.
	if st, ok := status.FromError(raw); ok && st.Code() != codes.OK && st.Code() != codes.Unknown {
		return fromStatus(raw, st)
	}
	if code := spanner.ErrCode(raw); code != codes.OK && code != codes.Unknown {
		return fromStatus(raw, status.New(code, spanner.ErrDesc(raw)))
	}

	if isConnectionFailure(raw) {
		return detail{kind: KindNetwork}
	}

	// Domain errors that describe themselves.
	d := detail{kind: KindUnknown}
	mergeCarriers(raw, &d)
	if len(d.fields) > 0 {
		d.kind = KindValidation
		d.status = 422
	}
	return d
}

func fromStatus(raw error, st *status.Status) detail {
	kind, httpStatus := kindForCode(st.Code())
	d := detail{kind: kind, status: httpStatus, message: st.Message()}
	if kind == KindNetwork {
		d.status = 0
		d.message = ""
		return d
	}
	readStatusDetails(st, &d)
	mergeCarriers(raw, &d)
	return d
}

func kindForCode(code codes.Code) (Kind, int) {
	switch code {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return KindNetwork, 0
	case codes.Unauthenticated:
		return KindUnauthorized, 401
	case codes.PermissionDenied:
		return KindForbidden, 403
	case codes.NotFound:
		return KindNotFound, 404
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return KindValidation, 400
	case codes.AlreadyExists, codes.Aborted:
		return KindConflict, 409
	case codes.Internal, codes.DataLoss, codes.Unimplemented, codes.ResourceExhausted:
		return KindServer, 500
	default:
		return KindUnknown, 0
	}
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// mergeCarriers fills gaps in d from interfaces implemented anywhere in the chain.
func mergeCarriers(raw error, d *detail) {
	var cc codeCarrier
	if d.code == "" && errors.As(raw, &cc) {
		d.code = cc.ErrorCode()
	}
	var fe fieldErrorer
	if len(d.fields) == 0 && errors.As(raw, &fe) {
		d.fields = fe.FieldErrors()
	}
}

// resolveMessage prefers a mapped server code, then server text, then the
// joined field messages for validation failures, then the kind default.
func (c *Classifier) resolveMessage(kind Kind, d detail) string {
	if msg, ok := c.catalog.CodeMessage(d.code); ok {
		return msg
	}
	if d.message != "" {
		return d.message
	}
	if kind == KindValidation && len(d.fields) > 0 {
		if joined := joinFieldErrors(d.fields); joined != "" {
			return joined
		}
	}
	return c.catalog.KindMessage(kind)
}

func copyFields(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}
