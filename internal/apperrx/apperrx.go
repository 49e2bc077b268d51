// Package apperrx is the HTTP-facing extension of github.com/pannpers/go-apperr.
//
// The teacher's apperr.Code enum (grpc-style: InvalidArgument, NotFound, ...)
// is coarser than the stable "code" tokens spec.md's problem+json envelope
// requires (e.g. distinguishing DECRYPT_FAILED from TAG_VERIFICATION_FAILED,
// both FailedPrecondition). Error carries both: the apperr code for logging
// and upstream-style classification, and a Token for the wire envelope.
package apperrx

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pannpers/go-apperr/apperr"
	"github.com/pannpers/go-apperr/apperr/codes"
)

// Error is a apperr-compatible error that additionally carries the stable
// machine-readable token exposed in the problem+json envelope (spec.md §6.2).
type Error struct {
	Code  codes.Code
	Token string
	// HTTPStatus overrides the default apperr.Code → status mapping when
	// non-zero. Used for spec.md's AuthPending (202), which has no
	// corresponding apperr.Code.
	HTTPStatus int
	msg        string
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a new Error, also wrapping it through apperr.New so it logs
// identically to every other error in the codebase.
func New(code codes.Code, token, msg string, attrs ...slog.Attr) *Error {
	return &Error{
		Code:  code,
		Token: token,
		msg:   apperr.New(code, msg, attrs...).Error(),
	}
}

// Wrap wraps cause through apperr.Wrap, also carrying token.
func Wrap(cause error, code codes.Code, token, msg string, attrs ...slog.Attr) *Error {
	return &Error{
		Code:  code,
		Token: token,
		msg:   apperr.Wrap(cause, code, msg, attrs...).Error(),
		cause: cause,
	}
}

// WithStatus overrides the HTTP status the problem+json mapping would
// otherwise derive from Code.
func (e *Error) WithStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// As extracts the *Error from err, if any is present in its chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// sentinelCodes pairs apperr's well-known sentinel errors with the Code
// they represent, in the grpc-style convention apperr follows (one Err*
// sentinel per codes.Code). Checked in CodeOf so an error built directly
// through apperr.New/apperr.Wrap (rdb's toAppErr, for one) still classifies
// correctly even though it never passes through this package's own New/Wrap.
var sentinelCodes = []struct {
	err  error
	code codes.Code
}{
	{apperr.ErrInvalidArgument, codes.InvalidArgument},
	{apperr.ErrNotFound, codes.NotFound},
	{apperr.ErrAlreadyExists, codes.AlreadyExists},
	{apperr.ErrPermissionDenied, codes.PermissionDenied},
	{apperr.ErrFailedPrecondition, codes.FailedPrecondition},
	{apperr.ErrUnauthenticated, codes.Unauthenticated},
	{apperr.ErrResourceExhausted, codes.ResourceExhausted},
	{apperr.ErrUnavailable, codes.Unavailable},
	{apperr.ErrDeadlineExceeded, codes.DeadlineExceeded},
	{apperr.ErrCanceled, codes.Canceled},
	{apperr.ErrAborted, codes.Aborted},
	{apperr.ErrDataLoss, codes.DataLoss},
	{apperr.ErrInternal, codes.Internal},
	{apperr.ErrUnknown, codes.Unknown},
}

// CodeOf classifies err's apperr code whether it was built through this
// package's Error (in which case the carried Code is authoritative) or
// directly through apperr.New/apperr.Wrap, which is what every
// internal/infrastructure/database/rdb error is. Returns false if err
// carries no recognizable apperr code at all.
func CodeOf(err error) (codes.Code, bool) {
	if e, ok := As(err); ok {
		return e.Code, true
	}
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.err) {
			return sc.code, true
		}
	}
	return codes.Unknown, false
}
