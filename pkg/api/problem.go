package api

import (
	"encoding/json"
	"net/http"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/pannpers/go-apperr/apperr/codes"
)

// Problem is the RFC 7807 error envelope every non-2xx response carries
// (spec.md §6.2).
type Problem struct {
	Type      string       `json:"type"`
	Title     string       `json:"title"`
	Status    int          `json:"status"`
	Code      string       `json:"code"`
	Detail    string       `json:"detail,omitempty"`
	RequestID string       `json:"requestId,omitempty"`
	Errors    []FieldError `json:"errors,omitempty"`
}

// FieldError is one per-field validation failure inside Problem.Errors.
type FieldError struct {
	Field  string `json:"field"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// statusForCode maps the teacher's apperr.Code enum to the HTTP status
// spec.md §4.2.7/§7 assigns it. AuthPending (202) has no apperr.Code
// analogue and is instead expressed via *apperrx.Error.HTTPStatus.
func statusForCode(c codes.Code) int {
	switch c {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.FailedPrecondition:
		return http.StatusUnprocessableEntity
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unavailable:
		return http.StatusBadGateway
	case codes.Canceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// defaultTokenForCode gives a stable code token to an error that carries an
// apperr.Code but never passed through apperrx's own constructors, so never
// received a specific Token (e.g. every internal/infrastructure/database/rdb
// error, which is built directly via apperr.New/apperr.Wrap).
func defaultTokenForCode(c codes.Code) string {
	switch c {
	case codes.InvalidArgument:
		return "VALIDATION_FAILED"
	case codes.Unauthenticated:
		return "AUTH_FAILED"
	case codes.PermissionDenied:
		return "PERMISSION_DENIED"
	case codes.NotFound:
		return "NOT_FOUND"
	case codes.AlreadyExists, codes.Aborted:
		return "CONFLICT"
	case codes.FailedPrecondition:
		return "FAILED_PRECONDITION"
	case codes.ResourceExhausted:
		return "RATE_LIMITED"
	case codes.DeadlineExceeded:
		return "UPSTREAM_TIMEOUT"
	case codes.Unavailable:
		return "UPSTREAM_NETWORK_ERROR"
	default:
		return "INTERNAL"
	}
}

// ProblemFromError converts err into a Problem. It prefers the fine-grained
// token and status carried by an *apperrx.Error, then falls back to
// classifying err's underlying apperr.Code (covering errors built directly
// via apperr.New/apperr.Wrap, never wrapped through apperrx), and only
// defaults to a generic INTERNAL 500 when neither recognizes err at all.
func ProblemFromError(err error, requestID string) Problem {
	if ae, ok := apperrx.As(err); ok {
		status := ae.HTTPStatus
		if status == 0 {
			status = statusForCode(ae.Code)
		}
		return Problem{
			Type:      "about:blank",
			Title:     http.StatusText(status),
			Status:    status,
			Code:      ae.Token,
			Detail:    ae.Error(),
			RequestID: requestID,
		}
	}

	code, known := apperrx.CodeOf(err)
	if !known {
		return Problem{
			Type:      "about:blank",
			Title:     http.StatusText(http.StatusInternalServerError),
			Status:    http.StatusInternalServerError,
			Code:      "INTERNAL",
			Detail:    "an internal error occurred",
			RequestID: requestID,
		}
	}

	status := statusForCode(code)
	return Problem{
		Type:      "about:blank",
		Title:     http.StatusText(status),
		Status:    status,
		Code:      defaultTokenForCode(code),
		Detail:    err.Error(),
		RequestID: requestID,
	}
}

// WriteProblem writes err as a problem+json response with the given
// request id attached (spec.md §4.7 "request-id middleware").
func WriteProblem(w http.ResponseWriter, err error, requestID string) {
	p := ProblemFromError(err, requestID)

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
