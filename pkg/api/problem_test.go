package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/pannpers/go-apperr/apperr"
	"github.com/pannpers/go-apperr/apperr/codes"
	"github.com/stretchr/testify/assert"

	"github.com/liverty-music/backend/internal/apperrx"
)

func TestProblemFromErrorUsesApperrxTokenWhenPresent(t *testing.T) {
	err := apperrx.New(codes.FailedPrecondition, "TAG_VERIFICATION_FAILED", "save tag mismatch")

	p := ProblemFromError(err, "req-1")
	assert.Equal(t, http.StatusUnprocessableEntity, p.Status)
	assert.Equal(t, "TAG_VERIFICATION_FAILED", p.Code)
	assert.Equal(t, "req-1", p.RequestID)
}

func TestProblemFromErrorHonorsExplicitStatusOverride(t *testing.T) {
	err := apperrx.New(codes.Unknown, "AUTH_PENDING", "awaiting confirmation").WithStatus(http.StatusAccepted)

	p := ProblemFromError(err, "")
	assert.Equal(t, http.StatusAccepted, p.Status)
	assert.Equal(t, "AUTH_PENDING", p.Code)
}

func TestProblemFromErrorClassifiesPlainApperrByCode(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", apperr.Wrap(errors.New("sql: no rows in result set"), codes.NotFound, "no such user"), http.StatusNotFound, "NOT_FOUND"},
		{"already exists", apperr.Wrap(errors.New("UNIQUE constraint failed: user_profile.alias_ci"), codes.AlreadyExists, "alias already taken"), http.StatusConflict, "CONFLICT"},
		{"failed precondition", apperr.Wrap(errors.New("FOREIGN KEY constraint failed"), codes.FailedPrecondition, "foreign key constraint failed"), http.StatusUnprocessableEntity, "FAILED_PRECONDITION"},
		{"invalid argument", apperr.Wrap(errors.New("NOT NULL constraint failed"), codes.InvalidArgument, "not null constraint failed"), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"internal", apperr.Wrap(errors.New("unexpected"), codes.Internal, "unexpected"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := ProblemFromError(tc.err, "")
			assert.Equal(t, tc.wantStatus, p.Status)
			assert.Equal(t, tc.wantCode, p.Code)
		})
	}
}

func TestProblemFromErrorDefaultsToInternalForUnrecognizedError(t *testing.T) {
	p := ProblemFromError(errors.New("boom"), "req-2")
	assert.Equal(t, http.StatusInternalServerError, p.Status)
	assert.Equal(t, "INTERNAL", p.Code)
	assert.Equal(t, "req-2", p.RequestID)
}
