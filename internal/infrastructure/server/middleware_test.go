package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pannpers/go-logging/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logging.Logger {
	logger, _ := logging.New()
	return logger
}

func TestRequestIDMiddlewareGeneratesAnIDWhenCallerSendsNone(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	RequestIDMiddleware()(next).ServeHTTP(rec, req)

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-Id"))
}

func TestRequestIDMiddlewarePropagatesCallerSuppliedID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "caller-supplied-id")
	rec := httptest.NewRecorder()

	RequestIDMiddleware()(next).ServeHTTP(rec, req)

	assert.Equal(t, "caller-supplied-id", seen)
	assert.Equal(t, "caller-supplied-id", rec.Header().Get("X-Request-Id"))
}

func TestRecoverMiddlewareConvertsAPanicIntoAProblemResponse(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/image/bn", nil)
	rec := httptest.NewRecorder()

	RecoverMiddleware(newTestLogger())(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRecoverMiddlewarePassesThroughWhenNoPanic(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	RecoverMiddleware(newTestLogger())(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminTokenMiddlewareRejectsMissingTokenOnAdminRoute(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v2/admin/leaderboard/suspicious", nil)
	rec := httptest.NewRecorder()

	AdminTokenMiddleware([]string{"secret-token"})(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminTokenMiddlewareAcceptsAMatchingToken(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v2/admin/leaderboard/suspicious", nil)
	req.Header.Set("X-Admin-Token", "secret-token")
	rec := httptest.NewRecorder()

	AdminTokenMiddleware([]string{"secret-token"})(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminTokenMiddlewareIgnoresNonAdminRoutes(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v2/leaderboard/rks/top", nil)
	rec := httptest.NewRecorder()

	AdminTokenMiddleware([]string{"secret-token"})(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleWritesAProblemResponseOnError(t *testing.T) {
	h := Handle(func(w http.ResponseWriter, r *http.Request) error {
		return context.DeadlineExceeded
	})

	req := httptest.NewRequest(http.MethodGet, "/songs/search", nil)
	rec := httptest.NewRecorder()

	h(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
