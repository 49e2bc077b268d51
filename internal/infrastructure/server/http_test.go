package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liverty-music/backend/pkg/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.HandlerTimeout = 5 * time.Second
	cfg.API.Prefix = "/api/v2"
	cfg.Environment = "local"
	cfg.Leaderboard.AdminTokens = []string{"secret-token"}
	return cfg
}

func TestNewBuildsAServerListeningOnTheConfiguredAddress(t *testing.T) {
	s := New(testConfig(), newTestLogger(), nil, nil, func(r chi.Router) {})

	assert.Equal(t, "127.0.0.1:0", s.address)
	assert.NotNil(t, s.server.Handler)
}

func TestNewMountsRegisteredRoutesUnderTheConfiguredPrefix(t *testing.T) {
	var mounted string
	s := New(testConfig(), newTestLogger(), nil, nil, func(r chi.Router) {
		r.Get("/songs/search", func(w http.ResponseWriter, r *http.Request) {
			mounted = r.URL.Path
			w.WriteHeader(http.StatusOK)
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v2/songs/search", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/v2/songs/search", mounted)
}

func TestNewRejectsAnAdminRouteWithoutATokenEvenThroughTheFullChain(t *testing.T) {
	s := New(testConfig(), newTestLogger(), nil, nil, func(r chi.Router) {
		r.Get("/admin/leaderboard/suspicious", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v2/admin/leaderboard/suspicious", nil)
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthJSONReportsServiceAndVersion(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	healthJSON(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, serviceName, body["service"])
}

func TestServeOpenAPISpecReturnsValidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api-docs/openapi.json", nil)
	rec := httptest.NewRecorder()

	serveOpenAPISpec(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, json.Valid(rec.Body.Bytes()))
}

func TestServeDocsReturnsHTML(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/docs", nil)
	rec := httptest.NewRecorder()

	serveDocs(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}
