package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liverty-music/backend/internal/entity"
)

type fakeUpstream struct {
	codeResponse  map[string]any
	pollResponses []map[string]any
	pollIndex     int
}

func newFakeUpstream(t *testing.T) (*httptest.Server, *fakeUpstream) {
	t.Helper()
	up := &fakeUpstream{
		codeResponse: map[string]any{
			"device_code":               "devcode-123",
			"user_code":                 "ABCD-EFGH",
			"verification_uri":          "https://taptap.example/activate",
			"verification_uri_complete": "https://taptap.example/activate?code=ABCD-EFGH",
			"expires_in":                300,
			"interval":                  1,
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/device/code", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(up.codeResponse)
	})
	mux.HandleFunc("/oauth2/device/token", func(w http.ResponseWriter, r *http.Request) {
		idx := up.pollIndex
		if idx >= len(up.pollResponses) {
			idx = len(up.pollResponses) - 1
		}
		_ = json.NewEncoder(w).Encode(up.pollResponses[idx])
		up.pollIndex++
	})
	srv := httptest.NewServer(mux)
	return srv, up
}

func newTestService(t *testing.T) (*Service, *fakeUpstream, *httptest.Server) {
	t.Helper()
	srv, up := newFakeUpstream(t)
	client := NewClient(Endpoints{CN: srv.URL, Global: srv.URL}, "client-id")
	sessions := NewSessionStore()
	t.Cleanup(func() { _ = sessions.Close() })
	return NewService(client, sessions), up, srv
}

func TestStartQRLoginCreatesPendingSession(t *testing.T) {
	svc, _, srv := newTestService(t)
	defer srv.Close()

	session, err := svc.StartQRLogin(t.Context(), TapTapCN)
	require.NoError(t, err)

	assert.NotEmpty(t, session.QrID)
	assert.Equal(t, "devcode-123", session.UpstreamDeviceCode)
	assert.Equal(t, "https://taptap.example/activate?code=ABCD-EFGH", session.VerificationURL)
	assert.Contains(t, session.QrSvgDataURL, "data:image/svg+xml;base64,")
	assert.Equal(t, entity.QrPending, session.LastStatus)
	assert.Equal(t, string(TapTapCN), session.TapTapVersion)
}

func TestStatusUnknownSessionReturnsError(t *testing.T) {
	svc, _, srv := newTestService(t)
	defer srv.Close()

	_, err := svc.Status(t.Context(), "does-not-exist")
	require.Error(t, err)
}

func TestStatusTransitionsToConfirmedAndRemovesSession(t *testing.T) {
	svc, up, srv := newTestService(t)
	defer srv.Close()
	up.pollResponses = []map[string]any{
		{"status": "confirmed", "access_token": "session-token-xyz", "expires_in": 300, "interval": 1},
	}

	session, err := svc.StartQRLogin(t.Context(), TapTapCN)
	require.NoError(t, err)

	updated, err := svc.Status(t.Context(), session.QrID)
	require.NoError(t, err)
	assert.Equal(t, entity.QrConfirmed, updated.LastStatus)
	assert.Equal(t, "session-token-xyz", updated.SessionToken)

	_, ok := svc.sessions.Get(session.QrID)
	assert.False(t, ok)
}

func TestStatusTransitionsToExpiredAndRemovesSession(t *testing.T) {
	svc, up, srv := newTestService(t)
	defer srv.Close()
	up.pollResponses = []map[string]any{
		{"status": "expired", "expires_in": 0, "interval": 1},
	}

	session, err := svc.StartQRLogin(t.Context(), TapTapCN)
	require.NoError(t, err)

	updated, err := svc.Status(t.Context(), session.QrID)
	require.NoError(t, err)
	assert.Equal(t, entity.QrExpired, updated.LastStatus)

	_, ok := svc.sessions.Get(session.QrID)
	assert.False(t, ok)
}

func TestStatusPendingIsPolledAndPersisted(t *testing.T) {
	svc, up, srv := newTestService(t)
	defer srv.Close()
	up.pollResponses = []map[string]any{
		{"status": "scanned", "expires_in": 300, "interval": 2},
	}

	session, err := svc.StartQRLogin(t.Context(), TapTapCN)
	require.NoError(t, err)

	updated, err := svc.Status(t.Context(), session.QrID)
	require.NoError(t, err)
	assert.Equal(t, entity.QrScanned, updated.LastStatus)

	again, ok := svc.sessions.Get(session.QrID)
	require.True(t, ok)
	assert.Equal(t, entity.QrScanned, again.LastStatus)
}

func TestStatusAlreadyTerminalSkipsPoll(t *testing.T) {
	svc, up, srv := newTestService(t)
	defer srv.Close()
	up.pollResponses = []map[string]any{
		{"status": "error", "expires_in": 300, "interval": 1},
	}

	session := &entity.QrCodeSession{
		UpstreamDeviceCode: "devcode-456",
		ExpiresAt:          time.Now().Add(time.Minute),
		LastStatus:         entity.QrError,
		TapTapVersion:      string(TapTapCN),
	}
	svc.sessions.Create(session)

	updated, err := svc.Status(t.Context(), session.QrID)
	require.NoError(t, err)
	assert.Equal(t, entity.QrError, updated.LastStatus)
	assert.Equal(t, 0, up.pollIndex)
}
