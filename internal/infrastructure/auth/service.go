package auth

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/pannpers/go-apperr/apperr/codes"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/liverty-music/backend/internal/entity"
	"github.com/liverty-music/backend/internal/infrastructure/auth/qrsvg"
)

// quietZoneModules is the standard QR quiet-zone width in modules.
const quietZoneModules = 2

// defaultSessionTTL bounds a session's lifetime when the upstream omits
// an explicit expiry.
const defaultSessionTTL = 5 * time.Minute

// Service implements the device-code login flow (spec.md §4.6): starting
// a session, synthesizing its QR code, and translating upstream polls
// into the client-visible {Pending,Scanned,Confirmed,Error,Expired}
// state machine.
type Service struct {
	client   *Client
	sessions *SessionStore
}

// NewService constructs a Service.
func NewService(client *Client, sessions *SessionStore) *Service {
	return &Service{client: client, sessions: sessions}
}

// StartQRLogin requests a new device code from the upstream and returns
// a freshly created, cached session with its QR code already rendered.
func (s *Service) StartQRLogin(ctx context.Context, version TapTapVersion) (*entity.QrCodeSession, error) {
	resp, err := s.client.RequestDeviceCode(ctx, version)
	if err != nil {
		return nil, err
	}

	verificationURL := resp.VerificationURIComplete
	if verificationURL == "" {
		verificationURL = resp.VerificationURI
	}

	svg, err := qrsvg.Encode(verificationURL, qrcode.Medium, quietZoneModules)
	if err != nil {
		return nil, apperrx.Wrap(err, codes.Internal, "Internal", "failed to render qr code")
	}
	dataURL := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))

	now := time.Now()
	expiresAt := resp.Expiry
	if expiresAt.IsZero() {
		expiresAt = now.Add(defaultSessionTTL)
	}

	session := &entity.QrCodeSession{
		UpstreamDeviceCode: resp.DeviceCode,
		VerificationURL:    verificationURL,
		QrSvgDataURL:       dataURL,
		CreatedAt:          now,
		ExpiresAt:          expiresAt,
		LastStatus:         entity.QrPending,
		TapTapVersion:      string(version),
	}
	s.sessions.Create(session)
	return session, nil
}

// Status polls the upstream for qrId's current state (unless the
// session is already in a terminal state) and updates the cached
// session accordingly. Expired sessions are removed, per spec.md §4.6
// ("the session is removed").
func (s *Service) Status(ctx context.Context, qrID string) (*entity.QrCodeSession, error) {
	session, ok := s.sessions.Get(qrID)
	if !ok {
		return nil, apperrx.New(codes.NotFound, "NotFound", "qr session not found or expired")
	}

	switch session.LastStatus {
	case entity.QrConfirmed, entity.QrExpired, entity.QrError:
		return session, nil
	}

	result, err := s.client.Poll(ctx, TapTapVersion(session.TapTapVersion), session.UpstreamDeviceCode)
	if err != nil {
		session.LastStatus = entity.QrError
		s.sessions.Update(session)
		return session, nil
	}

	session.LastStatus = result.Status
	session.RetryAfter = result.RetryAfter
	if result.Status == entity.QrConfirmed {
		session.SessionToken = result.SessionToken
	}

	if result.Status == entity.QrExpired || result.Status == entity.QrConfirmed {
		s.sessions.Delete(qrID)
		return session, nil
	}

	s.sessions.Update(session)
	return session, nil
}
