package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/liverty-music/backend/internal/entity"
)

// sweepInterval is how often the periodic TTL sweep runs.
const sweepInterval = time.Minute

// SessionStore holds in-progress device-code login sessions, keyed by a
// server-generated qrId, per spec.md §4.6/§3.1 "QrCodeSession". Sessions
// are never persisted: a process restart loses in-flight logins, which
// is acceptable since the upstream device code itself is also short-lived.
type SessionStore struct {
	sessions *xsync.MapOf[string, *entity.QrCodeSession]

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSessionStore creates a store and starts its periodic TTL sweep
// goroutine. Call Close to stop it, normally registered as a shutdown
// Drain-phase closer.
func NewSessionStore() *SessionStore {
	ctx, cancel := context.WithCancel(context.Background())
	s := &SessionStore{
		sessions: xsync.NewMapOf[string, *entity.QrCodeSession](),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.sweepLoop(ctx)
	return s
}

// Create registers a new session and returns its generated qrId.
func (s *SessionStore) Create(session *entity.QrCodeSession) string {
	qrID := uuid.New().String()
	session.QrID = qrID
	s.sessions.Store(qrID, session)
	return qrID
}

// Get returns the session for qrId, sweeping it out first if its
// upstream-reported expiry has already passed (TTL sweep on read, per
// the expansion's "TTL sweep on read and a periodic ticker").
func (s *SessionStore) Get(qrID string) (*entity.QrCodeSession, bool) {
	session, ok := s.sessions.Load(qrID)
	if !ok {
		return nil, false
	}
	if session.Expired(time.Now()) {
		s.sessions.Delete(qrID)
		return nil, false
	}
	return session, true
}

// Update replaces the stored session for qrId, e.g. after a poll
// transitions its LastStatus.
func (s *SessionStore) Update(session *entity.QrCodeSession) {
	s.sessions.Store(session.QrID, session)
}

// Delete removes a session, e.g. once Confirmed and its token consumed.
func (s *SessionStore) Delete(qrID string) {
	s.sessions.Delete(qrID)
}

func (s *SessionStore) sweepLoop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *SessionStore) sweep() {
	now := time.Now()
	s.sessions.Range(func(qrID string, session *entity.QrCodeSession) bool {
		if session.Expired(now) {
			s.sessions.Delete(qrID)
		}
		return true
	})
}

// Close stops the periodic sweep goroutine.
func (s *SessionStore) Close() error {
	s.cancel()
	<-s.done
	return nil
}
