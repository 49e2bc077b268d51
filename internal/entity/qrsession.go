package entity

import "time"

// QrStatus is the client-visible state of a device-code login attempt
// (spec.md §4.6).
type QrStatus string

const (
	QrPending   QrStatus = "Pending"
	QrScanned   QrStatus = "Scanned"
	QrConfirmed QrStatus = "Confirmed"
	QrError     QrStatus = "Error"
	QrExpired   QrStatus = "Expired"
)

// QrCodeSession is an in-memory, TTL-bounded record of one in-progress
// device-code login (spec.md §3.1 "QrCodeSession"). Owned by AuthClient;
// never persisted.
type QrCodeSession struct {
	QrID               string        `json:"qrId"`
	UpstreamDeviceCode string        `json:"-"`
	VerificationURL    string        `json:"verificationUrl,omitempty"`
	QrSvgDataURL       string        `json:"qrSvgDataUrl,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	ExpiresAt          time.Time     `json:"expiresAt"`
	LastStatus         QrStatus      `json:"status"`
	SessionToken       string        `json:"sessionToken,omitempty"`
	RetryAfter         time.Duration `json:"-"`
	// TapTapVersion is the upstream endpoint family ("cn"|"global") this
	// session was started against, needed so status polls reuse the same
	// upstream.
	TapTapVersion string `json:"-"`
}

// Expired reports whether the session's upstream-reported expiry has
// passed as of now.
func (s *QrCodeSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
