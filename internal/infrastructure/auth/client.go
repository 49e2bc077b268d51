package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pannpers/go-apperr/apperr/codes"
	"golang.org/x/oauth2"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/liverty-music/backend/internal/entity"
)

// TapTapVersion selects which upstream endpoint family a request targets,
// per spec.md §4.6 (`taptapVersion=cn|global`).
type TapTapVersion string

const (
	TapTapCN     TapTapVersion = "cn"
	TapTapGlobal TapTapVersion = "global"
)

const (
	connectTimeout = 10 * time.Second
	totalTimeout   = 30 * time.Second
)

// Endpoints holds the two upstream device-authorization base URLs.
type Endpoints struct {
	CN     string
	Global string
}

func (e Endpoints) baseURL(v TapTapVersion) string {
	if v == TapTapCN {
		return e.CN
	}
	return e.Global
}

// Client requests and polls the upstream device-code login flow. The
// upstream is not literally OAuth2-compliant, but its device-code
// exchange has the same shape as one, so this reuses
// oauth2.DeviceAuthResponse purely as a field-compatible decode target
// for the polling/backoff semantics it already models.
type Client struct {
	http      *http.Client
	endpoints Endpoints
	clientID  string
}

// NewClient constructs a Client with the connect/total timeout budget
// used throughout this codebase's outbound HTTP clients (matched to
// internal/infrastructure/save's fetch client).
func NewClient(endpoints Endpoints, clientID string) *Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &Client{
		http: &http.Client{
			Timeout:   totalTimeout,
			Transport: &http.Transport{DialContext: dialer.DialContext},
		},
		endpoints: endpoints,
		clientID:  clientID,
	}
}

// RequestDeviceCode asks the upstream for a new device code.
func (c *Client) RequestDeviceCode(ctx context.Context, version TapTapVersion) (*oauth2.DeviceAuthResponse, error) {
	url := c.endpoints.baseURL(version) + "/oauth2/device/code?client_id=" + c.clientID

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, apperrx.Wrap(err, codes.Internal, "Network", "failed to build device code request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrx.New(codes.Unavailable, "InvalidResponse", "device code request failed", slog.Int("status", resp.StatusCode))
	}

	var out oauth2.DeviceAuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// Upstream response bodies must never be echoed verbatim (§4.6).
		return nil, apperrx.New(codes.Internal, "Json", "failed to decode device code response")
	}
	return &out, nil
}

// PollResult is one upstream poll outcome, translated into the
// client-visible state machine of spec.md §4.6.
type PollResult struct {
	Status       entity.QrStatus
	SessionToken string
	RetryAfter   time.Duration
}

type devicePollResponse struct {
	Status      string `json:"status"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Interval    int64  `json:"interval"`
}

// Poll checks the upstream's current state for deviceCode.
func (c *Client) Poll(ctx context.Context, version TapTapVersion, deviceCode string) (*PollResult, error) {
	url := c.endpoints.baseURL(version) + "/oauth2/device/token?client_id=" + c.clientID + "&device_code=" + deviceCode

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, apperrx.Wrap(err, codes.Internal, "Network", "failed to build poll request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	defer resp.Body.Close()

	var body devicePollResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		// Decode failures must not surface the raw upstream body (§4.6).
		return nil, apperrx.New(codes.Internal, "Json", "failed to decode poll response")
	}

	if body.ExpiresIn <= 0 {
		return &PollResult{Status: entity.QrExpired}, nil
	}

	switch body.Status {
	case "confirmed", "success":
		return &PollResult{Status: entity.QrConfirmed, SessionToken: body.AccessToken}, nil
	case "scanned":
		return &PollResult{Status: entity.QrScanned}, nil
	case "expired":
		return &PollResult{Status: entity.QrExpired}, nil
	case "error":
		return &PollResult{Status: entity.QrError}, nil
	default:
		return &PollResult{Status: entity.QrPending, RetryAfter: time.Duration(body.Interval) * time.Second}, nil
	}
}

func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrx.Wrap(err, codes.DeadlineExceeded, "Timeout", "taptap upstream request timed out")
	}
	return apperrx.Wrap(err, codes.Unavailable, "Network", "taptap upstream request failed")
}
