package save

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/pannpers/go-apperr/apperr/codes"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/liverty-music/backend/internal/entity"
)

// connectTimeout and totalTimeout are fixed by spec.md §4.2.2: "connect
// 10 s, total 30 s."
const (
	connectTimeout = 10 * time.Second
	totalTimeout   = 30 * time.Second
)

// fetchResult is the identity provider's response to a save query
// (spec.md §4.2.2): a download URL, a base64 summary blob, and an
// updatedAt timestamp.
type fetchResult struct {
	DownloadURL string    `json:"downloadUrl"`
	Summary     string    `json:"summary"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// newFetchClient builds an http.Client whose dialer enforces the
// connect-timeout half of spec.md §4.2.2 and whose overall Timeout
// enforces the total-time half.
func newFetchClient() *http.Client {
	return &http.Client{
		Timeout: totalTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
		},
	}
}

// queryProvider asks the identity provider at endpoint for the caller's
// save location, surfacing Timeout (504) on total-time expiry and
// Network (502) on any other I/O error (spec.md §4.2.2).
func queryProvider(ctx context.Context, client *http.Client, endpoint string, creds Credentials) (*fetchResult, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, apperrx.Wrap(err, codes.Internal, "Json", "failed to marshal credentials")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperrx.Wrap(err, codes.Internal, "Network", "failed to build save fetch request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrx.Wrap(err, codes.DeadlineExceeded, "Timeout", "save fetch timed out")
		}
		return nil, apperrx.Wrap(err, codes.Unavailable, "Network", "save fetch request failed")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, apperrx.New(codes.Unauthenticated, "Auth", "identity provider rejected credentials").WithStatus(http.StatusUnauthorized)
	case http.StatusAccepted:
		return nil, apperrx.New(codes.FailedPrecondition, "AuthPending", "identity provider login still pending").WithStatus(http.StatusAccepted)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrx.New(codes.Unavailable, "InvalidResponse", "identity provider returned an unexpected status")
	}

	var out fetchResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrx.Wrap(err, codes.FailedPrecondition, "Json", "failed to decode fetch response")
	}
	return &out, nil
}

// downloadSave fetches the raw save container bytes from url.
func downloadSave(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrx.Wrap(err, codes.Internal, "Network", "failed to build save download request")
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrx.Wrap(err, codes.DeadlineExceeded, "Timeout", "save download timed out")
		}
		return nil, apperrx.Wrap(err, codes.Unavailable, "Network", "save download request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrx.New(codes.Unavailable, "InvalidResponse", "save download returned an unexpected status")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrx.Wrap(err, codes.Unavailable, "Network", "failed reading save download body")
	}
	return data, nil
}

// decodeSummary decodes the base64 length-prefixed summary blob of
// spec.md §4.2.2: version (u8), challengeRank (u32 LE), recordCount
// (u32 LE), then one u16-LE count per tracked difficulty in
// entity.Difficulties order.
func decodeSummary(b64 string) (*entity.SaveSummary, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, apperrx.Wrap(err, codes.FailedPrecondition, "Metadata", "summary is not valid base64")
	}

	const fixedLen = 1 + 4 + 4
	if len(raw) < fixedLen+2*len(entity.Difficulties) {
		return nil, apperrx.New(codes.FailedPrecondition, "Metadata", "summary blob shorter than its fixed layout")
	}

	out := &entity.SaveSummary{
		Version:            int(raw[0]),
		ChallengeRank:      int(binary.LittleEndian.Uint32(raw[1:5])),
		RecordCount:        int(binary.LittleEndian.Uint32(raw[5:9])),
		ClearedChartCounts: make(map[entity.Difficulty]int, len(entity.Difficulties)),
	}

	r := raw[fixedLen:]
	for _, d := range entity.Difficulties {
		out.ClearedChartCounts[d] = int(binary.LittleEndian.Uint16(r[:2]))
		r = r[2:]
	}
	return out, nil
}
