package stats

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Hasher derives stable, non-reversible identifiers for telemetry rows
// from a configured salt (spec.md §4.5.2). With no salt configured,
// Hasher is nil everywhere it is used and no user or IP hashes are
// recorded.
type Hasher struct {
	salt []byte
}

// NewHasher returns nil if salt is empty, disabling identifier hashing
// entirely.
func NewHasher(salt string) *Hasher {
	if salt == "" {
		return nil
	}
	return &Hasher{salt: []byte(salt)}
}

// Hash returns hex(first 16 bytes of HMAC-SHA256(salt, stableID)).
func (h *Hasher) Hash(stableID string) string {
	mac := hmac.New(sha256.New, h.salt)
	mac.Write([]byte(stableID))
	sum := mac.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// StableID picks the highest-priority identifier available from a
// request's auth, per spec.md §4.5.2: sessionToken > apiUserId >
// sessiontoken > platform:platformId.
func StableID(sessionToken, apiUserID, externalSessionToken, platform, platformID string) string {
	switch {
	case sessionToken != "":
		return sessionToken
	case apiUserID != "":
		return apiUserID
	case externalSessionToken != "":
		return externalSessionToken
	case platform != "" || platformID != "":
		return platform + ":" + platformID
	default:
		return ""
	}
}

// UserHash hashes stableID if both h and stableID are non-empty,
// otherwise returns nil (no user hash recorded).
func (h *Hasher) UserHash(stableID string) *string {
	if h == nil || stableID == "" {
		return nil
	}
	v := h.Hash(stableID)
	return &v
}

// ClientIPHash hashes ip if h is configured, otherwise returns nil.
func (h *Hasher) ClientIPHash(ip string) *string {
	if h == nil || ip == "" {
		return nil
	}
	v := h.Hash(ip)
	return &v
}
