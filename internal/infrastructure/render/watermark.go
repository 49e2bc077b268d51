package render

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// WatermarkConfig holds the watermark behavior flags and dynamic-code
// parameters of spec.md §6, §6.5.
type WatermarkConfig struct {
	ExplicitBadge  bool
	ImplicitPixel  bool
	UnlockStatic   string
	UnlockDynamic  bool
	DynamicSalt    string
	DynamicTTLSecs int64
	DynamicSecret  string
	DynamicLength  int
}

// DynamicCode computes the current watermark unlock code, per spec.md
// §6.5: code = hex(SHA-256(salt || floor(nowUnix/ttl) || secret))[0..length].
func DynamicCode(cfg WatermarkConfig, nowUnix int64) string {
	ttl := cfg.DynamicTTLSecs
	if ttl <= 0 {
		ttl = 1
	}
	window := nowUnix / ttl

	h := sha256.New()
	h.Write([]byte(cfg.DynamicSalt))
	h.Write([]byte(strconv.FormatInt(window, 10)))
	h.Write([]byte(cfg.DynamicSecret))
	code := hex.EncodeToString(h.Sum(nil))

	length := cfg.DynamicLength
	if length <= 0 || length > len(code) {
		length = len(code)
	}
	return code[:length]
}

// Unlocked reports whether password matches the static or current dynamic
// unlock value. An empty cfg.UnlockStatic never matches an empty password.
func Unlocked(cfg WatermarkConfig, password string, nowUnix int64) bool {
	if password == "" {
		return false
	}
	if cfg.UnlockStatic != "" && password == cfg.UnlockStatic {
		return true
	}
	if cfg.UnlockDynamic && password == DynamicCode(cfg, nowUnix) {
		return true
	}
	return false
}
