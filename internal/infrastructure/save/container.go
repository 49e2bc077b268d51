// Package save fetches, decompresses, decrypts, and decodes a player's
// cloud save into an entity.ParsedSave.
//
// Corresponds to spec.md §4.2. Each sub-step (container decompression,
// per-entry decryption, gameRecord decoding) is isolated in its own file
// so a failure in one is attributable without guessing.
package save

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"io"
	"log/slog"

	"github.com/pannpers/go-apperr/apperr/codes"

	"github.com/liverty-music/backend/internal/apperrx"
)

// zlibMagic and gzipMagic are the two-byte fast-path sniffs used before
// falling back to a decompressor attempt (spec.md §4.2.3).
var (
	zlibMagic = [2]byte{0x78, 0x9c}
	gzipMagic = [2]byte{0x1f, 0x8b}
)

// decompressContainer tries {zlib-raw, gzip, identity} in that order
// (spec.md §4.2.3): "attempt decompressors in that order with
// magic-number fast-path, falling back to the raw bytes on any failure."
func decompressContainer(raw []byte) []byte {
	if len(raw) >= 2 {
		switch [2]byte{raw[0], raw[1]} {
		case zlibMagic:
			if out, ok := tryZlib(raw); ok {
				return out
			}
		case gzipMagic:
			if out, ok := tryGzip(raw); ok {
				return out
			}
		}
	}

	if out, ok := tryZlib(raw); ok {
		return out
	}
	if out, ok := tryGzip(raw); ok {
		return out
	}
	return raw
}

func tryZlib(raw []byte) ([]byte, bool) {
	r, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, false
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, false
	}
	return out, true
}

func tryGzip(raw []byte) ([]byte, bool) {
	r, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, false
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, false
	}
	return out, true
}

// entryNames lists the five possible zip entries of spec.md §4.2.3, in
// no particular order (the zip format does not guarantee entry order).
var entryNames = []string{"gameKey", "gameProgress", "gameRecord", "user", "settings"}

// openContainer decompresses raw and opens it as a zip archive, returning
// the raw (still-encrypted) bytes of each present entry keyed by name. A
// present-but-corrupt zip surfaces ZipError (422 per §4.2.7).
func openContainer(raw []byte) (map[string][]byte, error) {
	decompressed := decompressContainer(raw)

	zr, err := zip.NewReader(bytes.NewReader(decompressed), int64(len(decompressed)))
	if err != nil {
		return nil, apperrx.Wrap(err, codes.FailedPrecondition, "ZipError", "malformed save container")
	}

	out := make(map[string][]byte, len(entryNames))
	for _, f := range zr.File {
		if !contains(entryNames, f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, apperrx.Wrap(err, codes.FailedPrecondition, "ZipError", "cannot open save entry", slog.String("entry", f.Name))
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, apperrx.Wrap(err, codes.FailedPrecondition, "ZipError", "cannot read save entry", slog.String("entry", f.Name))
		}
		out[f.Name] = b
	}
	return out, nil
}

func contains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
