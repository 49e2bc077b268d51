// Package qrsvg adapts github.com/skip2/go-qrcode's bitmap output into
// an SVG document. go-qrcode itself only emits PNG/raw bitmaps; this
// package is the thin format conversion that the library doesn't provide.
package qrsvg

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// moduleSize is the SVG pixel size of one QR module (light or dark cell).
const moduleSize = 10

// Encode produces a square SVG document encoding content at the given
// recovery level, with quietZone modules of white margin on every side
// (the standard QR quiet zone).
func Encode(content string, level qrcode.RecoveryLevel, quietZone int) (string, error) {
	qr, err := qrcode.New(content, level)
	if err != nil {
		return "", fmt.Errorf("qrsvg: failed to encode qr: %w", err)
	}

	bitmap := qr.Bitmap()
	n := len(bitmap)
	if n == 0 {
		return "", fmt.Errorf("qrsvg: empty bitmap")
	}

	side := (n + 2*quietZone) * moduleSize

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`, side, side, side, side)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#ffffff"/>`, side, side)

	for y, row := range bitmap {
		for x, dark := range row {
			if !dark {
				continue
			}
			px := (x + quietZone) * moduleSize
			py := (y + quietZone) * moduleSize
			fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" fill="#000000"/>`, px, py, moduleSize, moduleSize)
		}
	}

	b.WriteString(`</svg>`)
	return b.String(), nil
}
