package render

import (
	"bytes"
	"fmt"
	"image"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// DefaultWidth is the rasterization width used when the caller does not
// request one, per spec.md §4.4.4.
const DefaultWidth = 1200

// Rasterize parses svg and draws it onto an image.RGBA at width pixels
// wide, preserving the document's aspect ratio from its viewBox.
func Rasterize(svg []byte, width int) (*image.RGBA, error) {
	if width <= 0 {
		width = DefaultWidth
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("render: failed to parse svg: %w", err)
	}

	srcW, srcH := icon.ViewBox.W, icon.ViewBox.H
	if srcW <= 0 {
		srcW = DefaultWidth
	}
	if srcH <= 0 {
		srcH = srcW
	}

	h := int(float64(width) * srcH / srcW)
	if h <= 0 {
		h = width
	}

	icon.SetTarget(0, 0, float64(width), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, width, h))
	scanner := rasterx.NewScannerGV(width, h, img, img.Bounds())
	dasher := rasterx.NewDasher(width, h, scanner)
	icon.Draw(dasher, 1.0)

	return img, nil
}
