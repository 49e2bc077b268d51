package render

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// Format is an output image format accepted by /image/* routes, per
// spec.md §4.4.4.
type Format string

const (
	FormatPNG          Format = "png"
	FormatJPEG         Format = "jpeg"
	FormatWebP         Format = "webp"
	FormatWebPLossless Format = "webpLossless"
	FormatSVG          Format = "svg"
)

const jpegQuality = 85

// EncodeOptions controls the format-specific encode knobs of §4.4.4.
type EncodeOptions struct {
	OptimizeSpeed bool
	WebPQuality   int // [1,100], default 80
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatWebP, FormatWebPLossless:
		return "image/webp"
	case FormatSVG:
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}

func clampWebPQuality(q int) float32 {
	if q <= 0 {
		q = 80
	}
	if q > 100 {
		q = 100
	}
	return float32(q)
}

// Encode rasterizes-and-encodes img into the requested format. For
// FormatSVG, callers should use svg bytes directly rather than calling
// Encode; it is accepted here only to keep the format switch exhaustive.
func Encode(img *image.RGBA, svg []byte, format Format, opts EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case FormatSVG:
		return svg, nil

	case FormatPNG:
		enc := &png.Encoder{CompressionLevel: png.DefaultCompression}
		if opts.OptimizeSpeed {
			enc.CompressionLevel = png.BestSpeed
		}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("render: failed to encode png: %w", err)
		}
		return buf.Bytes(), nil

	case FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("render: failed to encode jpeg: %w", err)
		}
		return buf.Bytes(), nil

	case FormatWebP:
		options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, clampWebPQuality(opts.WebPQuality))
		if err != nil {
			return nil, fmt.Errorf("render: failed to build webp options: %w", err)
		}
		if err := webp.Encode(&buf, img, options); err != nil {
			return nil, fmt.Errorf("render: failed to encode webp: %w", err)
		}
		return buf.Bytes(), nil

	case FormatWebPLossless:
		options, err := encoder.NewLosslessEncoderOptions(encoder.PresetDefault, 6)
		if err != nil {
			return nil, fmt.Errorf("render: failed to build lossless webp options: %w", err)
		}
		if err := webp.Encode(&buf, img, options); err != nil {
			return nil, fmt.Errorf("render: failed to encode lossless webp: %w", err)
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("render: unsupported format %q", format)
	}
}
