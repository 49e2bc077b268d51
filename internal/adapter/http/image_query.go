package http

import (
	"net/http"
	"strconv"

	"github.com/pannpers/go-apperr/apperr/codes"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/liverty-music/backend/internal/infrastructure/render"
	"github.com/liverty-music/backend/internal/usecase"
)

const (
	defaultImageWidth  = 1200
	defaultWebPQuality = 80
	minWebPQuality     = 1
	maxWebPQuality     = 100
)

// parseImageQuery reads the "common image query" shared by every
// /image/* route (spec.md §6.1): format, width, webpQuality, webpLossless.
func parseImageQuery(r *http.Request) (usecase.RenderOptions, error) {
	q := r.URL.Query()

	format := render.Format(q.Get("format"))
	if format == "" {
		format = render.FormatPNG
	}
	switch format {
	case render.FormatPNG, render.FormatJPEG, render.FormatWebP, render.FormatSVG:
	default:
		return usecase.RenderOptions{}, apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "format must be one of png, jpeg, webp, svg")
	}

	width := defaultImageWidth
	if v := q.Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return usecase.RenderOptions{}, apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "width must be a positive integer")
		}
		width = n
	}

	quality := defaultWebPQuality
	if v := q.Get("webpQuality"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < minWebPQuality || n > maxWebPQuality {
			return usecase.RenderOptions{}, apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "webpQuality must be in [1,100]")
		}
		quality = n
	}

	lossless := false
	if v := q.Get("webpLossless"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return usecase.RenderOptions{}, apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "webpLossless must be true or false")
		}
		lossless = b
	}
	if lossless && format == render.FormatWebP {
		format = render.FormatWebPLossless
	}

	return usecase.RenderOptions{
		Format:      format,
		Width:       width,
		WebPQuality: quality,
		EmbedImages: true,
	}, nil
}
