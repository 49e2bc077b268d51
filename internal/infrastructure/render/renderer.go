package render

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
)

// TemplateContext is implemented by BNContext and SongContext.
type TemplateContext interface {
	ToPongo2() pongo2.Context
}

// Request describes one render invocation, spec.md §4.4.
type Request struct {
	Kind          string // "bn" | "song"
	TemplateID    string
	Context       TemplateContext
	ContentKey    string // caller-derived digest of the data driving Context
	Format        Format
	Width         int
	EmbedImages   bool
	OptimizeSpeed bool
	WebPQuality   int
	UserHash      string
	SaveUpdatedAt time.Time
}

// Result is one rendered image ready to write to an HTTP response.
type Result struct {
	Bytes       []byte
	ContentType string
}

// Renderer ties together template parsing, SVG generation, rasterization,
// encoding, the render cache, and the concurrency gate, per spec.md §4.4.
type Renderer struct {
	templates *TemplateStore
	cache     *Cache
	gate      *Gate
}

// NewRenderer constructs a Renderer. cache may be nil to disable caching
// (image.cacheEnabled=false).
func NewRenderer(templates *TemplateStore, cache *Cache, gate *Gate) *Renderer {
	return &Renderer{templates: templates, cache: cache, gate: gate}
}

// Fingerprint computes the cache key for req, per spec.md §4.4.5: it
// MUST include userHash and saveUpdatedAt to prevent cross-user leakage.
func Fingerprint(req Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d|%t|%s|%d",
		req.Kind, req.TemplateID, req.ContentKey, req.Format,
		req.Width, req.EmbedImages, req.UserHash, req.SaveUpdatedAt.UnixNano())
	return hex.EncodeToString(h.Sum(nil))
}

// Render produces req's output, serving from cache when possible and
// collapsing concurrent identical requests into one computation.
func (r *Renderer) Render(ctx context.Context, req Request) (Result, error) {
	fp := Fingerprint(req)

	compute := func() ([]byte, string, error) {
		return r.renderUncached(ctx, req)
	}

	if r.cache == nil {
		b, ct, err := compute()
		return Result{Bytes: b, ContentType: ct}, err
	}

	b, ct, err := r.cache.GetOrCompute(fp, compute)
	return Result{Bytes: b, ContentType: ct}, err
}

func (r *Renderer) renderUncached(ctx context.Context, req Request) ([]byte, string, error) {
	tpl, err := r.templates.Get(req.Kind, req.TemplateID)
	if err != nil {
		return nil, "", err
	}

	svgText, err := tpl.ExecuteBytes(req.Context.ToPongo2())
	if err != nil {
		return nil, "", fmt.Errorf("render: failed to execute template %s/%s: %w", req.Kind, req.TemplateID, err)
	}

	format := req.Format
	if format == "" {
		format = FormatPNG
	}

	// SVG output forces embedImages=false and is never rasterized
	// (spec.md §4.4.3); image references are left as the public URLs the
	// renderer's context builder already filled in.
	if format == FormatSVG {
		return svgText, FormatSVG.ContentType(), nil
	}

	if err := r.gate.Acquire(ctx); err != nil {
		return nil, "", fmt.Errorf("render: concurrency gate: %w", err)
	}
	defer r.gate.Release()

	width := req.Width
	if width <= 0 {
		width = DefaultWidth
	}

	img, err := Rasterize(svgText, width)
	if err != nil {
		return nil, "", err
	}

	encoded, err := Encode(img, svgText, format, EncodeOptions{
		OptimizeSpeed: req.OptimizeSpeed,
		WebPQuality:   req.WebPQuality,
	})
	if err != nil {
		return nil, "", err
	}

	return encoded, format.ContentType(), nil
}

// IllustrationRef resolves a song's illustration into either a public
// URL (svg output, or raster output with embedImages=false) or a base64
// data URI (raster output with embedImages=true), per spec.md §4.4.3.
func IllustrationRef(publicBaseURL, illustrationFolder, illustrationFile string, embed bool, dataFetcher func(path string) ([]byte, string, error)) (string, error) {
	if illustrationFile == "" {
		return "", nil
	}

	url := strings.TrimSuffix(publicBaseURL, "/") + "/" + strings.TrimPrefix(illustrationFolder, "/") + "/" + illustrationFile
	if !embed {
		return url, nil
	}

	data, mime, err := dataFetcher(illustrationFolder + "/" + illustrationFile)
	if err != nil {
		return "", fmt.Errorf("render: failed to embed illustration %s: %w", illustrationFile, err)
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
