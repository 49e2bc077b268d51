package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pannpers/go-apperr/apperr/codes"
	"github.com/pannpers/go-logging/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/liverty-music/backend/internal/entity"
	"github.com/liverty-music/backend/internal/infrastructure/stats"
	"github.com/liverty-music/backend/pkg/api"
	"github.com/liverty-music/backend/pkg/config"
)

type requestIDKey struct{}

// RequestIDFrom extracts the request id RequestIDMiddleware stamped on ctx,
// or "" if none is present (e.g. in a unit test that bypasses the chain).
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDMiddleware assigns a request id to every inbound request — the
// caller's X-Request-Id if present, otherwise a freshly generated uuid —
// echoes it back on the response, and carries it on the request context for
// every downstream layer (spec.md §4.7, §6.2's "requestId" envelope field).
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", id)
			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TracingMiddleware wraps the handler chain in an OTel span per request,
// replacing the teacher's otelconnect interceptor (Connect-RPC specific)
// with its plain-HTTP equivalent. The server name reported on each span
// follows cfg.Environment so spans from different deploys are distinguishable
// in a shared trace backend.
func TracingMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	name := serviceName + "-" + cfg.Environment
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "http.server", otelhttp.WithServerName(name))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// AccessLogMiddleware logs one line per request after the handler returns,
// carrying the final HTTP status — grounded on the teacher's
// logging.NewAccessLogInterceptor, rebuilt here for plain net/http since
// that helper is Connect-RPC specific.
func AccessLogMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info(r.Context(), "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", RequestIDFrom(r.Context())),
			)
		})
	}
}

// TelemetryMiddleware records one entity.Event per request to ingestor
// (spec.md §4.5.1). A nil ingestor (stats disabled, so the ingestor was
// never constructed) makes this a no-op pass-through.
// Route is the chi routing pattern (e.g. "/songs/search"), not the
// literal path, so templated segments like {qrId} don't fragment the
// per-route aggregates.
func TelemetryMiddleware(ingestor *stats.Ingestor, hasher *stats.Hasher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ingestor == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if pattern := rc.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			ingestor.Record(entity.Event{
				TsUTC:        time.Now().UTC(),
				Route:        route,
				Method:       r.Method,
				Status:       rec.status,
				DurationMs:   time.Since(start).Milliseconds(),
				ClientIPHash: hasher.ClientIPHash(clientIP(r)),
			})
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// recoverableHandler lets a route handler signal an error without writing
// the response body itself; RecoverMiddleware (and any handler that simply
// returns an error) converts it into a problem+json response in one place.
type recoverableHandler func(w http.ResponseWriter, r *http.Request) error

// Handle adapts a recoverableHandler into an http.HandlerFunc, converting a
// returned error into the spec.md §6.2 problem+json envelope.
func Handle(h recoverableHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			api.WriteProblem(w, err, RequestIDFrom(r.Context()))
		}
	}
}

// RecoverMiddleware converts a panic into a 500 problem+json response
// instead of crashing the process — the HTTP-layer equivalent of the
// teacher's newRecoverHandler (connect.WithRecover), since plain net/http
// has no interceptor hook to register it through.
func RecoverMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					logger.Error(r.Context(), "panic recovered in http handler", fmt.Errorf("panic: %v", p),
						slog.String("path", r.URL.Path),
					)
					err := apperrx.New(codes.Internal, "INTERNAL", "internal server error").WithStatus(http.StatusInternalServerError)
					api.WriteProblem(w, err, RequestIDFrom(r.Context()))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// AdminTokenMiddleware rejects any /admin/... request whose X-Admin-Token
// header does not constant-time-match one of the configured admin tokens
// (spec.md §4.7). Routes outside /admin are passed through untouched.
func AdminTokenMiddleware(adminTokens []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isAdminRoute(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			presented := r.Header.Get("X-Admin-Token")
			if !adminTokenValid(presented, adminTokens) {
				err := apperrx.New(codes.Unauthenticated, "AUTH_FAILED", "missing or invalid admin token").WithStatus(http.StatusUnauthorized)
				api.WriteProblem(w, err, RequestIDFrom(r.Context()))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isAdminRoute(path string) bool {
	return strings.Contains(path, "/admin/")
}

func adminTokenValid(presented string, tokens []string) bool {
	if presented == "" {
		return false
	}
	for _, t := range tokens {
		if subtle.ConstantTimeCompare([]byte(presented), []byte(t)) == 1 {
			return true
		}
	}
	return false
}
