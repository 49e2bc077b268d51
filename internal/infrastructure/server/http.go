// Package server is the HTTP listener: request routing lives in
// internal/adapter/http, this package only owns process lifecycle (net/http.Server
// bootstrap, timeouts, CORS, and the chi middleware chain around it) —
// spec.md §4.7.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/pannpers/go-logging/logging"

	"github.com/liverty-music/backend/internal/infrastructure/stats"
	"github.com/liverty-music/backend/pkg/config"
)

// Server is the public HTTP listener.
type Server struct {
	server  *http.Server
	logger  *logging.Logger
	cfg     *config.Config
	address string
}

// RouteRegisterFunc mounts every spec.md §6.1 route onto r, under cfg.API.Prefix.
type RouteRegisterFunc func(r chi.Router)

// New builds the public HTTP server: a chi.Router carrying the middleware
// chain tracing → access log → telemetry → request-id → recovery (in
// registration order, so the outermost middleware is the first one listed
// below), with the admin-token check applied only to the routes under
// cfg.API.Prefix, wrapped in CORS and
// an idle/read/handler timeout budget matching the teacher's own
// ConnectServer bootstrap.
func New(cfg *config.Config, logger *logging.Logger, ingestor *stats.Ingestor, hasher *stats.Hasher, register RouteRegisterFunc) *Server {
	r := chi.NewRouter()
	r.Use(
		TracingMiddleware(cfg),
		AccessLogMiddleware(logger),
		TelemetryMiddleware(ingestor, hasher),
		RequestIDMiddleware(),
		RecoverMiddleware(logger),
	)

	r.Get("/health", healthJSON)
	r.Get("/docs", serveDocs)
	r.Get("/api-docs/openapi.json", serveOpenAPISpec)

	r.Route(cfg.API.Prefix, func(api chi.Router) {
		api.Use(AdminTokenMiddleware(cfg.Leaderboard.AdminTokens))
		register(api)
	})

	address := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))

	handler := NewCORSHandler(r, &cfg.Server)

	httpServer := &http.Server{
		Addr:              address,
		Handler:           http.TimeoutHandler(handler, cfg.Server.HandlerTimeout, ""),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	return &Server{server: httpServer, logger: logger, cfg: cfg, address: address}
}

// Start starts the HTTP server. It blocks until the server is stopped.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), fmt.Sprintf("HTTP server starting on %s", s.address))
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server within Config.Shutdown.TimeoutSecs.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	timeout := shutdownTimeout(s.cfg)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info(ctx, "shutting down HTTP server gracefully", slog.Duration("timeout", timeout))
	return s.server.Shutdown(ctx)
}
