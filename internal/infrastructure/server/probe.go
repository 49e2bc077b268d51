package server

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

// ProbeServer is a lightweight HTTP server for Kubernetes health probes,
// separate from the public API listener so a probe client holding a
// connection open can never be blocked behind the API's CORS/middleware
// chain or its HandlerTimeout. Exposes /healthz (liveness) and /readyz
// (readiness).
type ProbeServer struct {
	srv          *http.Server
	shuttingDown atomic.Bool
}

// NewProbeServer creates a probe server listening on the given address.
func NewProbeServer(addr string) *ProbeServer {
	p := &ProbeServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		if p.shuttingDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("shutting down"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	p.srv = &http.Server{Addr: addr, Handler: mux}
	return p
}

// Start begins listening and serving. It blocks until the server is stopped.
// It returns http.ErrServerClosed when Shutdown is called.
func (p *ProbeServer) Start() error {
	ln, err := net.Listen("tcp", p.srv.Addr)
	if err != nil {
		return err
	}
	return p.srv.Serve(ln)
}

// SetShuttingDown transitions the readiness endpoint to return 503.
func (p *ProbeServer) SetShuttingDown() {
	p.shuttingDown.Store(true)
}

// probeShutdownTimeout bounds how long Close waits for active probe
// connections to drain.
const probeShutdownTimeout = 5 * time.Second

// Close transitions the readiness endpoint to 503 and gracefully stops the
// probe server. It implements io.Closer so it can be registered with the
// shutdown package's Drain phase.
func (p *ProbeServer) Close() error {
	p.SetShuttingDown()
	ctx, cancel := context.WithTimeout(context.Background(), probeShutdownTimeout)
	defer cancel()
	return p.srv.Shutdown(ctx)
}
