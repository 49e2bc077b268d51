// Package di wires every package under internal/ and pkg/ into a running
// application, following the teacher's manual-provider style (no
// generated wire_gen.go): one InitializeApp entrypoint, one App struct.
package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pannpers/go-logging/logging"

	"github.com/liverty-music/backend/internal/infrastructure/server"
	"github.com/liverty-music/backend/pkg/shutdown"
)

// App bundles the running HTTP server and everything InitializeApp needs
// to tear down cleanly.
type App struct {
	Server          *server.Server
	ProbeServer     *server.ProbeServer
	Logger          *logging.Logger
	ShutdownTimeout time.Duration

	closers []io.Closer
}

// Shutdown stops the public server, the probe server, then every
// registered shutdown phase, in that order: the public listener must
// stop accepting new work before readiness flips to 503 and background
// producers drain.
func (a *App) Shutdown(ctx context.Context) error {
	var errs error

	if err := a.Server.Stop(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("stop http server: %w", err))
	}
	if a.ProbeServer != nil {
		if err := a.ProbeServer.Close(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("close probe server: %w", err))
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("close resource: %w", err))
		}
	}

	timeout := a.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := shutdown.Shutdown(shutdownCtx); err != nil {
		errs = errors.Join(errs, fmt.Errorf("phased shutdown: %w", err))
	}

	return errs
}
