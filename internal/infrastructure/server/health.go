package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/liverty-music/backend/pkg/config"
)

// serviceName and serviceVersion back GET /health's {status, service, version}
// body (spec.md §6.1).
const (
	serviceName    = "phigros-backend"
	serviceVersion = "0.1.0"
)

func healthJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	secs := cfg.Shutdown.TimeoutSecs
	if secs <= 0 {
		secs = 30
	}
	return time.Duration(secs) * time.Second
}
