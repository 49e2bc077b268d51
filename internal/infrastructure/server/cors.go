package server

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/liverty-music/backend/pkg/config"
)

// corsAllowedMethods and corsAllowedHeaders replace the teacher's
// connectrpc.com/cors helpers (Connect-RPC specific) with the plain
// HTTP+JSON method/header set this service's routes actually use.
var (
	corsAllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}
	corsAllowedHeaders = []string{"Content-Type", "X-Admin-Token", "X-Request-Id"}
	corsExposedHeaders = []string{"X-Request-Id"}
)

// NewCORSHandler wraps mu with the configured allowed-origins CORS policy.
func NewCORSHandler(mu http.Handler, srvConfig *config.ServerConfig) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: srvConfig.AllowedOrigins,
		AllowedMethods: corsAllowedMethods,
		AllowedHeaders: corsAllowedHeaders,
		ExposedHeaders: corsExposedHeaders,
	}).Handler(mu)
}
