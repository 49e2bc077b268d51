// Package http holds the route handlers for every endpoint in spec.md
// §6.1. Process lifecycle (listener bootstrap, middleware chain, CORS) is
// internal/infrastructure/server's concern; this package only decodes
// requests, calls a usecase, and encodes responses.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pannpers/go-apperr/apperr/codes"

	"github.com/liverty-music/backend/internal/apperrx"
)

// decodeJSON decodes r's body into v, wrapping a malformed body in the
// VALIDATION_FAILED problem+json token rather than leaking a raw
// encoding/json error message.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "request body is required")
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apperrx.Wrap(err, codes.InvalidArgument, "VALIDATION_FAILED", "request body is not valid JSON")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func pathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
