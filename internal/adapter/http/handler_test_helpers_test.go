package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
)

// newChiRequest attaches a chi route context to req so pathParam(r, name)
// resolves the same way it would once chi.Router has actually matched a
// {name} route segment.
func newChiRequest(t *testing.T, req *http.Request, name, value string) *http.Request {
	t.Helper()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(name, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
