package server

import (
	"net/http"
)

// docsHTML renders a minimal Redoc page against the hand-authored OpenAPI
// document at /api-docs/openapi.json (spec.md §4.7: "no generator
// dependency" — this repo has no protobuf/connect toolchain to generate
// docs from, so the spec is written by hand and served statically).
const docsHTML = `<!doctype html>
<html>
<head>
  <title>Phigros backend API docs</title>
  <meta charset="utf-8"/>
</head>
<body>
  <redoc spec-url="/api-docs/openapi.json"></redoc>
  <script src="https://cdn.jsdelivr.net/npm/redoc@next/bundles/redoc.standalone.js"></script>
</body>
</html>`

func serveDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(docsHTML))
}

func serveOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(openAPISpec))
}
