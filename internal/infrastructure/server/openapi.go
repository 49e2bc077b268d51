package server

// openAPISpec is a hand-authored OpenAPI 3.0 document describing the
// service's routes: those New registers in http.go and the API routes
// mounted through its register callback (internal/adapter/http). It is
// maintained by hand rather than generated from proto/struct tags, so keep
// it in sync with those registrations when a route is added or changed.
const openAPISpec = `{
  "openapi": "3.0.3",
  "info": {
    "title": "Phigros score-report backend",
    "version": "0.1.0"
  },
  "paths": {
    "/health": {
      "get": { "summary": "Liveness/version probe", "responses": { "200": { "description": "service is healthy" } } }
    },
    "/auth/qrcode": {
      "post": { "summary": "Start device-code login", "responses": { "200": { "description": "qr session started" } } }
    },
    "/auth/qrcode/{qrId}/status": {
      "get": {
        "summary": "Poll login state",
        "parameters": [{ "name": "qrId", "in": "path", "required": true, "schema": { "type": "string" } }],
        "responses": { "200": { "description": "current qr status" }, "404": { "description": "qr session unknown or expired" } }
      }
    },
    "/auth/user-id": {
      "post": { "summary": "Derive stable hashed user id", "responses": { "200": { "description": "hashed user id" } } }
    },
    "/save": {
      "post": {
        "summary": "Fetch and parse a cloud save, optionally with RKS overview",
        "parameters": [{ "name": "calculateRks", "in": "query", "schema": { "type": "boolean", "default": false } }],
        "responses": { "200": { "description": "parsed save" }, "422": { "description": "decrypt/parse failure" } }
      }
    },
    "/rks/history": {
      "post": { "summary": "Paged RKS change history", "responses": { "200": { "description": "history page" } } }
    },
    "/image/bn": {
      "post": { "summary": "BestN image from save", "responses": { "200": { "description": "rendered image" } } }
    },
    "/image/song": {
      "post": { "summary": "Single-chart image from save", "responses": { "200": { "description": "rendered image" } } }
    },
    "/image/bn/user": {
      "post": { "summary": "BestN image from self-reported scores", "responses": { "200": { "description": "rendered image" } } }
    },
    "/songs/search": {
      "get": {
        "summary": "Song search",
        "parameters": [
          { "name": "q", "in": "query", "required": true, "schema": { "type": "string" } },
          { "name": "unique", "in": "query", "schema": { "type": "boolean" } },
          { "name": "limit", "in": "query", "schema": { "type": "integer" } },
          { "name": "offset", "in": "query", "schema": { "type": "integer" } }
        ],
        "responses": { "200": { "description": "matches" }, "409": { "description": "ambiguous match" } }
      }
    },
    "/leaderboard/rks/top": {
      "get": { "summary": "Paged top leaderboard", "responses": { "200": { "description": "top page" } } }
    },
    "/leaderboard/rks/by-rank": {
      "get": { "summary": "Rank/range slice", "responses": { "200": { "description": "rank slice" } } }
    },
    "/leaderboard/rks/me": {
      "post": { "summary": "Caller's leaderboard rank", "responses": { "200": { "description": "caller rank" } } }
    },
    "/leaderboard/alias": {
      "put": { "summary": "Set alias", "responses": { "200": { "description": "alias set" }, "409": { "description": "alias already taken" } } }
    },
    "/leaderboard/profile": {
      "put": { "summary": "Visibility toggles", "responses": { "200": { "description": "profile updated" } } }
    },
    "/public/profile/{alias}": {
      "get": {
        "summary": "Public profile",
        "parameters": [{ "name": "alias", "in": "path", "required": true, "schema": { "type": "string" } }],
        "responses": { "200": { "description": "public profile" }, "404": { "description": "no such alias, or not public" } }
      }
    },
    "/admin/leaderboard/suspicious": {
      "get": { "summary": "Admin review queue", "responses": { "200": { "description": "flagged rows" }, "401": { "description": "missing or invalid admin token" } } }
    },
    "/admin/leaderboard/resolve": {
      "post": { "summary": "Moderate a user", "responses": { "200": { "description": "moderation applied" }, "401": { "description": "missing or invalid admin token" } } }
    },
    "/admin/leaderboard/alias/force": {
      "post": { "summary": "Force-assign alias", "responses": { "200": { "description": "alias force-assigned" }, "401": { "description": "missing or invalid admin token" } } }
    },
    "/stats/summary": {
      "get": { "summary": "Aggregated overview", "responses": { "200": { "description": "summary" } } }
    },
    "/stats/daily": {
      "get": { "summary": "Daily time-series", "responses": { "200": { "description": "series" } } }
    },
    "/stats/daily/dau": {
      "get": { "summary": "Daily active users", "responses": { "200": { "description": "series" } } }
    },
    "/stats/daily/features": {
      "get": { "summary": "Daily feature usage", "responses": { "200": { "description": "series" } } }
    },
    "/stats/daily/http": {
      "get": { "summary": "Daily HTTP status breakdown", "responses": { "200": { "description": "series" } } }
    },
    "/stats/latency": {
      "get": { "summary": "Latency time-series", "responses": { "200": { "description": "series" } } }
    },
    "/stats/archive/now": {
      "post": {
        "summary": "Manual archive trigger",
        "parameters": [{ "name": "date", "in": "query", "schema": { "type": "string", "format": "date" } }],
        "responses": { "200": { "description": "archive written" } }
      }
    }
  }
}`
