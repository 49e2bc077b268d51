package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/liverty-music/backend/internal/infrastructure/server"
	"github.com/liverty-music/backend/internal/usecase"
)

// Handlers bundles every route handler this package exposes, so callers
// wire it once and pass Register to server.New.
type Handlers struct {
	Auth        *AuthHandler
	Save        *SaveHandler
	Image       *ImageHandler
	Song        *SongHandler
	Leaderboard *LeaderboardHandler
	Stats       *StatsHandler
}

// NewHandlers constructs every handler from its usecase dependency.
func NewHandlers(
	authUC usecase.AuthUseCase,
	saveUC usecase.SaveUseCase,
	imageUC usecase.ImageUseCase,
	leaderboardUC usecase.LeaderboardUseCase,
	statsUC usecase.StatsUseCase,
	songHandler *SongHandler,
) *Handlers {
	return &Handlers{
		Auth:        NewAuthHandler(authUC),
		Save:        NewSaveHandler(saveUC, authUC, leaderboardUC),
		Image:       NewImageHandler(imageUC),
		Song:        songHandler,
		Leaderboard: NewLeaderboardHandler(leaderboardUC, authUC),
		Stats:       NewStatsHandler(statsUC),
	}
}

// Register mounts every spec.md §6.1 route onto r. Matches the
// server.RouteRegisterFunc signature.
func (h *Handlers) Register(r chi.Router) {
	r.Post("/auth/qrcode", server.Handle(h.Auth.StartQRLogin))
	r.Get("/auth/qrcode/{qrId}/status", server.Handle(h.Auth.QRStatus))
	r.Post("/auth/user-id", server.Handle(h.Auth.UserID))

	r.Post("/save", server.Handle(h.Save.Submit))
	r.Post("/rks/history", server.Handle(h.Save.History))

	r.Post("/image/bn", server.Handle(h.Image.RenderBN))
	r.Post("/image/song", server.Handle(h.Image.RenderSong))
	r.Post("/image/bn/user", server.Handle(h.Image.RenderBNUser))

	r.Get("/songs/search", server.Handle(h.Song.Search))

	r.Get("/leaderboard/rks/top", server.Handle(h.Leaderboard.Top))
	r.Get("/leaderboard/rks/by-rank", server.Handle(h.Leaderboard.ByRank))
	r.Post("/leaderboard/rks/me", server.Handle(h.Leaderboard.Me))
	r.Put("/leaderboard/alias", server.Handle(h.Leaderboard.SetAlias))
	r.Put("/leaderboard/profile", server.Handle(h.Leaderboard.SetVisibility))
	r.Get("/public/profile/{alias}", server.Handle(h.Leaderboard.PublicProfile))

	r.Get("/admin/leaderboard/suspicious", server.Handle(h.Leaderboard.Suspicious))
	r.Post("/admin/leaderboard/resolve", server.Handle(h.Leaderboard.Resolve))
	r.Post("/admin/leaderboard/alias/force", server.Handle(h.Leaderboard.ForceAlias))

	r.Get("/stats/summary", server.Handle(h.Stats.Summary))
	r.Get("/stats/daily", server.Handle(h.Stats.Daily))
	r.Get("/stats/daily/dau", server.Handle(h.Stats.DailyDAU))
	r.Get("/stats/daily/features", server.Handle(h.Stats.DailyFeatures))
	r.Get("/stats/daily/http", server.Handle(h.Stats.DailyHTTP))
	r.Get("/stats/latency", server.Handle(h.Stats.Latency))
	r.Post("/stats/archive/now", server.Handle(h.Stats.ArchiveNow))
}
