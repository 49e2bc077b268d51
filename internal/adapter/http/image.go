package http

import (
	"net/http"

	"github.com/pannpers/go-apperr/apperr/codes"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/liverty-music/backend/internal/entity"
	"github.com/liverty-music/backend/internal/infrastructure/render"
	"github.com/liverty-music/backend/internal/infrastructure/save"
	"github.com/liverty-music/backend/internal/usecase"
)

// ImageHandler serves /image/bn, /image/song, and /image/bn/user
// (spec.md §4.4).
type ImageHandler struct {
	uc usecase.ImageUseCase
}

func NewImageHandler(uc usecase.ImageUseCase) *ImageHandler {
	return &ImageHandler{uc: uc}
}

func writeRenderResult(w http.ResponseWriter, result *render.Result) {
	w.Header().Set("Content-Type", result.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Bytes)
}

type bnRequest struct {
	save.Credentials
	PlayerName string `json:"playerName,omitempty"`
}

func (h *ImageHandler) RenderBN(w http.ResponseWriter, r *http.Request) error {
	opts, err := parseImageQuery(r)
	if err != nil {
		return err
	}

	var req bnRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	result, err := h.uc.RenderBN(r.Context(), req.Credentials, req.PlayerName, opts)
	if err != nil {
		return err
	}
	writeRenderResult(w, result)
	return nil
}

type songRequest struct {
	save.Credentials
	PlayerName string `json:"playerName,omitempty"`
}

func (h *ImageHandler) RenderSong(w http.ResponseWriter, r *http.Request) error {
	opts, err := parseImageQuery(r)
	if err != nil {
		return err
	}

	songID := r.URL.Query().Get("songId")
	if songID == "" {
		return apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "songId is required")
	}
	difficulty, err := entity.ParseDifficulty(r.URL.Query().Get("difficulty"))
	if err != nil {
		return apperrx.Wrap(err, codes.InvalidArgument, "VALIDATION_FAILED", "difficulty must be one of EZ, HD, IN, AT")
	}

	var req songRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	result, err := h.uc.RenderSong(r.Context(), req.Credentials, songID, difficulty, req.PlayerName, opts)
	if err != nil {
		return err
	}
	writeRenderResult(w, result)
	return nil
}

type userReportedScoreRequest struct {
	Song       string            `json:"song"`
	Difficulty entity.Difficulty `json:"difficulty"`
	Acc        float64           `json:"acc"`
	Score      int32             `json:"score"`
}

type bnUserRequest struct {
	PlayerName     string                      `json:"playerName,omitempty"`
	UnlockPassword string                      `json:"unlockPassword,omitempty"`
	Scores         []userReportedScoreRequest `json:"scores"`
}

func (h *ImageHandler) RenderBNUser(w http.ResponseWriter, r *http.Request) error {
	opts, err := parseImageQuery(r)
	if err != nil {
		return err
	}

	var req bnUserRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	scores := make([]usecase.UserReportedScore, len(req.Scores))
	for i, s := range req.Scores {
		scores[i] = usecase.UserReportedScore{Song: s.Song, Difficulty: s.Difficulty, Acc: s.Acc, Score: s.Score}
	}

	result, err := h.uc.RenderBNUser(r.Context(), req.PlayerName, scores, req.UnlockPassword, opts)
	if err != nil {
		return err
	}
	writeRenderResult(w, result)
	return nil
}
