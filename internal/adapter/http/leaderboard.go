package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/pannpers/go-apperr/apperr/codes"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/liverty-music/backend/internal/entity"
	"github.com/liverty-music/backend/internal/infrastructure/save"
	"github.com/liverty-music/backend/internal/usecase"
)

// LeaderboardHandler serves the public and admin leaderboard routes
// (spec.md §4.5.5, §4.5.6).
type LeaderboardHandler struct {
	leaderboard usecase.LeaderboardUseCase
	auth        usecase.AuthUseCase
}

func NewLeaderboardHandler(leaderboard usecase.LeaderboardUseCase, auth usecase.AuthUseCase) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard, auth: auth}
}

func (h *LeaderboardHandler) Top(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	lite := q.Get("lite") == "true"

	var afterScore *float64
	if v := q.Get("afterScore"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "afterScore must be a number")
		}
		afterScore = &f
	}
	var afterUpdated *time.Time
	if v := q.Get("afterUpdated"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "afterUpdated must be RFC3339")
		}
		afterUpdated = &t
	}
	var afterUser *string
	if v := q.Get("afterUser"); v != "" {
		afterUser = &v
	}

	page, err := h.leaderboard.Top(r.Context(), limit, offset, afterScore, afterUpdated, afterUser, lite)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, page)
	return nil
}

func (h *LeaderboardHandler) ByRank(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	from, err := strconv.Atoi(q.Get("from"))
	if err != nil || from < 1 {
		return apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "from must be a positive integer")
	}
	to, err := strconv.Atoi(q.Get("to"))
	if err != nil || to < from {
		return apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "to must be >= from")
	}

	entries, err := h.leaderboard.ByRank(r.Context(), from, to)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
	return nil
}

type meResponse struct {
	Entry      *entity.LeaderboardEntry `json:"entry"`
	Rank       int                      `json:"rank"`
	Total      int                      `json:"total"`
	Percentile float64                  `json:"percentile"`
}

func (h *LeaderboardHandler) Me(w http.ResponseWriter, r *http.Request) error {
	var creds save.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		return err
	}

	userHash, _, err := h.auth.UserID(r.Context(), creds)
	if err != nil {
		return err
	}

	result, err := h.leaderboard.Me(r.Context(), userHash)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, meResponse{Entry: result.Entry, Rank: result.Rank, Total: result.Total, Percentile: result.Percentile})
	return nil
}

type setAliasRequest struct {
	save.Credentials
	Alias string `json:"alias"`
}

func (h *LeaderboardHandler) SetAlias(w http.ResponseWriter, r *http.Request) error {
	var req setAliasRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	userHash, _, err := h.auth.UserID(r.Context(), req.Credentials)
	if err != nil {
		return err
	}

	profile, err := h.leaderboard.SetAlias(r.Context(), userHash, req.Alias)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, profile)
	return nil
}

type setVisibilityRequest struct {
	save.Credentials
	IsPublic           bool `json:"isPublic"`
	ShowRksComposition bool `json:"showRksComposition"`
	ShowBestTop3       bool `json:"showBestTop3"`
	ShowApTop3         bool `json:"showApTop3"`
}

func (h *LeaderboardHandler) SetVisibility(w http.ResponseWriter, r *http.Request) error {
	var req setVisibilityRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	userHash, _, err := h.auth.UserID(r.Context(), req.Credentials)
	if err != nil {
		return err
	}

	profile, err := h.leaderboard.SetVisibility(r.Context(), userHash, req.IsPublic, req.ShowRksComposition, req.ShowBestTop3, req.ShowApTop3)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, profile)
	return nil
}

type publicProfileResponse struct {
	Profile *entity.UserProfile        `json:"profile"`
	Entry   *entity.LeaderboardEntry   `json:"entry,omitempty"`
	Details *entity.LeaderboardDetails `json:"details,omitempty"`
}

func (h *LeaderboardHandler) PublicProfile(w http.ResponseWriter, r *http.Request) error {
	alias := pathParam(r, "alias")

	result, err := h.leaderboard.PublicProfile(r.Context(), alias)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, publicProfileResponse{Profile: result.Profile, Entry: result.Entry, Details: result.Details})
	return nil
}

func (h *LeaderboardHandler) Suspicious(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	entries, err := h.leaderboard.Suspicious(r.Context(), limit, offset)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
	return nil
}

type resolveRequest struct {
	UserHash string                  `json:"userHash"`
	Status   entity.ModerationStatus `json:"status"`
	Reason   string                  `json:"reason,omitempty"`
}

func (h *LeaderboardHandler) Resolve(w http.ResponseWriter, r *http.Request) error {
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.UserHash == "" {
		return apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "userHash is required")
	}

	flag, err := h.leaderboard.Resolve(r.Context(), req.UserHash, req.Status, req.Reason)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, flag)
	return nil
}

type forceAliasRequest struct {
	UserHash string `json:"userHash"`
	Alias    string `json:"alias"`
}

func (h *LeaderboardHandler) ForceAlias(w http.ResponseWriter, r *http.Request) error {
	var req forceAliasRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if req.UserHash == "" || req.Alias == "" {
		return apperrx.New(codes.InvalidArgument, "VALIDATION_FAILED", "userHash and alias are required")
	}

	profile, err := h.leaderboard.ForceAlias(r.Context(), req.UserHash, req.Alias)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, profile)
	return nil
}
