package http

import (
	"net/http"
	"strconv"

	"github.com/liverty-music/backend/internal/entity"
	"github.com/liverty-music/backend/internal/infrastructure/save"
	"github.com/liverty-music/backend/internal/usecase"
)

// SaveHandler serves POST /save and POST /rks/history (spec.md §4.2,
// §4.5.3).
type SaveHandler struct {
	save        usecase.SaveUseCase
	auth        usecase.AuthUseCase
	leaderboard usecase.LeaderboardUseCase
}

func NewSaveHandler(saveUC usecase.SaveUseCase, authUC usecase.AuthUseCase, leaderboard usecase.LeaderboardUseCase) *SaveHandler {
	return &SaveHandler{save: saveUC, auth: authUC, leaderboard: leaderboard}
}

type saveRequest struct {
	save.Credentials
	BestK int `json:"bestK,omitempty"`
}

type playerRksResponse struct {
	Best      []entity.Record `json:"best"`
	APTop3    []entity.Record `json:"apTop3"`
	PlayerRks float64         `json:"playerRks"`
}

func toPlayerRksResponse(pr *entity.PlayerRks) *playerRksResponse {
	if pr == nil {
		return nil
	}
	return &playerRksResponse{Best: pr.Best, APTop3: pr.APTop3, PlayerRks: pr.PlayerRks}
}

type saveResponse struct {
	Data *entity.ParsedSave `json:"data"`
	Rks  *playerRksResponse `json:"rks,omitempty"`
}

func (h *SaveHandler) Submit(w http.ResponseWriter, r *http.Request) error {
	var req saveRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	calculateRks, _ := strconv.ParseBool(r.URL.Query().Get("calculateRks"))

	result, err := h.save.Submit(r.Context(), req.Credentials, calculateRks, req.BestK, true, nil)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, saveResponse{Data: result.Save, Rks: toPlayerRksResponse(result.PlayerRks)})
	return nil
}

type historyRequest struct {
	save.Credentials
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

type historyResponse struct {
	Items      []entity.Submission `json:"items"`
	Total      int                 `json:"total"`
	CurrentRks float64             `json:"currentRks"`
	PeakRks    float64             `json:"peakRks"`
}

func (h *SaveHandler) History(w http.ResponseWriter, r *http.Request) error {
	var req historyRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	userHash, _, err := h.auth.UserID(r.Context(), req.Credentials)
	if err != nil {
		return err
	}

	result, err := h.leaderboard.History(r.Context(), userHash, req.Limit, req.Offset)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, historyResponse{
		Items:      result.Items,
		Total:      result.Total,
		CurrentRks: result.CurrentRks,
		PeakRks:    result.PeakRks,
	})
	return nil
}
