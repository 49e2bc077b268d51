package http

import (
	"net/http"

	"github.com/liverty-music/backend/internal/entity"
	"github.com/liverty-music/backend/internal/infrastructure/auth"
	"github.com/liverty-music/backend/internal/infrastructure/save"
	"github.com/liverty-music/backend/internal/usecase"
)

// AuthHandler serves /auth/qrcode, /auth/qrcode/{qrId}/status, and
// /auth/user-id (spec.md §4.6).
type AuthHandler struct {
	uc usecase.AuthUseCase
}

func NewAuthHandler(uc usecase.AuthUseCase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

type qrCodeSessionResponse struct {
	QrID            string `json:"qrId"`
	Status          string `json:"status"`
	VerificationURL string `json:"verificationUrl,omitempty"`
	QrSvg           string `json:"qrSvgDataUrl,omitempty"`
	SessionToken    string `json:"sessionToken,omitempty"`
	RetryAfterMs    int64  `json:"retryAfterMs,omitempty"`
}

func toQRCodeSessionResponse(s *entity.QrCodeSession) qrCodeSessionResponse {
	resp := qrCodeSessionResponse{
		QrID:            s.QrID,
		Status:          string(s.LastStatus),
		VerificationURL: s.VerificationURL,
		QrSvg:           s.QrSvgDataURL,
	}
	if s.LastStatus == entity.QrConfirmed {
		resp.SessionToken = s.SessionToken
	}
	if s.RetryAfter > 0 {
		resp.RetryAfterMs = s.RetryAfter.Milliseconds()
	}
	return resp
}

func (h *AuthHandler) StartQRLogin(w http.ResponseWriter, r *http.Request) error {
	version := auth.TapTapVersion(r.URL.Query().Get("taptapVersion"))
	if version == "" {
		version = auth.TapTapCN
	}

	session, err := h.uc.StartQRLogin(r.Context(), version)
	if err != nil {
		return err
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, toQRCodeSessionResponse(session))
	return nil
}

func (h *AuthHandler) QRStatus(w http.ResponseWriter, r *http.Request) error {
	qrID := pathParam(r, "qrId")
	session, err := h.uc.QRStatus(r.Context(), qrID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toQRCodeSessionResponse(session))
	return nil
}

type userIDResponse struct {
	UserID   string `json:"userId"`
	UserKind string `json:"userKind"`
}

func (h *AuthHandler) UserID(w http.ResponseWriter, r *http.Request) error {
	var creds save.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		return err
	}

	userID, userKind, err := h.uc.UserID(r.Context(), creds)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, userIDResponse{UserID: userID, UserKind: userKind})
	return nil
}
