package usecase

import (
	"context"
	"log/slog"

	"github.com/pannpers/go-apperr/apperr/codes"
	"github.com/pannpers/go-logging/logging"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/liverty-music/backend/internal/entity"
	"github.com/liverty-music/backend/internal/infrastructure/auth"
	"github.com/liverty-music/backend/internal/infrastructure/save"
	"github.com/liverty-music/backend/internal/infrastructure/stats"
)

// AuthUseCase implements spec.md §4.6: device-code login and stable
// user-id derivation.
type AuthUseCase interface {
	// StartQRLogin begins a device-code login against version's upstream.
	StartQRLogin(ctx context.Context, version auth.TapTapVersion) (*entity.QrCodeSession, error)

	// QRStatus polls the current state of a previously started login.
	//
	// # Possible errors
	//
	//  - NotFound: qrId is unknown or its session has expired.
	QRStatus(ctx context.Context, qrID string) (*entity.QrCodeSession, error)

	// UserID derives the stable hashed user id for creds, per spec.md
	// §4.5.2.
	//
	// # Possible errors
	//
	//  - Internal: no user-hash salt is configured.
	UserID(ctx context.Context, creds save.Credentials) (userID, userKind string, err error)
}

type authUseCase struct {
	service *auth.Service
	hasher  *stats.Hasher
	logger  *logging.Logger
}

var _ AuthUseCase = (*authUseCase)(nil)

// NewAuthUseCase creates a new auth use case. hasher may be nil when no
// user-hash salt is configured, in which case UserID always fails.
func NewAuthUseCase(service *auth.Service, hasher *stats.Hasher, logger *logging.Logger) AuthUseCase {
	return &authUseCase{service: service, hasher: hasher, logger: logger}
}

func (uc *authUseCase) StartQRLogin(ctx context.Context, version auth.TapTapVersion) (*entity.QrCodeSession, error) {
	session, err := uc.service.StartQRLogin(ctx, version)
	if err != nil {
		return nil, err
	}
	uc.logger.Info(ctx, "qr login started", slog.String("qr_id", session.QrID))
	return session, nil
}

func (uc *authUseCase) QRStatus(ctx context.Context, qrID string) (*entity.QrCodeSession, error) {
	return uc.service.Status(ctx, qrID)
}

func userKindOf(creds save.Credentials) string {
	switch {
	case creds.SessionToken != "":
		return "official"
	default:
		return "external"
	}
}

func (uc *authUseCase) UserID(ctx context.Context, creds save.Credentials) (string, string, error) {
	if uc.hasher == nil {
		return "", "", apperrx.New(codes.Internal, "NoSalt", "user hash salt is not configured").WithStatus(500)
	}
	if err := creds.Validate(); err != nil {
		return "", "", err
	}

	stableID := stats.StableID(creds.SessionToken, creds.APIUserID, creds.ExternalSessionToken, creds.Platform, creds.PlatformID)
	return uc.hasher.Hash(stableID), userKindOf(creds), nil
}
