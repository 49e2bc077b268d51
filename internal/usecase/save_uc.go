package usecase

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pannpers/go-apperr/apperr/codes"
	"github.com/pannpers/go-logging/logging"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/liverty-music/backend/internal/entity"
	"github.com/liverty-music/backend/internal/infrastructure/catalog"
	"github.com/liverty-music/backend/internal/infrastructure/rks"
	"github.com/liverty-music/backend/internal/infrastructure/save"
	"github.com/liverty-music/backend/internal/infrastructure/stats"
)

// SaveResult is the response shape for POST /save (spec.md §4.2, §4.5.3):
// the computed RKS overview plus the stable user identity it was recorded
// under.
type SaveResult struct {
	UserHash  string
	UserKind  string
	Save      *entity.ParsedSave
	PlayerRks *entity.PlayerRks
}

// SaveUseCase implements the full /save pipeline: fetch and decrypt the
// cloud save (C3), compute RKS (C4), and record it on the leaderboard
// (C6's write path, §4.5.3).
type SaveUseCase interface {
	// Submit fetches creds' cloud save. When calculateRks is true it also
	// computes the RKS overview and records it on the leaderboard;
	// otherwise SaveResult.PlayerRks is nil and nothing is recorded.
	//
	// # Possible errors
	//
	//  - InvalidArgument: creds do not match exactly one recognized shape.
	//  - Unauthenticated: the upstream rejected the credentials.
	//  - Timeout, Unavailable: the upstream fetch failed.
	//  - FailedPrecondition: the save container failed to decrypt or parse.
	Submit(ctx context.Context, creds save.Credentials, calculateRks bool, bestK int, isOfficialSession bool, clientIPHash *string) (*SaveResult, error)
}

type saveUseCase struct {
	provider     *save.Provider
	hasher       *stats.Hasher
	catalog      *catalog.Catalog
	leaderboard  LeaderboardUseCase
	defaultBestK int
	maxBestK     int
	logger       *logging.Logger
}

var _ SaveUseCase = (*saveUseCase)(nil)

// NewSaveUseCase creates a new save use case. defaultBestK and maxBestK
// bound the request-overridable Best-K size of spec.md §4.3.2; a
// non-positive bestK passed to Submit falls back to defaultBestK.
func NewSaveUseCase(
	provider *save.Provider,
	hasher *stats.Hasher,
	cat *catalog.Catalog,
	leaderboard LeaderboardUseCase,
	defaultBestK, maxBestK int,
	logger *logging.Logger,
) SaveUseCase {
	if defaultBestK <= 0 {
		defaultBestK = rks.DefaultBestK
	}
	if maxBestK < defaultBestK {
		maxBestK = defaultBestK
	}
	return &saveUseCase{
		provider:     provider,
		hasher:       hasher,
		catalog:      cat,
		leaderboard:  leaderboard,
		defaultBestK: defaultBestK,
		maxBestK:     maxBestK,
		logger:       logger,
	}
}

func (uc *saveUseCase) Submit(ctx context.Context, creds save.Credentials, calculateRks bool, bestK int, isOfficialSession bool, clientIPHash *string) (*SaveResult, error) {
	if uc.hasher == nil {
		return nil, apperrx.New(codes.Internal, "NoSalt", "user hash salt is not configured").WithStatus(500)
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	stableID := stats.StableID(creds.SessionToken, creds.APIUserID, creds.ExternalSessionToken, creds.Platform, creds.PlatformID)
	userHash := uc.hasher.Hash(stableID)
	userKind := userKindOf(creds)

	fetched, err := uc.provider.Fetch(ctx, creds)
	if err != nil {
		return nil, err
	}

	if !calculateRks {
		return &SaveResult{UserHash: userHash, UserKind: userKind, Save: fetched.Save}, nil
	}

	playerRks := uc.computeRks(fetched.Save, bestK)

	details, err := uc.detailsOf(playerRks)
	if err != nil {
		return nil, err
	}

	if _, err := uc.leaderboard.RecordSubmission(ctx, SubmissionInput{
		UserHash:          userHash,
		UserKind:          userKind,
		PlayerRks:         playerRks,
		DetailsJSON:       *details,
		IsOfficialSession: isOfficialSession,
		ClientIPHash:      clientIPHash,
	}); err != nil {
		return nil, err
	}

	uc.logger.Info(ctx, "save recorded", slog.String("user_hash", userHash), slog.Float64("total_rks", playerRks.PlayerRks))

	return &SaveResult{UserHash: userHash, UserKind: userKind, Save: fetched.Save, PlayerRks: &playerRks}, nil
}

// computeRks flattens a ParsedSave's gameRecord into rks.Candidate pairs
// against the catalog's chart constants, then runs the §4.3 selection.
// Charts with no known constant are dropped per spec.md §4.1 Lookup
// semantics (an unrecognized songId simply cannot contribute).
func (uc *saveUseCase) computeRks(parsed *entity.ParsedSave, bestK int) entity.PlayerRks {
	k := bestK
	if k <= 0 {
		k = uc.defaultBestK
	}
	if k > uc.maxBestK {
		k = uc.maxBestK
	}

	var candidates []rks.Candidate
	if parsed != nil {
		for songID, records := range parsed.GameRecord {
			for _, r := range records {
				if r == nil {
					continue
				}
				constant := uc.catalog.ConstantOf(songID, r.Difficulty)
				if constant <= 0 {
					continue
				}
				candidates = append(candidates, rks.Candidate{Record: *r, Constant: constant})
			}
		}
	}

	return rks.Select(candidates, k)
}

// detailsOf serializes the Best-Top-3, AP-Top-3, and RKS composition
// blobs the leaderboard write path caches for the read path (spec.md
// §4.5.3 step 3).
func (uc *saveUseCase) detailsOf(playerRks entity.PlayerRks) (*SubmissionDetails, error) {
	best3 := playerRks.Best
	if len(best3) > 3 {
		best3 = best3[:3]
	}

	bestJSON, err := json.Marshal(best3)
	if err != nil {
		return nil, apperrx.Wrap(err, codes.Internal, "Internal", "failed to serialize best-top-3")
	}
	apJSON, err := json.Marshal(playerRks.APTop3)
	if err != nil {
		return nil, apperrx.Wrap(err, codes.Internal, "Internal", "failed to serialize ap-top-3")
	}
	composition := struct {
		Best      []entity.Record `json:"best"`
		APTop3    []entity.Record `json:"apTop3"`
		PlayerRks float64         `json:"playerRks"`
	}{Best: playerRks.Best, APTop3: playerRks.APTop3, PlayerRks: playerRks.PlayerRks}
	compositionJSON, err := json.Marshal(composition)
	if err != nil {
		return nil, apperrx.Wrap(err, codes.Internal, "Internal", "failed to serialize rks composition")
	}

	return &SubmissionDetails{
		BestTop3JSON:    string(bestJSON),
		APTop3JSON:      string(apJSON),
		CompositionJSON: string(compositionJSON),
	}, nil
}
