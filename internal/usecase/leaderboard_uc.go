package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"github.com/pannpers/go-apperr/apperr"
	"github.com/pannpers/go-apperr/apperr/codes"
	"github.com/pannpers/go-logging/logging"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/liverty-music/backend/internal/entity"
	"github.com/liverty-music/backend/internal/infrastructure/catalog"
)

// aliasPattern is spec.md §3.1's UserProfile alias rule:
// "^[A-Za-z0-9._\-\p{CJK}]{2,20}$".
var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9._\-\p{Han}\p{Hiragana}\p{Katakana}\p{Hangul}]{2,20}$`)

var reservedAliases = map[string]bool{
	"admin": true, "system": true, "null": true, "undefined": true, "root": true,
}

const maskedHashPrefixLen = 4

// maskUserHash redacts a stored user hash for seek-cursor exposure
// (spec.md §4.5.5: "using masked user identifiers (a prefix followed by
// ****)").
func maskUserHash(hash string) string {
	n := maskedHashPrefixLen
	if len(hash) < n {
		n = len(hash)
	}
	return hash[:n] + "****"
}

func validateAlias(alias string) error {
	if !aliasPattern.MatchString(alias) {
		return apperrx.New(codes.InvalidArgument, "InvalidAlias", "alias does not match the required pattern")
	}
	if reservedAliases[normalizeAlias(alias)] {
		return apperrx.New(codes.InvalidArgument, "ReservedAlias", "alias is reserved")
	}
	return nil
}

func normalizeAlias(alias string) string {
	r := []rune(alias)
	for i, c := range r {
		if c >= 'A' && c <= 'Z' {
			r[i] = c - 'A' + 'a'
		}
	}
	return string(r)
}

// MeResult is the response shape for /leaderboard/rks/me (spec.md §4.5.5).
type MeResult struct {
	Entry      *entity.LeaderboardEntry
	Rank       int
	Total      int
	Percentile float64
}

// PublicProfileResult is the response shape for /public/profile/{alias}.
type PublicProfileResult struct {
	Profile *entity.UserProfile
	Entry   *entity.LeaderboardEntry
	Details *entity.LeaderboardDetails
}

// HistoryResult is the response shape for POST /rks/history (spec.md §6.1):
// a page of submissions plus the caller's current and all-time-peak RKS.
type HistoryResult struct {
	Items      []entity.Submission
	Total      int
	CurrentRks float64
	PeakRks    float64
}

// LeaderboardUseCase implements spec.md §4.5.3–§4.5.6: the leaderboard
// write path (invoked after a successful /save), read path, alias/profile
// management, and admin moderation.
type LeaderboardUseCase interface {
	// RecordSubmission runs the full write-path transaction of spec.md
	// §4.5.3: submission history, suspicion scoring, leaderboard upsert,
	// and cached details upsert.
	RecordSubmission(ctx context.Context, in SubmissionInput) (*entity.Submission, error)

	// Top returns a page of non-hidden rows, spec.md §4.5.5; the profile
	// isPublic toggle does not filter this list.
	Top(ctx context.Context, limit, offset int, afterScore *float64, afterUpdated *time.Time, afterUser *string, lite bool) (*entity.LeaderboardPage, error)

	// ByRank returns a 1-based rank-range slice.
	ByRank(ctx context.Context, fromRank, toRank int) ([]entity.LeaderboardEntry, error)

	// Me returns the caller's competitive rank and percentile.
	//
	// # Possible errors
	//
	//  - NotFound: the caller has no leaderboard row yet.
	Me(ctx context.Context, userHash string) (*MeResult, error)

	// SetAlias assigns alias to userHash (idempotent on the current alias).
	SetAlias(ctx context.Context, userHash, alias string) (*entity.UserProfile, error)

	// SetVisibility updates the caller's four visibility toggles.
	SetVisibility(ctx context.Context, userHash string, isPublic, showComposition, showBestTop3, showApTop3 bool) (*entity.UserProfile, error)

	// PublicProfile resolves alias to its public profile, leaderboard
	// entry, and cached details, honoring visibility toggles.
	//
	// # Possible errors
	//
	//  - NotFound: no profile has that alias, or it is not public.
	PublicProfile(ctx context.Context, alias string) (*PublicProfileResult, error)

	// Suspicious lists the admin review queue.
	Suspicious(ctx context.Context, limit, offset int) ([]entity.LeaderboardEntry, error)

	// Resolve records an admin moderation decision and applies its hide
	// state to the leaderboard row.
	Resolve(ctx context.Context, userHash string, status entity.ModerationStatus, reason string) (*entity.ModerationFlag, error)

	// ForceAlias reassigns alias to userHash, admin-only, spec.md §4.5.6.
	ForceAlias(ctx context.Context, userHash, alias string) (*entity.UserProfile, error)

	// History returns a page of userHash's submission history plus its
	// current and peak RKS, for POST /rks/history.
	//
	// # Possible errors
	//
	//  - NotFound: the caller has no leaderboard row yet.
	History(ctx context.Context, userHash string, limit, offset int) (*HistoryResult, error)
}

// SubmissionInput carries the fully computed RKS overview and request
// context the write path needs (spec.md §4.5.2–§4.5.4); callers (the
// save use case) are responsible for computing PlayerRks before calling
// RecordSubmission.
type SubmissionInput struct {
	UserHash          string
	UserKind          string
	PlayerRks         entity.PlayerRks
	DetailsJSON       SubmissionDetails
	IsOfficialSession bool
	ClientIPHash      *string
}

// SubmissionDetails is the cached text/JSON blob spec.md §4.5.3 step 3
// describes; callers supply pre-serialized JSON for each field.
type SubmissionDetails struct {
	BestTop3JSON    string
	APTop3JSON      string
	CompositionJSON string
}

// SuspicionConfig tunes the thresholds of spec.md §4.5.4.
type SuspicionConfig struct {
	ReviewThreshold float64
	ShadowThreshold float64
}

// DefaultSuspicionConfig matches spec.md §4.5.4's documented defaults
// (shadowThreshold 1.0; reviewThreshold is left to the operator but
// defaults to half that, flagging for human review well before a row is
// auto-hidden).
var DefaultSuspicionConfig = SuspicionConfig{ReviewThreshold: 0.5, ShadowThreshold: 1.0}

type leaderboardUseCase struct {
	leaderboardRepo entity.LeaderboardRepository
	detailsRepo     entity.LeaderboardDetailsRepository
	submissionRepo  entity.SubmissionRepository
	profileRepo     entity.UserProfileRepository
	moderationRepo  entity.ModerationFlagRepository
	eventRepo       entity.EventRepository
	catalog         *catalog.Catalog
	suspicion       SuspicionConfig
	logger          *logging.Logger
}

var _ LeaderboardUseCase = (*leaderboardUseCase)(nil)

// NewLeaderboardUseCase creates a new leaderboard use case.
func NewLeaderboardUseCase(
	leaderboardRepo entity.LeaderboardRepository,
	detailsRepo entity.LeaderboardDetailsRepository,
	submissionRepo entity.SubmissionRepository,
	profileRepo entity.UserProfileRepository,
	moderationRepo entity.ModerationFlagRepository,
	eventRepo entity.EventRepository,
	cat *catalog.Catalog,
	suspicion SuspicionConfig,
	logger *logging.Logger,
) LeaderboardUseCase {
	return &leaderboardUseCase{
		leaderboardRepo: leaderboardRepo,
		detailsRepo:     detailsRepo,
		submissionRepo:  submissionRepo,
		profileRepo:     profileRepo,
		moderationRepo:  moderationRepo,
		eventRepo:       eventRepo,
		catalog:         cat,
		suspicion:       suspicion,
		logger:          logger,
	}
}

func (uc *leaderboardUseCase) RecordSubmission(ctx context.Context, in SubmissionInput) (*entity.Submission, error) {
	last, err := uc.submissionRepo.Last(ctx, in.UserHash)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		last = nil
	}

	recentCount, err := uc.submissionRepo.RecentCount(ctx, in.UserHash, updateFrequencyWindow)
	if err != nil {
		return nil, err
	}

	ipHashCount := 0
	if in.ClientIPHash != nil {
		ipHashCount, err = uc.eventRepo.RecentDistinctIPHashes(ctx, in.UserHash, recentWindow)
		if err != nil {
			return nil, err
		}
	}

	effective := len(in.PlayerRks.Best) + len(in.PlayerRks.APTop3)
	plausibilityCap := meanOf(uc.catalog.TopConstants(effective))

	score := suspicionScore(suspicionInput{
		PlayerRks:             in.PlayerRks,
		PlausibilityCap:       plausibilityCap,
		LastSubmission:        last,
		Now:                   time.Now(),
		RecentSubmissionCount: recentCount + 1,
		RecentIPHashCount:     ipHashCount,
		IsOfficialSession:     in.IsOfficialSession,
	})

	var rksJump float64
	if last != nil {
		rksJump = in.PlayerRks.PlayerRks - last.TotalRks
		if rksJump < 0 {
			rksJump = -rksJump
		}
	}

	submission, err := uc.submissionRepo.Insert(ctx, &entity.Submission{
		UserHash:       in.UserHash,
		TotalRks:       in.PlayerRks.PlayerRks,
		RksJump:        rksJump,
		SuspicionScore: score,
		Details:        json.RawMessage(in.DetailsJSON.CompositionJSON),
	})
	if err != nil {
		return nil, err
	}

	hide := score >= uc.suspicion.ShadowThreshold
	if _, err := uc.leaderboardRepo.UpsertIfGreater(ctx, in.UserHash, in.PlayerRks.PlayerRks, in.UserKind, score, hide); err != nil {
		return nil, err
	}

	if err := uc.detailsRepo.Upsert(ctx, &entity.LeaderboardDetails{
		UserHash:        in.UserHash,
		BestTop3JSON:    json.RawMessage(in.DetailsJSON.BestTop3JSON),
		APTop3JSON:      json.RawMessage(in.DetailsJSON.APTop3JSON),
		CompositionJSON: json.RawMessage(in.DetailsJSON.CompositionJSON),
	}); err != nil {
		return nil, err
	}

	if hide {
		uc.logger.Info(ctx, "leaderboard row auto-hidden", slog.String("user_hash", in.UserHash), slog.Float64("suspicion_score", score))
	} else if score >= uc.suspicion.ReviewThreshold {
		uc.logger.Info(ctx, "leaderboard row queued for review", slog.String("user_hash", in.UserHash), slog.Float64("suspicion_score", score))
	}

	return submission, nil
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

const (
	defaultTopLimit = 50
	maxTopLimit     = 200
	maxLiteLimit    = 1000
)

func (uc *leaderboardUseCase) Top(ctx context.Context, limit, offset int, afterScore *float64, afterUpdated *time.Time, afterUser *string, lite bool) (*entity.LeaderboardPage, error) {
	limitCap := maxTopLimit
	if lite {
		limitCap = maxLiteLimit
	}
	if limit <= 0 {
		limit = defaultTopLimit
	}
	if limit > limitCap {
		limit = limitCap
	}

	page, err := uc.leaderboardRepo.Top(ctx, limit, offset, afterScore, afterUpdated, afterUser)
	if err != nil {
		return nil, err
	}
	if page.NextAfterUser != nil {
		masked := maskUserHash(*page.NextAfterUser)
		page.NextAfterUser = &masked
	}
	// "lite" elides Best/AP Top-3 payloads, but LeaderboardEntry never
	// carries them (they live in LeaderboardDetails, fetched separately
	// by the image/profile paths), so there is nothing further to strip
	// here beyond the widened page size already applied above.
	return page, nil
}

func (uc *leaderboardUseCase) ByRank(ctx context.Context, fromRank, toRank int) ([]entity.LeaderboardEntry, error) {
	return uc.leaderboardRepo.ByRank(ctx, fromRank, toRank)
}

func (uc *leaderboardUseCase) Me(ctx context.Context, userHash string) (*MeResult, error) {
	entry, err := uc.leaderboardRepo.Get(ctx, userHash)
	if err != nil {
		return nil, err
	}

	rank, total, err := uc.leaderboardRepo.RankOf(ctx, userHash)
	if err != nil {
		return nil, err
	}

	var percentile float64
	if total > 0 {
		percentile = 100 * (1 - float64(rank-1)/float64(total))
	}

	return &MeResult{Entry: entry, Rank: rank, Total: total, Percentile: percentile}, nil
}

func (uc *leaderboardUseCase) History(ctx context.Context, userHash string, limit, offset int) (*HistoryResult, error) {
	entry, err := uc.leaderboardRepo.Get(ctx, userHash)
	if err != nil {
		return nil, err
	}

	items, total, err := uc.submissionRepo.History(ctx, userHash, limit, offset)
	if err != nil {
		return nil, err
	}

	var currentRks float64
	if len(items) > 0 {
		currentRks = items[0].TotalRks
	}

	return &HistoryResult{Items: items, Total: total, CurrentRks: currentRks, PeakRks: entry.TotalRks}, nil
}

func (uc *leaderboardUseCase) SetAlias(ctx context.Context, userHash, alias string) (*entity.UserProfile, error) {
	if err := validateAlias(alias); err != nil {
		return nil, err
	}
	profile, err := uc.profileRepo.SetAlias(ctx, userHash, alias)
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return nil, apperrx.Wrap(err, codes.AlreadyExists, "ALIAS_TAKEN", "alias is already taken")
		}
		return nil, err
	}
	return profile, nil
}

func (uc *leaderboardUseCase) SetVisibility(ctx context.Context, userHash string, isPublic, showComposition, showBestTop3, showApTop3 bool) (*entity.UserProfile, error) {
	return uc.profileRepo.SetVisibility(ctx, userHash, isPublic, showComposition, showBestTop3, showApTop3)
}

func (uc *leaderboardUseCase) PublicProfile(ctx context.Context, alias string) (*PublicProfileResult, error) {
	profile, err := uc.profileRepo.GetByAlias(ctx, alias)
	if err != nil {
		return nil, err
	}
	if !profile.IsPublic {
		return nil, apperrx.New(codes.NotFound, "NotFound", "profile is not public")
	}

	entry, err := uc.leaderboardRepo.Get(ctx, profile.UserHash)
	if err != nil {
		return nil, err
	}
	if entry.IsHidden {
		return nil, apperrx.New(codes.NotFound, "NotFound", "profile is not public")
	}

	result := &PublicProfileResult{Profile: profile, Entry: entry}

	if profile.ShowRksComposition || profile.ShowBestTop3 || profile.ShowApTop3 {
		details, err := uc.detailsRepo.Get(ctx, profile.UserHash)
		if err == nil {
			result.Details = details
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}

	return result, nil
}

func (uc *leaderboardUseCase) Suspicious(ctx context.Context, limit, offset int) ([]entity.LeaderboardEntry, error) {
	return uc.leaderboardRepo.Suspicious(ctx, uc.suspicion.ReviewThreshold, limit, offset)
}

func (uc *leaderboardUseCase) Resolve(ctx context.Context, userHash string, status entity.ModerationStatus, reason string) (*entity.ModerationFlag, error) {
	flag, err := uc.moderationRepo.Insert(ctx, &entity.ModerationFlag{
		UserHash: userHash,
		Status:   status,
		Reason:   reason,
	})
	if err != nil {
		return nil, err
	}

	hidden := status == entity.ModerationShadow || status == entity.ModerationBanned
	if err := uc.leaderboardRepo.SetModeration(ctx, userHash, hidden); err != nil {
		return nil, err
	}

	uc.logger.Info(ctx, "admin moderation applied", slog.String("user_hash", userHash), slog.String("status", string(status)))
	return flag, nil
}

func (uc *leaderboardUseCase) ForceAlias(ctx context.Context, userHash, alias string) (*entity.UserProfile, error) {
	if err := validateAlias(alias); err != nil {
		return nil, err
	}
	profile, err := uc.profileRepo.ForceAlias(ctx, userHash, alias)
	if err != nil {
		return nil, err
	}
	uc.logger.Info(ctx, "admin force-assigned alias", slog.String("user_hash", userHash), slog.String("alias", alias))
	return profile, nil
}
