package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/pannpers/go-apperr/apperr"
	"github.com/pannpers/go-apperr/apperr/codes"
	"github.com/pannpers/go-logging/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/liverty-music/backend/internal/entity"
)

// Hand-written fakes, same spirit as fakeEventRepo in stats_uc_test.go: the
// repositories have no bun/sqlite-backed behavior worth mocking here, only
// the methods each test actually exercises are overridden.

type fakeLeaderboardRepo struct {
	entity.LeaderboardRepository
	entries  map[string]*entity.LeaderboardEntry
	rank     int
	total    int
	topLimit int
}

func newFakeLeaderboardRepo() *fakeLeaderboardRepo {
	return &fakeLeaderboardRepo{entries: make(map[string]*entity.LeaderboardEntry)}
}

func (f *fakeLeaderboardRepo) UpsertIfGreater(ctx context.Context, userHash string, newScore float64, userKind string, suspicionScore float64, hide bool) (*entity.LeaderboardEntry, error) {
	existing, ok := f.entries[userHash]
	if !ok {
		f.entries[userHash] = &entity.LeaderboardEntry{UserHash: userHash, TotalRks: newScore, UserKind: userKind, SuspicionScore: suspicionScore, IsHidden: hide}
		return f.entries[userHash], nil
	}
	if newScore > existing.TotalRks {
		existing.TotalRks = newScore
	}
	existing.SuspicionScore = suspicionScore
	existing.IsHidden = existing.IsHidden || hide
	return existing, nil
}

func (f *fakeLeaderboardRepo) Get(ctx context.Context, userHash string) (*entity.LeaderboardEntry, error) {
	entry, ok := f.entries[userHash]
	if !ok {
		return nil, apperrNotFound()
	}
	return entry, nil
}

func (f *fakeLeaderboardRepo) RankOf(ctx context.Context, userHash string) (int, int, error) {
	if _, ok := f.entries[userHash]; !ok {
		return 0, 0, apperrNotFound()
	}
	return f.rank, f.total, nil
}

func (f *fakeLeaderboardRepo) Top(ctx context.Context, limit, offset int, afterScore *float64, afterUpdated *time.Time, afterUser *string) (*entity.LeaderboardPage, error) {
	f.topLimit = limit
	page := &entity.LeaderboardPage{Total: len(f.entries)}
	for _, e := range f.entries {
		page.Items = append(page.Items, *e)
		hash := e.UserHash
		page.NextAfterUser = &hash
	}
	return page, nil
}

func (f *fakeLeaderboardRepo) Suspicious(ctx context.Context, reviewThreshold float64, limit, offset int) ([]entity.LeaderboardEntry, error) {
	var out []entity.LeaderboardEntry
	for _, e := range f.entries {
		if e.SuspicionScore >= reviewThreshold {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeLeaderboardRepo) SetModeration(ctx context.Context, userHash string, hidden bool) error {
	entry, ok := f.entries[userHash]
	if !ok {
		return apperrNotFound()
	}
	entry.IsHidden = hidden
	return nil
}

type fakeLeaderboardDetailsRepo struct {
	entity.LeaderboardDetailsRepository
	upserted *entity.LeaderboardDetails
	stored   map[string]*entity.LeaderboardDetails
}

func newFakeLeaderboardDetailsRepo() *fakeLeaderboardDetailsRepo {
	return &fakeLeaderboardDetailsRepo{stored: make(map[string]*entity.LeaderboardDetails)}
}

func (f *fakeLeaderboardDetailsRepo) Upsert(ctx context.Context, details *entity.LeaderboardDetails) error {
	f.upserted = details
	f.stored[details.UserHash] = details
	return nil
}

func (f *fakeLeaderboardDetailsRepo) Get(ctx context.Context, userHash string) (*entity.LeaderboardDetails, error) {
	d, ok := f.stored[userHash]
	if !ok {
		return nil, apperrNotFound()
	}
	return d, nil
}

type fakeSubmissionRepo struct {
	entity.SubmissionRepository
	last      *entity.Submission
	inserted  *entity.Submission
	history   []entity.Submission
	total     int
	nextID    int64
	recentCnt int
}

func (f *fakeSubmissionRepo) Insert(ctx context.Context, s *entity.Submission) (*entity.Submission, error) {
	f.nextID++
	s.ID = f.nextID
	f.inserted = s
	return s, nil
}

func (f *fakeSubmissionRepo) Last(ctx context.Context, userHash string) (*entity.Submission, error) {
	if f.last == nil {
		return nil, apperrNotFound()
	}
	return f.last, nil
}

func (f *fakeSubmissionRepo) RecentCount(ctx context.Context, userHash string, window time.Duration) (int, error) {
	return f.recentCnt, nil
}

func (f *fakeSubmissionRepo) History(ctx context.Context, userHash string, limit, offset int) ([]entity.Submission, int, error) {
	return f.history, f.total, nil
}

type fakeProfileRepo struct {
	entity.UserProfileRepository
	byHash  map[string]*entity.UserProfile
	byAlias map[string]*entity.UserProfile
	existsErr error
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{byHash: make(map[string]*entity.UserProfile), byAlias: make(map[string]*entity.UserProfile)}
}

func (f *fakeProfileRepo) Get(ctx context.Context, userHash string) (*entity.UserProfile, error) {
	p, ok := f.byHash[userHash]
	if !ok {
		p = &entity.UserProfile{UserHash: userHash}
		f.byHash[userHash] = p
	}
	return p, nil
}

func (f *fakeProfileRepo) GetByAlias(ctx context.Context, alias string) (*entity.UserProfile, error) {
	p, ok := f.byAlias[alias]
	if !ok {
		return nil, apperrNotFound()
	}
	return p, nil
}

func (f *fakeProfileRepo) SetAlias(ctx context.Context, userHash, alias string) (*entity.UserProfile, error) {
	if f.existsErr != nil {
		return nil, f.existsErr
	}
	p, _ := f.Get(ctx, userHash)
	p.Alias = &alias
	f.byAlias[alias] = p
	return p, nil
}

func (f *fakeProfileRepo) ForceAlias(ctx context.Context, userHash, alias string) (*entity.UserProfile, error) {
	p, _ := f.Get(ctx, userHash)
	p.Alias = &alias
	f.byAlias[alias] = p
	return p, nil
}

func (f *fakeProfileRepo) SetVisibility(ctx context.Context, userHash string, isPublic, showComposition, showBestTop3, showApTop3 bool) (*entity.UserProfile, error) {
	p, _ := f.Get(ctx, userHash)
	p.IsPublic, p.ShowRksComposition, p.ShowBestTop3, p.ShowApTop3 = isPublic, showComposition, showBestTop3, showApTop3
	return p, nil
}

type fakeModerationRepo struct {
	entity.ModerationFlagRepository
	inserted *entity.ModerationFlag
	nextID   int64
}

func (f *fakeModerationRepo) Insert(ctx context.Context, flag *entity.ModerationFlag) (*entity.ModerationFlag, error) {
	f.nextID++
	flag.ID = f.nextID
	f.inserted = flag
	return flag, nil
}

func (f *fakeModerationRepo) ListByUser(ctx context.Context, userHash string) ([]entity.ModerationFlag, error) {
	if f.inserted == nil {
		return nil, nil
	}
	return []entity.ModerationFlag{*f.inserted}, nil
}

type fakeLBEventRepo struct {
	entity.EventRepository
	ipHashCount int
}

func (f *fakeLBEventRepo) RecentDistinctIPHashes(ctx context.Context, userHash string, window time.Duration) (int, error) {
	return f.ipHashCount, nil
}

func apperrNotFound() error {
	return apperr.New(codes.NotFound, "not found")
}

type leaderboardFixture struct {
	uc          LeaderboardUseCase
	leaderboard *fakeLeaderboardRepo
	details     *fakeLeaderboardDetailsRepo
	submissions *fakeSubmissionRepo
	profiles    *fakeProfileRepo
	moderation  *fakeModerationRepo
	events      *fakeLBEventRepo
}

func newLeaderboardFixture(t *testing.T, suspicion SuspicionConfig) *leaderboardFixture {
	t.Helper()
	logger, _ := logging.New()
	cat := writeTestCatalog(t)

	f := &leaderboardFixture{
		leaderboard: newFakeLeaderboardRepo(),
		details:     newFakeLeaderboardDetailsRepo(),
		submissions: &fakeSubmissionRepo{},
		profiles:    newFakeProfileRepo(),
		moderation:  &fakeModerationRepo{},
		events:      &fakeLBEventRepo{},
	}
	f.uc = NewLeaderboardUseCase(f.leaderboard, f.details, f.submissions, f.profiles, f.moderation, f.events, cat, suspicion, logger)
	return f
}

func TestLeaderboardUseCase_RecordSubmission(t *testing.T) {
	ctx := context.Background()

	t.Run("first submission inserts, upserts, and stores details", func(t *testing.T) {
		f := newLeaderboardFixture(t, DefaultSuspicionConfig)

		submission, err := f.uc.RecordSubmission(ctx, SubmissionInput{
			UserHash:  "user-a",
			UserKind:  "standard",
			PlayerRks: entity.PlayerRks{PlayerRks: 10.0},
			DetailsJSON: SubmissionDetails{
				BestTop3JSON:    "[]",
				APTop3JSON:      "[]",
				CompositionJSON: "{}",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "user-a", submission.UserHash)
		assert.Equal(t, 0.0, submission.RksJump, "no prior submission means a zero jump")

		entry, err := f.leaderboard.Get(ctx, "user-a")
		require.NoError(t, err)
		assert.InDelta(t, 10.0, entry.TotalRks, 1e-9)
		require.NotNil(t, f.details.upserted)
	})

	t.Run("a suspicion score at or above the shadow threshold hides the row", func(t *testing.T) {
		f := newLeaderboardFixture(t, SuspicionConfig{ReviewThreshold: 0.2, ShadowThreshold: 0.3})
		f.submissions.last = &entity.Submission{TotalRks: 0, CreatedAt: time.Now()}

		_, err := f.uc.RecordSubmission(ctx, SubmissionInput{
			UserHash:  "user-b",
			UserKind:  "standard",
			PlayerRks: entity.PlayerRks{PlayerRks: 10.0, Best: []entity.Record{{Acc: 101.0}}},
			DetailsJSON: SubmissionDetails{
				BestTop3JSON: "[]", APTop3JSON: "[]", CompositionJSON: "{}",
			},
		})
		require.NoError(t, err)

		entry, err := f.leaderboard.Get(ctx, "user-b")
		require.NoError(t, err)
		assert.True(t, entry.IsHidden)
	})
}

func TestLeaderboardUseCase_Top(t *testing.T) {
	ctx := context.Background()
	f := newLeaderboardFixture(t, DefaultSuspicionConfig)

	userHash := "abcd1234efgh"
	_, err := f.leaderboard.UpsertIfGreater(ctx, userHash, 15.0, "standard", 0, false)
	require.NoError(t, err)

	t.Run("masks the seek cursor's user hash", func(t *testing.T) {
		page, err := f.uc.Top(ctx, 10, 0, nil, nil, nil, false)
		require.NoError(t, err)
		require.NotNil(t, page.NextAfterUser)
		assert.Equal(t, "abcd****", *page.NextAfterUser)
	})

	t.Run("limit is clamped to the cap", func(t *testing.T) {
		_, err := f.uc.Top(ctx, 10000, 0, nil, nil, nil, false)
		require.NoError(t, err)
		assert.Equal(t, maxTopLimit, f.leaderboard.topLimit)
	})
}

func TestLeaderboardUseCase_Me(t *testing.T) {
	ctx := context.Background()
	f := newLeaderboardFixture(t, DefaultSuspicionConfig)

	t.Run("no leaderboard row is NotFound", func(t *testing.T) {
		_, err := f.uc.Me(ctx, "nobody")
		require.Error(t, err)
	})

	_, err := f.leaderboard.UpsertIfGreater(ctx, "user-a", 10.0, "standard", 0, false)
	require.NoError(t, err)
	f.leaderboard.rank, f.leaderboard.total = 1, 4

	t.Run("computes percentile from rank and total", func(t *testing.T) {
		result, err := f.uc.Me(ctx, "user-a")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Rank)
		assert.Equal(t, 4, result.Total)
		assert.InDelta(t, 100.0, result.Percentile, 1e-9)
	})
}

func TestLeaderboardUseCase_History(t *testing.T) {
	ctx := context.Background()
	f := newLeaderboardFixture(t, DefaultSuspicionConfig)

	t.Run("no leaderboard row is NotFound", func(t *testing.T) {
		_, err := f.uc.History(ctx, "nobody", 10, 0)
		require.Error(t, err)
	})

	_, err := f.leaderboard.UpsertIfGreater(ctx, "user-a", 14.0, "standard", 0, false)
	require.NoError(t, err)
	f.submissions.history = []entity.Submission{{ID: 2, TotalRks: 12.0}, {ID: 1, TotalRks: 10.0}}
	f.submissions.total = 2

	result, err := f.uc.History(ctx, "user-a", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.InDelta(t, 12.0, result.CurrentRks, 1e-9, "current RKS is the newest history row")
	assert.InDelta(t, 14.0, result.PeakRks, 1e-9, "peak RKS comes from the leaderboard row, not history")
}

func TestLeaderboardUseCase_SetAlias(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects an alias outside the allowed pattern", func(t *testing.T) {
		f := newLeaderboardFixture(t, DefaultSuspicionConfig)
		_, err := f.uc.SetAlias(ctx, "user-a", "a")
		require.Error(t, err)
		var target *apperrx.Error
		require.ErrorAs(t, err, &target)
		assert.Equal(t, codes.InvalidArgument, target.Code)
	})

	t.Run("rejects a reserved alias", func(t *testing.T) {
		f := newLeaderboardFixture(t, DefaultSuspicionConfig)
		_, err := f.uc.SetAlias(ctx, "user-a", "admin")
		require.Error(t, err)
	})

	t.Run("accepts a valid alias", func(t *testing.T) {
		f := newLeaderboardFixture(t, DefaultSuspicionConfig)
		profile, err := f.uc.SetAlias(ctx, "user-a", "Phi-Player")
		require.NoError(t, err)
		require.NotNil(t, profile.Alias)
		assert.Equal(t, "Phi-Player", *profile.Alias)
	})

	t.Run("wraps AlreadyExists into the ALIAS_TAKEN token", func(t *testing.T) {
		f := newLeaderboardFixture(t, DefaultSuspicionConfig)
		f.profiles.existsErr = apperr.New(codes.AlreadyExists, "alias taken")
		_, err := f.uc.SetAlias(ctx, "user-a", "Taken")
		require.Error(t, err)
		var target *apperrx.Error
		require.ErrorAs(t, err, &target)
		assert.Equal(t, "ALIAS_TAKEN", target.Token)
	})
}

func TestLeaderboardUseCase_PublicProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown alias is NotFound", func(t *testing.T) {
		f := newLeaderboardFixture(t, DefaultSuspicionConfig)
		_, err := f.uc.PublicProfile(ctx, "nobody")
		require.Error(t, err)
	})

	t.Run("a private profile is NotFound even if the alias exists", func(t *testing.T) {
		f := newLeaderboardFixture(t, DefaultSuspicionConfig)
		profile, err := f.uc.SetAlias(ctx, "user-a", "PrivatePlayer")
		require.NoError(t, err)
		_ = profile
		_, err = f.uc.PublicProfile(ctx, "PrivatePlayer")
		require.Error(t, err)
	})

	t.Run("a public profile with a leaderboard row is returned", func(t *testing.T) {
		f := newLeaderboardFixture(t, DefaultSuspicionConfig)
		_, err := f.uc.SetAlias(ctx, "user-a", "PublicPlayer")
		require.NoError(t, err)
		_, err = f.uc.SetVisibility(ctx, "user-a", true, true, true, true)
		require.NoError(t, err)
		_, err = f.leaderboard.UpsertIfGreater(ctx, "user-a", 12.0, "standard", 0, false)
		require.NoError(t, err)
		f.details.stored["user-a"] = &entity.LeaderboardDetails{UserHash: "user-a"}

		result, err := f.uc.PublicProfile(ctx, "PublicPlayer")
		require.NoError(t, err)
		assert.Equal(t, "user-a", result.Profile.UserHash)
		require.NotNil(t, result.Entry)
		require.NotNil(t, result.Details)
	})
}

func TestLeaderboardUseCase_Suspicious(t *testing.T) {
	ctx := context.Background()
	f := newLeaderboardFixture(t, SuspicionConfig{ReviewThreshold: 0.5, ShadowThreshold: 1.0})

	_, err := f.leaderboard.UpsertIfGreater(ctx, "user-clean", 10.0, "standard", 0.1, false)
	require.NoError(t, err)
	_, err = f.leaderboard.UpsertIfGreater(ctx, "user-flagged", 10.0, "standard", 0.6, false)
	require.NoError(t, err)

	rows, err := f.uc.Suspicious(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "user-flagged", rows[0].UserHash)
}

func TestLeaderboardUseCase_Resolve(t *testing.T) {
	ctx := context.Background()
	f := newLeaderboardFixture(t, DefaultSuspicionConfig)

	_, err := f.leaderboard.UpsertIfGreater(ctx, "user-a", 10.0, "standard", 0.9, false)
	require.NoError(t, err)

	t.Run("shadow status hides the leaderboard row", func(t *testing.T) {
		flag, err := f.uc.Resolve(ctx, "user-a", entity.ModerationShadow, "automation pattern")
		require.NoError(t, err)
		assert.Equal(t, entity.ModerationShadow, flag.Status)

		entry, err := f.leaderboard.Get(ctx, "user-a")
		require.NoError(t, err)
		assert.True(t, entry.IsHidden)
	})

	t.Run("approved status clears the hidden flag", func(t *testing.T) {
		_, err := f.uc.Resolve(ctx, "user-a", entity.ModerationApproved, "cleared by review")
		require.NoError(t, err)

		entry, err := f.leaderboard.Get(ctx, "user-a")
		require.NoError(t, err)
		assert.False(t, entry.IsHidden)
	})
}

func TestLeaderboardUseCase_ForceAlias(t *testing.T) {
	ctx := context.Background()
	f := newLeaderboardFixture(t, DefaultSuspicionConfig)

	t.Run("rejects an invalid alias before touching storage", func(t *testing.T) {
		_, err := f.uc.ForceAlias(ctx, "user-a", "!")
		require.Error(t, err)
	})

	profile, err := f.uc.ForceAlias(ctx, "user-a", "ReassignedName")
	require.NoError(t, err)
	require.NotNil(t, profile.Alias)
	assert.Equal(t, "ReassignedName", *profile.Alias)
}
