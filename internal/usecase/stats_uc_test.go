package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liverty-music/backend/internal/entity"
)

// fakeEventRepo is a hand-written stand-in for entity.EventRepository.
// The repository has no bun/sqlite-backed behavior worth mocking here;
// a minimal fake keeps these tests independent of a database fixture.
type fakeEventRepo struct {
	entity.EventRepository
	dailyTotal         []entity.DailyCount
	latency            []entity.LatencyBucket
	latencyGranularity string
}

func (f *fakeEventRepo) DailyTotal(ctx context.Context, start, end time.Time, tz *time.Location) ([]entity.DailyCount, error) {
	return f.dailyTotal, nil
}

func (f *fakeEventRepo) Latency(ctx context.Context, start, end time.Time, tz *time.Location, granularity string, groupByDims bool) ([]entity.LatencyBucket, error) {
	f.latencyGranularity = granularity
	return f.latency, nil
}

func TestStatsUseCaseDailyTotalPassesThrough(t *testing.T) {
	repo := &fakeEventRepo{dailyTotal: []entity.DailyCount{{Count: 3}}}
	uc := NewStatsUseCase(repo, nil, nil)

	got, err := uc.DailyTotal(context.Background(), time.Time{}, time.Time{}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, repo.dailyTotal, got)
}

func TestStatsUseCaseLatencyRejectsInvalidGranularity(t *testing.T) {
	repo := &fakeEventRepo{}
	uc := NewStatsUseCase(repo, nil, nil)

	_, err := uc.Latency(context.Background(), time.Time{}, time.Time{}, time.UTC, "fortnight", false)
	require.Error(t, err)
}

func TestStatsUseCaseLatencyAcceptsValidGranularities(t *testing.T) {
	repo := &fakeEventRepo{latency: []entity.LatencyBucket{{Count: 5}}}
	uc := NewStatsUseCase(repo, nil, nil)

	for _, g := range []string{"day", "week", "month"} {
		got, err := uc.Latency(context.Background(), time.Time{}, time.Time{}, time.UTC, g, false)
		require.NoError(t, err)
		assert.Equal(t, g, repo.latencyGranularity)
		assert.Equal(t, repo.latency, got)
	}
}

func TestStatsUseCaseArchiveNowWithoutArchiverIsInternalError(t *testing.T) {
	uc := NewStatsUseCase(&fakeEventRepo{}, nil, nil)
	err := uc.ArchiveNow(context.Background(), time.Now())
	require.Error(t, err)
}
