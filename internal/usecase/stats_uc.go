package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/pannpers/go-apperr/apperr/codes"
	"github.com/pannpers/go-logging/logging"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/liverty-music/backend/internal/entity"
	"github.com/liverty-music/backend/internal/infrastructure/stats"
)

// StatsUseCase exposes the read-only daily aggregate queries and the
// manual archive trigger of spec.md §4.5.8/§4.5.7, both sitting directly
// on top of C5's storage.
type StatsUseCase interface {
	// DailyActiveUsers returns one row per calendar day in [start, end]
	// (inclusive, interpreted in tz) with the count of distinct users
	// seen that day.
	//
	// # Possible errors
	//
	//  - Internal: on any storage failure.
	DailyActiveUsers(ctx context.Context, start, end time.Time, tz *time.Location) ([]entity.DailyCount, error)

	// DailyTotal returns the total event count per calendar day.
	//
	// # Possible errors
	//
	//  - Internal: on any storage failure.
	DailyTotal(ctx context.Context, start, end time.Time, tz *time.Location) ([]entity.DailyCount, error)

	// DailyFeature returns the per-day event count for one feature.
	//
	// # Possible errors
	//
	//  - Internal: on any storage failure.
	DailyFeature(ctx context.Context, start, end time.Time, tz *time.Location, feature string) ([]entity.DailyCount, error)

	// DailyHTTPStatus returns the per-day event count bucketed by HTTP
	// status class ("2xx".."5xx"), missing days filled with zero.
	//
	// # Possible errors
	//
	//  - Internal: on any storage failure.
	DailyHTTPStatus(ctx context.Context, start, end time.Time, tz *time.Location) (map[string][]entity.DailyCount, error)

	// Latency aggregates request duration over [start, end], bucketed by
	// granularity ("day"|"week"|"month") and optionally grouped by
	// (route, method, feature).
	//
	// # Possible errors
	//
	//  - InvalidArgument: granularity is not one of "day", "week", "month".
	//  - Internal: on any storage failure.
	Latency(ctx context.Context, start, end time.Time, tz *time.Location, granularity string, groupByDims bool) ([]entity.LatencyBucket, error)

	// ArchiveNow runs the daily parquet export for date's local calendar
	// day immediately, out of band from the archiver's own schedule
	// (spec.md §4.5.7, "re-runnable via POST /stats/archive/now").
	//
	// # Possible errors
	//
	//  - Internal: the export failed to write.
	ArchiveNow(ctx context.Context, date time.Time) error

	// Summary returns a trailing-24h overview for GET /stats/summary: the
	// sums of the per-day DailyTotal and DailyActiveUsers rows for
	// [now-24h, now], in tz. ActiveUsers adds up per-day distinct counts, so
	// a user active on both calendar days the window touches counts twice.
	//
	// # Possible errors
	//
	//  - Internal: on any storage failure.
	Summary(ctx context.Context, tz *time.Location) (*SummaryResult, error)
}

// SummaryResult is the aggregated overview GET /stats/summary returns.
type SummaryResult struct {
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`
	TotalEvents int       `json:"totalEvents"`
	ActiveUsers int       `json:"activeUsers"`
}

var validLatencyGranularities = map[string]bool{"day": true, "week": true, "month": true}

type statsUseCase struct {
	events   entity.EventRepository
	archiver *stats.Archiver
	logger   *logging.Logger
}

var _ StatsUseCase = (*statsUseCase)(nil)

// NewStatsUseCase creates a new stats use case. archiver may be nil, in
// which case ArchiveNow reports Internal (no archive root configured).
func NewStatsUseCase(events entity.EventRepository, archiver *stats.Archiver, logger *logging.Logger) StatsUseCase {
	return &statsUseCase{events: events, archiver: archiver, logger: logger}
}

func (uc *statsUseCase) DailyActiveUsers(ctx context.Context, start, end time.Time, tz *time.Location) ([]entity.DailyCount, error) {
	return uc.events.DailyActiveUsers(ctx, start, end, tz)
}

func (uc *statsUseCase) DailyTotal(ctx context.Context, start, end time.Time, tz *time.Location) ([]entity.DailyCount, error) {
	return uc.events.DailyTotal(ctx, start, end, tz)
}

func (uc *statsUseCase) DailyFeature(ctx context.Context, start, end time.Time, tz *time.Location, feature string) ([]entity.DailyCount, error) {
	return uc.events.DailyFeature(ctx, start, end, tz, feature)
}

func (uc *statsUseCase) DailyHTTPStatus(ctx context.Context, start, end time.Time, tz *time.Location) (map[string][]entity.DailyCount, error) {
	return uc.events.DailyHTTPStatus(ctx, start, end, tz)
}

func (uc *statsUseCase) Latency(ctx context.Context, start, end time.Time, tz *time.Location, granularity string, groupByDims bool) ([]entity.LatencyBucket, error) {
	if !validLatencyGranularities[granularity] {
		return nil, apperrx.New(codes.InvalidArgument, "InvalidGranularity", "granularity must be one of day, week, month")
	}
	return uc.events.Latency(ctx, start, end, tz, granularity, groupByDims)
}

func (uc *statsUseCase) Summary(ctx context.Context, tz *time.Location) (*SummaryResult, error) {
	if tz == nil {
		tz = time.UTC
	}
	end := time.Now().In(tz)
	start := end.Add(-24 * time.Hour)

	totals, err := uc.events.DailyTotal(ctx, start, end, tz)
	if err != nil {
		return nil, err
	}
	dau, err := uc.events.DailyActiveUsers(ctx, start, end, tz)
	if err != nil {
		return nil, err
	}

	return &SummaryResult{
		WindowStart: start,
		WindowEnd:   end,
		TotalEvents: sumCounts(totals),
		ActiveUsers: sumCounts(dau),
	}, nil
}

func sumCounts(rows []entity.DailyCount) int {
	total := 0
	for _, r := range rows {
		total += r.Count
	}
	return total
}

func (uc *statsUseCase) ArchiveNow(ctx context.Context, date time.Time) error {
	if uc.archiver == nil {
		return apperrx.New(codes.Internal, "ArchiverNotConfigured", "the archive root is not configured").WithStatus(500)
	}
	if err := uc.archiver.ArchiveDay(ctx, date); err != nil {
		return apperrx.Wrap(err, codes.Internal, "Internal", "failed to archive the requested day")
	}
	uc.logger.Info(ctx, "manual archive run completed", slog.Time("date", date))
	return nil
}
