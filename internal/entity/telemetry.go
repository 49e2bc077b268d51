package entity

import (
	"context"
	"time"
)

// Event is one usage-telemetry row produced by an HTTP handler (spec.md
// §3.1 "Event", §4.5.1). Events are ingested best-effort: a full channel
// drops new events rather than blocking the request (spec.md §4.5.1/§9).
type Event struct {
	TsUTC        time.Time `json:"tsUtc"`
	Route        string    `json:"route"`
	Feature      string    `json:"feature,omitempty"`
	Action       string    `json:"action,omitempty"`
	Method       string    `json:"method"`
	Status       int       `json:"status"`
	DurationMs   int64     `json:"durationMs"`
	UserHash     *string   `json:"userHash,omitempty"`
	ClientIPHash *string   `json:"clientIpHash,omitempty"`
	Instance     string    `json:"instance,omitempty"`
	ExtraJSON    *string   `json:"extra,omitempty"`
}

// DailyCount is one (date, count) pair used by the daily aggregate
// queries of spec.md §4.5.8.
type DailyCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// LatencyBucket is one aggregated latency row for /stats/latency
// (spec.md §4.5.8): count plus min/max/avg duration, optionally grouped
// by route/method/feature.
type LatencyBucket struct {
	BucketStart time.Time `json:"bucketStart"`
	Route       string    `json:"route,omitempty"`
	Method      string    `json:"method,omitempty"`
	Feature     string    `json:"feature,omitempty"`
	Count       int       `json:"count"`
	MinMs       float64   `json:"minMs"`
	MaxMs       float64   `json:"maxMs"`
	AvgMs       float64   `json:"avgMs"`
}

// EventRepository defines the data access interface for telemetry events:
// bulk insertion from the flusher, and the on-the-fly daily aggregate
// queries of spec.md §4.5.8.
type EventRepository interface {
	// InsertBatch writes a coalesced batch of events in one statement.
	//
	// # Possible errors
	//
	//  - Internal: on any storage failure.
	InsertBatch(ctx context.Context, events []Event) error

	// RangeForArchive returns every event with TsUTC in [start, end) for
	// the daily archiver (spec.md §4.5.7).
	RangeForArchive(ctx context.Context, start, end time.Time) ([]Event, error)

	// RecentDistinctIPHashes counts distinct non-nil ClientIPHash values
	// recorded for userHash within the last window, used by the
	// suspicion score's multi-IP signal (spec.md §4.5.4).
	RecentDistinctIPHashes(ctx context.Context, userHash string, window time.Duration) (int, error)

	// DailyActiveUsers counts distinct non-nil UserHash values per UTC day
	// in [start, end], interpreted in tz (spec.md "/stats/daily/dau").
	DailyActiveUsers(ctx context.Context, start, end time.Time, tz *time.Location) ([]DailyCount, error)

	// DailyTotal counts all events per UTC day in [start, end], interpreted
	// in tz (spec.md "/stats/daily").
	DailyTotal(ctx context.Context, start, end time.Time, tz *time.Location) ([]DailyCount, error)

	// DailyFeature counts events per day for one feature (spec.md
	// "/stats/daily/features").
	DailyFeature(ctx context.Context, start, end time.Time, tz *time.Location, feature string) ([]DailyCount, error)

	// DailyHTTPStatus counts events per day bucketed by HTTP status class,
	// with missing days filled with zero (spec.md "/stats/daily/http").
	DailyHTTPStatus(ctx context.Context, start, end time.Time, tz *time.Location) (map[string][]DailyCount, error)

	// Latency aggregates DurationMs in [start, end] bucketed by the given
	// granularity ("day"|"week"|"month") and, when requested, grouped by
	// (route, method, feature) (spec.md "/stats/latency").
	Latency(ctx context.Context, start, end time.Time, tz *time.Location, granularity string, groupByDims bool) ([]LatencyBucket, error)
}
