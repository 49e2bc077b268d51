package rdb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/liverty-music/backend/internal/entity"
)

// EventRepository implements entity.EventRepository over the events table.
//
// The daily aggregate queries of spec.md §4.5.8 need day boundaries in an
// arbitrary caller-supplied timezone, which SQLite's date functions cannot
// express directly (they only know "localtime", the server's own zone).
// Rather than shell out to strftime with a computed UTC offset, these
// queries fetch the raw rows in range and bucket them in Go, the same way
// the stats archiver already processes events in memory.
type EventRepository struct {
	db *Database
}

// NewEventRepository creates a new event repository instance.
func NewEventRepository(db *Database) *EventRepository {
	return &EventRepository{db: db}
}

var _ entity.EventRepository = (*EventRepository)(nil)

// InsertBatch writes a coalesced batch of events in one statement.
func (r *EventRepository) InsertBatch(ctx context.Context, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}

	models := make([]*Event, len(events))
	for i, e := range events {
		models[i] = eventModelFromEntity(e)
	}

	if _, err := r.db.DB.NewInsert().Model(&models).Exec(ctx); err != nil {
		return toAppErr(err, "failed to insert event batch", slog.Int("count", len(events)))
	}
	return nil
}

// RangeForArchive returns every event with TsUTC in [start, end).
func (r *EventRepository) RangeForArchive(ctx context.Context, start, end time.Time) ([]entity.Event, error) {
	var rows []Event
	err := r.db.DB.NewSelect().Model(&rows).
		Where("ts_utc >= ?", start).
		Where("ts_utc < ?", end).
		Order("ts_utc ASC").
		Scan(ctx)
	if err != nil {
		return nil, toAppErr(err, "failed to range events for archive")
	}

	out := make([]entity.Event, len(rows))
	for i := range rows {
		out[i] = rows[i].ToEntity()
	}
	return out, nil
}

// RecentDistinctIPHashes counts distinct non-nil ClientIPHash values
// recorded for userHash within the last window.
func (r *EventRepository) RecentDistinctIPHashes(ctx context.Context, userHash string, window time.Duration) (int, error) {
	var hashes []string
	err := r.db.DB.NewSelect().Model((*Event)(nil)).
		ColumnExpr("DISTINCT client_ip_hash").
		Where("user_hash = ?", userHash).
		Where("client_ip_hash IS NOT NULL").
		Where("ts_utc >= ?", time.Now().Add(-window)).
		Scan(ctx, &hashes)
	if err != nil {
		return 0, toAppErr(err, "failed to count recent ip hashes", slog.String("user_hash", userHash))
	}
	return len(hashes), nil
}

func (r *EventRepository) rangeRows(ctx context.Context, start, end time.Time) ([]Event, error) {
	var rows []Event
	err := r.db.DB.NewSelect().Model(&rows).
		Where("ts_utc >= ?", start).
		Where("ts_utc <= ?", end).
		Order("ts_utc ASC").
		Scan(ctx)
	if err != nil {
		return nil, toAppErr(err, "failed to query events")
	}
	return rows, nil
}

// dayBucket truncates t to midnight in tz and returns it as a UTC-labeled
// time.Time keyed by calendar date, so equal dates compare equal regardless
// of tz.
func dayBucket(t time.Time, tz *time.Location) time.Time {
	lt := t.In(tz)
	y, m, d := lt.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fillDays returns every calendar day in [start, end] (inclusive, in tz)
// in order, so zero-count days can be represented explicitly.
func fillDays(start, end time.Time, tz *time.Location) []time.Time {
	first := dayBucket(start, tz)
	last := dayBucket(end, tz)

	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// DailyActiveUsers counts distinct non-nil UserHash values per day.
func (r *EventRepository) DailyActiveUsers(ctx context.Context, start, end time.Time, tz *time.Location) ([]entity.DailyCount, error) {
	rows, err := r.rangeRows(ctx, start, end)
	if err != nil {
		return nil, err
	}

	seen := make(map[time.Time]map[string]struct{})
	for _, e := range rows {
		if e.UserHash == nil {
			continue
		}
		day := dayBucket(e.TsUTC, tz)
		if seen[day] == nil {
			seen[day] = make(map[string]struct{})
		}
		seen[day][*e.UserHash] = struct{}{}
	}

	out := make([]entity.DailyCount, 0, len(seen))
	for _, day := range fillDays(start, end, tz) {
		out = append(out, entity.DailyCount{Date: day, Count: len(seen[day])})
	}
	return out, nil
}

// DailyTotal counts all events per day.
func (r *EventRepository) DailyTotal(ctx context.Context, start, end time.Time, tz *time.Location) ([]entity.DailyCount, error) {
	rows, err := r.rangeRows(ctx, start, end)
	if err != nil {
		return nil, err
	}

	counts := make(map[time.Time]int)
	for _, e := range rows {
		counts[dayBucket(e.TsUTC, tz)]++
	}

	out := make([]entity.DailyCount, 0, len(counts))
	for _, day := range fillDays(start, end, tz) {
		out = append(out, entity.DailyCount{Date: day, Count: counts[day]})
	}
	return out, nil
}

// DailyFeature counts events per day for one feature.
func (r *EventRepository) DailyFeature(ctx context.Context, start, end time.Time, tz *time.Location, feature string) ([]entity.DailyCount, error) {
	rows, err := r.rangeRows(ctx, start, end)
	if err != nil {
		return nil, err
	}

	counts := make(map[time.Time]int)
	for _, e := range rows {
		if e.Feature != feature {
			continue
		}
		counts[dayBucket(e.TsUTC, tz)]++
	}

	out := make([]entity.DailyCount, 0, len(counts))
	for _, day := range fillDays(start, end, tz) {
		out = append(out, entity.DailyCount{Date: day, Count: counts[day]})
	}
	return out, nil
}

// statusClass maps an HTTP status code to its "2xx".."5xx" class label.
func statusClass(status int) string {
	class := status / 100
	if class < 1 || class > 5 {
		return "xxx"
	}
	return fmt.Sprintf("%dxx", class)
}

var statusClasses = []string{"2xx", "3xx", "4xx", "5xx"}

// DailyHTTPStatus counts events per day bucketed by HTTP status class, with
// missing days filled with zero.
func (r *EventRepository) DailyHTTPStatus(ctx context.Context, start, end time.Time, tz *time.Location) (map[string][]entity.DailyCount, error) {
	rows, err := r.rangeRows(ctx, start, end)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]map[time.Time]int)
	for _, class := range statusClasses {
		counts[class] = make(map[time.Time]int)
	}
	for _, e := range rows {
		class := statusClass(e.Status)
		if counts[class] == nil {
			counts[class] = make(map[time.Time]int)
		}
		counts[class][dayBucket(e.TsUTC, tz)]++
	}

	days := fillDays(start, end, tz)
	out := make(map[string][]entity.DailyCount, len(counts))
	for class, byDay := range counts {
		series := make([]entity.DailyCount, 0, len(days))
		for _, day := range days {
			series = append(series, entity.DailyCount{Date: day, Count: byDay[day]})
		}
		out[class] = series
	}
	return out, nil
}

// granularityBucket truncates t into the requested granularity's bucket
// start, in tz.
func granularityBucket(t time.Time, tz *time.Location, granularity string) time.Time {
	day := dayBucket(t, tz)
	switch granularity {
	case "week":
		offset := (int(day.Weekday()) + 6) % 7 // Monday-anchored week
		return day.AddDate(0, 0, -offset)
	case "month":
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

type latencyKey struct {
	bucket  time.Time
	route   string
	method  string
	feature string
}

// Latency aggregates DurationMs bucketed by the given granularity and,
// when requested, grouped by (route, method, feature).
func (r *EventRepository) Latency(ctx context.Context, start, end time.Time, tz *time.Location, granularity string, groupByDims bool) ([]entity.LatencyBucket, error) {
	rows, err := r.rangeRows(ctx, start, end)
	if err != nil {
		return nil, err
	}

	agg := make(map[latencyKey]*entity.LatencyBucket)
	for _, e := range rows {
		key := latencyKey{bucket: granularityBucket(e.TsUTC, tz, granularity)}
		if groupByDims {
			key.route, key.method, key.feature = e.Route, e.Method, e.Feature
		}

		b, ok := agg[key]
		ms := float64(e.DurationMs)
		if !ok {
			agg[key] = &entity.LatencyBucket{
				BucketStart: key.bucket,
				Route:       key.route,
				Method:      key.method,
				Feature:     key.feature,
				Count:       1,
				MinMs:       ms,
				MaxMs:       ms,
				AvgMs:       ms,
			}
			continue
		}

		total := b.AvgMs*float64(b.Count) + ms
		b.Count++
		b.AvgMs = total / float64(b.Count)
		if ms < b.MinMs {
			b.MinMs = ms
		}
		if ms > b.MaxMs {
			b.MaxMs = ms
		}
	}

	out := make([]entity.LatencyBucket, 0, len(agg))
	for _, b := range agg {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BucketStart.Equal(out[j].BucketStart) {
			return out[i].BucketStart.Before(out[j].BucketStart)
		}
		if out[i].Route != out[j].Route {
			return out[i].Route < out[j].Route
		}
		if out[i].Method != out[j].Method {
			return out[i].Method < out[j].Method
		}
		return out[i].Feature < out[j].Feature
	})
	return out, nil
}
