package stats

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/pannpers/go-logging/logging"
	"github.com/parquet-go/parquet-go"

	"github.com/liverty-music/backend/internal/entity"
)

// Compression names the columnar archive's compression codec, per
// spec.md §4.5.7.
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionZstd   Compression = "zstd"
	CompressionSnappy Compression = "snappy"
)

// archiveRow is the flattened, parquet-tagged projection of entity.Event
// written to each daily file.
type archiveRow struct {
	TsUTC        int64  `parquet:"ts_utc"`
	Route        string `parquet:"route"`
	Feature      string `parquet:"feature"`
	Action       string `parquet:"action"`
	Method       string `parquet:"method"`
	Status       int32  `parquet:"status"`
	DurationMs   int64  `parquet:"duration_ms"`
	UserHash     string `parquet:"user_hash,optional"`
	ClientIPHash string `parquet:"client_ip_hash,optional"`
	Instance     string `parquet:"instance"`
	ExtraJSON    string `parquet:"extra_json,optional"`
}

func toArchiveRow(e entity.Event) archiveRow {
	row := archiveRow{
		TsUTC:      e.TsUTC.UnixMilli(),
		Route:      e.Route,
		Feature:    e.Feature,
		Action:     e.Action,
		Method:     e.Method,
		Status:     int32(e.Status),
		DurationMs: e.DurationMs,
		Instance:   e.Instance,
	}
	if e.UserHash != nil {
		row.UserHash = *e.UserHash
	}
	if e.ClientIPHash != nil {
		row.ClientIPHash = *e.ClientIPHash
	}
	if e.ExtraJSON != nil {
		row.ExtraJSON = *e.ExtraJSON
	}
	return row
}

// archiveSource is the subset of entity.EventRepository the archiver needs.
type archiveSource interface {
	RangeForArchive(ctx context.Context, start, end time.Time) ([]entity.Event, error)
}

// Archiver exports one local calendar day of Events per run to a columnar
// parquet file under rootDir, on a daily ticker anchored to a configured
// local time (spec.md §4.5.7). Failures are logged and never propagate
// to the ingestion path.
type Archiver struct {
	store       archiveSource
	logger      *logging.Logger
	rootDir     string
	tz          *time.Location
	dailyAt     time.Duration // offset from local midnight
	compression Compression

	cancel context.CancelFunc
	done   chan struct{}
}

// NewArchiver constructs an archiver. dailyAt is the local time-of-day
// (e.g. 3*time.Hour for 03:00) at which the previous day is exported.
func NewArchiver(store archiveSource, logger *logging.Logger, rootDir string, tz *time.Location, dailyAt time.Duration, compression Compression) *Archiver {
	if tz == nil {
		tz = time.UTC
	}
	return &Archiver{
		store:       store,
		logger:      logger,
		rootDir:     rootDir,
		tz:          tz,
		dailyAt:     dailyAt,
		compression: compression,
	}
}

// Start launches the background scheduling goroutine. Call Close to stop
// it; the provider registers the archiver as a shutdown Observe-phase
// closer.
func (a *Archiver) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})

	go a.run(ctx)
}

func (a *Archiver) run(ctx context.Context) {
	defer close(a.done)

	for {
		wait := time.Until(a.nextRun())
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			yesterday := time.Now().In(a.tz).AddDate(0, 0, -1)
			if err := a.ArchiveDay(ctx, yesterday); err != nil && a.logger != nil {
				a.logger.Error(ctx, "daily archive run failed", err, slog.Time("date", yesterday))
			}
		}
	}
}

// nextRun computes the next wall-clock instant at dailyAt local time.
func (a *Archiver) nextRun() time.Time {
	now := time.Now().In(a.tz)
	y, m, d := now.Date()
	next := time.Date(y, m, d, 0, 0, 0, 0, a.tz).Add(a.dailyAt)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Close stops the scheduling goroutine.
func (a *Archiver) Close() error {
	if a.cancel != nil {
		a.cancel()
		<-a.done
	}
	return nil
}

// ArchiveDay exports every event whose local calendar day (in a.tz)
// equals day's local date, to
// {rootDir}/year=YYYY/month=MM/day=DD/events-{uuid}.{ext}. Re-runnable:
// every call writes a fresh, distinctly-named file (spec.md §4.5.7,
// "re-runnable via POST /stats/archive/now").
func (a *Archiver) ArchiveDay(ctx context.Context, day time.Time) error {
	y, m, d := day.In(a.tz).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, a.tz)
	end := start.AddDate(0, 0, 1)

	events, err := a.store.RangeForArchive(ctx, start.UTC(), end.UTC())
	if err != nil {
		return fmt.Errorf("failed to range events for %04d-%02d-%02d: %w", y, int(m), d, err)
	}
	if len(events) == 0 {
		return nil
	}

	dir := filepath.Join(a.rootDir, fmt.Sprintf("year=%04d", y), fmt.Sprintf("month=%02d", int(m)), fmt.Sprintf("day=%02d", d))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive dir %s: %w", dir, err)
	}

	ext := "parquet"
	if a.compression == CompressionZstd {
		ext = "parquet.zst"
	} else if a.compression == CompressionSnappy {
		ext = "parquet.snappy"
	}

	path := filepath.Join(dir, fmt.Sprintf("events-%s.%s", uuid.New().String(), ext))
	if err := a.writeParquet(path, events); err != nil {
		return fmt.Errorf("failed to write archive %s: %w", path, err)
	}

	if a.logger != nil {
		a.logger.Info(ctx, "daily archive written",
			slog.String("path", path),
			slog.Int("rows", len(events)),
		)
	}
	return nil
}

func (a *Archiver) writeParquet(path string, events []entity.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch a.compression {
	case CompressionZstd:
		zw, err := zstd.NewWriter(f)
		if err != nil {
			return err
		}
		return writeRows(zw, events, zw.Close)
	case CompressionSnappy:
		sw := snappy.NewBufferedWriter(f)
		return writeRows(sw, events, sw.Close)
	default:
		return writeRows(f, events, nil)
	}
}

func writeRows(w io.Writer, events []entity.Event, closeCompressor func() error) error {
	pw := parquet.NewGenericWriter[archiveRow](w)

	rows := make([]archiveRow, len(events))
	for i, e := range events {
		rows[i] = toArchiveRow(e)
	}

	if _, err := pw.Write(rows); err != nil {
		return err
	}
	if err := pw.Close(); err != nil {
		return err
	}
	if closeCompressor != nil {
		return closeCompressor()
	}
	return nil
}
