package stats

import (
	"context"
	"log/slog"
	"time"

	"github.com/pannpers/go-logging/logging"

	"github.com/liverty-music/backend/internal/entity"
)

const (
	// DefaultBatchSize is the default flusher batch size (spec.md §4.5.1).
	DefaultBatchSize = 100
	// DefaultBatchInterval is the default flusher flush interval.
	DefaultBatchInterval = time.Second
)

// eventStore is the subset of entity.EventRepository the flusher needs.
type eventStore interface {
	InsertBatch(ctx context.Context, events []entity.Event) error
}

// Ingestor buffers telemetry events on a bounded channel and flushes them
// to storage in coalesced batches (spec.md §4.5.1). A full channel drops
// the event rather than blocking the caller, matching the "Stats
// overflow: dropping events under pressure is correct" invariant (§9).
//
// Modeled on pkg/cache.MemoryCache's ticker-driven background goroutine
// plus Close-synchronization shape, generalized to a producer/consumer
// channel instead of an in-place sweep.
type Ingestor struct {
	events chan entity.Event
	store  eventStore
	logger *logging.Logger

	batchSize     int
	batchInterval time.Duration

	dropped chan struct{}

	cancel context.CancelFunc
	done   chan struct{}
}

// NewIngestor starts the background flusher goroutine. Call Close to
// drain and stop it, normally registered as a shutdown Flush-phase
// closer.
func NewIngestor(store eventStore, logger *logging.Logger, batchSize int, batchInterval time.Duration) *Ingestor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchInterval <= 0 {
		batchInterval = DefaultBatchInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	ing := &Ingestor{
		events:        make(chan entity.Event, batchSize*4),
		store:         store,
		logger:        logger,
		batchSize:     batchSize,
		batchInterval: batchInterval,
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	go ing.run(ctx)
	return ing
}

// Record enqueues an event for eventual flush. It never blocks: if the
// channel is full, the event is silently dropped.
func (i *Ingestor) Record(e entity.Event) {
	select {
	case i.events <- e:
	default:
		if i.logger != nil {
			i.logger.Debug(context.Background(), "stats event dropped: ingestion channel full")
		}
	}
}

func (i *Ingestor) run(ctx context.Context) {
	defer close(i.done)

	ticker := time.NewTicker(i.batchInterval)
	defer ticker.Stop()

	batch := make([]entity.Event, 0, i.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := i.store.InsertBatch(context.Background(), batch); err != nil && i.logger != nil {
			i.logger.Error(context.Background(), "failed to flush stats batch", err, slog.Int("count", len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			// Drain whatever is already queued before exiting.
			for {
				select {
				case e := <-i.events:
					batch = append(batch, e)
					if len(batch) >= i.batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		case e := <-i.events:
			batch = append(batch, e)
			if len(batch) >= i.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Close stops the flusher, flushing any buffered events first.
func (i *Ingestor) Close() error {
	i.cancel()
	<-i.done
	return nil
}
