// Package ingest appends live observations from a message source to the
// in-memory observation table. It runs the same batch loop shape as a
// classic extract-transform-load consumer: extract a batch, parse each
// message, append the successes, commit offsets, back off on source errors.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/airsense/pm-forecast-service/internal/dataset"
	"github.com/airsense/pm-forecast-service/internal/observability"
)

// RawMessage is an unprocessed message from the source topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// BatchExtractor reads up to batchSize raw messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]RawMessage, error)
}

// Ingestor drives the consume-parse-append loop.
type Ingestor struct {
	extractor BatchExtractor
	store     *dataset.Store
	logger    *slog.Logger
	metrics   *observability.Metrics
	batchSize int
}

// New creates an Ingestor appending to store.
func New(e BatchExtractor, store *dataset.Store, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Ingestor {
	return &Ingestor{
		extractor: e,
		store:     store,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// Run executes the ingestion loop until the context is cancelled.
func (in *Ingestor) Run(ctx context.Context) error {
	in.logger.Info("ingestion started", "batch_size", in.batchSize)
	in.metrics.IngestRunning.Set(1)
	defer in.metrics.IngestRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during broker outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			in.logger.Info("ingestion stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !in.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-parse-append cycle. Returns false if the
// loop should stop.
func (in *Ingestor) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	batch, err := in.extractor.ExtractBatch(ctx, in.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		in.logger.Error("extract batch failed", "error", err)
		return in.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(batch) == 0 {
		return ctx.Err() == nil
	}

	in.metrics.IngestBatchSize.Observe(float64(len(batch)))
	*backoff = 200 * time.Millisecond

	obs := make([]dataset.Observation, 0, len(batch))
	successfulRaws := make([]RawMessage, 0, len(batch))
	for _, raw := range batch {
		o, err := dataset.ParseObservation(raw.Value)
		if err != nil {
			in.logger.Warn("parse failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			in.metrics.IngestErrors.Inc()
			in.commitOffset(ctx, raw)
			continue
		}
		obs = append(obs, o)
		successfulRaws = append(successfulRaws, raw)
	}

	if len(obs) > 0 {
		if err := in.store.Append(obs); err != nil {
			in.logger.Error("append failed", "error", err, "batch_size", len(obs))
			in.metrics.IngestErrors.Inc()
			return in.backoffOrStop(ctx, backoff, maxBackoff)
		}
		in.metrics.ObservationsIngested.Add(float64(len(obs)))
	}

	for _, raw := range successfulRaws {
		in.commitOffset(ctx, raw)
	}
	return true
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the loop should stop.
func (in *Ingestor) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

func (in *Ingestor) commitOffset(ctx context.Context, raw RawMessage) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		in.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
