// Package kafka adapts the Kafka client to the ingestion and publishing
// interfaces: a Reader consuming raw observation messages from the source
// topic and a Writer publishing forecasts to the sink topic.
package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/airsense/pm-forecast-service/internal/config"
	"github.com/airsense/pm-forecast-service/internal/ingest"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes observation messages from the source topic.
// It implements ingest.BatchExtractor.
type Reader struct {
	reader        *kafkago.Reader
	flushInterval time.Duration
	logger        *slog.Logger
}

// NewReader creates a Kafka consumer for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaSourceTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Reader{reader: r, flushInterval: cfg.BatchFlushInterval, logger: logger}
}

// ExtractBatch blocks for the first message, then drains up to batchSize
// messages, giving up on the rest of the batch after the flush interval so a
// quiet topic still yields small batches promptly.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]ingest.RawMessage, error) {
	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	batch := []ingest.RawMessage{r.mapMessage(first)}

	flushCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()
	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(flushCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			if ctx.Err() != nil {
				break
			}
			return batch, err
		}
		batch = append(batch, r.mapMessage(msg))
	}
	return batch, nil
}

func (r *Reader) mapMessage(msg kafkago.Message) ingest.RawMessage {
	return ingest.RawMessage{
		Key:       msg.Key,
		Value:     msg.Value,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Commit: func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		},
	}
}

func (r *Reader) Close() error {
	return r.reader.Close()
}
