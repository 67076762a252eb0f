package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/airsense/pm-forecast-service/internal/config"
	"github.com/airsense/pm-forecast-service/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes forecasts to the sink topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishForecast serializes and publishes one forecast to the sink topic.
func (w *Writer) PublishForecast(ctx context.Context, f pipeline.Forecast) error {
	msg, err := serializeForecast(f)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeForecast marshals a Forecast into a Kafka message keyed by its
// generation timestamp.
func serializeForecast(f pipeline.Forecast) (kafkago.Message, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize forecast: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(f.GeneratedAt.Format(time.RFC3339)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "horizons", Value: []byte(strconv.Itoa(len(f.PM25)))},
			{Key: "generated_at", Value: []byte(f.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
