package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/airsense/pm-forecast-service/internal/dataset"
	"github.com/airsense/pm-forecast-service/internal/ingest"
	"github.com/airsense/pm-forecast-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]ingest.RawMessage
	index   atomic.Int64
	err     error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]ingest.RawMessage, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// Block until cancellation to simulate a quiet topic.
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func validPayload(hour int) []byte {
	return []byte(fmt.Sprintf(`{"time":"2025-05-01 %02d:00:00","temp":12.5,"weather":"Clear","co":300}`, hour))
}

func messageWithCommit(payload []byte, committed *atomic.Int64) ingest.RawMessage {
	return ingest.RawMessage{
		Value: payload,
		Topic: "aq-observations",
		Commit: func(_ context.Context) error {
			committed.Add(1)
			return nil
		},
	}
}

// --- tests ---

func TestIngestor_Run_AppendsAndCommits(t *testing.T) {
	var committed atomic.Int64
	batch := []ingest.RawMessage{
		messageWithCommit(validPayload(1), &committed),
		messageWithCommit(validPayload(2), &committed),
	}

	store := dataset.Empty()
	in := ingest.New(&mockExtractor{batches: [][]ingest.RawMessage{batch}}, store, slog.Default(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, in.Run(ctx))
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, int64(2), committed.Load())
	assert.Equal(t, time.Date(2025, 5, 1, 2, 0, 0, 0, time.UTC), store.LatestTime())
}

func TestIngestor_Run_SkipsAndCommitsPoisonMessages(t *testing.T) {
	var committed atomic.Int64
	batch := []ingest.RawMessage{
		messageWithCommit([]byte("not-json{{{"), &committed),
		messageWithCommit(validPayload(3), &committed),
	}

	store := dataset.Empty()
	in := ingest.New(&mockExtractor{batches: [][]ingest.RawMessage{batch}}, store, slog.Default(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, in.Run(ctx))
	// The poison pill is committed so it is never redelivered, but only the
	// valid observation lands in the store.
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, int64(2), committed.Load())
}

func TestIngestor_Run_StopsOnCancel(t *testing.T) {
	store := dataset.Empty()
	in := ingest.New(&mockExtractor{}, store, slog.Default(), newTestMetrics(), 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, in.Run(ctx))
	assert.Equal(t, 0, store.Len())
}

func TestIngestor_Run_BacksOffOnExtractorError(t *testing.T) {
	store := dataset.Empty()
	in := ingest.New(&mockExtractor{err: errors.New("broker down")}, store, slog.Default(), newTestMetrics(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), 700*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, in.Run(ctx))
	// The loop must survive repeated failures until cancellation instead of
	// spinning out an error.
	assert.GreaterOrEqual(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 0, store.Len())
}
