package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/airsense/pm-forecast-service/internal/dataset"
	"github.com/airsense/pm-forecast-service/internal/observability"
)

// ErrNotReady is returned while the service runs degraded because artifacts
// or models failed to load at startup.
var ErrNotReady = errors.New("artifacts not loaded")

// Forecast is the inference result: one value per horizon for each pollutant
// family.
type Forecast struct {
	PM25        []float64 `json:"pm2_5"`
	PM10        []float64 `json:"pm10"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Publisher receives successful forecasts, e.g. for a Kafka sink topic.
type Publisher interface {
	PublishForecast(ctx context.Context, f Forecast) error
}

// Predictor serves inference requests: takes the most recent observation
// window from the store, runs the orchestrator, and invokes both downstream
// models. A Predictor built over a nil Context rejects every request with
// ErrNotReady but keeps the service alive.
type Predictor struct {
	pctx       *Context
	orch       *Orchestrator
	store      *dataset.Store
	windowSize int
	cache      *forecastCache
	publisher  Publisher
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewPredictor creates a Predictor. pctx may be nil for degraded mode.
// publisher may be nil to disable forecast publishing.
func NewPredictor(
	pctx *Context,
	opts Options,
	store *dataset.Store,
	windowSize int,
	cacheSize int,
	cacheTTL time.Duration,
	publisher Publisher,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Predictor {
	p := &Predictor{
		pctx:       pctx,
		store:      store,
		windowSize: windowSize,
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
	}
	if pctx != nil {
		p.orch = NewOrchestrator(pctx, opts, logger, metrics)
		metrics.Ready.Set(1)
	} else {
		metrics.Ready.Set(0)
	}
	if cacheSize > 0 && cacheTTL > 0 {
		p.cache = newForecastCache(cacheSize, cacheTTL)
	}
	return p
}

// CheckReadiness reports whether the predictor can serve requests.
func (p *Predictor) CheckReadiness(_ context.Context) error {
	if p.pctx == nil {
		return ErrNotReady
	}
	return nil
}

// Forecast runs one full inference pass. The window copy makes each run
// independent of concurrent appends; the shared Context is read-only.
func (p *Predictor) Forecast(ctx context.Context) (Forecast, error) {
	if p.pctx == nil {
		p.metrics.PredictRequests.WithLabelValues("not_ready").Inc()
		return Forecast{}, ErrNotReady
	}

	key := p.cacheKey()
	if p.cache != nil {
		if f, ok := p.cache.get(key); ok {
			p.metrics.ForecastCache.WithLabelValues("hit").Inc()
			p.metrics.PredictRequests.WithLabelValues("success").Inc()
			return f, nil
		}
		p.metrics.ForecastCache.WithLabelValues("miss").Inc()
	}

	f, err := p.forecastUncached()
	if err != nil {
		p.metrics.PredictRequests.WithLabelValues("error").Inc()
		p.logger.Error("forecast failed", "error", err)
		return Forecast{}, err
	}
	if p.cache != nil {
		p.cache.put(key, f)
	}
	p.metrics.PredictRequests.WithLabelValues("success").Inc()

	if p.publisher != nil {
		if err := p.publisher.PublishForecast(ctx, f); err != nil {
			// Publishing is best-effort; the caller still gets the forecast.
			p.logger.Warn("forecast publish failed", "error", err)
		} else {
			p.metrics.ForecastsPublished.Inc()
		}
	}
	return f, nil
}

func (p *Predictor) forecastUncached() (Forecast, error) {
	window := p.store.Window(p.windowSize)
	last, err := p.orch.Run(window)
	if err != nil {
		return Forecast{}, fmt.Errorf("pipeline run: %w", err)
	}

	featureRow := last.NumericRow(0)
	pm25, err := p.pctx.PM25.Predict(featureRow)
	if err != nil {
		return Forecast{}, fmt.Errorf("pm2_5 model: %w", err)
	}
	pm10, err := p.pctx.PM10.Predict(featureRow)
	if err != nil {
		return Forecast{}, fmt.Errorf("pm10 model: %w", err)
	}

	return Forecast{PM25: pm25, PM10: pm10, GeneratedAt: clock.Now().UTC()}, nil
}

// cacheKey identifies the store state a forecast was computed from. The
// answer only changes when new observations arrive.
func (p *Predictor) cacheKey() string {
	return fmt.Sprintf("%s|%d|%d", p.store.LatestTime().Format(time.RFC3339Nano), p.store.Len(), p.windowSize)
}
