package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// inference service.
type Metrics struct {
	PredictRequests  *prometheus.CounterVec // labels: outcome={success,error,not_ready}
	PipelineDuration prometheus.Histogram
	StageDuration    *prometheus.HistogramVec // labels: stage
	WindowRows       prometheus.Histogram
	Ready            prometheus.Gauge
	ForecastCache    *prometheus.CounterVec // labels: result={hit,miss}

	// Ingestion metrics.
	ObservationsIngested prometheus.Counter
	IngestErrors         prometheus.Counter
	IngestBatchSize      prometheus.Histogram
	IngestRunning        prometheus.Gauge
	ForecastsPublished   prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PredictRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pm_forecast",
			Name:      "predict_requests_total",
			Help:      "Prediction requests by outcome.",
		}, []string{"outcome"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pm_forecast",
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of a complete feature pipeline run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pm_forecast",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}, []string{"stage"}),
		WindowRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pm_forecast",
			Name:      "window_rows",
			Help:      "Observation rows entering each pipeline run.",
			Buckets:   []float64{100, 500, 1000, 2500, 5000, 10000},
		}),
		Ready: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pm_forecast",
			Name:      "ready",
			Help:      "1 when all artifacts and models are loaded, 0 when degraded.",
		}),
		ForecastCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pm_forecast",
			Name:      "forecast_cache_total",
			Help:      "Forecast cache lookups by result.",
		}, []string{"result"}),
		ObservationsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pm_forecast",
			Name:      "observations_ingested_total",
			Help:      "Observations appended to the in-memory table.",
		}),
		IngestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pm_forecast",
			Name:      "ingest_errors_total",
			Help:      "Observation messages that failed to parse or append.",
		}),
		IngestBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pm_forecast",
			Name:      "ingest_batch_size",
			Help:      "Number of messages per batch extracted from the source topic.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pm_forecast",
			Name:      "ingest_running",
			Help:      "1 when the ingestion loop is active, 0 when shut down.",
		}),
		ForecastsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pm_forecast",
			Name:      "forecasts_published_total",
			Help:      "Forecasts written to the sink topic.",
		}),
	}

	prometheus.MustRegister(
		m.PredictRequests,
		m.PipelineDuration,
		m.StageDuration,
		m.WindowRows,
		m.Ready,
		m.ForecastCache,
		m.ObservationsIngested,
		m.IngestErrors,
		m.IngestBatchSize,
		m.IngestRunning,
		m.ForecastsPublished,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PredictRequests:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "pm_forecast", Name: "predict_requests_total"}, []string{"outcome"}),
		PipelineDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "pm_forecast", Name: "pipeline_duration_seconds"}),
		StageDuration:        prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "pm_forecast", Name: "stage_duration_seconds"}, []string{"stage"}),
		WindowRows:           prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "pm_forecast", Name: "window_rows"}),
		Ready:                prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "pm_forecast", Name: "ready"}),
		ForecastCache:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "pm_forecast", Name: "forecast_cache_total"}, []string{"result"}),
		ObservationsIngested: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "pm_forecast", Name: "observations_ingested_total"}),
		IngestErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "pm_forecast", Name: "ingest_errors_total"}),
		IngestBatchSize:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "pm_forecast", Name: "ingest_batch_size"}),
		IngestRunning:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "pm_forecast", Name: "ingest_running"}),
		ForecastsPublished:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "pm_forecast", Name: "forecasts_published_total"}),
	}
}
