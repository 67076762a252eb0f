package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/airsense/pm-forecast-service/internal/adapter/http"
	kafkaadapter "github.com/airsense/pm-forecast-service/internal/adapter/kafka"
	"github.com/airsense/pm-forecast-service/internal/config"
	"github.com/airsense/pm-forecast-service/internal/dataset"
	"github.com/airsense/pm-forecast-service/internal/ingest"
	"github.com/airsense/pm-forecast-service/internal/observability"
	"github.com/airsense/pm-forecast-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Load the historical dataset. A missing or broken file leaves an empty
	// store; ingestion can still fill it at runtime.
	store := dataset.Empty()
	if f, err := dataset.LoadCSV(cfg.DatasetPath); err != nil {
		logger.Error("dataset load failed, starting with empty store", "path", cfg.DatasetPath, "error", err)
	} else {
		store = dataset.NewStore(f)
		logger.Info("dataset loaded", "path", cfg.DatasetPath, "rows", store.Len())
	}

	// Load artifacts and models. On failure the service starts degraded:
	// health stays green, readiness and /predict report not ready.
	pctx, err := pipeline.NewContext(cfg.ArtifactDir)
	if err != nil {
		logger.Error("artifact load failed, starting degraded", "dir", cfg.ArtifactDir, "error", err)
		pctx = nil
	} else {
		logger.Info("artifacts loaded", "dir", cfg.ArtifactDir)
	}

	opts := pipeline.Options{
		CatWindow:        cfg.CatWindow,
		SeasonalPeriod:   cfg.SeasonalPeriod,
		SeasonalStrength: cfg.SeasonalStrength,
		IQRFactor:        cfg.IQRFactor,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Kafka ingestion and publishing (feature-flagged via KAFKA_ENABLED).
	var (
		reader    *kafkaadapter.Reader
		writer    *kafkaadapter.Writer
		publisher pipeline.Publisher
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka enabled",
			"brokers", cfg.KafkaBrokers,
			"source_topic", cfg.KafkaSourceTopic,
			"sink_topic", cfg.KafkaSinkTopic,
		)
	} else {
		logger.Info("kafka disabled")
	}

	predictor := pipeline.NewPredictor(pctx, opts, store, cfg.WindowSize, cfg.CacheSize, cfg.CacheTTL, publisher, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, predictor, predictor, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start observation ingestion.
	if reader != nil {
		ingestor := ingest.New(reader, store, logger, metrics, cfg.BatchSize)
		go func() {
			if err := ingestor.Run(ctx); err != nil {
				logger.Error("ingestion error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
