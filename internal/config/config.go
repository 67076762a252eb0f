package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Artifact and dataset locations.
	ArtifactDir string
	DatasetPath string

	// Pipeline parameters. These mirror the values the artifacts were fitted
	// with and normally stay at their defaults.
	WindowSize       int
	CatWindow        int
	SeasonalPeriod   int
	SeasonalStrength float64
	IQRFactor        float64

	// Forecast cache.
	CacheTTL  time.Duration
	CacheSize int

	// Kafka observation ingestion (optional).
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional; real env always wins

	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := envDuration("CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	flushInterval, err := envDuration("BATCH_FLUSH_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	windowSize, err := envInt("WINDOW_SIZE", 5000)
	if err != nil {
		return nil, err
	}
	catWindow, err := envInt("CAT_WINDOW", 4)
	if err != nil {
		return nil, err
	}
	seasonalPeriod, err := envInt("SEASONAL_PERIOD", 1000)
	if err != nil {
		return nil, err
	}
	cacheSize, err := envInt("CACHE_SIZE", 16)
	if err != nil {
		return nil, err
	}
	batchSize, err := envInt("BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}

	seasonalStrength, err := envFloat("SEASONAL_STRENGTH", 0.6)
	if err != nil {
		return nil, err
	}
	iqrFactor, err := envFloat("IQR_FACTOR", 3)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8000"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ArtifactDir: envOrDefault("ARTIFACT_DIR", "artifacts"),
		DatasetPath: envOrDefault("DATASET_PATH", "data/observations.csv"),

		WindowSize:       windowSize,
		CatWindow:        catWindow,
		SeasonalPeriod:   seasonalPeriod,
		SeasonalStrength: seasonalStrength,
		IQRFactor:        iqrFactor,

		CacheTTL:  cacheTTL,
		CacheSize: cacheSize,

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   envOrDefault("KAFKA_SOURCE_TOPIC", "aq-observations"),
		KafkaSinkTopic:     envOrDefault("KAFKA_SINK_TOPIC", "aq-forecasts"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "pm-forecast-service"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if cfg.WindowSize <= 0 {
		return nil, errors.New("WINDOW_SIZE must be positive")
	}
	if cfg.ArtifactDir == "" {
		return nil, errors.New("ARTIFACT_DIR is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SOURCE_TOPIC is empty")
		}
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
