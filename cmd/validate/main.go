// Command validate performs end-to-end integrity checks across the forecast
// pipeline: artifact consistency, a full pipeline run over a dataset, and a
// forecast from the downstream models. It is meant to be run after
// regenerating artifacts or replacing the dataset.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -artifact-dir artifacts \
//	  -dataset data/observations.csv
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/airsense/pm-forecast-service/internal/dataset"
	"github.com/airsense/pm-forecast-service/internal/frame"
	"github.com/airsense/pm-forecast-service/internal/observability"
	"github.com/airsense/pm-forecast-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	artifactDir := flag.String("artifact-dir", "artifacts", "directory containing artifact JSON files")
	datasetPath := flag.String("dataset", "data/observations.csv", "path to the observation CSV")
	windowSize := flag.Int("window-size", 5000, "observation window size")
	flag.Parse()

	if code := run(*artifactDir, *datasetPath, *windowSize); code != 0 {
		os.Exit(code)
	}
}

func run(artifactDir, datasetPath string, windowSize int) int {
	// Fixed clock for a reproducible generated_at stamp.
	pipeline.SetClock(clockwork.NewFakeClockAt(
		time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC),
	))
	defer pipeline.SetClock(nil)

	fmt.Println("=== Forecast Pipeline Validation ===")
	fmt.Println()

	pctx, err := pipeline.NewContext(artifactDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load artifacts: %v\n", err)
		return 1
	}
	f, err := dataset.LoadCSV(datasetPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load dataset: %v\n", err)
		return 1
	}
	store := dataset.NewStore(f)
	fmt.Printf("Loaded: %d rows, artifacts from %s\n", store.Len(), artifactDir)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := observability.NewMetricsForTesting()
	opts := pipeline.DefaultOptions()

	featureRow, p1 := validateFeatureRow(pctx, opts, store, windowSize, logger, metrics)
	p2 := validateScaledBounds(pctx, featureRow)
	forecast, p3 := validateForecast(pctx, opts, store, windowSize, logger, metrics)

	phases := []*phase{p1, p2, p3}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println()
		out, _ := json.MarshalIndent(forecast, "", "  ")
		fmt.Println(string(out))
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Feature Row ──
// Runs the full stage sequence and checks the output is a single complete row.

func validateFeatureRow(
	pctx *pipeline.Context,
	opts pipeline.Options,
	store *dataset.Store,
	windowSize int,
	logger *slog.Logger,
	metrics *observability.Metrics,
) (*frame.Frame, *phase) {
	p := &phase{name: "Phase 1: Feature Row (pipeline run)"}

	orch := pipeline.NewOrchestrator(pctx, opts, logger, metrics)
	row, err := orch.Run(store.Window(windowSize))
	if err != nil {
		p.errorf("pipeline run: %v", err)
		return nil, p
	}
	if row.NumRows() != 1 {
		p.errorf("expected 1 output row, got %d", row.NumRows())
		return row, p
	}

	for name, v := range row.NumericRow(0) {
		if math.IsNaN(v) {
			p.errorf("feature %q is NaN in final row", name)
		}
		if math.IsInf(v, 0) {
			p.errorf("feature %q is infinite in final row", name)
		}
	}
	return row, p
}

// ── Phase 2: Scaled Bounds ──
// Every column the scaler was fitted on must land in the unit interval.

func validateScaledBounds(pctx *pipeline.Context, row *frame.Frame) *phase {
	p := &phase{name: "Phase 2: Scaled Bounds (unit interval)"}
	if row == nil {
		p.errorf("no feature row to check")
		return p
	}

	const eps = 1e-9
	features := row.NumericRow(0)
	for name := range pctx.Artifacts.Scaler.Min {
		v, ok := features[name]
		if !ok {
			p.errorf("scaled column %q missing from feature row", name)
			continue
		}
		if v < -eps || v > 1+eps {
			p.errorf("scaled column %q = %g outside [0, 1]", name, v)
		}
	}
	return p
}

// ── Phase 3: Forecast ──
// Runs the serving path end to end, models included.

func validateForecast(
	pctx *pipeline.Context,
	opts pipeline.Options,
	store *dataset.Store,
	windowSize int,
	logger *slog.Logger,
	metrics *observability.Metrics,
) (pipeline.Forecast, *phase) {
	p := &phase{name: "Phase 3: Forecast (model predictions)"}

	predictor := pipeline.NewPredictor(pctx, opts, store, windowSize, 0, 0, nil, logger, metrics)
	f, err := predictor.Forecast(context.Background())
	if err != nil {
		p.errorf("forecast: %v", err)
		return f, p
	}

	checkHorizons(p, "pm2_5", f.PM25, pctx.PM25.Horizons())
	checkHorizons(p, "pm10", f.PM10, pctx.PM10.Horizons())
	if f.GeneratedAt.IsZero() {
		p.errorf("generated_at is zero")
	}
	return f, p
}

func checkHorizons(p *phase, name string, vals []float64, want int) {
	if len(vals) != want {
		p.errorf("%s: expected %d horizons, got %d", name, want, len(vals))
		return
	}
	for h, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			p.errorf("%s horizon %d: non-finite value %g", name, h+1, v)
		}
	}
}
