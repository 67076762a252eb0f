package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/airsense/pm-forecast-service/internal/features"
	"github.com/airsense/pm-forecast-service/internal/frame"
	"github.com/airsense/pm-forecast-service/internal/observability"
	"github.com/airsense/pm-forecast-service/internal/schema"
	"github.com/airsense/pm-forecast-service/internal/stage"
)

// Options are the pipeline parameters the artifacts were fitted with.
type Options struct {
	CatWindow        int
	SeasonalPeriod   int
	SeasonalStrength float64
	IQRFactor        float64
}

// DefaultOptions returns the parameters of the shipped artifact set.
func DefaultOptions() Options {
	return Options{CatWindow: 4, SeasonalPeriod: 1000, SeasonalStrength: 0.6, IQRFactor: 3}
}

// Lag offsets and rolling windows, in rows (hours). Fixed: the models were
// fit against exactly these derived columns.
var (
	lagOffsets     = []int{1, 3, 6, 12, 24, 36, 48}
	rollingWindows = []int{720, 2160, 4320, 168, 336, 504}
)

// Orchestrator drives one inference pass over an observation window and
// returns the single most recent feature row.
type Orchestrator struct {
	stages  *stage.Pipeline
	synth   *features.Synthesizer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewOrchestrator assembles the fixed stage sequence from the fitted
// artifacts in pctx.
func NewOrchestrator(pctx *Context, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Orchestrator {
	a := pctx.Artifacts
	stages := stage.NewPipeline(
		stage.NewAligner(schema.Ordered),
		stage.NewImputer(schema.NumericPredictors, schema.CategoricalPredictors, schema.TimeColumn, opts.CatWindow, a.Imputer),
		stage.NewOutlierRemover(schema.NumericPredictors, opts.SeasonalPeriod, opts.SeasonalStrength, opts.IQRFactor, a.Outlier),
		stage.NewNegativeClamper(schema.NumericPredictors),
		stage.NewSkewCorrector(schema.SkewedColumns),
		stage.NewRankEncoder(schema.CategoricalPredictors, schema.Targets, a.Rank),
		stage.NewTimeExtractor(schema.TimeColumn),
		stage.NewMinMaxScaler(a.Scaler),
	)
	synth := features.New(schema.NumericPredictors, lagOffsets, schema.NumericPredictors, rollingWindows)
	return &Orchestrator{stages: stages, synth: synth, logger: logger, metrics: metrics}
}

// Run transforms the observation window and returns the final single-row
// feature frame with the target columns removed. The input frame is consumed
// and must not be reused by the caller.
func (o *Orchestrator) Run(f *frame.Frame) (*frame.Frame, error) {
	if f.NumRows() == 0 {
		return nil, errors.New("empty observation window")
	}
	rowsIn := f.NumRows()
	o.metrics.WindowRows.Observe(float64(rowsIn))
	start := time.Now()

	var err error
	for _, s := range o.stages.Stages() {
		stageStart := time.Now()
		f, err = s.Transform(f)
		o.metrics.StageDuration.WithLabelValues(s.Name()).Observe(time.Since(stageStart).Seconds())
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", s.Name(), err)
		}
	}

	synthStart := time.Now()
	f, err = o.synth.Apply(f)
	o.metrics.StageDuration.WithLabelValues("feature_synth").Observe(time.Since(synthStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("feature synthesis: %w", err)
	}

	for _, target := range schema.Targets {
		f.Drop(target)
	}
	last := f.Tail(1)

	o.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	o.logger.Debug("pipeline run complete",
		"rows_in", rowsIn,
		"features_out", len(last.Names()),
		"duration", time.Since(start),
	)
	return last, nil
}
