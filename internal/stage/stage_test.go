package stage_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/airsense/pm-forecast-service/internal/artifact"
	"github.com/airsense/pm-forecast-service/internal/frame"
	"github.com/airsense/pm-forecast-service/internal/schema"
	"github.com/airsense/pm-forecast-service/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- pipeline ---

type failingStage struct{}

func (failingStage) Name() string { return "boom" }
func (failingStage) Transform(_ *frame.Frame) (*frame.Frame, error) {
	return nil, errors.New("bad column")
}

func TestPipeline_RunWrapsStageError(t *testing.T) {
	p := stage.NewPipeline(failingStage{})
	_, err := p.Run(frame.New(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage boom")
	assert.Contains(t, err.Error(), "bad column")
}

// --- aligner ---

func TestAligner_AddsMissingAndDropsExtra(t *testing.T) {
	f := frame.New(2)
	require.NoError(t, f.SetNumeric("temp", []float64{1, 2}))
	require.NoError(t, f.SetNumeric("not_in_schema", []float64{9, 9}))

	a := stage.NewAligner(schema.Ordered)
	out, err := a.Transform(f)
	require.NoError(t, err)

	assert.Equal(t, schema.Ordered, out.Names())
	assert.False(t, out.Has("not_in_schema"))
	assert.Equal(t, []float64{1, 2}, out.Col("temp").Floats)

	// Absent columns arrive filled with missing markers of the right kind.
	assert.True(t, math.IsNaN(out.Col("co").Floats[0]))
	assert.Equal(t, "", out.Col("weather").Strings[0])
	assert.True(t, out.Col("time").Times[0].IsZero())
}

func TestAligner_Idempotent(t *testing.T) {
	f := frame.New(1)
	require.NoError(t, f.SetNumeric("temp", []float64{1}))

	a := stage.NewAligner(schema.Ordered)
	once, err := a.Transform(f)
	require.NoError(t, err)
	twice, err := a.Transform(once)
	require.NoError(t, err)

	assert.Equal(t, once.Names(), twice.Names())
	assert.Equal(t, once.Col("temp").Floats, twice.Col("temp").Floats)
}

// --- imputer ---

func newImputer(fitted artifact.Imputer) *stage.Imputer {
	return stage.NewImputer([]string{"co"}, []string{"weather"}, "time", 4, fitted)
}

func TestImputer_CompleteColumnUntouched(t *testing.T) {
	f := frame.New(3)
	require.NoError(t, f.SetNumeric("co", []float64{1, 2, 3}))

	out, err := newImputer(artifact.Imputer{}).Transform(f)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, out.Col("co").Floats)
}

func TestImputer_NegativeAndMissingNumericFilled(t *testing.T) {
	f := frame.New(7)
	require.NoError(t, f.SetNumeric("co", []float64{math.NaN(), 2, 4, -5, 8, 10, math.NaN()}))

	out, err := newImputer(artifact.Imputer{}).Transform(f)
	require.NoError(t, err)

	vals := out.Col("co").Floats
	for i, v := range vals {
		assert.False(t, math.IsNaN(v), "index %d still missing", i)
	}
	// Interior hole sits between 4 and 8 on a near-linear ramp.
	assert.InDelta(t, 6, vals[3], 1.0)
	// Edge holes come from forward/backward fill.
	assert.Equal(t, vals[1], vals[0])
	assert.Equal(t, vals[5], vals[6])
}

func TestImputer_CategoricalWindowMode(t *testing.T) {
	f := frame.New(5)
	require.NoError(t, f.SetCategorical("weather", []string{"Rain", "Rain", "", "Clear", "Rain"}))

	out, err := newImputer(artifact.Imputer{}).Transform(f)
	require.NoError(t, err)
	// Window i-2..i+2 holds Rain x3, Clear x1.
	assert.Equal(t, "Rain", out.Col("weather").Strings[2])
}

func TestImputer_CategoricalTieBreaksSmallest(t *testing.T) {
	f := frame.New(5)
	require.NoError(t, f.SetCategorical("weather", []string{"Rain", "Rain", "", "Clear", "Clear"}))

	out, err := newImputer(artifact.Imputer{}).Transform(f)
	require.NoError(t, err)
	assert.Equal(t, "Clear", out.Col("weather").Strings[2])
}

func TestImputer_CategoricalHourFallback(t *testing.T) {
	times := []time.Time{
		time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC),
	}
	f := frame.New(3)
	require.NoError(t, f.SetTimestamp("time", times))
	require.NoError(t, f.SetCategorical("weather", []string{"", "", ""}))

	fitted := artifact.Imputer{MostCommonPerHour: map[string]map[int][]string{
		"weather": {9: {"Clear"}, 10: {"Haze"}, 11: {"Clouds"}},
	}}
	out, err := newImputer(fitted).Transform(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"Clear", "Haze", "Clouds"}, out.Col("weather").Strings)
}

func TestImputer_NoFallbackWithoutTimeColumn(t *testing.T) {
	f := frame.New(2)
	require.NoError(t, f.SetCategorical("weather", []string{"", ""}))

	fitted := artifact.Imputer{MostCommonPerHour: map[string]map[int][]string{
		"weather": {0: {"Clear"}},
	}}
	out, err := newImputer(fitted).Transform(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"", ""}, out.Col("weather").Strings)
}

// --- outlier remover ---

func constantWithSpike(n, at int, base, spike float64) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = base
	}
	vals[at] = spike
	return vals
}

func testQuartiles() artifact.Outlier {
	return artifact.Outlier{
		Q1: map[string]float64{"co": -1},
		Q3: map[string]float64{"co": 1},
	}
}

func TestOutlierRemover_RepairsSpike(t *testing.T) {
	f := frame.New(50)
	require.NoError(t, f.SetNumeric("co", constantWithSpike(50, 10, 10, 100)))

	o := stage.NewOutlierRemover([]string{"co"}, 1000, 0.6, 3, testQuartiles())
	out, err := o.Transform(f)
	require.NoError(t, err)

	vals := out.Col("co").Floats
	// The spike and any collaterally flagged neighbors are rebuilt from the
	// surrounding constant level.
	for i, v := range vals {
		assert.InDelta(t, 10, v, 1e-9, "index %d", i)
	}
}

func TestOutlierRemover_InsideBoundsNoOp(t *testing.T) {
	vals := []float64{10, 10.5, 9.8, 10.2, 10, 9.9, 10.1, 10, 10.3, 9.7}
	f := frame.New(len(vals))
	require.NoError(t, f.SetNumeric("co", append([]float64(nil), vals...)))

	o := stage.NewOutlierRemover([]string{"co"}, 1000, 0.6, 3, testQuartiles())
	out, err := o.Transform(f)
	require.NoError(t, err)
	assert.Equal(t, vals, out.Col("co").Floats)
}

func TestOutlierRemover_NoQuartilesNoOp(t *testing.T) {
	vals := constantWithSpike(50, 10, 10, 100)
	f := frame.New(50)
	require.NoError(t, f.SetNumeric("o3", append([]float64(nil), vals...)))

	o := stage.NewOutlierRemover([]string{"o3"}, 1000, 0.6, 3, testQuartiles())
	out, err := o.Transform(f)
	require.NoError(t, err)
	assert.Equal(t, vals, out.Col("o3").Floats)
}

func TestOutlierRemover_MissingValuesNoOp(t *testing.T) {
	vals := []float64{10, math.NaN(), 100, 10, 10}
	f := frame.New(5)
	require.NoError(t, f.SetNumeric("co", append([]float64(nil), vals...)))

	o := stage.NewOutlierRemover([]string{"co"}, 1000, 0.6, 3, testQuartiles())
	out, err := o.Transform(f)
	require.NoError(t, err)
	assert.Equal(t, 100.0, out.Col("co").Floats[2])
}

func TestOutlierRemover_SeasonalSeriesSpikeRemoved(t *testing.T) {
	period := 24
	n := 240
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = 50 + 20*math.Sin(2*math.Pi*float64(i)/float64(period))
	}
	vals[120] += 200

	f := frame.New(n)
	require.NoError(t, f.SetNumeric("co", vals))

	o := stage.NewOutlierRemover([]string{"co"}, period, 0.6, 3, artifact.Outlier{
		Q1: map[string]float64{"co": -2},
		Q3: map[string]float64{"co": 2},
	})
	out, err := o.Transform(f)
	require.NoError(t, err)

	v := out.Col("co").Floats[120]
	assert.Less(t, v, 120.0, "spike should be repaired")
	assert.Greater(t, v, 20.0, "repair should stay near the local level")
}

// --- clamp and skew ---

func TestNegativeClamper(t *testing.T) {
	f := frame.New(3)
	require.NoError(t, f.SetNumeric("wind", []float64{-0.5, 0, 2}))

	out, err := stage.NewNegativeClamper([]string{"wind"}).Transform(f)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 2}, out.Col("wind").Floats)
}

func TestSkewCorrector(t *testing.T) {
	f := frame.New(3)
	require.NoError(t, f.SetNumeric("co", []float64{0, math.E - 1, -2}))

	out, err := stage.NewSkewCorrector([]string{"co"}).Transform(f)
	require.NoError(t, err)
	vals := out.Col("co").Floats
	assert.InDelta(t, 0, vals[0], 1e-12)
	assert.InDelta(t, 1, vals[1], 1e-12)
	assert.Equal(t, -2.0, vals[2], "values at or below -1 pass through")
}

// --- rank encoder ---

func TestRankEncoder_EncodesAndDropsSource(t *testing.T) {
	f := frame.New(3)
	require.NoError(t, f.SetCategorical("weather", []string{"Clear", "Rain", "Clear"}))

	fitted := artifact.Rank{RankMaps: map[string]map[string]float64{
		"weather_pm2_5_next1": {"Clear": 1, "Rain": 2},
	}}
	re := stage.NewRankEncoder([]string{"weather"}, []string{"pm2_5_next1"}, fitted)
	out, err := re.Transform(f)
	require.NoError(t, err)

	assert.False(t, out.Has("weather"))
	assert.Equal(t, []float64{1, 2, 1}, out.Col("weather_pm2_5_next1").Floats)
}

func TestRankEncoder_UnseenCategoryGetsRankMode(t *testing.T) {
	f := frame.New(3)
	require.NoError(t, f.SetCategorical("weather", []string{"Storm", "", "Clear"}))

	fitted := artifact.Rank{RankMaps: map[string]map[string]float64{
		"weather_pm2_5_next1": {"Clear": 1, "Rain": 2, "Haze": 2},
	}}
	re := stage.NewRankEncoder([]string{"weather"}, []string{"pm2_5_next1"}, fitted)
	out, err := re.Transform(f)
	require.NoError(t, err)

	vals := out.Col("weather_pm2_5_next1").Floats
	assert.Equal(t, 2.0, vals[0], "unseen category falls back to the rank mode")
	assert.Equal(t, 2.0, vals[1], "missing category falls back to the rank mode")
	assert.Equal(t, 1.0, vals[2])
}

func TestRankEncoder_EmptyMapFallsBackToZero(t *testing.T) {
	f := frame.New(2)
	require.NoError(t, f.SetCategorical("weather", []string{"Clear", "Rain"}))

	re := stage.NewRankEncoder([]string{"weather"}, []string{"pm10_next1"}, artifact.Rank{})
	out, err := re.Transform(f)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, out.Col("weather_pm10_next1").Floats)
}

// --- time extractor ---

func TestTimeExtractor_Fields(t *testing.T) {
	// 2025-03-03 is a Monday.
	times := []time.Time{
		time.Date(2025, 3, 3, 14, 30, 0, 0, time.UTC),
		{},
	}
	f := frame.New(2)
	require.NoError(t, f.SetTimestamp("time", times))

	out, err := stage.NewTimeExtractor("time").Transform(f)
	require.NoError(t, err)

	assert.False(t, out.Has("time"))
	assert.Equal(t, 2025.0, out.Col("year").Floats[0])
	assert.Equal(t, 3.0, out.Col("month").Floats[0])
	assert.Equal(t, 3.0, out.Col("day").Floats[0])
	assert.Equal(t, 0.0, out.Col("dayofweek").Floats[0], "Monday counts as 0")
	assert.Equal(t, 14.0, out.Col("hour").Floats[0])

	assert.True(t, math.IsNaN(out.Col("year").Floats[1]), "zero time stays missing")
	assert.True(t, math.IsNaN(out.Col("hour").Floats[1]))
}

func TestTimeExtractor_SundayIsSix(t *testing.T) {
	f := frame.New(1)
	require.NoError(t, f.SetTimestamp("time", []time.Time{
		time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), // Sunday
	}))

	out, err := stage.NewTimeExtractor("time").Transform(f)
	require.NoError(t, err)
	assert.Equal(t, 6.0, out.Col("dayofweek").Floats[0])
}

func TestTimeExtractor_NoTimeColumnNoOp(t *testing.T) {
	f := frame.New(1)
	require.NoError(t, f.SetNumeric("temp", []float64{1}))

	out, err := stage.NewTimeExtractor("time").Transform(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"temp"}, out.Names())
}

// --- min-max scaler ---

func TestMinMaxScaler_ScalesFittedColumns(t *testing.T) {
	f := frame.New(3)
	require.NoError(t, f.SetNumeric("temp", []float64{-10, 15, 40}))
	require.NoError(t, f.SetNumeric("unfitted", []float64{5, 6, 7}))

	ms := stage.NewMinMaxScaler(artifact.Scaler{
		Min: map[string]float64{"temp": -10},
		Max: map[string]float64{"temp": 40},
	})
	out, err := ms.Transform(f)
	require.NoError(t, err)

	assert.InDelta(t, 0, out.Col("temp").Floats[0], 1e-12)
	assert.InDelta(t, 0.5, out.Col("temp").Floats[1], 1e-12)
	assert.InDelta(t, 1, out.Col("temp").Floats[2], 1e-12)
	assert.Equal(t, []float64{5, 6, 7}, out.Col("unfitted").Floats)
}

func TestMinMaxScaler_MissingStaysMissing(t *testing.T) {
	f := frame.New(2)
	require.NoError(t, f.SetNumeric("temp", []float64{math.NaN(), 40}))

	ms := stage.NewMinMaxScaler(artifact.Scaler{
		Min: map[string]float64{"temp": -10},
		Max: map[string]float64{"temp": 40},
	})
	out, err := ms.Transform(f)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(out.Col("temp").Floats[0]))
}

func TestMinMaxScaler_DegenerateSpan(t *testing.T) {
	f := frame.New(2)
	require.NoError(t, f.SetNumeric("year", []float64{2025, 2025}))

	ms := stage.NewMinMaxScaler(artifact.Scaler{
		Min: map[string]float64{"year": 2025},
		Max: map[string]float64{"year": 2025},
	})
	out, err := ms.Transform(f)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, out.Col("year").Floats)
}
