package features_test

import (
	"math"
	"testing"

	"github.com/airsense/pm-forecast-service/internal/features"
	"github.com/airsense/pm-forecast-service/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShift(t *testing.T) {
	out := features.Shift([]float64{1, 2, 3, 4, 5}, 2)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, []float64{1, 2, 3}, out[2:])
}

func TestRollingMean(t *testing.T) {
	out := features.RollingMean([]float64{1, 2, 3, 4, 5}, 3)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2, out[2], 1e-12)
	assert.InDelta(t, 3, out[3], 1e-12)
	assert.InDelta(t, 4, out[4], 1e-12)
}

func TestRollingMean_MissingPoisonsWindow(t *testing.T) {
	out := features.RollingMean([]float64{1, math.NaN(), 3, 4, 5}, 3)
	assert.True(t, math.IsNaN(out[2]), "window covers the hole")
	assert.True(t, math.IsNaN(out[3]), "window covers the hole")
	assert.InDelta(t, 4, out[4], 1e-12, "window past the hole recovers")
}

func TestRollingMean_WindowLargerThanSeries(t *testing.T) {
	out := features.RollingMean([]float64{1, 2}, 5)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
}

func TestSynthesizer_AppendsDerivedColumns(t *testing.T) {
	f := frame.New(5)
	require.NoError(t, f.SetNumeric("co", []float64{1, 2, 3, 4, 5}))

	s := features.New([]string{"co"}, []int{1, 3}, []string{"co"}, []int{2})
	out, err := s.Apply(f)
	require.NoError(t, err)

	assert.Equal(t, []string{"co", "co_lag_1", "co_lag_3", "co_rollmean_2"}, out.Names())
	assert.Equal(t, 4.0, out.Col("co_lag_1").Floats[4])
	assert.Equal(t, 2.0, out.Col("co_lag_3").Floats[4])
	assert.InDelta(t, 4.5, out.Col("co_rollmean_2").Floats[4], 1e-12)

	// Source column is left untouched.
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, out.Col("co").Floats)
}

func TestSynthesizer_SkipsAbsentColumns(t *testing.T) {
	f := frame.New(2)
	require.NoError(t, f.SetNumeric("co", []float64{1, 2}))

	s := features.New([]string{"no2"}, []int{1}, []string{"no2"}, []int{2})
	out, err := s.Apply(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"co"}, out.Names())
}
