// Package features expands a transformed frame with lag and trailing
// rolling-mean columns. These are pure derived columns: they never feed back
// into earlier pipeline stages.
package features

import (
	"fmt"
	"math"

	"github.com/airsense/pm-forecast-service/internal/frame"
)

// Synthesizer appends lag features for every (column, offset) pair and
// rolling-mean features for every (column, window) pair. Columns absent from
// the frame are skipped.
type Synthesizer struct {
	lagCols  []string
	lags     []int
	rollCols []string
	windows  []int
}

// New creates a Synthesizer over the given column and size lists.
func New(lagCols []string, lags []int, rollCols []string, windows []int) *Synthesizer {
	return &Synthesizer{lagCols: lagCols, lags: lags, rollCols: rollCols, windows: windows}
}

// Apply appends all derived columns to f and returns it.
func (s *Synthesizer) Apply(f *frame.Frame) (*frame.Frame, error) {
	for _, name := range s.lagCols {
		c := f.Col(name)
		if c == nil || c.Kind != frame.Numeric {
			continue
		}
		src := append([]float64(nil), c.Floats...)
		for _, lag := range s.lags {
			col := fmt.Sprintf("%s_lag_%d", name, lag)
			if err := f.SetNumeric(col, Shift(src, lag)); err != nil {
				return nil, err
			}
		}
	}
	for _, name := range s.rollCols {
		c := f.Col(name)
		if c == nil || c.Kind != frame.Numeric {
			continue
		}
		src := append([]float64(nil), c.Floats...)
		for _, w := range s.windows {
			col := fmt.Sprintf("%s_rollmean_%d", name, w)
			if err := f.SetNumeric(col, RollingMean(src, w)); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

// Shift returns vals displaced forward by lag rows: out[i] = vals[i-lag].
// The first lag rows are missing.
func Shift(vals []float64, lag int) []float64 {
	n := len(vals)
	out := frame.MissingFloats(n)
	for i := lag; i < n; i++ {
		out[i] = vals[i-lag]
	}
	return out
}

// RollingMean returns the trailing moving average of vals over windows of
// size w: out[i] = mean(vals[i-w+1 .. i]). Rows before the window fills, and
// windows containing a missing value, are missing.
func RollingMean(vals []float64, w int) []float64 {
	n := len(vals)
	out := frame.MissingFloats(n)
	if w <= 0 || w > n {
		return out
	}

	var sum float64
	nanCount := 0
	for i := 0; i < n; i++ {
		v := vals[i]
		if math.IsNaN(v) {
			nanCount++
		} else {
			sum += v
		}
		if i >= w {
			old := vals[i-w]
			if math.IsNaN(old) {
				nanCount--
			} else {
				sum -= old
			}
		}
		if i >= w-1 && nanCount == 0 {
			out[i] = sum / float64(w)
		}
	}
	return out
}
