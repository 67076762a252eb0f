package stage

import (
	"math"

	"github.com/airsense/pm-forecast-service/internal/artifact"
	"github.com/airsense/pm-forecast-service/internal/frame"
)

// MinMaxScaler rescales fitted columns to the unit interval using the
// pre-fitted per-column bounds. Columns without fitted bounds (rank, time,
// lag, rolling features) are intentionally left unscaled: only the originally
// fitted numeric predictors participate.
type MinMaxScaler struct {
	min map[string]float64
	max map[string]float64
}

// NewMinMaxScaler creates a MinMaxScaler from the fitted bounds.
func NewMinMaxScaler(fitted artifact.Scaler) *MinMaxScaler {
	return &MinMaxScaler{min: fitted.Min, max: fitted.Max}
}

func (ms *MinMaxScaler) Name() string { return "minmax_scale" }

func (ms *MinMaxScaler) Transform(f *frame.Frame) (*frame.Frame, error) {
	for name, lo := range ms.min {
		hi, ok := ms.max[name]
		if !ok {
			continue
		}
		c := f.Col(name)
		if c == nil || c.Kind != frame.Numeric {
			continue
		}
		span := hi - lo
		for i, v := range c.Floats {
			if math.IsNaN(v) {
				continue
			}
			if span <= 0 {
				c.Floats[i] = 0
				continue
			}
			c.Floats[i] = (v - lo) / span
		}
	}
	return f, nil
}
