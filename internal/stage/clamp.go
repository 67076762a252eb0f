package stage

import (
	"math"

	"github.com/airsense/pm-forecast-service/internal/frame"
)

// NegativeClamper resets sub-zero values to zero in columns that are
// physically non-negative (concentrations, wind speed, humidity).
type NegativeClamper struct {
	cols []string
}

// NewNegativeClamper creates a NegativeClamper over the given columns.
func NewNegativeClamper(cols []string) *NegativeClamper {
	return &NegativeClamper{cols: cols}
}

func (nc *NegativeClamper) Name() string { return "negative_clamp" }

func (nc *NegativeClamper) Transform(f *frame.Frame) (*frame.Frame, error) {
	for _, name := range nc.cols {
		c := f.Col(name)
		if c == nil || c.Kind != frame.Numeric {
			continue
		}
		for i, v := range c.Floats {
			if v < 0 {
				c.Floats[i] = 0
			}
		}
	}
	return f, nil
}

// SkewCorrector applies log1p to right-skewed columns. Values at or below -1
// pass through unchanged to keep the transform defined.
type SkewCorrector struct {
	cols []string
}

// NewSkewCorrector creates a SkewCorrector over the given columns.
func NewSkewCorrector(cols []string) *SkewCorrector {
	return &SkewCorrector{cols: cols}
}

func (sc *SkewCorrector) Name() string { return "skew_correct" }

func (sc *SkewCorrector) Transform(f *frame.Frame) (*frame.Frame, error) {
	for _, name := range sc.cols {
		c := f.Col(name)
		if c == nil || c.Kind != frame.Numeric {
			continue
		}
		for i, v := range c.Floats {
			if v > -1 {
				c.Floats[i] = math.Log1p(v)
			}
		}
	}
	return f, nil
}
