package stage

import (
	"math"

	"github.com/airsense/pm-forecast-service/internal/artifact"
	"github.com/airsense/pm-forecast-service/internal/frame"
	"github.com/airsense/pm-forecast-service/internal/stats"
)

// Imputer fills missing values. Numeric columns treat negatives as missing
// and are repaired by cubic interpolation plus forward/backward fill.
// Categorical columns use the mode of a local window around each missing row,
// falling back to the fitted per-hour mode keyed by the timestamp's hour.
type Imputer struct {
	numCols   []string
	catCols   []string
	timeCol   string
	catWindow int
	hourModes map[string]map[int][]string
}

// NewImputer creates an Imputer. catWindow is the full window size; the scan
// uses a half-width of catWindow/2 on each side of the row.
func NewImputer(numCols, catCols []string, timeCol string, catWindow int, fitted artifact.Imputer) *Imputer {
	return &Imputer{
		numCols:   numCols,
		catCols:   catCols,
		timeCol:   timeCol,
		catWindow: catWindow,
		hourModes: fitted.MostCommonPerHour,
	}
}

func (im *Imputer) Name() string { return "missing_value_fill" }

func (im *Imputer) Transform(f *frame.Frame) (*frame.Frame, error) {
	for _, name := range im.numCols {
		c := f.Col(name)
		if c == nil || c.Kind != frame.Numeric {
			continue
		}
		fillNumeric(c.Floats)
	}
	for _, name := range im.catCols {
		c := f.Col(name)
		if c == nil || c.Kind != frame.Categorical {
			continue
		}
		im.fillCategorical(name, c.Strings, f.Col(im.timeCol))
	}
	return f, nil
}

func fillNumeric(vals []float64) {
	// Sub-zero readings are sensor faults, not observations.
	for i, v := range vals {
		if v < 0 {
			vals[i] = math.NaN()
		}
	}
	stats.CubicFill(vals)
	stats.ForwardBackwardFill(vals)
}

func (im *Imputer) fillCategorical(name string, vals []string, timeCol *frame.Column) {
	half := im.catWindow / 2
	n := len(vals)

	filled := make([]string, n)
	copy(filled, vals)
	for i := 0; i < n; i++ {
		if vals[i] != "" {
			continue
		}
		lo, hi := i-half, i+half+1
		if lo < 0 {
			lo = 0
		}
		if hi > n {
			hi = n
		}
		// Window mode over the original values so earlier fills in this pass
		// do not feed later ones.
		if m := windowMode(vals[lo:hi]); m != "" {
			filled[i] = m
		}
	}
	copy(vals, filled)

	// Diurnal fallback: the fitted most-frequent category for this hour.
	byHour := im.hourModes[name]
	if byHour == nil || timeCol == nil || timeCol.Kind != frame.Timestamp {
		return
	}
	for i := 0; i < n; i++ {
		if vals[i] != "" || timeCol.Times[i].IsZero() {
			continue
		}
		if modes := byHour[timeCol.Times[i].Hour()]; len(modes) > 0 {
			vals[i] = modes[0]
		}
	}
}

// windowMode returns the most frequent non-missing value in the window,
// breaking frequency ties toward the lexicographically smallest value.
// Returns "" when the window holds no non-missing values.
func windowMode(window []string) string {
	counts := make(map[string]int, len(window))
	for _, v := range window {
		if v != "" {
			counts[v]++
		}
	}
	best, bestCount := "", 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}
