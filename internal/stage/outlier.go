package stage

import (
	"math"

	"github.com/airsense/pm-forecast-service/internal/artifact"
	"github.com/airsense/pm-forecast-service/internal/frame"
	"github.com/airsense/pm-forecast-service/internal/stats"
)

// lowessIterations matches the robustifying pass count the fitted quartiles
// were computed with.
const lowessIterations = 3

// OutlierRemover repairs time-series outliers per numeric column: seasonal
// adjustment when a strong fitted-period cycle is present, LOWESS trend
// estimation, and IQR bounds on the remainder using the pre-fitted quartiles.
// Flagged positions are rebuilt in the original series by linear
// interpolation. Columns without fitted quartiles are left untouched.
type OutlierRemover struct {
	numCols   []string
	period    int
	strength  float64
	k         float64
	quartiles artifact.Outlier
}

// NewOutlierRemover creates an OutlierRemover with the given seasonal period,
// seasonal strength threshold, and IQR multiplier k.
func NewOutlierRemover(numCols []string, period int, strength, k float64, fitted artifact.Outlier) *OutlierRemover {
	return &OutlierRemover{
		numCols:   numCols,
		period:    period,
		strength:  strength,
		k:         k,
		quartiles: fitted,
	}
}

func (o *OutlierRemover) Name() string { return "ts_outlier_repair" }

func (o *OutlierRemover) Transform(f *frame.Frame) (*frame.Frame, error) {
	for _, name := range o.numCols {
		c := f.Col(name)
		if c == nil || c.Kind != frame.Numeric {
			continue
		}
		o.repairColumn(name, c.Floats)
	}
	return f, nil
}

func (o *OutlierRemover) repairColumn(name string, x []float64) {
	n := len(x)
	if n == 0 || hasNaN(x) {
		return
	}

	q1, ok1 := o.quartiles.Q1[name]
	q3, ok3 := o.quartiles.Q3[name]
	if !ok1 || !ok3 {
		// No fitted quartiles for this column; leave it as observed.
		return
	}

	// Seasonal adjustment only when at least two full periods are observed
	// and the cycle explains enough of the detrended variance.
	adj := x
	if o.period > 0 && n >= 2*o.period {
		seasonal, trend := stats.Decompose(x, o.period)
		if stats.SeasonalStrength(x, seasonal, trend) > o.strength {
			adj = make([]float64, n)
			for i := range x {
				adj[i] = x[i] - seasonal[i]
			}
		}
	}

	frac := math.Min(0.3, 20/float64(n))
	trendEst := stats.Lowess(adj, frac, lowessIterations)

	iqr := q3 - q1
	lower := q1 - o.k*iqr
	upper := q3 + o.k*iqr

	keep := make([]bool, n)
	flagged := false
	for i := range adj {
		r := adj[i] - trendEst[i]
		keep[i] = r >= lower && r <= upper
		if !keep[i] {
			flagged = true
		}
	}
	if !flagged {
		return
	}
	// Repair happens in the original series, not the seasonally adjusted one.
	stats.LinearReplace(x, keep)
}

func hasNaN(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
