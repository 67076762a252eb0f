package stats

import (
	"gonum.org/v1/gonum/stat"
)

// Decompose splits x into additive seasonal and trend components using a
// robust classical decomposition: a centered moving-average trend and a
// per-phase median seasonal. The caller is responsible for checking that the
// series is long enough (at least two full periods) for the result to mean
// anything.
func Decompose(x []float64, period int) (seasonal, trend []float64) {
	n := len(x)
	trend = centeredMovingAverage(x, period)

	detrended := make([]float64, n)
	for i := range x {
		detrended[i] = x[i] - trend[i]
	}

	// Per-phase median resists the very outliers this decomposition exists
	// to find (robust mode).
	phase := make([][]float64, period)
	for i, v := range detrended {
		p := i % period
		phase[p] = append(phase[p], v)
	}
	cycle := make([]float64, period)
	for p := range cycle {
		cycle[p] = Median(phase[p])
	}

	// Center the seasonal cycle so the additive split leaves level in trend.
	mean := stat.Mean(cycle, nil)
	seasonal = make([]float64, n)
	for i := range seasonal {
		seasonal[i] = cycle[i%period] - mean
	}
	return seasonal, trend
}

// SeasonalStrength computes F_s = 1 - Var(x-trend-seasonal)/Var(x-trend).
// Values near 1 indicate a dominant seasonal component; values near 0 (or
// below) indicate none.
func SeasonalStrength(x, seasonal, trend []float64) float64 {
	n := len(x)
	noSeason := make([]float64, n)
	withSeason := make([]float64, n)
	for i := 0; i < n; i++ {
		noSeason[i] = x[i] - trend[i]
		withSeason[i] = x[i] - trend[i] - seasonal[i]
	}
	varNo := stat.Variance(noSeason, nil)
	if varNo == 0 {
		return 0
	}
	return 1 - stat.Variance(withSeason, nil)/varNo
}

// centeredMovingAverage estimates trend with a window of size period. Even
// periods use the standard 2xMA convention (average of the two staggered
// windows). Edges reuse the nearest interior estimate so the result spans the
// full series.
func centeredMovingAverage(x []float64, period int) []float64 {
	n := len(x)
	out := make([]float64, n)

	half := period / 2
	first, last := -1, -1
	for i := 0; i < n; i++ {
		var sum float64
		if period%2 == 1 {
			lo, hi := i-half, i+half
			if lo < 0 || hi >= n {
				continue
			}
			for j := lo; j <= hi; j++ {
				sum += x[j]
			}
			out[i] = sum / float64(period)
		} else {
			// 2xMA over period+1 points with half-weight endpoints.
			lo, hi := i-half, i+half
			if lo < 0 || hi >= n {
				continue
			}
			sum = x[lo]/2 + x[hi]/2
			for j := lo + 1; j < hi; j++ {
				sum += x[j]
			}
			out[i] = sum / float64(period)
		}
		if first == -1 {
			first = i
		}
		last = i
	}

	if first == -1 {
		// Window never fit; degrade to the series mean.
		mean := stat.Mean(x, nil)
		for i := range out {
			out[i] = mean
		}
		return out
	}
	for i := 0; i < first; i++ {
		out[i] = out[first]
	}
	for i := last + 1; i < n; i++ {
		out[i] = out[last]
	}
	return out
}
