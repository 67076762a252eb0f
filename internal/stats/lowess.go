// Package stats implements the numeric kernels behind the feature pipeline:
// locally weighted regression, robust seasonal decomposition, and gap
// interpolation. All functions operate on plain float64 series indexed by row
// position and treat NaN as the missing marker.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Lowess estimates a smooth trend for ys over the implicit index 0..n-1 using
// locally weighted linear regression with tricube weights and bisquare
// robustifying iterations. frac is the fraction of points used per local fit;
// iters is the number of robustifying passes (0 for a single plain pass).
func Lowess(ys []float64, frac float64, iters int) []float64 {
	n := len(ys)
	if n == 0 {
		return nil
	}
	fit := make([]float64, n)
	if n == 1 {
		fit[0] = ys[0]
		return fit
	}

	q := int(math.Ceil(frac * float64(n)))
	if q < 2 {
		q = 2
	}
	if q > n {
		q = n
	}

	robust := make([]float64, n)
	for i := range robust {
		robust[i] = 1
	}

	for pass := 0; ; pass++ {
		for i := 0; i < n; i++ {
			fit[i] = localFit(ys, robust, i, q)
		}
		if pass >= iters {
			break
		}
		if !updateRobustWeights(ys, fit, robust) {
			break
		}
	}
	return fit
}

// localFit performs one weighted linear regression over the q points nearest
// to index i and evaluates it at i.
func localFit(ys, robust []float64, i, q int) float64 {
	n := len(ys)

	// Indices are uniform, so the q nearest points form a contiguous window.
	lo := i - q/2
	if lo < 0 {
		lo = 0
	}
	if lo+q > n {
		lo = n - q
	}
	hi := lo + q

	dmax := math.Max(float64(i-lo), float64(hi-1-i))
	if dmax == 0 {
		dmax = 1
	}

	xs := make([]float64, 0, q)
	ws := make([]float64, 0, q)
	vs := make([]float64, 0, q)
	for j := lo; j < hi; j++ {
		w := tricube(math.Abs(float64(j-i))/dmax) * robust[j]
		if w <= 0 {
			continue
		}
		xs = append(xs, float64(j))
		vs = append(vs, ys[j])
		ws = append(ws, w)
	}
	if len(xs) == 0 {
		return ys[i]
	}
	if len(xs) == 1 {
		return vs[0]
	}

	alpha, beta := stat.LinearRegression(xs, vs, ws, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return stat.Mean(vs, ws)
	}
	return alpha + beta*float64(i)
}

// updateRobustWeights recomputes bisquare weights from the current residuals.
// Returns false when the residual scale has collapsed and iterating further
// cannot change the fit.
func updateRobustWeights(ys, fit, robust []float64) bool {
	n := len(ys)
	resid := make([]float64, n)
	for i := range resid {
		resid[i] = math.Abs(ys[i] - fit[i])
	}
	s := Median(resid)
	if s <= 1e-12 {
		return false
	}
	for i := range robust {
		u := resid[i] / (6 * s)
		if u >= 1 {
			robust[i] = 0
			continue
		}
		robust[i] = (1 - u*u) * (1 - u*u)
	}
	return true
}

func tricube(u float64) float64 {
	if u >= 1 {
		return 0
	}
	c := 1 - u*u*u
	return c * c * c
}

// Median returns the sample median, ignoring nothing; NaN inputs propagate.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}
