package stats

import (
	"math"

	"gonum.org/v1/gonum/interp"
)

// minSplinePoints is the smallest number of known points worth fitting a
// cubic spline over; sparser series fall through to forward/backward fill.
const minSplinePoints = 4

// CubicFill replaces interior NaN runs in vals with cubic (Akima) spline
// interpolation over the row index. Leading and trailing NaNs are left for
// ForwardBackwardFill, matching interpolate-then-ffill-bfill semantics.
// The input is modified in place and returned.
func CubicFill(vals []float64) []float64 {
	var xs, ys []float64
	for i, v := range vals {
		if !math.IsNaN(v) {
			xs = append(xs, float64(i))
			ys = append(ys, v)
		}
	}
	if len(xs) < minSplinePoints || len(xs) == len(vals) {
		return vals
	}

	var spline interp.AkimaSpline
	if err := spline.Fit(xs, ys); err != nil {
		return vals
	}

	lo, hi := int(xs[0]), int(xs[len(xs)-1])
	for i := lo + 1; i < hi; i++ {
		if math.IsNaN(vals[i]) {
			vals[i] = spline.Predict(float64(i))
		}
	}
	return vals
}

// ForwardBackwardFill replaces NaNs with the previous non-NaN value, then
// sweeps backward for any leading NaNs. A fully-NaN series is returned as is.
func ForwardBackwardFill(vals []float64) []float64 {
	last := math.NaN()
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = last
		} else {
			last = v
		}
	}
	next := math.NaN()
	for i := len(vals) - 1; i >= 0; i-- {
		if math.IsNaN(vals[i]) {
			vals[i] = next
		} else {
			next = vals[i]
		}
	}
	return vals
}

// LinearReplace rebuilds vals at every position where keep is false by linear
// interpolation over the kept positions, extrapolating past the boundaries
// from the two nearest kept points. Requires at least two kept points;
// otherwise the series is returned unchanged.
func LinearReplace(vals []float64, keep []bool) []float64 {
	var idx []int
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	if len(idx) < 2 {
		return vals
	}

	for i := range vals {
		if keep[i] {
			continue
		}
		vals[i] = linearAt(vals, idx, i)
	}
	return vals
}

// linearAt evaluates the piecewise-linear function through the kept points at
// position i, extending the end segments for out-of-range positions.
func linearAt(vals []float64, idx []int, i int) float64 {
	// Find the segment [idx[j], idx[j+1]] bracketing i.
	j := 0
	for j < len(idx)-2 && idx[j+1] < i {
		j++
	}
	if i < idx[0] {
		j = 0
	}
	if i > idx[len(idx)-1] {
		j = len(idx) - 2
	}
	x0, x1 := idx[j], idx[j+1]
	y0, y1 := vals[x0], vals[x1]
	t := float64(i-x0) / float64(x1-x0)
	return y0 + t*(y1-y0)
}
