package fuzzy

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Quantiles are the class boundaries of one gas distribution.
type Quantiles struct {
	Min, Q10, Q35, Q65, Q85, Q97, Max float64
}

var errNoValues = errors.New("no values to classify")

var boundaryProbs = [...]float64{0.10, 0.35, 0.65, 0.85, 0.97}

// ComputeQuantiles returns the class boundaries of values. Quantiles use
// linear interpolation between closest ranks. When the spread collapses (or
// the bounds are not finite) Max is moved to Min+1 so the trapezoids stay
// well defined.
func ComputeQuantiles(values []float64) (Quantiles, error) {
	if len(values) == 0 {
		return Quantiles{}, errNoValues
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	qs := make([]float64, len(boundaryProbs))
	for i, p := range boundaryProbs {
		qs[i] = quantileSorted(sorted, p)
	}

	minv, maxv := floats.Min(values), floats.Max(values)
	if !isFinite(minv) || !isFinite(maxv) || isClose(minv, maxv) {
		maxv = minv + 1.0
	}

	return Quantiles{
		Min: minv,
		Q10: qs[0],
		Q35: qs[1],
		Q65: qs[2],
		Q85: qs[3],
		Q97: qs[4],
		Max: maxv,
	}, nil
}

// quantileSorted interpolates at h = p·(n−1) over an ascending slice.
func quantileSorted(sorted []float64, p float64) float64 {
	h := p * float64(len(sorted)-1)
	lower := int(math.Floor(h))
	upper := int(math.Ceil(h))
	if lower == upper {
		return sorted[lower]
	}
	w := h - float64(lower)
	return sorted[lower] + w*(sorted[upper]-sorted[lower])
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// isClose mirrors the usual relative/absolute closeness test (rtol 1e-5, atol 1e-8).
func isClose(a, b float64) bool {
	return math.Abs(a-b) <= 1e-8+1e-5*math.Abs(b)
}
