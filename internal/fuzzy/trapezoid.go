package fuzzy

import (
	"math"

	"github.com/couchcryptid/emissions-classifier/internal/domain"
)

const (
	// cornerEps is the minimum width of a trapezoid's plateau.
	cornerEps = 1e-12

	// tailSlack lets the top trapezoid's right foot sit just past max.
	tailSlack = 1e-9
)

// Trapezoid is a membership function with feet at A and D and plateau [B, C].
type Trapezoid struct {
	A, B, C, D float64
}

// Membership returns the degree in [0,1] to which x belongs to t.
func (t Trapezoid) Membership(x float64) float64 {
	switch {
	case math.IsNaN(x), x < t.A, x > t.D:
		return 0
	case x >= t.B && x <= t.C:
		return 1
	case x < t.B:
		return (x - t.A) / (t.B - t.A)
	default:
		return (t.D - x) / (t.D - t.C)
	}
}

// valid orders the corners so A ≤ B < C ≤ D.
func (t Trapezoid) valid() Trapezoid {
	t.B = math.Max(t.B, t.A)
	t.C = math.Max(t.C, t.B+cornerEps)
	t.D = math.Max(t.D, t.C)
	return t
}

// clamp pulls the corners into [min, max] (the right foot may exceed max by
// tailSlack) and restores corner order.
func (t Trapezoid) clamp(minv, maxv float64) Trapezoid {
	t.A = math.Max(t.A, minv)
	t.B = math.Max(t.B, minv)
	t.C = math.Min(t.C, maxv)
	t.D = math.Min(t.D, maxv+tailSlack)
	return t.valid()
}

// Trapezoids holds one membership function per severity class, least severe first.
type Trapezoids [6]Trapezoid

// For returns the trapezoid of class s.
func (ts Trapezoids) For(s domain.Severity) Trapezoid {
	return ts[s-domain.Good]
}

// BuildTrapezoids places the six class trapezoids on the quantile boundaries.
func BuildTrapezoids(q Quantiles, smoothFrac float64) Trapezoids {
	d := smoothFrac * math.Max(q.Max-q.Min, cornerEps)

	ts := Trapezoids{
		{q.Min, q.Min, q.Q10, q.Q10 + d},
		{q.Q10 - d, q.Q10, q.Q35, q.Q35 + d},
		{q.Q35 - d, q.Q35, q.Q65, q.Q65 + d},
		{q.Q65 - d, q.Q65, q.Q85, q.Q85 + d},
		{q.Q85 - d, q.Q85, q.Q97, q.Q97 + d},
		{q.Q97 - d, q.Q97, q.Max, q.Max},
	}
	for i := range ts {
		ts[i] = ts[i].valid().clamp(q.Min, q.Max)
	}
	return ts
}
