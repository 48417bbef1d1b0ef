package collector

import "math"

// degenerateEpsilon bounds denominators and periods treated as zero.
const degenerateEpsilon = 1e-12

// TimeTrend is the least-squares fit time ≈ A*k + B over a window.
type TimeTrend struct {
	A      float64
	B      float64
	SigmaT float64
}

// FitTimeTrend regresses arrival time on window position k = 0..n-1.
//
// The x values are the integers 0..n-1, so their sums use closed forms and
// only the y sums need a pass over the window. A second pass collects the
// residuals. ok is false for windows under three samples, for a fit without a
// usable period (a burst inside one clock tick gives a = 0) and for any
// non-finite result; callers keep their previous model in that case.
func FitTimeTrend(h *History) (TimeTrend, bool) {
	n := h.Len()
	if n < 3 {
		return TimeTrend{}, false
	}

	nf := float64(n)
	sumX := nf * (nf - 1) / 2
	sumX2 := nf * (nf - 1) * (2*nf - 1) / 6

	var sumY, sumXY float64
	for k, s := range h.All() {
		sumY += s.Timestamp
		sumXY += float64(k) * s.Timestamp
	}

	den := nf*sumX2 - sumX*sumX
	if math.Abs(den) < degenerateEpsilon {
		return TimeTrend{}, false
	}

	a := (nf*sumXY - sumX*sumY) / den
	if !isFinite(a) || a < degenerateEpsilon {
		return TimeTrend{}, false
	}
	b := (sumY - a*sumX) / nf

	var sse float64
	for k, s := range h.All() {
		r := a*float64(k) + b - s.Timestamp
		sse += r * r
	}
	sigma := math.Sqrt(sse / (nf - 2))

	if !isFinite(b) || !isFinite(sigma) {
		return TimeTrend{}, false
	}
	return TimeTrend{A: a, B: b, SigmaT: sigma}, true
}

// PredictArrival returns the periodic slot a*round((t-b)/a)+b closest to t.
// ok is false when a is not a usable period.
func PredictArrival(a, b, t float64) (float64, bool) {
	if !isFinite(a) || a < degenerateEpsilon {
		return 0, false
	}
	p := a*math.Round((t-b)/a) + b
	if !isFinite(p) {
		return 0, false
	}
	return p, true
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
