package collector

import "math"

// SizeDistribution is the sample mean and standard deviation of payload size.
type SizeDistribution struct {
	S      float64
	SigmaS float64
}

// FitSizeDistribution computes mean and sample standard deviation in one pass.
// A variance that comes out marginally negative from cancellation is clamped
// to zero.
func FitSizeDistribution(h *History) (SizeDistribution, bool) {
	n := h.Len()
	if n < 2 {
		return SizeDistribution{}, false
	}

	var sum, sum2 float64
	for _, s := range h.All() {
		sum += s.Size
		sum2 += s.Size * s.Size
	}

	nf := float64(n)
	variance := (nf*sum2 - sum*sum) / (nf * (nf - 1))
	if variance < 0 {
		variance = 0
	}
	d := SizeDistribution{S: sum / nf, SigmaS: math.Sqrt(variance)}
	if !isFinite(d.S) || !isFinite(d.SigmaS) {
		return SizeDistribution{}, false
	}
	return d, true
}
