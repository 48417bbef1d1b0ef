package collector

import (
	"math"

	"Go2NetModel/internal/model"
)

// State is the lifecycle state of a collector's model.
type State int

const (
	// Cold means no model has been accepted yet.
	Cold State = iota
	// Warm means a model exists and is maintained lazily.
	Warm
)

func (s State) String() string {
	switch s {
	case Cold:
		return "COLD"
	case Warm:
		return "WARM"
	default:
		return "UNKNOWN"
	}
}

// Decision says which estimators must be recomputed for a new sample.
type Decision struct {
	Forced bool
	Time   bool
	Size   bool
}

// Any reports whether at least one estimator must run.
func (d Decision) Any() bool {
	return d.Time || d.Size
}

// Policy gates recomputation. A model is refit when it is missing or older
// than the freshness window; otherwise each half is refit only when the new
// sample falls outside SigmaThreshold standard deviations of its prediction.
type Policy struct {
	warmup         int
	freshness      float64
	sigmaThreshold float64
	timeTolerance  float64
	sizeTolerance  float64
}

// NewPolicy builds a policy from cfg.
func NewPolicy(cfg Config) Policy {
	return Policy{
		warmup:         cfg.Warmup,
		freshness:      cfg.FreshnessWindow.Seconds(),
		sigmaThreshold: cfg.SigmaThreshold,
		timeTolerance:  cfg.TimeTolerance,
		sizeTolerance:  cfg.SizeTolerance,
	}
}

// StateOf returns the lifecycle state of m.
func (p Policy) StateOf(m model.TrafficModel) State {
	if m.Initialized {
		return Warm
	}
	return Cold
}

// Decide evaluates sample s, already pushed into a window of occupancy n,
// against the current model m.
func (p Policy) Decide(m model.TrafficModel, n int, s model.Sample) Decision {
	if n < p.warmup {
		return Decision{}
	}
	if !m.Initialized || s.Timestamp-m.LastUpdate > p.freshness {
		return Decision{Forced: true, Time: true, Size: true}
	}

	var d Decision
	if predicted, ok := PredictArrival(m.A, m.B, s.Timestamp); ok {
		d.Time = exceeds(math.Abs(s.Timestamp-predicted), p.sigmaThreshold*m.SigmaT, p.timeTolerance)
	} else {
		// no usable period; the time model has to be rebuilt
		d.Time = true
	}
	d.Size = exceeds(math.Abs(s.Size-m.S), p.sigmaThreshold*m.SigmaS, p.sizeTolerance)
	return d
}

func exceeds(deviation, limit, tolerance float64) bool {
	return deviation > limit && deviation > tolerance
}
