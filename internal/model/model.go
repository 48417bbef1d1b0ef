package model

// Sample is a single observed arrival on an endpoint.
type Sample struct {
	Timestamp float64 // seconds on the collector's monotonic clock
	Size      float64 // payload bytes
}

// TrafficModel is the fitted description of an endpoint's traffic.
//
// Arrival k of the current window is expected at A*k + B, with residual
// standard deviation SigmaT. Payload sizes have mean S and standard
// deviation SigmaS.
type TrafficModel struct {
	A      float64
	B      float64
	SigmaT float64

	S      float64
	SigmaS float64

	Initialized bool
	LastUpdate  float64 // timestamp of the most recent accepted fit
}

// Snapshot is the immutable record handed to a Sink whenever a model is republished.
type Snapshot struct {
	ID     string  `json:"id"`
	A      float64 `json:"a"`
	B      float64 `json:"b"`
	SigmaT float64 `json:"sigma_t"`
	S      float64 `json:"s"`
	SigmaS float64 `json:"sigma_s"`
}

// Snapshot returns the publishable view of m for the given endpoint id.
func (m TrafficModel) Snapshot(id string) Snapshot {
	return Snapshot{
		ID:     id,
		A:      m.A,
		B:      m.B,
		SigmaT: m.SigmaT,
		S:      m.S,
		SigmaS: m.SigmaS,
	}
}
