// Package clock provides the monotonic time sources collectors read arrival
// timestamps from.
package clock

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrUnavailable is returned when a source cannot produce a timestamp.
var ErrUnavailable = errors.New("time source unavailable")

// Source yields monotonic timestamps in seconds.
type Source interface {
	Seconds() (float64, error)
}

// Monotonic reports seconds elapsed since the source was created.
// It is safe for concurrent use and may be shared between collectors.
type Monotonic struct {
	clk   clock.Clock
	start time.Time
}

// NewMonotonic creates a source backed by clk. A nil clk uses the wall clock.
func NewMonotonic(clk clock.Clock) *Monotonic {
	if clk == nil {
		clk = clock.New()
	}
	return &Monotonic{clk: clk, start: clk.Now()}
}

// Seconds returns the elapsed time since construction. A reading earlier than
// the start instant means the underlying clock stepped backwards.
func (m *Monotonic) Seconds() (float64, error) {
	if m == nil || m.clk == nil {
		return 0, ErrUnavailable
	}
	d := m.clk.Since(m.start)
	if d < 0 {
		return 0, ErrUnavailable
	}
	return d.Seconds(), nil
}

// Replay is a source driven by recorded timestamps, e.g. packet capture times.
// The first timestamp set becomes time zero.
type Replay struct {
	mu    sync.Mutex
	epoch time.Time
	now   time.Time
	set   bool
}

// NewReplay creates an unset replay source.
func NewReplay() *Replay {
	return &Replay{}
}

// Set moves the replay clock to t.
func (r *Replay) Set(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.set {
		r.epoch = t
		r.set = true
	}
	r.now = t
}

// Seconds returns the offset of the current timestamp from the first one.
// It fails until Set has been called, or if the recording went backwards
// past its first timestamp.
func (r *Replay) Seconds() (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.set || r.now.Before(r.epoch) {
		return 0, ErrUnavailable
	}
	return r.now.Sub(r.epoch).Seconds(), nil
}
