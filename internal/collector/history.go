package collector

import (
	"iter"

	"Go2NetModel/internal/model"
)

// History is a fixed-capacity ring of the most recent samples.
//
// Storage holds capacity+1 slots so that head == tail means empty and
// (tail+1) mod len == head means full. A push into a full ring evicts the
// oldest sample.
type History struct {
	buf  []model.Sample
	head int
	tail int
}

// NewHistory allocates a ring holding at most capacity samples.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]model.Sample, capacity+1)}
}

// Cap returns the maximum number of samples retained.
func (h *History) Cap() int {
	return len(h.buf) - 1
}

// Len returns the current occupancy.
func (h *History) Len() int {
	return (h.tail - h.head + len(h.buf)) % len(h.buf)
}

// Push appends s, dropping the oldest sample when the ring is full.
func (h *History) Push(s model.Sample) {
	next := (h.tail + 1) % len(h.buf)
	if next == h.head {
		h.head = (h.head + 1) % len(h.buf)
	}
	h.buf[h.tail] = s
	h.tail = next
}

// All yields the window oldest first, indexed from 0.
func (h *History) All() iter.Seq2[int, model.Sample] {
	return func(yield func(int, model.Sample) bool) {
		k := 0
		for i := h.head; i != h.tail; i = (i + 1) % len(h.buf) {
			if !yield(k, h.buf[i]) {
				return
			}
			k++
		}
	}
}

// Samples copies the window into a new slice, oldest first.
func (h *History) Samples() []model.Sample {
	out := make([]model.Sample, 0, h.Len())
	for _, s := range h.All() {
		out = append(out, s)
	}
	return out
}
