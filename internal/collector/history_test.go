package collector

import (
	"testing"

	"Go2NetModel/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestHistory_KeepsMostRecent(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		pushed   int
	}{
		{"empty", 5, 0},
		{"partial", 5, 3},
		{"exactly full", 5, 5},
		{"wrapped once", 5, 7},
		{"wrapped many times", 5, 23},
		{"capacity one", 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHistory(tt.capacity)
			for i := 0; i < tt.pushed; i++ {
				h.Push(model.Sample{Timestamp: float64(i), Size: float64(i * 10)})
			}

			want := min(tt.pushed, tt.capacity)
			assert.Equal(t, want, h.Len())
			assert.Equal(t, tt.capacity, h.Cap())

			samples := h.Samples()
			assert.Len(t, samples, want)
			first := tt.pushed - want
			for k, s := range samples {
				assert.Equal(t, float64(first+k), s.Timestamp, "sample %d out of order", k)
				assert.Equal(t, float64((first+k)*10), s.Size)
			}
		})
	}
}

func TestHistory_AllIsRestartable(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 4; i++ {
		h.Push(model.Sample{Timestamp: float64(i)})
	}

	var first, second []int
	for k := range h.All() {
		first = append(first, k)
	}
	for k := range h.All() {
		second = append(second, k)
	}
	assert.Equal(t, []int{0, 1, 2}, first)
	assert.Equal(t, first, second)
}

func TestHistory_AllStopsEarly(t *testing.T) {
	h := NewHistory(10)
	for i := 0; i < 10; i++ {
		h.Push(model.Sample{Timestamp: float64(i)})
	}

	seen := 0
	for k := range h.All() {
		seen++
		if k == 2 {
			break
		}
	}
	assert.Equal(t, 3, seen)
}
