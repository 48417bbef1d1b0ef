package collector

import (
	"errors"
	"math"
	"testing"
	"time"

	"Go2NetModel/internal/clock"
	"Go2NetModel/internal/model"

	bclock "github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink keeps every snapshot it is given.
type recordingSink struct {
	published  []model.Snapshot
	publishErr error
	closeErr   error
	closed     int
}

func (s *recordingSink) Publish(snap model.Snapshot) error {
	if s.publishErr != nil {
		return s.publishErr
	}
	s.published = append(s.published, snap)
	return nil
}

func (s *recordingSink) Close() error {
	s.closed++
	return s.closeErr
}

type failingClock struct{}

func (failingClock) Seconds() (float64, error) {
	return 0, clock.ErrUnavailable
}

const (
	period = time.Second
	size   = 100
)

func newTestCollector(t *testing.T, sink model.Sink) (*Collector, *bclock.Mock) {
	t.Helper()
	mock := bclock.NewMock()
	c, err := New("/chatter", sink, WithClock(clock.NewMonotonic(mock)))
	require.NoError(t, err)
	return c, mock
}

// feed delivers n messages of the given size, one period apart.
func feed(t *testing.T, c *Collector, mock *bclock.Mock, n int, sz uint) {
	t.Helper()
	for i := 0; i < n; i++ {
		mock.Add(period)
		require.NoError(t, c.OnMessage(sz))
	}
}

func TestCollector_WarmupPublishesNothing(t *testing.T) {
	sink := &recordingSink{}
	c, mock := newTestCollector(t, sink)

	feed(t, c, mock, DefaultConfig().Warmup-1, size)

	assert.Empty(t, sink.published)
	assert.Equal(t, Cold, c.State())
	assert.False(t, c.Model().Initialized)
	assert.Equal(t, uint64(9), c.Count())
}

func TestCollector_SteadyStateConvergence(t *testing.T) {
	sink := &recordingSink{}
	c, mock := newTestCollector(t, sink)

	feed(t, c, mock, DefaultConfig().Warmup, size)

	require.Len(t, sink.published, 1)
	snap := sink.published[0]
	assert.Equal(t, "/chatter", snap.ID)
	assert.InDelta(t, period.Seconds(), snap.A, 1e-9)
	assert.InDelta(t, 1.0, snap.B, 1e-9, "b is the first arrival time")
	assert.InDelta(t, 0.0, snap.SigmaT, 1e-9)
	assert.InDelta(t, float64(size), snap.S, 1e-9)
	assert.InDelta(t, 0.0, snap.SigmaS, 1e-9)

	m := c.Model()
	assert.Equal(t, Warm, c.State())
	assert.True(t, m.Initialized)
	assert.InDelta(t, 10.0, m.LastUpdate, 1e-9)
}

func TestCollector_IdenticalSamplesAreIdempotent(t *testing.T) {
	sink := &recordingSink{}
	c, mock := newTestCollector(t, sink)

	feed(t, c, mock, DefaultConfig().Warmup, size)
	require.Len(t, sink.published, 1)
	before := c.Model()

	// t = 11..25, all within the freshness window of the fit at t = 10
	feed(t, c, mock, 15, size)
	assert.Len(t, sink.published, 1)
	assert.Equal(t, before, c.Model())
}

func TestCollector_FreshnessForcesRefit(t *testing.T) {
	sink := &recordingSink{}
	c, mock := newTestCollector(t, sink)

	feed(t, c, mock, DefaultConfig().Warmup, size)
	feed(t, c, mock, 15, size)
	require.Len(t, sink.published, 1)

	// t = 26 is more than 15s after the last fit
	feed(t, c, mock, 1, size)
	require.Len(t, sink.published, 2)
	assert.InDelta(t, 26.0, c.Model().LastUpdate, 1e-9)
}

func TestCollector_FreshnessAfterSilence(t *testing.T) {
	sink := &recordingSink{}
	c, mock := newTestCollector(t, sink)

	feed(t, c, mock, DefaultConfig().Warmup, size)

	mock.Add(20 * time.Second)
	require.NoError(t, c.OnMessage(size))
	require.Len(t, sink.published, 2)
	assert.InDelta(t, 30.0, c.Model().LastUpdate, 1e-9)
}

func TestCollector_SizeOutlier(t *testing.T) {
	sink := &recordingSink{}
	c, mock := newTestCollector(t, sink)

	feed(t, c, mock, DefaultConfig().Warmup, size)
	before := c.Model()

	outlier := uint(before.S + 4*before.SigmaS + 400)
	feed(t, c, mock, 1, outlier)

	require.Len(t, sink.published, 2)
	after := c.Model()
	assert.Equal(t, before.A, after.A, "time model must not move")
	assert.Equal(t, before.B, after.B)
	assert.Equal(t, before.SigmaT, after.SigmaT)
	assert.InDelta(t, (10*float64(size)+float64(outlier))/11, after.S, 1e-9)
	assert.Greater(t, after.SigmaS, 0.0)
	assert.InDelta(t, 11.0, after.LastUpdate, 1e-9)
}

func TestCollector_TimingOutlier(t *testing.T) {
	sink := &recordingSink{}
	c, mock := newTestCollector(t, sink)

	feed(t, c, mock, DefaultConfig().Warmup, size)
	before := c.Model()

	mock.Add(period / 2)
	require.NoError(t, c.OnMessage(size))

	require.Len(t, sink.published, 2)
	after := c.Model()
	assert.Greater(t, after.SigmaT, 0.0)
	assert.Equal(t, before.S, after.S, "size model must not move")
	assert.Equal(t, before.SigmaS, after.SigmaS)
}

func TestCollector_DegenerateWindowNeverPublishesNaN(t *testing.T) {
	sink := &recordingSink{}
	cfg := DefaultConfig()
	cfg.Warmup = 3
	cfg.Capacity = 3
	mock := bclock.NewMock()
	c, err := New("/burst", sink, WithConfig(cfg), WithClock(clock.NewMonotonic(mock)))
	require.NoError(t, err)

	// every message arrives at the same instant, so no period can be fit
	for i := 0; i < 8; i++ {
		require.NoError(t, c.OnMessage(uint(10+i)))
	}

	assert.Empty(t, sink.published)
	assert.Equal(t, Cold, c.State())
	m := c.Model()
	for _, v := range []float64{m.A, m.B, m.SigmaT, m.S, m.SigmaS} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "non-finite value in %+v", m)
	}
}

func TestCollector_BurstInOneTickDoesNotRepublish(t *testing.T) {
	sink := &recordingSink{}
	c, _ := newTestCollector(t, sink)

	for i := 0; i < 30; i++ {
		require.NoError(t, c.OnMessage(size))
	}

	assert.Empty(t, sink.published)
	assert.Equal(t, Cold, c.State())
	assert.Equal(t, uint64(30), c.Count())
}

func TestCollector_BurstAfterConvergenceKeepsModel(t *testing.T) {
	sink := &recordingSink{}
	c, mock := newTestCollector(t, sink)

	feed(t, c, mock, DefaultConfig().Warmup, size)
	require.Len(t, sink.published, 1)
	before := c.Model()

	// the clock does not move: every arrival lands on the last predicted slot
	for i := 0; i < 30; i++ {
		require.NoError(t, c.OnMessage(size))
	}

	assert.Len(t, sink.published, 1)
	assert.Equal(t, before, c.Model())
}

func TestCollector_ClockUnavailable(t *testing.T) {
	sink := &recordingSink{}
	c, err := New("/chatter", sink, WithClock(failingClock{}))
	require.NoError(t, err)

	err = c.OnMessage(size)
	assert.ErrorIs(t, err, ErrClockUnavailable)
	assert.Equal(t, uint64(0), c.Count())
	assert.Empty(t, c.Window())
	assert.Empty(t, sink.published)
}

func TestCollector_PublishFailureKeepsModel(t *testing.T) {
	sink := &recordingSink{publishErr: errors.New("broker down")}
	c, mock := newTestCollector(t, sink)

	feed(t, c, mock, DefaultConfig().Warmup, size)

	assert.True(t, c.Model().Initialized)
	assert.InDelta(t, 1.0, c.Model().A, 1e-9)
	assert.Len(t, c.Window(), 10)
}

func TestCollector_WindowIsBounded(t *testing.T) {
	sink := &recordingSink{}
	c, mock := newTestCollector(t, sink)

	feed(t, c, mock, 150, size)

	window := c.Window()
	assert.Len(t, window, DefaultConfig().Capacity)
	assert.InDelta(t, 51.0, window[0].Timestamp, 1e-9)
	assert.InDelta(t, 150.0, window[len(window)-1].Timestamp, 1e-9)
	assert.Equal(t, uint64(150), c.Count())
}

func TestCollector_Finalize(t *testing.T) {
	sink := &recordingSink{}
	c, mock := newTestCollector(t, sink)
	feed(t, c, mock, 3, size)

	require.NoError(t, c.Finalize())
	assert.Equal(t, 1, sink.closed)

	assert.ErrorIs(t, c.OnMessage(size), ErrFinalized)
	assert.ErrorIs(t, c.Finalize(), ErrTeardownFailed)
	assert.Equal(t, 1, sink.closed)
	assert.Nil(t, c.Window())
}

func TestCollector_FinalizeSinkError(t *testing.T) {
	sink := &recordingSink{closeErr: errors.New("drain timeout")}
	c, _ := newTestCollector(t, sink)

	assert.ErrorIs(t, c.Finalize(), ErrTeardownFailed)
}

func TestNew_InitializationFailed(t *testing.T) {
	_, err := New("", &recordingSink{})
	assert.ErrorIs(t, err, ErrInitializationFailed)

	_, err = New("/chatter", nil)
	assert.ErrorIs(t, err, ErrInitializationFailed)

	cfg := DefaultConfig()
	cfg.Warmup = 1
	_, err = New("/chatter", &recordingSink{}, WithConfig(cfg))
	assert.ErrorIs(t, err, ErrInitializationFailed)
}
