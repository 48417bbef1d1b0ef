// Package collector implements the per-endpoint online traffic estimator.
//
// A Collector watches the arrivals on one endpoint, keeps a sliding window of
// (timestamp, size) samples and maintains a TrafficModel: a linear fit of
// arrival time against arrival index and the mean/std of payload size. The
// model is refit lazily, only when it is stale or a sample deviates by more
// than SigmaThreshold standard deviations, and every accepted fit is handed to
// the configured Sink.
//
// A Collector does no locking. Calls to OnMessage and Finalize on one instance
// must be serialized by the caller; distinct instances share nothing.
package collector

import (
	"fmt"

	"Go2NetModel/internal/clock"
	"Go2NetModel/internal/metrics"
	"Go2NetModel/internal/model"

	log "github.com/sirupsen/logrus"
)

// Collector is the estimator attached to a single endpoint.
type Collector struct {
	topic   string
	cfg     Config
	policy  Policy
	clock   clock.Source
	sink    model.Sink
	metrics *metrics.Recorder
	logger  *log.Entry

	history *History
	model   model.TrafficModel
	total   uint64
}

// New constructs a collector for topic publishing to sink.
func New(topic string, sink model.Sink, opts ...Option) (*Collector, error) {
	c := &Collector{
		topic: topic,
		cfg:   DefaultConfig(),
		sink:  sink,
	}
	for _, opt := range opts {
		opt(c)
	}

	if topic == "" {
		return nil, fmt.Errorf("%w: empty topic", ErrInitializationFailed)
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: no sink for %s", ErrInitializationFailed, topic)
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitializationFailed, err)
	}
	if c.clock == nil {
		c.clock = clock.NewMonotonic(nil)
	}

	c.policy = NewPolicy(c.cfg)
	c.history = NewHistory(c.cfg.Capacity)
	c.logger = log.WithField("topic", topic)
	c.logger.Debugf("Collector created (capacity=%d, warmup=%d)", c.cfg.Capacity, c.cfg.Warmup)
	return c, nil
}

// Topic returns the endpoint identifier.
func (c *Collector) Topic() string {
	return c.topic
}

// Model returns a copy of the current model.
func (c *Collector) Model() model.TrafficModel {
	return c.model
}

// State returns COLD until the first accepted fit, WARM afterwards.
func (c *Collector) State() State {
	return c.policy.StateOf(c.model)
}

// Count returns the total number of messages recorded.
func (c *Collector) Count() uint64 {
	return c.total
}

// Window returns a copy of the samples currently in the window.
func (c *Collector) Window() []model.Sample {
	if c.history == nil {
		return nil
	}
	return c.history.Samples()
}

// OnMessage records an arrival of size bytes and refits the model if the
// update policy asks for it.
//
// If the clock cannot be read the sample is dropped and ErrClockUnavailable
// is returned with the collector unchanged. Sink failures are logged and do
// not roll back the model.
func (c *Collector) OnMessage(size uint) error {
	if c.history == nil {
		return ErrFinalized
	}

	now, err := c.clock.Seconds()
	if err != nil {
		c.metrics.ClockError(c.topic)
		return fmt.Errorf("%w: %v", ErrClockUnavailable, err)
	}

	sample := model.Sample{Timestamp: now, Size: float64(size)}
	c.history.Push(sample)
	c.total++
	c.metrics.Message(c.topic)

	d := c.policy.Decide(c.model, c.history.Len(), sample)
	if !d.Any() {
		return nil
	}

	next := c.model
	var timeOK, sizeOK bool
	if d.Time {
		if trend, ok := FitTimeTrend(c.history); ok {
			next.A, next.B, next.SigmaT = trend.A, trend.B, trend.SigmaT
			timeOK = true
		} else {
			c.logger.Debugf("Time model undefined over %d samples, keeping previous fit", c.history.Len())
		}
	}
	if d.Size {
		if dist, ok := FitSizeDistribution(c.history); ok {
			next.S, next.SigmaS = dist.S, dist.SigmaS
			sizeOK = true
		} else {
			c.logger.Debugf("Size model undefined over %d samples, keeping previous fit", c.history.Len())
		}
	}

	// the first model must be complete; afterwards each half stands alone
	accepted := timeOK || sizeOK
	if !c.model.Initialized {
		accepted = timeOK && sizeOK
	}
	if !accepted {
		return nil
	}

	if timeOK {
		c.metrics.Recompute(c.topic, "time")
	}
	if sizeOK {
		c.metrics.Recompute(c.topic, "size")
	}
	if !c.model.Initialized {
		c.logger.Infof("Model initialized after %d messages", c.total)
	}
	next.Initialized = true
	next.LastUpdate = now
	c.model = next

	c.publish(d)
	return nil
}

func (c *Collector) publish(d Decision) {
	snapshot := c.model.Snapshot(c.topic)
	if err := c.sink.Publish(snapshot); err != nil {
		c.metrics.PublishFailed(c.topic)
		c.logger.Warnf("Failed to publish traffic model: %v", err)
		return
	}
	c.metrics.Published(snapshot)
	c.logger.WithFields(log.Fields{
		"forced": d.Forced,
		"time":   d.Time,
		"size":   d.Size,
	}).Debugf("Published model a=%.6f b=%.6f sigma_t=%.6f s=%.2f sigma_s=%.2f",
		snapshot.A, snapshot.B, snapshot.SigmaT, snapshot.S, snapshot.SigmaS)
}

// Finalize releases the window and the sink. It may be called once; the
// collector is unusable afterwards.
func (c *Collector) Finalize() error {
	if c.history == nil {
		return fmt.Errorf("%w: %s already finalized", ErrTeardownFailed, c.topic)
	}
	c.history = nil

	err := c.sink.Close()
	c.sink = nil
	if err != nil {
		return fmt.Errorf("%w: closing sink for %s: %v", ErrTeardownFailed, c.topic, err)
	}
	c.logger.Debugf("Collector finalized after %d messages", c.total)
	return nil
}
