package collector

import (
	"Go2NetModel/internal/clock"
	"Go2NetModel/internal/metrics"
)

// Option customizes a Collector at construction.
type Option func(*Collector)

// WithConfig sets the estimator parameters.
func WithConfig(cfg Config) Option {
	return func(c *Collector) {
		c.cfg = cfg
	}
}

// WithClock sets the time source. The default is a wall-clock Monotonic.
func WithClock(src clock.Source) Option {
	return func(c *Collector) {
		c.clock = src
	}
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Collector) {
		c.metrics = r
	}
}
