package collector

import (
	"fmt"
	"time"
)

// Config holds the estimator parameters for one collector.
type Config struct {
	// Capacity is the number of samples kept in the sliding window.
	Capacity int

	// Warmup is the window occupancy required before the first fit.
	Warmup int

	// FreshnessWindow is the longest time a model may go without a refit.
	FreshnessWindow time.Duration

	// SigmaThreshold is the outlier multiplier for both models.
	SigmaThreshold float64

	// TimeTolerance is the smallest arrival deviation, in seconds, that can
	// trigger a refit. It absorbs float rounding when SigmaT is ~0.
	TimeTolerance float64

	// SizeTolerance is the smallest size deviation, in bytes, that can trigger a refit.
	SizeTolerance float64
}

// DefaultConfig returns the default estimator configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:        100,
		Warmup:          10,
		FreshnessWindow: 15 * time.Second,
		SigmaThreshold:  3.0,
		TimeTolerance:   1e-6,
		SizeTolerance:   1e-6,
	}
}

// Validate reports whether c can drive an estimator.
func (c Config) Validate() error {
	if c.Warmup < 3 {
		return fmt.Errorf("warmup must be at least 3, got %d", c.Warmup)
	}
	if c.Capacity < c.Warmup {
		return fmt.Errorf("capacity %d is smaller than warmup %d", c.Capacity, c.Warmup)
	}
	if c.FreshnessWindow <= 0 {
		return fmt.Errorf("freshness window must be positive, got %s", c.FreshnessWindow)
	}
	if c.SigmaThreshold <= 0 {
		return fmt.Errorf("sigma threshold must be positive, got %g", c.SigmaThreshold)
	}
	if c.TimeTolerance < 0 || c.SizeTolerance < 0 {
		return fmt.Errorf("tolerances must not be negative")
	}
	return nil
}
