package model

import "time"

// Writer defines a generic interface for exporting the current set of models.
type Writer interface {
	// Write persists models under the given snapshot timestamp.
	Write(models []Snapshot, timestamp string) error

	// GetInterval returns the configured snapshot interval for this writer.
	GetInterval() time.Duration
}
