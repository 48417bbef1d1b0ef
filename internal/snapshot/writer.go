// Package snapshot exports the current set of traffic models to disk.
package snapshot

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"Go2NetModel/internal/config"
	"Go2NetModel/internal/model"
)

const (
	modelsFile  = "models.dat"
	summaryFile = "summary.json"
)

// SummaryData holds the metadata for a snapshot.
type SummaryData struct {
	TotalModels int      `json:"total_models"`
	Topics      []string `json:"topics"`
	Timestamp   string   `json:"timestamp"`
}

// Writer handles writing snapshot data to disk. Snapshots are an export
// only; nothing reads them back into a running estimator.
type Writer struct {
	rootPath string
	interval time.Duration
}

var _ model.Writer = (*Writer)(nil)

// NewWriter creates a new snapshot writer.
func NewWriter(cfg config.SnapshotConfig) (*Writer, error) {
	interval, err := time.ParseDuration(cfg.Interval)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot interval: %w", err)
	}
	return &Writer{rootPath: cfg.RootPath, interval: interval}, nil
}

// GetInterval returns the snapshot interval.
func (w *Writer) GetInterval() time.Duration {
	return w.interval
}

// Write serializes models into a timestamped directory under the root path.
// An empty model set writes nothing.
func (w *Writer) Write(models []model.Snapshot, timestamp string) error {
	if len(models) == 0 {
		return nil
	}

	snapshotDir := filepath.Join(w.rootPath, timestamp)
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	sorted := make([]model.Snapshot, len(models))
	copy(sorted, models)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	dataPath := filepath.Join(snapshotDir, modelsFile)
	file, err := os.Create(dataPath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", dataPath, err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(sorted); err != nil {
		return fmt.Errorf("failed to encode models to gob for file '%s': %w", dataPath, err)
	}

	topics := make([]string, len(sorted))
	for i, m := range sorted {
		topics[i] = m.ID
	}
	summary := SummaryData{
		TotalModels: len(sorted),
		Topics:      topics,
		Timestamp:   timestamp,
	}

	summaryPath := filepath.Join(snapshotDir, summaryFile)
	out, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return nil
}
