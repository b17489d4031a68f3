package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/govreposcrape/ingestor/internal/ingest"
)

// NewSnapshot captures where a drained run stopped. lastProcessedIndex is
// the batch-relative index of the last completed item, -1 when none
// completed.
func NewSnapshot(lastProcessedIndex int, stats ingest.ProcessingStats, batchSize, offset int, now time.Time) ingest.Snapshot {
	return ingest.Snapshot{
		LastProcessedIndex: lastProcessedIndex,
		Stats:              stats,
		BatchSize:          batchSize,
		Offset:             offset,
		Timestamp:          now.UTC(),
	}
}

// WriteSnapshot persists snap as indented JSON at path, creating parent
// directories as needed.
func WriteSnapshot(path string, snap ingest.Snapshot) error {
	if path == "" {
		return fmt.Errorf("snapshot path is required")
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
