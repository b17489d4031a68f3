package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/govreposcrape/ingestor/internal/ingest"
)

func TestNewSnapshot(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.FixedZone("CET", 3600))
	stats := ingest.ProcessingStats{Total: 10, CacheHits: 4, Processed: 3, Failed: 1}

	snap := NewSnapshot(6, stats, 4, 2, now)

	require.Equal(t, 6, snap.LastProcessedIndex)
	require.Equal(t, stats, snap.Stats)
	require.Equal(t, 4, snap.BatchSize)
	require.Equal(t, 2, snap.Offset)
	require.Equal(t, time.UTC, snap.Timestamp.Location())
	require.Equal(t, "2026-02-03T03:05:06Z", snap.Timestamp.Format(time.RFC3339))
}

func TestWriteSnapshot_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "snap.json")
	snap := NewSnapshot(17, ingest.ProcessingStats{Total: 40, Processed: 18}, 4, 1, time.Unix(1700000000, 0))

	require.NoError(t, WriteSnapshot(path, snap))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got ingest.Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, 17, got.LastProcessedIndex)
	require.Equal(t, 40, got.Stats.Total)
	require.Equal(t, 4, got.BatchSize)
	require.Equal(t, 1, got.Offset)
	require.True(t, snap.Timestamp.Equal(got.Timestamp))
}

func TestWriteSnapshot_EmptyPath(t *testing.T) {
	t.Parallel()

	err := WriteSnapshot("", NewSnapshot(-1, ingest.ProcessingStats{}, 1, 0, time.Now()))
	require.Error(t, err)
}
