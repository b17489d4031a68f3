package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFullName(t *testing.T) {
	t.Parallel()

	item := WorkItem{Owner: "alphagov", Name: "govuk-frontend"}
	require.Equal(t, "alphagov/govuk-frontend", item.FullName())
}

func TestCacheHitRatePercent(t *testing.T) {
	t.Parallel()

	require.Zero(t, ProcessingStats{}.CacheHitRatePercent())

	stats := ProcessingStats{Total: 20, CacheHits: 18}
	require.InDelta(t, 90.0, stats.CacheHitRatePercent(), 0.001)
}

func TestProcessingErrorMessageIncludesIdentity(t *testing.T) {
	t.Parallel()

	err := &ProcessingError{Item: "gov/repo", Reason: "timeout"}
	require.Contains(t, err.Error(), "gov/repo")
	require.Contains(t, err.Error(), "timeout")
}
