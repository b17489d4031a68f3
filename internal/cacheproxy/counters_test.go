package cacheproxy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounters_ZeroState(t *testing.T) {
	t.Parallel()

	c := &Counters{}
	stats := c.Snapshot()

	require.Zero(t, stats.TotalChecks)
	require.Zero(t, stats.Hits)
	require.Zero(t, stats.Misses)
	require.Zero(t, stats.HitRate)
}

func TestCounters_HitRatePercentage(t *testing.T) {
	t.Parallel()

	c := &Counters{}
	for i := 0; i < 18; i++ {
		c.RecordHit()
	}
	c.RecordMiss()
	c.RecordMiss()

	stats := c.Snapshot()
	require.Equal(t, int64(20), stats.TotalChecks)
	require.Equal(t, int64(18), stats.Hits)
	require.Equal(t, int64(2), stats.Misses)
	require.InDelta(t, 90.0, stats.HitRate, 0.0001)
}

func TestCounters_ConcurrentRecording(t *testing.T) {
	t.Parallel()

	c := &Counters{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.RecordHit()
		}()
		go func() {
			defer wg.Done()
			c.RecordMiss()
		}()
	}
	wg.Wait()

	stats := c.Snapshot()
	require.Equal(t, int64(100), stats.TotalChecks)
	require.Equal(t, int64(50), stats.Hits)
	require.Equal(t, int64(50), stats.Misses)
	require.Equal(t, stats.TotalChecks, stats.Hits+stats.Misses)
}
