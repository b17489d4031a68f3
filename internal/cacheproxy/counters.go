package cacheproxy

import (
	"sync/atomic"

	"github.com/govreposcrape/ingestor/internal/ingest"
)

// Counters aggregates cache check outcomes across every caller of this proxy
// instance. Hits plus misses always equals total checks.
type Counters struct {
	totalChecks atomic.Int64
	hits        atomic.Int64
	misses      atomic.Int64
}

// RecordHit counts a check answered by a current cache entry.
func (c *Counters) RecordHit() {
	c.totalChecks.Add(1)
	c.hits.Add(1)
}

// RecordMiss counts a check that found no usable entry, whether the entry
// was absent or stale.
func (c *Counters) RecordMiss() {
	c.totalChecks.Add(1)
	c.misses.Add(1)
}

// Snapshot returns the current aggregate statistics. HitRate is a percentage
// and zero before the first check.
func (c *Counters) Snapshot() ingest.CacheStats {
	stats := ingest.CacheStats{
		TotalChecks: c.totalChecks.Load(),
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
	}
	if stats.TotalChecks > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.TotalChecks) * 100
	}
	return stats
}
