package ingest

import "time"

// WorkItem is one entry from the feed: a source repository to summarize.
// Identity is the (Owner, Name) pair; PushedAt is an opaque ISO-8601
// timestamp compared by string equality against the cached value.
type WorkItem struct {
	URL      string `json:"url"`
	Owner    string `json:"owner"`
	Name     string `json:"name"`
	PushedAt string `json:"pushedAt"`
}

// FullName returns the canonical "owner/name" identity used in cache keys,
// blob paths, and log fields.
func (w WorkItem) FullName() string {
	return w.Owner + "/" + w.Name
}

// CacheEntry is the value stored per item in the shared cache.
type CacheEntry struct {
	PushedAt    string `json:"pushedAt"`
	ProcessedAt string `json:"processedAt"`
	Status      string `json:"status"`
}

// StatusComplete marks an entry written after a successful upload.
const StatusComplete = "complete"

// CheckReason explains a cache check outcome.
type CheckReason string

// Check reasons returned by the cache proxy (and synthesized by the client
// when the proxy cannot be reached).
const (
	ReasonNoEntry   CheckReason = "no-entry"
	ReasonStale     CheckReason = "stale"
	ReasonHit       CheckReason = "hit"
	ReasonReadError CheckReason = "read-error"
)

// CacheCheckResult is the proxy's answer to "does this item need work?".
// CachedEntry is populated for hit and stale outcomes.
type CacheCheckResult struct {
	NeedsProcessing bool        `json:"needsProcessing"`
	Reason          CheckReason `json:"reason"`
	CachedEntry     *CacheEntry `json:"cachedEntry,omitempty"`
}

// CacheStats is the proxy-side aggregate view exposed at /cache/stats.
// Counters span every caller of the proxy instance, not just this process.
type CacheStats struct {
	TotalChecks int64   `json:"totalChecks"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRate     float64 `json:"hitRate"`
}

// ProcessingStats accumulates per-run counters. It is a plain value owned
// by the orchestrator and returned in the run report; nothing global.
type ProcessingStats struct {
	Total         int   `json:"total"`
	CacheHits     int   `json:"cacheHits"`
	CacheMisses   int   `json:"cacheMisses"`
	Processed     int   `json:"processed"`
	Failed        int   `json:"failed"`
	UploadedBytes int64 `json:"uploadedBytes"`
}

// CacheHitRatePercent returns cache hits as a percentage of items examined,
// 0 when nothing has been examined yet.
func (s ProcessingStats) CacheHitRatePercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(s.Total) * 100
}

// Snapshot is written on graceful shutdown so an operator can see how far a
// drained run got. It is post-mortem data only; runs never resume from it.
type Snapshot struct {
	LastProcessedIndex int             `json:"lastProcessedIndex"`
	Stats              ProcessingStats `json:"stats"`
	BatchSize          int             `json:"batchSize"`
	Offset             int             `json:"offset"`
	Timestamp          time.Time       `json:"timestamp"`
}

// RunReport is the final summary returned by the orchestrator.
type RunReport struct {
	Total        int             `json:"total"`
	Cached       int             `json:"cached"`
	Processed    int             `json:"processed"`
	Failed       int             `json:"failed"`
	CacheHitRate float64         `json:"cacheHitRate"`
	Elapsed      time.Duration   `json:"-"`
	Drained      bool            `json:"drained"`
	Stats        ProcessingStats `json:"stats"`
}

// Extraction is the result of running the summarizer over one item.
type Extraction struct {
	Content  []byte
	Duration time.Duration
}

// UploadReceipt describes a completed blob write.
type UploadReceipt struct {
	URI   string
	Bytes int64
}

// IndexEvent is published after a successful upload so the downstream
// search indexer can pick the new summary up.
type IndexEvent struct {
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	URI         string `json:"uri"`
	PushedAt    string `json:"pushedAt"`
	ProcessedAt string `json:"processedAt"`
	Size        int64  `json:"size"`
}
