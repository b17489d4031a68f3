package ingest

import (
	"context"
	"time"
)

// FeedSource fetches the full feed of work items.
type FeedSource interface {
	Fetch(ctx context.Context) ([]WorkItem, error)
}

// CacheClient consults the shared cache through the proxy. Check never
// returns an error: read failures degrade to a needs-processing result.
type CacheClient interface {
	Check(ctx context.Context, item WorkItem) CacheCheckResult
	Update(ctx context.Context, item WorkItem, entry CacheEntry) error
	Stats(ctx context.Context) (CacheStats, error)
}

// Extractor runs the external summarizer over one item.
type Extractor interface {
	Extract(ctx context.Context, item WorkItem) (Extraction, error)
}

// Uploader persists a summary and its metadata to blob storage.
type Uploader interface {
	Upload(ctx context.Context, item WorkItem, content []byte, processedAt time.Time) (UploadReceipt, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte, metadata map[string]string) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for artifact integrity metadata.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
