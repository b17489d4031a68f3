package ingest

import "fmt"

// ValidationError reports bad CLI flags or configuration. It is fatal and
// raised before any network activity.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FeedFetchError reports that the feed could not be fetched after the retry
// schedule was exhausted. It is fatal: without the feed there is no work.
type FeedFetchError struct {
	URL string
	Err error
}

func (e *FeedFetchError) Error() string {
	return fmt.Sprintf("fetch feed %s: %v", e.URL, e.Err)
}

func (e *FeedFetchError) Unwrap() error { return e.Err }

// CacheReadError reports a failed cache check. It never propagates: the
// client converts it to a needs-processing result and logs it.
type CacheReadError struct {
	Item string
	Err  error
}

func (e *CacheReadError) Error() string {
	return fmt.Sprintf("cache check %s: %v", e.Item, e.Err)
}

func (e *CacheReadError) Unwrap() error { return e.Err }

// CacheWriteError reports a failed cache update after retries. Callers log
// and swallow it; a stale cache entry only costs a redundant future run.
type CacheWriteError struct {
	Item string
	Err  error
}

func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("cache update %s: %v", e.Item, e.Err)
}

func (e *CacheWriteError) Unwrap() error { return e.Err }

// ProcessingError reports a failed extraction for one item. The orchestrator
// records it and moves on; it never aborts the run.
type ProcessingError struct {
	Item   string
	Reason string
	Err    error
}

func (e *ProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("process %s: %s: %v", e.Item, e.Reason, e.Err)
	}
	return fmt.Sprintf("process %s: %s", e.Item, e.Reason)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// UploadError reports a failed blob write after retries. Per-item, not fatal.
type UploadError struct {
	Item string
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s to %s: %v", e.Item, e.Path, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
