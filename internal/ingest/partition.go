package ingest

import "fmt"

// ValidateBatch checks the batch-size/offset pair. Offsets must land inside
// the batch range or two processes would either overlap or leave items
// unassigned. Called at flag parsing, before any network activity.
func ValidateBatch(batchSize, offset int) error {
	if batchSize < 1 {
		return &ValidationError{
			Field:  "batch-size",
			Reason: fmt.Sprintf("must be >= 1, got %d", batchSize),
		}
	}
	if offset < 0 || offset >= batchSize {
		return &ValidationError{
			Field:  "offset",
			Reason: fmt.Sprintf("must be in [0, %d), got %d", batchSize, offset),
		}
	}
	return nil
}

// Partition selects this process's shard of the feed: items whose index
// modulo batchSize equals offset, in feed order. The shards for offsets
// 0..batchSize-1 are disjoint and together cover the whole feed, assuming
// every process saw the same feed ordering.
func Partition(items []WorkItem, batchSize, offset int) ([]WorkItem, error) {
	if err := ValidateBatch(batchSize, offset); err != nil {
		return nil, err
	}
	shard := make([]WorkItem, 0, (len(items)+batchSize-1)/batchSize)
	for i, item := range items {
		if i%batchSize == offset {
			shard = append(shard, item)
		}
	}
	return shard, nil
}
