package storage

import "context"

// NoopStore discards every write. Useful for dry runs of the surrounding
// plumbing and for benchmarking extraction without storage costs.
type NoopStore struct{}

// PutObject discards the object and returns a noop:// URI.
func (NoopStore) PutObject(_ context.Context, path string, _ string, _ []byte, _ map[string]string) (string, error) {
	return "noop://" + path, nil
}
