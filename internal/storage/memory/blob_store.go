// Package memory stores blob content in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Object is one stored blob with everything the caller attached to it.
type Object struct {
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// BlobStore stores objects in-memory and returns pseudo URIs.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// NewBlobStore creates an empty in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{objects: make(map[string]Object)}
}

// PutObject records the object and returns a memory:// URI.
func (s *BlobStore) PutObject(_ context.Context, path string, contentType string, data []byte, metadata map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj := Object{
		Data:        append([]byte(nil), data...),
		ContentType: contentType,
	}
	if metadata != nil {
		obj.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			obj.Metadata[k] = v
		}
	}
	s.objects[path] = obj
	return fmt.Sprintf("memory://%s", path), nil
}

// Object returns the stored object for path, if any.
func (s *BlobStore) Object(path string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	return obj, ok
}

// Len reports how many objects have been stored.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
