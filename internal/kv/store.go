// Package kv defines the key-value binding owned by the cache proxy, with
// Redis, Postgres, and in-memory backends. Values are opaque bytes; key
// layout is the caller's concern.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kv: key not found")

// Store is the minimal binding the proxy needs: point reads and
// last-write-wins upserts.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}
