package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "item:gov/repo")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "item:gov/repo", []byte(`{"status":"complete"}`)))

	got, err := store.Get(ctx, "item:gov/repo")
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"complete"}`, string(got))

	require.NoError(t, store.Close())
}

func TestMemoryStoreLastWriteWins(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "item:gov/repo", []byte("first")))
	require.NoError(t, store.Put(ctx, "item:gov/repo", []byte("second")))

	got, err := store.Get(ctx, "item:gov/repo")
	require.NoError(t, err)
	require.Equal(t, "second", string(got))
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	value := []byte("original")
	require.NoError(t, store.Put(ctx, "k", value))
	value[0] = 'X'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "original", string(got))
}
