// Package local_test tests the local filesystem blob store.
package local_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govreposcrape/ingestor/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		tempDir := t.TempDir()
		cfg := local.Config{BaseDir: tempDir}
		store, err := local.New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		cfg := local.Config{}
		_, err := local.New(cfg)
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		tempFile, err := os.CreateTemp("", "testfile")
		require.NoError(t, err)
		t.Cleanup(func() {
			removeErr := os.Remove(tempFile.Name())
			if removeErr != nil && !os.IsNotExist(removeErr) {
				t.Fatalf("failed to remove temp file: %v", removeErr)
			}
		})

		cfg := local.Config{BaseDir: tempFile.Name()}
		_, err = local.New(cfg)
		assert.Error(t, err)
	})

	t.Run("BaseDirNotWritable", func(t *testing.T) {
		tempDir := t.TempDir()
		// #nosec G302 -- directory permissions adjusted intentionally for test coverage.
		err := os.Chmod(tempDir, 0o500)
		require.NoError(t, err)

		cfg := local.Config{BaseDir: tempDir}
		_, err = local.New(cfg)
		assert.Error(t, err)

		// Change back to writable so cleanup can happen.
		// #nosec G302 -- reverting permissions to allow cleanup in the test environment.
		err = os.Chmod(tempDir, 0o700)
		require.NoError(t, err)
	})
}

func TestPutObject(t *testing.T) {
	tempDir := t.TempDir()
	cfg := local.Config{BaseDir: tempDir}
	store, err := local.New(cfg)
	require.NoError(t, err)

	t.Run("ValidPut", func(t *testing.T) {
		path := "alphagov/frontend/summary.md"
		data := []byte("# frontend\n\nhello")
		uri, err := store.PutObject(context.Background(), path, "text/markdown", data, nil)
		require.NoError(t, err)

		expectedURI := "file://" + filepath.Join(tempDir, path)
		assert.Equal(t, expectedURI, uri)

		// #nosec G304 -- test reads from the controlled temp directory.
		readData, err := os.ReadFile(filepath.Join(tempDir, path))
		require.NoError(t, err)
		assert.Equal(t, data, readData)
	})

	t.Run("MetadataSidecar", func(t *testing.T) {
		path := "alphagov/smart-answers/summary.md"
		metadata := map[string]string{
			"owner":    "alphagov",
			"name":     "smart-answers",
			"pushedAt": "2026-01-02T03:04:05Z",
		}
		_, err := store.PutObject(context.Background(), path, "text/markdown", []byte("body"), metadata)
		require.NoError(t, err)

		// #nosec G304 -- test reads from the controlled temp directory.
		raw, err := os.ReadFile(filepath.Join(tempDir, path) + ".meta.json")
		require.NoError(t, err)

		var stored map[string]string
		require.NoError(t, json.Unmarshal(raw, &stored))
		assert.Equal(t, metadata, stored)
	})

	t.Run("NoMetadataNoSidecar", func(t *testing.T) {
		path := "alphagov/plain/summary.md"
		_, err := store.PutObject(context.Background(), path, "text/markdown", []byte("body"), nil)
		require.NoError(t, err)

		_, err = os.Stat(filepath.Join(tempDir, path) + ".meta.json")
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "", "text/markdown", []byte("data"), nil)
		assert.Error(t, err)
	})

	t.Run("PathTraversal", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "../escape.md", "text/markdown", []byte("data"), nil)
		assert.Error(t, err)
	})
}
