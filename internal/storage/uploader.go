// Package storage assembles summary uploads on top of pluggable blob store
// backends (Google Cloud Storage, the local filesystem, or memory).
package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/govreposcrape/ingestor/internal/ingest"
	"github.com/govreposcrape/ingestor/internal/retry"
)

// summaryFile is the artifact name under each item's object path.
const summaryFile = "summary.md"

// Config shapes object keys and content headers for summary uploads.
type Config struct {
	Prefix      string
	ContentType string
}

// Uploader writes summaries through a blob store with retries and attaches
// provenance metadata to each object. It implements ingest.Uploader.
type Uploader struct {
	cfg     Config
	store   ingest.BlobStore
	hasher  ingest.Hasher
	sched   retry.Schedule
	sleeper retry.Sleeper
	logger  *zap.Logger
}

// NewUploader constructs an Uploader over the given store. The hasher is
// optional; without one no content digest is attached.
func NewUploader(cfg Config, store ingest.BlobStore, hasher ingest.Hasher, logger *zap.Logger) *Uploader {
	if cfg.ContentType == "" {
		cfg.ContentType = "text/markdown; charset=utf-8"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{
		cfg:    cfg,
		store:  store,
		hasher: hasher,
		sched:  retry.DefaultSchedule(),
		logger: logger,
	}
}

// Upload writes content under {prefix}/{owner}/{name}/summary.md, retrying
// transient store failures. Exhaustion comes back as *ingest.UploadError.
func (u *Uploader) Upload(ctx context.Context, item ingest.WorkItem, content []byte, processedAt time.Time) (ingest.UploadReceipt, error) {
	path := u.objectPath(item)
	metadata := map[string]string{
		"owner":       item.Owner,
		"name":        item.Name,
		"pushedAt":    item.PushedAt,
		"url":         item.URL,
		"processedAt": processedAt.UTC().Format(time.RFC3339),
		"size":        strconv.Itoa(len(content)),
	}
	if u.hasher != nil {
		sum, err := u.hasher.Hash(content)
		if err != nil {
			u.logger.Warn("content digest failed", zap.String("item", item.FullName()), zap.Error(err))
		} else {
			metadata["contentSha256"] = sum
		}
	}

	uri, err := retry.Do(ctx, u.sched, u.sleeper, u.logger, "upload "+item.FullName(),
		func(ctx context.Context) (string, error) {
			return u.store.PutObject(ctx, path, u.cfg.ContentType, content, metadata)
		})
	if err != nil {
		return ingest.UploadReceipt{}, &ingest.UploadError{Item: item.FullName(), Path: path, Err: err}
	}

	u.logger.Info("summary uploaded",
		zap.String("item", item.FullName()),
		zap.String("uri", uri),
		zap.Int("bytes", len(content)),
	)
	return ingest.UploadReceipt{URI: uri, Bytes: int64(len(content))}, nil
}

func (u *Uploader) objectPath(item ingest.WorkItem) string {
	prefix := strings.Trim(u.cfg.Prefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s/%s", item.Owner, item.Name, summaryFile)
	}
	return fmt.Sprintf("%s/%s/%s/%s", prefix, item.Owner, item.Name, summaryFile)
}
