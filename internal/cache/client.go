// Package cache implements the worker-side client of the shared cache
// proxy. Reads fail open: a proxy outage degrades the pipeline to
// reprocessing, never to dropping items.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/govreposcrape/ingestor/internal/ingest"
	"github.com/govreposcrape/ingestor/internal/retry"
)

// Config points the client at its cache proxy.
type Config struct {
	ProxyURL string
	Timeout  time.Duration
}

// Client talks to the cache proxy over HTTP. It implements
// ingest.CacheClient.
type Client struct {
	baseURL string
	httpc   *http.Client
	sched   retry.Schedule
	sleeper retry.Sleeper
	logger  *zap.Logger
}

// NewClient creates a proxy client with the pipeline retry schedule for
// writes. Reads are single-shot: failing open immediately is cheaper than
// stalling the loop on a proxy outage.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.ProxyURL,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		sched:   retry.DefaultSchedule(),
		sleeper: retry.TimerSleeper{},
		logger:  logger,
	}
}

// Check asks the proxy whether the item needs processing. It never returns
// an error: network failures, timeouts, and unexpected statuses all degrade
// to needsProcessing=true with reason read-error.
func (c *Client) Check(ctx context.Context, item ingest.WorkItem) ingest.CacheCheckResult {
	result, err := c.checkOnce(ctx, item)
	if err != nil {
		rerr := &ingest.CacheReadError{Item: item.FullName(), Err: err}
		c.logger.Warn("cache check failed, treating item as needing processing",
			zap.String("item", item.FullName()),
			zap.Error(rerr),
		)
		return ingest.CacheCheckResult{NeedsProcessing: true, Reason: ingest.ReasonReadError}
	}
	return result
}

func (c *Client) checkOnce(ctx context.Context, item ingest.WorkItem) (ingest.CacheCheckResult, error) {
	endpoint := fmt.Sprintf("%s/cache/%s/%s?pushedAt=%s",
		c.baseURL,
		url.PathEscape(item.Owner),
		url.PathEscape(item.Name),
		url.QueryEscape(item.PushedAt),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ingest.CacheCheckResult{}, fmt.Errorf("build check request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return ingest.CacheCheckResult{}, fmt.Errorf("get %s: %w", endpoint, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ingest.CacheCheckResult{}, fmt.Errorf("read check response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var result ingest.CacheCheckResult
		if err := json.Unmarshal(body, &result); err != nil {
			return ingest.CacheCheckResult{}, fmt.Errorf("decode check response: %w", err)
		}
		return result, nil
	case http.StatusNotFound:
		// Older proxies answer misses with 404 plus an optional reason body.
		var result ingest.CacheCheckResult
		if err := json.Unmarshal(body, &result); err == nil && result.Reason != "" {
			result.NeedsProcessing = true
			return result, nil
		}
		return ingest.CacheCheckResult{NeedsProcessing: true, Reason: ingest.ReasonNoEntry}, nil
	default:
		return ingest.CacheCheckResult{}, fmt.Errorf("proxy returned status %d", resp.StatusCode)
	}
}

// Update records a completed item in the cache. The write is retried on the
// pipeline schedule; the returned CacheWriteError is for the caller to log
// and swallow, since a stale entry only costs one redundant future run.
func (c *Client) Update(ctx context.Context, item ingest.WorkItem, entry ingest.CacheEntry) error {
	_, err := retry.Do(ctx, c.sched, c.sleeper, c.logger, "cache update",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.updateOnce(ctx, item, entry)
		})
	if err != nil {
		return &ingest.CacheWriteError{Item: item.FullName(), Err: err}
	}
	return nil
}

func (c *Client) updateOnce(ctx context.Context, item ingest.WorkItem, entry ingest.CacheEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	endpoint := fmt.Sprintf("%s/cache/%s/%s",
		c.baseURL,
		url.PathEscape(item.Owner),
		url.PathEscape(item.Name),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("put %s: %w", endpoint, err)
	}
	defer resp.Body.Close() //nolint:errcheck // drained below
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("proxy returned status %d", resp.StatusCode)
	}
	return nil
}

// Stats fetches the proxy's cumulative counters. Callers treat failures as
// informational only.
func (c *Client) Stats(ctx context.Context) (ingest.CacheStats, error) {
	endpoint := c.baseURL + "/cache/stats"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ingest.CacheStats{}, fmt.Errorf("build stats request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return ingest.CacheStats{}, fmt.Errorf("get %s: %w", endpoint, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return ingest.CacheStats{}, fmt.Errorf("proxy returned status %d", resp.StatusCode)
	}
	var stats ingest.CacheStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return ingest.CacheStats{}, fmt.Errorf("decode stats response: %w", err)
	}
	return stats, nil
}
