// Package feed fetches and normalizes the work item feed.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/govreposcrape/ingestor/internal/ingest"
	"github.com/govreposcrape/ingestor/internal/retry"
)

// Config locates the feed and bounds each fetch attempt.
type Config struct {
	URL     string
	Timeout time.Duration
}

// Fetcher pulls the full feed over HTTPS. Transient failures are retried on
// the pipeline schedule; exhaustion is fatal because without the feed there
// is no work to partition.
type Fetcher struct {
	cfg     Config
	httpc   *http.Client
	sched   retry.Schedule
	sleeper retry.Sleeper
	logger  *zap.Logger
}

// NewFetcher creates a feed fetcher with the pipeline retry schedule.
func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Fetcher{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		sched:   retry.DefaultSchedule(),
		sleeper: retry.TimerSleeper{},
		logger:  logger,
	}
}

// Fetch retrieves and normalizes the feed. The returned order is the feed's
// own: every batch process must observe the same ordering for partitioning
// to cover the feed without overlap.
func (f *Fetcher) Fetch(ctx context.Context) ([]ingest.WorkItem, error) {
	items, err := retry.Do(ctx, f.sched, f.sleeper, f.logger, "fetch feed", f.fetchOnce)
	if err != nil {
		return nil, &ingest.FeedFetchError{URL: f.cfg.URL, Err: err}
	}
	f.logger.Info("feed fetched",
		zap.String("url", f.cfg.URL),
		zap.Int("items", len(items)),
	)
	return items, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context) ([]ingest.WorkItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get feed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	var raw []ingest.WorkItem
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("feed payload is not a JSON array of items: %w", err)
	}
	return f.normalize(raw), nil
}

// normalize fills missing identities from the URL path and drops items that
// still have no identity or no URL; a drop is always logged, never silent.
func (f *Fetcher) normalize(raw []ingest.WorkItem) []ingest.WorkItem {
	items := make([]ingest.WorkItem, 0, len(raw))
	for _, item := range raw {
		if item.URL == "" {
			f.logger.Warn("dropping feed item without url",
				zap.String("owner", item.Owner),
				zap.String("name", item.Name),
			)
			continue
		}
		if item.Owner == "" || item.Name == "" {
			owner, name, ok := identityFromURL(item.URL)
			if !ok {
				f.logger.Warn("dropping feed item without identity",
					zap.String("url", item.URL),
				)
				continue
			}
			if item.Owner == "" {
				item.Owner = owner
			}
			if item.Name == "" {
				item.Name = name
			}
		}
		items = append(items, item)
	}
	return items
}

// identityFromURL derives (owner, name) from a repository URL's first two
// path segments, e.g. https://github.com/alphagov/govuk-frontend.
func identityFromURL(rawURL string) (string, string, bool) {
	if rawURL == "" {
		return "", "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return "", "", false
	}
	name := strings.TrimSuffix(segments[1], ".git")
	return segments[0], name, true
}
