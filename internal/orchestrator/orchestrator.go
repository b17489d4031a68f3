// Package orchestrator sequences one ingestion run: fetch the feed, select
// this process's partition, and walk it item by item.
package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	systemclock "github.com/govreposcrape/ingestor/internal/clock/system"
	"github.com/govreposcrape/ingestor/internal/ingest"
	"github.com/govreposcrape/ingestor/internal/metrics"
)

// State names one phase of a run.
type State string

// Run phases, in order. Draining only occurs on interrupted runs.
const (
	StateInit         State = "init"
	StateFetching     State = "fetching"
	StatePartitioning State = "partitioning"
	StateProcessing   State = "processing"
	StateDraining     State = "draining"
	StateReporting    State = "reporting"
	StateDone         State = "done"
)

// defaultSnapshotFile is used when no snapshot path is configured.
const defaultSnapshotFile = "ingestor-orchestrator-state.json"

// Config tunes one run.
type Config struct {
	BatchSize        int
	Offset           int
	DryRun           bool
	Topic            string
	ProgressInterval int
	SnapshotPath     string
	DryRunDelay      time.Duration
}

// Orchestrator drives the pipeline. Items are processed strictly
// sequentially; parallelism comes from running more processes on disjoint
// partitions, never from in-process concurrency.
type Orchestrator struct {
	feed      ingest.FeedSource
	cache     ingest.CacheClient
	extractor ingest.Extractor
	uploader  ingest.Uploader
	publisher ingest.Publisher
	clock     ingest.Clock
	cfg       Config
	logger    *zap.Logger

	state     State
	stateHook func(State)
}

// New constructs an Orchestrator. The publisher may be nil when no topic is
// configured.
func New(
	feed ingest.FeedSource,
	cache ingest.CacheClient,
	extractor ingest.Extractor,
	uploader ingest.Uploader,
	publisher ingest.Publisher,
	clock ingest.Clock,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 100
	}
	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = filepath.Join(os.TempDir(), defaultSnapshotFile)
	}
	if clock == nil {
		clock = systemclock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Orchestrator{
		feed:      feed,
		cache:     cache,
		extractor: extractor,
		uploader:  uploader,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
		state:     StateInit,
	}
}

// State reports the orchestrator's current phase.
func (o *Orchestrator) State() State {
	return o.state
}

// Run executes one full pipeline pass and returns the final report. Fatal
// errors (bad partition parameters, feed exhaustion) abort before any item
// work; everything after that is contained per item. Cancellation drains:
// the in-flight item finishes, a snapshot is written, and Run still returns
// a report with a nil error.
func (o *Orchestrator) Run(ctx context.Context) (ingest.RunReport, error) {
	start := o.clock.Now()
	o.setState(StateInit)

	if err := ingest.ValidateBatch(o.cfg.BatchSize, o.cfg.Offset); err != nil {
		metrics.ObserveRun("failed")
		return ingest.RunReport{}, err
	}

	o.setState(StateFetching)
	items, err := o.feed.Fetch(ctx)
	if err != nil {
		metrics.ObserveRun("failed")
		return ingest.RunReport{}, err
	}

	o.setState(StatePartitioning)
	batch, err := ingest.Partition(items, o.cfg.BatchSize, o.cfg.Offset)
	if err != nil {
		metrics.ObserveRun("failed")
		return ingest.RunReport{}, err
	}
	o.logger.Info("partition selected",
		zap.Int("feed_items", len(items)),
		zap.Int("batch_items", len(batch)),
		zap.Int("batch_size", o.cfg.BatchSize),
		zap.Int("offset", o.cfg.Offset),
		zap.Bool("dry_run", o.cfg.DryRun),
	)

	o.setState(StateProcessing)
	stats := ingest.ProcessingStats{Total: len(batch)}
	tracker := newProgressTracker(o.cfg.ProgressInterval, len(batch), start, o.clock, o.logger)

	drained := false
	lastIndex := -1
	for i, item := range batch {
		if ctx.Err() != nil {
			drained = true
			break
		}
		o.processItem(ctx, item, &stats)
		lastIndex = i
		tracker.observe(i+1, stats)
	}

	if drained {
		o.drain(lastIndex, stats)
	}

	o.setState(StateReporting)
	report := o.report(ctx, stats, drained, o.clock.Now().Sub(start))
	o.setState(StateDone)
	return report, nil
}

// processItem walks one item through check, extract, upload, cache update,
// and index notify. ctx only gates the loop; collaborator calls run on a
// detached context so an in-flight item finishes cleanly during shutdown.
func (o *Orchestrator) processItem(ctx context.Context, item ingest.WorkItem, stats *ingest.ProcessingStats) {
	if o.cfg.DryRun {
		o.simulateItem(item, stats)
		return
	}

	itemCtx := context.WithoutCancel(ctx)

	check := o.cache.Check(itemCtx, item)
	metrics.ObserveCacheCheck(string(check.Reason))
	if !check.NeedsProcessing {
		stats.CacheHits++
		metrics.ObserveItem(metrics.OutcomeHit, 0)
		o.logger.Debug("cache hit, skipping",
			zap.String("item", item.FullName()),
			zap.String("pushed_at", item.PushedAt),
		)
		return
	}
	stats.CacheMisses++

	workStart := o.clock.Now()
	extraction, err := o.extractor.Extract(itemCtx, item)
	if err != nil {
		o.failItem(item, "extract", err, stats)
		return
	}

	processedAt := o.clock.Now()
	receipt, err := o.uploader.Upload(itemCtx, item, extraction.Content, processedAt)
	if err != nil {
		o.failItem(item, "upload", err, stats)
		return
	}

	stats.Processed++
	stats.UploadedBytes += receipt.Bytes
	metrics.ObserveItem(metrics.OutcomeProcessed, receipt.Bytes)
	metrics.ObserveItemDuration(o.clock.Now().Sub(workStart))

	entry := ingest.CacheEntry{
		PushedAt:    item.PushedAt,
		ProcessedAt: processedAt.UTC().Format(time.RFC3339),
		Status:      ingest.StatusComplete,
	}
	if err := o.cache.Update(itemCtx, item, entry); err != nil {
		// A lost update only costs a redundant rerun next time.
		o.logger.Warn("cache update failed",
			zap.String("item", item.FullName()),
			zap.Error(err),
		)
	}

	o.notifyIndexer(itemCtx, item, receipt, entry.ProcessedAt)
}

// simulateItem stands in for the collaborators during a dry run: the same
// stats movement as a miss that processed cleanly, none of the side effects.
func (o *Orchestrator) simulateItem(item ingest.WorkItem, stats *ingest.ProcessingStats) {
	time.Sleep(o.cfg.DryRunDelay)
	stats.CacheMisses++
	stats.Processed++
	o.logger.Debug("dry run, simulated item", zap.String("item", item.FullName()))
}

func (o *Orchestrator) failItem(item ingest.WorkItem, phase string, err error, stats *ingest.ProcessingStats) {
	stats.Failed++
	metrics.ObserveItem(metrics.OutcomeFailed, 0)
	o.logger.Error("item failed",
		zap.String("item", item.FullName()),
		zap.String("phase", phase),
		zap.Error(err),
	)
}

func (o *Orchestrator) notifyIndexer(ctx context.Context, item ingest.WorkItem, receipt ingest.UploadReceipt, processedAt string) {
	if o.cfg.Topic == "" || o.publisher == nil {
		return
	}
	event := ingest.IndexEvent{
		Owner:       item.Owner,
		Name:        item.Name,
		URI:         receipt.URI,
		PushedAt:    item.PushedAt,
		ProcessedAt: processedAt,
		Size:        receipt.Bytes,
	}
	if _, err := o.publisher.Publish(ctx, o.cfg.Topic, event); err != nil {
		o.logger.Warn("index notify failed",
			zap.String("item", item.FullName()),
			zap.Error(err),
		)
	}
}

// drain records where an interrupted run stopped so an operator can see how
// far it got. Runs never resume from the snapshot.
func (o *Orchestrator) drain(lastIndex int, stats ingest.ProcessingStats) {
	o.setState(StateDraining)
	snap := NewSnapshot(lastIndex, stats, o.cfg.BatchSize, o.cfg.Offset, o.clock.Now())
	if err := WriteSnapshot(o.cfg.SnapshotPath, snap); err != nil {
		o.logger.Error("snapshot write failed",
			zap.String("path", o.cfg.SnapshotPath),
			zap.Error(err),
		)
		return
	}
	o.logger.Info("drain snapshot written",
		zap.String("path", o.cfg.SnapshotPath),
		zap.Int("last_processed_index", lastIndex),
	)
}

func (o *Orchestrator) report(ctx context.Context, stats ingest.ProcessingStats, drained bool, elapsed time.Duration) ingest.RunReport {
	report := ingest.RunReport{
		Total:        stats.Total,
		Cached:       stats.CacheHits,
		Processed:    stats.Processed,
		Failed:       stats.Failed,
		CacheHitRate: stats.CacheHitRatePercent(),
		Elapsed:      elapsed,
		Drained:      drained,
		Stats:        stats,
	}

	fields := []zap.Field{
		zap.Int("total", report.Total),
		zap.Int("cached", report.Cached),
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed),
		zap.Float64("cache_hit_rate", report.CacheHitRate),
		zap.Int64("uploaded_bytes", stats.UploadedBytes),
		zap.String("elapsed", formatElapsed(elapsed)),
		zap.Bool("drained", drained),
	}
	if !o.cfg.DryRun {
		if proxyStats, err := o.cache.Stats(context.WithoutCancel(ctx)); err == nil {
			fields = append(fields,
				zap.Int64("proxy_total_checks", proxyStats.TotalChecks),
				zap.Float64("proxy_hit_rate", proxyStats.HitRate),
			)
		}
	}
	o.logger.Info("run complete", fields...)

	result := "completed"
	if drained {
		result = "drained"
	}
	metrics.ObserveRun(result)
	return report
}

func (o *Orchestrator) setState(next State) {
	o.state = next
	o.logger.Info("state transition", zap.String("state", string(next)))
	if o.stateHook != nil {
		o.stateHook(next)
	}
}
