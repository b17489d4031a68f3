// Package cmd defines and implements the CLI commands for the ingestor executable.
package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/govreposcrape/ingestor/internal/cache"
	systemclock "github.com/govreposcrape/ingestor/internal/clock/system"
	"github.com/govreposcrape/ingestor/internal/extract"
	"github.com/govreposcrape/ingestor/internal/feed"
	"github.com/govreposcrape/ingestor/internal/hash/sha256"
	idgen "github.com/govreposcrape/ingestor/internal/id/uuid"
	"github.com/govreposcrape/ingestor/internal/ingest"
	"github.com/govreposcrape/ingestor/internal/logging"
	"github.com/govreposcrape/ingestor/internal/orchestrator"
	"github.com/govreposcrape/ingestor/internal/storage"
)

// newIngestCmd creates and configures the 'ingest' subcommand, which runs
// one batch worker's pass over the feed.
func newIngestCmd() *cobra.Command {
	var (
		batchSize int
		offset    int
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Runs one batch worker over the repository feed",
		Long: `Fetches the repository feed, selects this worker's partition, and processes
every repository in it: unchanged ones are skipped via the shared cache, the
rest are summarized with the external tool and uploaded to blob storage.

Identical invocations across machines split the feed deterministically:
every worker in a batch of N sees the same feed order and takes the items
whose index modulo N equals its offset. Interrupting a run is safe; the
worker finishes its in-flight repository, writes a drain snapshot, and
exits cleanly.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngestCommand(cmd, batchSize, offset, dryRun)
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 1, "total number of workers splitting the feed")
	cmd.Flags().IntVar(&offset, "offset", 0, "zero-based index of this worker within the batch")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "walk the partition without processing, uploading, or caching")

	return cmd
}

func runIngestCommand(cmd *cobra.Command, batchSize, offset int, dryRun bool) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	// Reject a bad partition before dialing anything.
	if err := ingest.ValidateBatch(batchSize, offset); err != nil {
		return err
	}

	cfg := appInstance.Config()

	// Every run gets a sortable ID so logs from parallel workers correlate.
	runID, err := idgen.New().NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	logger := appInstance.Logger().With(zap.String("run_id", runID))

	blobStore, err := appInstance.BlobStore(cmd.Context())
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}
	publisher, err := appInstance.Publisher(cmd.Context())
	if err != nil {
		return fmt.Errorf("init publisher: %w", err)
	}

	fetcher := feed.NewFetcher(feed.Config{
		URL:     cfg.Feed.URL,
		Timeout: cfg.Feed.Timeout(),
	}, logger.Named("feed"))

	cacheClient := cache.NewClient(cache.Config{
		ProxyURL: cfg.Cache.ProxyURL,
		Timeout:  cfg.Cache.Timeout(),
	}, logger.Named("cache"))

	extractor := extract.NewRunner(extract.Config{
		Command: cfg.Extractor.Command,
		Args:    cfg.Extractor.Args,
		Timeout: cfg.Extractor.Timeout(),
	}, logger.Named("extract"))

	uploader := storage.NewUploader(storage.Config{
		Prefix:      cfg.Storage.Prefix,
		ContentType: cfg.Storage.ContentType,
	}, blobStore, sha256.New(), logger.Named("storage"))

	orch := orchestrator.New(fetcher, cacheClient, extractor, uploader, publisher,
		systemclock.New(),
		orchestrator.Config{
			BatchSize:        batchSize,
			Offset:           offset,
			DryRun:           dryRun,
			Topic:            cfg.PubSub.TopicName,
			ProgressInterval: cfg.Orchestrator.ProgressInterval,
			SnapshotPath:     cfg.Orchestrator.SnapshotPath,
			DryRunDelay:      cfg.Orchestrator.DryRunDelay(),
		},
		logger.Named("orchestrator"),
	)

	// SIGINT and SIGTERM start a drain rather than killing the process, so
	// the in-flight repository finishes and a snapshot lands on disk.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("run ingestion: %w", err)
	}
	if report.Drained {
		logger.Warn("run drained before completing the partition",
			zap.Int("processed", report.Processed),
			zap.Int("total", report.Total),
		)
	}

	logging.L.Info("Ingest command finished.")
	return nil
}
