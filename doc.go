// Package main hosts the ingestor binary.
//
// Architecture overview:
//   - CLI: cobra commands under cmd/ share one application container
//     (internal/app) injected through the command context. The container
//     builds backends lazily, so the ingest worker never dials Redis and the
//     cache proxy never dials GCS.
//   - Feed & partitioning: internal/feed fetches the public repository feed
//     over HTTPS and normalizes item identities. internal/ingest partitions
//     the feed deterministically by index modulo batch size, so identical
//     feed snapshots split cleanly across workers with no coordination.
//   - Cache: internal/cacheproxy serves the shared freshness cache over HTTP
//     (chi router, Prometheus middleware) and owns the key-value binding
//     (Redis, Postgres, or memory via internal/kv). Workers consult it
//     through internal/cache, whose reads fail open: a proxy outage degrades
//     to reprocessing, never to dropped repositories.
//   - Extraction & persistence: internal/extract shells out to the
//     configured summarizer with a hard per-item timeout and no retry.
//     internal/storage uploads summaries with integrity metadata to the
//     configured blob store (GCS, local, memory, noop) on the shared retry
//     schedule, and internal/publisher optionally announces completions on
//     Pub/Sub.
//   - Orchestration: internal/orchestrator walks the partition one item at a
//     time through an explicit state machine, isolates per-item failures,
//     reports periodic progress with an ETA, and on SIGINT/SIGTERM drains
//     gracefully: the in-flight item finishes and a resume snapshot lands on
//     disk before exit.
//   - Configuration & plumbing: Viper populates config from file and
//     INGESTOR_* env vars; zap provides structured logging; Prometheus
//     counters and histograms are exported on the proxy router and on the
//     worker's side listener.
//
// Operational notes:
//   - Concurrency model: scale is horizontal. Each worker is single-threaded
//     over its partition; run N identical invocations with offsets 0..N-1 to
//     cover the feed. There is no shared work queue to operate.
//   - Idempotency: reruns are safe. Unchanged repositories hit the cache and
//     are skipped; a lost cache write only costs a redundant rerun.
//   - Observability: zap logs carry repository names at every transition;
//     run, item, cache, and proxy metrics are exported for Prometheus.
//
// Quick checklist:
//   - Configure env vars: INGESTOR_FEED_URL, INGESTOR_CACHE_PROXY_URL,
//     INGESTOR_EXTRACTOR_COMMAND, storage (INGESTOR_STORAGE_*), pubsub, and
//     the KV backend (INGESTOR_KV_*) for the proxy.
//   - Run the proxy: ingestor cacheproxy --port 8787 (defaults to proxy.port).
//   - Run a worker: ingestor ingest --batch-size N --offset I, or add
//     --dry-run to rehearse the partition without side effects.
package main
