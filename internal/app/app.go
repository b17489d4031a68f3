// Package app initializes and holds the long-lived services shared by the
// ingestor commands, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/govreposcrape/ingestor/internal/config"
	"github.com/govreposcrape/ingestor/internal/ingest"
	"github.com/govreposcrape/ingestor/internal/kv"
	"github.com/govreposcrape/ingestor/internal/metrics"
	memorypublisher "github.com/govreposcrape/ingestor/internal/publisher/memory"
	gcppublisher "github.com/govreposcrape/ingestor/internal/publisher/pubsub"
	blobstorage "github.com/govreposcrape/ingestor/internal/storage"
	gcsstorage "github.com/govreposcrape/ingestor/internal/storage/gcs"
	localstorage "github.com/govreposcrape/ingestor/internal/storage/local"
	memorystorage "github.com/govreposcrape/ingestor/internal/storage/memory"
)

// App holds the shared, long-lived services behind the ingestor commands.
// It is built once by the root command, handed to subcommands through the
// command context, and closed by a Cobra hook after the command finishes.
// Backends are created lazily so each command only pays for what it touches:
// the ingest worker never dials Redis, the cache proxy never dials GCS.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	storageClient *storage.Client
	pubsubClient  *pubsub.Client
	pubsubTopic   *pubsub.Topic
	metricsSrv    *http.Server

	blobStore ingest.BlobStore
	publisher ingest.Publisher
	kvStore   kv.Store
}

// New creates the container and, when enabled, starts the side metrics
// listener.
func New(cfg config.Config, logger *zap.Logger) *App {
	// Log only non-sensitive config fields; the KV DSN may carry credentials.
	type sanitizedConfig struct {
		StorageBackend string `json:"storage_backend"`
		KVBackend      string `json:"kv_backend"`
		ProxyPort      int    `json:"proxy_port"`
		MetricsEnabled bool   `json:"metrics_enabled"`
	}
	safeCfg := sanitizedConfig{
		StorageBackend: cfg.Storage.Backend,
		KVBackend:      cfg.KV.Backend,
		ProxyPort:      cfg.Proxy.Port,
		MetricsEnabled: cfg.Metrics.Enabled,
	}
	logger.Info("Creating application", zap.Any("config", safeCfg))

	a := &App{cfg: cfg, logger: logger}
	metrics.Init()
	if cfg.Metrics.Enabled {
		a.startMetricsListener()
	}
	return a
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// BlobStore returns the configured blob store, creating it on first use.
func (a *App) BlobStore(ctx context.Context) (ingest.BlobStore, error) {
	if a.blobStore != nil {
		return a.blobStore, nil
	}
	var err error
	switch a.cfg.Storage.Backend {
	case "gcs":
		a.logger.Info("using GCS storage backend", zap.String("bucket", a.cfg.Storage.Bucket))
		a.storageClient, err = storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		a.blobStore, err = gcsstorage.New(a.storageClient, gcsstorage.Config{Bucket: a.cfg.Storage.Bucket})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
	case "local":
		a.logger.Info("using local storage backend", zap.String("dir", a.cfg.Storage.LocalDir))
		a.blobStore, err = localstorage.New(localstorage.Config{BaseDir: a.cfg.Storage.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
	case "memory":
		a.logger.Info("using in-memory storage backend")
		a.blobStore = memorystorage.NewBlobStore()
	case "noop":
		a.logger.Info("using no-op storage backend, summaries will be discarded")
		a.blobStore = blobstorage.NoopStore{}
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", a.cfg.Storage.Backend)
	}
	return a.blobStore, nil
}

// Publisher returns the index event publisher, creating it on first use.
// Leaving the topic or project unset selects the in-memory publisher, so
// single-node runs work without Pub/Sub credentials.
func (a *App) Publisher(ctx context.Context) (ingest.Publisher, error) {
	if a.publisher != nil {
		return a.publisher, nil
	}
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Warn("No Pub/Sub topic configured, using in-memory publisher")
		a.publisher = memorypublisher.New()
		return a.publisher, nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubClient = client
	a.pubsubTopic = client.Topic(a.cfg.PubSub.TopicName)
	a.logger.Info(
		"Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	a.publisher = gcppublisher.New(a.pubsubTopic)
	return a.publisher, nil
}

// KVStore returns the proxy's key-value binding, creating it on first use.
func (a *App) KVStore(ctx context.Context) (kv.Store, error) {
	if a.kvStore != nil {
		return a.kvStore, nil
	}
	var err error
	switch a.cfg.KV.Backend {
	case "redis":
		a.logger.Info("using Redis cache binding", zap.String("addr", a.cfg.KV.RedisAddr))
		a.kvStore, err = kv.NewRedisStore(ctx, kv.RedisConfig{
			Addr:     a.cfg.KV.RedisAddr,
			Password: a.cfg.KV.RedisPassword,
			DB:       a.cfg.KV.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("redis store init failed: %w", err)
		}
	case "postgres":
		a.logger.Info("using Postgres cache binding", zap.String("table", a.cfg.KV.Table))
		a.kvStore, err = kv.NewPostgresStore(ctx, kv.PostgresConfig{
			DSN:   a.cfg.KV.DSN,
			Table: a.cfg.KV.Table,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres store init failed: %w", err)
		}
	case "memory":
		a.logger.Info("using in-memory cache binding")
		a.kvStore = kv.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown kv backend: %s", a.cfg.KV.Backend)
	}
	return a.kvStore, nil
}

// Close gracefully shuts down every service the commands created. It is
// called by a Cobra hook after the command finishes execution.
func (a *App) Close(ctx context.Context) {
	if a.metricsSrv != nil {
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.logger.Warn("metrics listener shutdown failed", zap.Error(err))
		}
	}
	if a.pubsubTopic != nil {
		a.pubsubTopic.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storageClient != nil {
		if err := a.storageClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.kvStore != nil {
		if err := a.kvStore.Close(); err != nil {
			a.logger.Warn("kv store close failed", zap.Error(err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Warn("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
}

func (a *App) startMetricsListener() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	a.metricsSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("metrics listener started", zap.Int("port", a.cfg.Metrics.Port))
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics listener error", zap.Error(err))
		}
	}()
}
