// Package config loads and validates ingestor configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/govreposcrape/ingestor/pkg/config"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Feed         FeedConfig         `mapstructure:"feed"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Extractor    ExtractorConfig    `mapstructure:"extractor"`
	Storage      StorageConfig      `mapstructure:"storage"`
	PubSub       PubSubConfig       `mapstructure:"pubsub"`
	KV           KVConfig           `mapstructure:"kv"`
	Proxy        ProxyConfig        `mapstructure:"proxy"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// FeedConfig locates the work item feed.
type FeedConfig struct {
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the per-attempt feed fetch budget.
func (c FeedConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheConfig points the worker at its cache proxy.
type CacheConfig struct {
	ProxyURL       string `mapstructure:"proxy_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the per-request cache proxy budget.
func (c CacheConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ExtractorConfig describes the external summarizer invocation. Args may
// contain the {{url}} placeholder, replaced per item.
type ExtractorConfig struct {
	Command        string   `mapstructure:"command"`
	Args           []string `mapstructure:"args"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// Timeout returns the hard per-item extraction budget.
func (c ExtractorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StorageConfig selects and parameterizes the blob store backend.
type StorageConfig struct {
	Backend     string `mapstructure:"backend"` // gcs | local | memory | noop
	Bucket      string `mapstructure:"bucket"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
	LocalDir    string `mapstructure:"local_dir"`
}

// PubSubConfig holds metadata for index notification publishing. Leaving
// the topic empty disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// KVConfig selects and parameterizes the proxy's key-value binding.
type KVConfig struct {
	Backend       string `mapstructure:"backend"` // redis | postgres | memory
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	DSN           string `mapstructure:"dsn"`
	Table         string `mapstructure:"table"`
}

// ProxyConfig controls the cache proxy HTTP server.
type ProxyConfig struct {
	Port int `mapstructure:"port"`
}

// OrchestratorConfig tunes run behavior that is not a CLI flag.
type OrchestratorConfig struct {
	ProgressInterval int    `mapstructure:"progress_interval"`
	SnapshotPath     string `mapstructure:"snapshot_path"`
	DryRunDelayMs    int    `mapstructure:"dry_run_delay_ms"`
}

// DryRunDelay returns the simulated per-item work duration.
func (c OrchestratorConfig) DryRunDelay() time.Duration {
	return time.Duration(c.DryRunDelayMs) * time.Millisecond
}

// MetricsConfig controls the worker-side Prometheus listener.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load unmarshals a typed Config from the given Viper instance, applying
// defaults first so a bare Viper still yields a runnable configuration.
func Load(v *viper.Viper) (Config, error) {
	pkgconfig.SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := validateURL("feed.url", c.Feed.URL); err != nil {
		return err
	}
	if c.Feed.TimeoutSeconds <= 0 {
		return fmt.Errorf("feed.timeout_seconds must be > 0")
	}
	if err := validateURL("cache.proxy_url", c.Cache.ProxyURL); err != nil {
		return err
	}
	if c.Cache.TimeoutSeconds <= 0 {
		return fmt.Errorf("cache.timeout_seconds must be > 0")
	}
	if c.Extractor.Command == "" {
		return fmt.Errorf("extractor.command is required")
	}
	if c.Extractor.TimeoutSeconds <= 0 {
		return fmt.Errorf("extractor.timeout_seconds must be > 0")
	}
	switch c.Storage.Backend {
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the gcs backend")
		}
	case "local", "memory", "noop":
	default:
		return fmt.Errorf("storage.backend %q is not one of gcs, local, memory, noop", c.Storage.Backend)
	}
	switch c.KV.Backend {
	case "redis", "memory":
	case "postgres":
		if c.KV.DSN == "" {
			return fmt.Errorf("kv.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("kv.backend %q is not one of redis, postgres, memory", c.KV.Backend)
	}
	if c.Proxy.Port <= 0 {
		return fmt.Errorf("proxy.port must be > 0")
	}
	if c.Orchestrator.ProgressInterval <= 0 {
		return fmt.Errorf("orchestrator.progress_interval must be > 0")
	}
	if c.Metrics.Enabled && c.Metrics.Port <= 0 {
		return fmt.Errorf("metrics.port must be > 0 when metrics are enabled")
	}
	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, raw)
	}
	return nil
}
