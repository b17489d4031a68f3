package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaultsAreRunnable(t *testing.T) {
	t.Parallel()

	cfg, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Feed.URL == "" {
		t.Fatal("expected a default feed URL")
	}
	if got := cfg.Feed.Timeout(); got != 30*time.Second {
		t.Fatalf("expected 30s feed timeout, got %v", got)
	}
	if got := cfg.Extractor.Timeout(); got != 5*time.Minute {
		t.Fatalf("expected 5m extraction timeout, got %v", got)
	}
	if cfg.Storage.Backend != "memory" {
		t.Fatalf("expected memory storage default, got %q", cfg.Storage.Backend)
	}
	if cfg.KV.Backend != "memory" {
		t.Fatalf("expected memory kv default, got %q", cfg.KV.Backend)
	}
	if cfg.Proxy.Port != 8787 {
		t.Fatalf("expected proxy port 8787, got %d", cfg.Proxy.Port)
	}
	if cfg.Orchestrator.ProgressInterval != 100 {
		t.Fatalf("expected progress interval 100, got %d", cfg.Orchestrator.ProgressInterval)
	}
	if cfg.Orchestrator.SnapshotPath == "" {
		t.Fatal("expected a default snapshot path")
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
feed:
  url: https://feeds.example.gov/repos.json
  timeout_seconds: 15
cache:
  proxy_url: http://cache.internal:9000
  timeout_seconds: 5
extractor:
  command: summarize
  args: ["{{url}}"]
  timeout_seconds: 120
storage:
  backend: gcs
  bucket: gov-summaries
  prefix: batch
kv:
  backend: redis
  redis_addr: redis.internal:6379
proxy:
  port: 9000
orchestrator:
  progress_interval: 50
  dry_run_delay_ms: 5
logging:
  development: true
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("read config: %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Feed.URL != "https://feeds.example.gov/repos.json" {
		t.Fatalf("expected feed override, got %q", cfg.Feed.URL)
	}
	if cfg.Cache.ProxyURL != "http://cache.internal:9000" {
		t.Fatalf("expected cache proxy override, got %q", cfg.Cache.ProxyURL)
	}
	if got := cfg.Cache.Timeout(); got != 5*time.Second {
		t.Fatalf("expected 5s cache timeout, got %v", got)
	}
	if cfg.Extractor.Command != "summarize" || len(cfg.Extractor.Args) != 1 {
		t.Fatalf("expected extractor overrides, got %+v", cfg.Extractor)
	}
	if cfg.Storage.Backend != "gcs" || cfg.Storage.Bucket != "gov-summaries" {
		t.Fatalf("expected gcs storage overrides, got %+v", cfg.Storage)
	}
	if cfg.KV.Backend != "redis" || cfg.KV.RedisAddr != "redis.internal:6379" {
		t.Fatalf("expected redis kv overrides, got %+v", cfg.KV)
	}
	if cfg.Proxy.Port != 9000 {
		t.Fatalf("expected proxy port 9000, got %d", cfg.Proxy.Port)
	}
	if got := cfg.Orchestrator.DryRunDelay(); got != 5*time.Millisecond {
		t.Fatalf("expected 5ms dry run delay, got %v", got)
	}
	if !cfg.Logging.Development {
		t.Fatal("expected development logging override")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load(viper.New())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{
			name:   "missing feed url",
			mutate: func(c *Config) { c.Feed.URL = "" },
			want:   "feed.url",
		},
		{
			name:   "non-http feed url",
			mutate: func(c *Config) { c.Feed.URL = "ftp://feeds.example.gov/repos.json" },
			want:   "feed.url",
		},
		{
			name:   "zero feed timeout",
			mutate: func(c *Config) { c.Feed.TimeoutSeconds = 0 },
			want:   "feed.timeout_seconds",
		},
		{
			name:   "missing proxy url",
			mutate: func(c *Config) { c.Cache.ProxyURL = "" },
			want:   "cache.proxy_url",
		},
		{
			name:   "missing extractor command",
			mutate: func(c *Config) { c.Extractor.Command = "" },
			want:   "extractor.command",
		},
		{
			name:   "gcs backend without bucket",
			mutate: func(c *Config) { c.Storage.Backend = "gcs"; c.Storage.Bucket = "" },
			want:   "storage.bucket",
		},
		{
			name:   "unknown storage backend",
			mutate: func(c *Config) { c.Storage.Backend = "s3" },
			want:   "storage.backend",
		},
		{
			name:   "postgres kv without dsn",
			mutate: func(c *Config) { c.KV.Backend = "postgres"; c.KV.DSN = "" },
			want:   "kv.dsn",
		},
		{
			name:   "unknown kv backend",
			mutate: func(c *Config) { c.KV.Backend = "dynamo" },
			want:   "kv.backend",
		},
		{
			name:   "invalid proxy port",
			mutate: func(c *Config) { c.Proxy.Port = 0 },
			want:   "proxy.port",
		},
		{
			name:   "zero progress interval",
			mutate: func(c *Config) { c.Orchestrator.ProgressInterval = 0 },
			want:   "orchestrator.progress_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
