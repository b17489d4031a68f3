// Package config is responsible for initializing the application's configuration.
// It uses the Viper library to read settings from a config file, environment
// variables, and command-line flags, providing a unified configuration system.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/govreposcrape/ingestor/internal/logging"
)

// InitConfig initializes the application's configuration using Viper.
// It sets up default values, defines configuration search paths, and enables
// reading from environment variables. This function is designed to be called
// once at application startup so that configuration is loaded and available
// to all other packages.
func InitConfig() {
	// --- Set Search Paths ---
	viper.SetConfigName("config")
	viper.AddConfigPath(".")               // Current working directory
	viper.AddConfigPath("/etc/ingestor/")  // System-wide configuration
	viper.AddConfigPath("$HOME/.ingestor") // User-specific configuration

	// --- Set Defaults ---
	SetDefaults(viper.GetViper())

	// --- Environment Variables ---
	viper.SetEnvPrefix("INGESTOR") // e.g., INGESTOR_CACHE_PROXY_URL=...
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// --- Read Config File ---
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; not fatal, defaults and environment
			// variables still apply.
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}

// SetDefaults registers every configuration default on the given Viper
// instance. Exported so typed loading can apply the same defaults to a
// standalone Viper in tests.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("feed.url",
		"https://uk-x-gov-software-community.github.io/xgov-opensource-repo-scraper/repos.json")
	v.SetDefault("feed.timeout_seconds", 30)

	v.SetDefault("cache.proxy_url", "http://localhost:8787")
	v.SetDefault("cache.timeout_seconds", 10)

	v.SetDefault("extractor.command", "gitingest")
	v.SetDefault("extractor.args", []string{"--max-size", "524288", "--output", "-", "{{url}}"})
	v.SetDefault("extractor.timeout_seconds", 300)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.prefix", "summaries")
	v.SetDefault("storage.content_type", "text/markdown; charset=utf-8")
	v.SetDefault("storage.local_dir", "data/summaries")

	v.SetDefault("kv.backend", "memory")
	v.SetDefault("kv.redis_addr", "localhost:6379")
	v.SetDefault("kv.redis_db", 0)
	v.SetDefault("kv.table", "cache_entries")

	v.SetDefault("proxy.port", 8787)

	v.SetDefault("orchestrator.progress_interval", 100)
	v.SetDefault("orchestrator.snapshot_path",
		filepath.Join(os.TempDir(), "ingestor-orchestrator-state.json"))
	v.SetDefault("orchestrator.dry_run_delay_ms", 10)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9091)

	v.SetDefault("logging.development", false)
}
