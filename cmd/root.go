package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/govreposcrape/ingestor/internal/app"
	"github.com/govreposcrape/ingestor/internal/config"
	"github.com/govreposcrape/ingestor/internal/ingest"
	"github.com/govreposcrape/ingestor/internal/kv"
	"github.com/govreposcrape/ingestor/internal/logging"
	pkgconfig "github.com/govreposcrape/ingestor/pkg/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application surface that commands use. It lets tests
// inject a stub app instead of the real container.
type App interface {
	Close(ctx context.Context)
	Config() config.Config
	Logger() *zap.Logger
	BlobStore(ctx context.Context) (ingest.BlobStore, error)
	Publisher(ctx context.Context) (ingest.Publisher, error)
	KVStore(ctx context.Context) (kv.Store, error)
}

// newApp is the application factory. It's a variable so tests can replace
// it with a mock factory.
var newApp = func(context.Context) (App, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logger, err := logging.InitLogger(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, logger), nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingestor",
		Short: "Batch ingestion tooling for the public sector repository index.",
		Long: `ingestor turns a public feed of government open-source repositories into
indexed summaries. The ingest command runs one batch worker: it fetches the
feed, takes its partition, skips unchanged repositories via the shared cache,
summarizes the rest with an external tool, and uploads the results. The
cacheproxy command runs the cache service those workers share.`,

		// Runs after config is loaded but before the subcommand's RunE, so
		// every subcommand finds a ready application in its context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// Ensures services shut down gracefully once the subcommand returns.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				appInstance.Close(shutdownCtx)
			}
		},
	}

	cobra.OnInitialize(initConfig)

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default searches ., /etc/ingestor, $HOME/.ingestor)")

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newCacheProxyCmd())

	return cmd
}

// initConfig honors an explicit --config path before the standard search.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	pkgconfig.InitConfig()
}

// resolveApp retrieves the application container injected by the root
// command's PersistentPreRunE hook.
func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	// Bootstrap a production logger so config loading can already log; the
	// factory rebuilds it once logging.development is known.
	if _, err := logging.InitLogger(false); err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
