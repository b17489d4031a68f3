package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/govreposcrape/ingestor/internal/cacheproxy"
)

// newCacheProxyCmd creates and configures the 'cacheproxy' subcommand, which
// serves the cache every batch worker consults.
func newCacheProxyCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "cacheproxy",
		Short: "Runs the shared cache proxy service",
		Long: `Serves the HTTP cache that batch workers consult before processing a
repository. The proxy owns the key-value store binding; workers never talk
to Redis or Postgres directly, so the backend can be swapped without
touching them.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCacheProxyCommand(cmd, port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides proxy.port)")

	return cmd
}

func runCacheProxyCommand(cmd *cobra.Command, port int) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	cfg := appInstance.Config()
	logger := appInstance.Logger()
	if port <= 0 {
		port = cfg.Proxy.Port
	}

	store, err := appInstance.KVStore(cmd.Context())
	if err != nil {
		return fmt.Errorf("init kv store: %w", err)
	}

	proxy := cacheproxy.NewServer(store, logger.Named("cacheproxy"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           proxy.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("cache proxy started", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("Cache proxy command finished.")
	return nil
}
