package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"tidings-hq/tidings/internal/feed"
	"tidings-hq/tidings/internal/insight"
	"tidings-hq/tidings/internal/scheduler"
	"tidings-hq/tidings/internal/server"
	"tidings-hq/tidings/internal/store"
	"tidings-hq/tidings/pkg/config"
	"tidings-hq/tidings/pkg/providerfactory"
	"tidings-hq/tidings/pkg/telemetry/logging"
	"tidings-hq/tidings/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watch         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Tidings server",
	Long: `Start the Tidings server with the specified configuration.

The server exposes the daily brief and keyword extraction endpoints and
refreshes the cached brief on the configured schedule.

Examples:
  # Start with default config
  tidings run

  # Start with custom config
  tidings run --config /etc/tidings/config.yaml

  # Override listen address
  tidings run --listen 0.0.0.0:8080

  # Validate config without starting server
  tidings run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "reload configuration on file change")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.Setup(cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	factory, err := providerfactory.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize providers: %w", err)
	}

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Telemetry.Metrics, nil)
	}

	cache, err := store.New(cfg.Store.Path, cfg.Store.TTL)
	if err != nil {
		return fmt.Errorf("failed to open insight store: %w", err)
	}
	defer cache.Close()

	source := feed.NewMemorySource()
	insights := insight.NewService(factory, source, cache, collector, insight.Options{
		Temperature:     cfg.Generation.Temperature,
		MaxOutputTokens: cfg.Generation.MaxOutputTokens,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if cfg.Scheduler.Enabled {
		refresher := func(ctx context.Context) error {
			_, err := insights.Refresh(ctx)
			return err
		}
		sched, err := scheduler.New(cfg.Scheduler.RefreshSpec, refresher)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	if runFlags.watch {
		watcher, err := config.NewWatcher(cfgFile, func(next *config.Config) {
			// Only logging level changes take effect without a restart.
			if _, err := logging.Setup(next.Telemetry.Logging, os.Stdout); err != nil {
				logger.Warn("reloaded logging configuration is invalid", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to watch config: %w", err)
		}
		go watcher.Run(ctx)
	}

	var metricsHandler http.Handler
	if collector != nil {
		metricsHandler = collector.Handler()
	}

	srv := server.New(cfg.Server, insights, source, metricsHandler, cfg.Telemetry.Metrics.Path)
	return srv.Start(ctx)
}
