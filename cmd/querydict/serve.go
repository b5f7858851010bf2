package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"querydict-hq/querydict/pkg/cli"
	"querydict-hq/querydict/pkg/config"
	"querydict-hq/querydict/pkg/decision"
	"querydict-hq/querydict/pkg/decision/retention"
	"querydict-hq/querydict/pkg/ruleset"
	"querydict-hq/querydict/pkg/server"
	"querydict-hq/querydict/pkg/telemetry/health"
	"querydict-hq/querydict/pkg/telemetry/logging"
	"querydict-hq/querydict/pkg/telemetry/metrics"
	"querydict-hq/querydict/pkg/telemetry/tracing"
)

var serveFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the querydict HTTP service",
	Long: `Start the HTTP service: ad-hoc matching, query validation, rule set
evaluation with decision recording, Prometheus metrics and health probes.

The rule set is reloaded on SIGHUP, and on file changes when rules.watch is
set. SIGINT and SIGTERM shut the server down gracefully.

Examples:
  # Start with a configuration file
  querydict serve --config config.yaml

  # Override the listen address
  querydict serve --listen 0.0.0.0:9090

  # Validate the configuration and rules without starting
  querydict serve --config config.yaml --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate configuration and rules, then exit")
}

// reloadObserver forwards reload outcomes to the collector and keeps the
// rule count gauge in step with the current rule set.
type reloadObserver struct {
	*metrics.Collector
	manager *ruleset.Manager
}

func (o *reloadObserver) ObserveReload(err error) {
	o.Collector.ObserveReload(err)
	if o.manager == nil {
		return
	}
	if rs := o.manager.Current(); rs != nil {
		o.SetRuleCount(len(rs.Rules()))
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply flag overrides
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	logger, err := logging.Setup(&cfg.Telemetry.Logging, nil)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	ctx, cancel := cli.SetupSignalHandler(context.Background())
	defer cancel()

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	deps := server.Dependencies{
		Metrics:   collector,
		Health:    checker,
		Logger:    logger,
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	}

	// Rule set
	var manager *ruleset.Manager
	if cfg.Rules.Path != "" {
		observer := &reloadObserver{Collector: collector}
		manager, err = ruleset.NewManager(cfg.Manager(logger, observer, collector))
		if err != nil {
			return cli.NewConfigError("rules", err.Error())
		}
		observer.manager = manager
		defer manager.Close()

		if err := manager.Load(); err != nil {
			return cli.NewCommandError("serve", fmt.Errorf("failed to load rules: %w", err))
		}
		fmt.Fprintf(stdout(cmd), "✓ Rule set loaded (%d rules)\n", len(manager.Current().Rules()))

		deps.Rules = manager
		checker.Register("ruleset", health.RuleSetCheck(manager))
	} else {
		logger.Warn("no rule path configured, /v1/rules/evaluate is disabled")
	}

	if serveFlags.dryRun {
		fmt.Fprintln(stdout(cmd), "✓ Configuration valid")
		return nil
	}

	if manager != nil {
		if cfg.Rules.Watch {
			go func() {
				if err := manager.Watch(ctx); err != nil {
					logger.Error("rule watcher stopped", "error", err)
				}
			}()
		}
		go reloadOnSignal(ctx, manager, logger)
	}

	// Tracing
	tracer, err := tracing.New(&cfg.Telemetry.Tracing, tracing.WithServiceVersion(Version))
	if err != nil {
		return cli.NewConfigError("telemetry.tracing", err.Error())
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()
	deps.Tracer = tracer

	// Decision log
	if cfg.Decisions.Enabled {
		logger.Info("initializing decision recording", "backend", cfg.Decisions.Backend)

		store, err := openStore(&cfg.Decisions)
		if err != nil {
			return cli.NewCommandError("serve", err)
		}
		defer store.Close()

		recorder := decision.NewRecorder(store, recorderConfig(&cfg.Decisions))
		defer recorder.Close()

		deps.Recorder = recorder
		deps.Decisions = store
		checker.Register("decisions", health.StoreCheck(store))

		if cfg.Decisions.Retention.PruneSchedule != "" {
			pruner := retention.NewPruner(store, retentionConfig(&cfg.Decisions), collector)
			if err := pruner.Start(ctx); err != nil {
				logger.Warn("failed to start retention pruner", "error", err)
			} else {
				defer pruner.Stop()
				if next := pruner.NextPruning(); next != nil {
					logger.Debug("decision retention scheduler started", "next_pruning", next)
				}
			}
		}

		fmt.Fprintln(stdout(cmd), "✓ Decision store initialized")
	}

	srv, err := server.NewServer(cfg, deps)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	scheme := "http"
	if cfg.Server.TLS.Enabled {
		scheme = "https"
	}
	fmt.Fprintf(stdout(cmd), "✓ Listening on %s://%s (Ctrl+C to stop)\n", scheme, cfg.Server.ListenAddress)
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}

	fmt.Fprintln(stdout(cmd), "✓ Server stopped")
	return nil
}

// reloadOnSignal reloads the rule set on every SIGHUP until ctx is done. A
// failed reload keeps the previous rule set.
func reloadOnSignal(ctx context.Context, manager *ruleset.Manager, logger *slog.Logger) {
	signals, stop := cli.ReloadSignals()
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			logger.Info("reloading rule set on SIGHUP")
			_ = manager.Reload()
		}
	}
}
