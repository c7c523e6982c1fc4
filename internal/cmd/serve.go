package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/IIExpanse/honest-sign-test-task/internal/appid"
	"github.com/IIExpanse/honest-sign-test-task/internal/config"
	"github.com/IIExpanse/honest-sign-test-task/internal/core/engine"
	"github.com/IIExpanse/honest-sign-test-task/internal/core/store"
	"github.com/IIExpanse/honest-sign-test-task/internal/core/submit"
	errwrap "github.com/IIExpanse/honest-sign-test-task/internal/errors"
	"github.com/IIExpanse/honest-sign-test-task/internal/metrics"
	"github.com/IIExpanse/honest-sign-test-task/internal/observability"
	"github.com/IIExpanse/honest-sign-test-task/internal/server"
	"github.com/IIExpanse/honest-sign-test-task/internal/server/handlers"
)

var serveFlagBindings = map[string]string{
	"host":          "server.host",
	"port":          "server.port",
	"metrics-port":  "metrics.port",
	"inbound-rps":   "server.inbound_rps",
	"inbound-burst": "server.inbound_burst",
	"token":         "api.token",
	"base-url":      "api.base_url",
}

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// gateHealthChecker reports the gate saturated once more callers are queued
// than one window can admit.
type gateHealthChecker struct {
	gate *engine.Gate
}

func (g gateHealthChecker) CheckHealth(ctx context.Context) error {
	if g.gate == nil {
		return errwrap.NewServiceUnavailableError("rate gate not initialized")
	}
	snap := g.gate.Snapshot()
	if snap.Waiting > snap.Limit {
		return errwrap.NewServiceUnavailableError("rate gate is saturated")
	}
	return nil
}

func journalHealthChecker(journal store.Journal) handlers.CheckerFunc {
	return func(ctx context.Context) error {
		if journal == nil {
			return nil
		}
		_, err := journal.CountSubmissions(ctx, store.SubmissionQuery{All: true, Limit: 1})
		if err != nil {
			return errwrap.WrapDatabaseError(ctx, err, "journal unreachable")
		}
		return nil
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP submission service",
	Long: `Start the HTTP submission service with graceful shutdown support.

Every POST /v1/documents request shares one rate gate, so the registry sees
at most request_limit calls per window no matter how many clients connect.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (logging level only; rate limits need a restart)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, serveFlagBindings)
		if err != nil {
			return err
		}

		namespace := appid.BinaryName
		observability.InitServerLogger(appid.BinaryName, cfg.Logging.Level, namespace)
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(namespace, cfg.Metrics.Port); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
		}

		gate, err := cfg.RateLimit.NewGate(engine.WithObserver(metrics.GateObserver{}))
		if err != nil {
			return err
		}

		journal, err := openJournal(cmd.Context(), cfg)
		if err != nil {
			return errwrap.WrapDatabaseError(cmd.Context(), err, "journal initialization failed")
		}

		submitter := &submit.Submitter{
			Gate: gate,
			Transport: &submit.HTTPTransport{
				Timeout:   cfg.API.Timeout,
				UserAgent: appid.UserAgent(versionInfo.Version),
			},
			Codec:       submit.JSONCodec{},
			Journal:     journal,
			Logger:      logger,
			BaseURL:     cfg.API.BaseURL,
			Token:       cfg.API.Token,
			ToolVersion: versionInfo.Version,
			MaxGateWait: cfg.GateWaitBudget(),
		}

		api := &handlers.DocumentsAPI{
			Submitter: submitter,
			Gate:      gate,
			OnOutcome: metrics.RecordSubmission,
		}
		if journal != nil {
			api.Journal = journal
		}

		logger.Info("Initializing server",
			zap.String("service", appid.BinaryName),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("metrics", cfg.Metrics.Enabled),
			zap.Int("metrics_port", observability.GetMetricsPort()),
			zap.Int("request_limit", gate.Limit()),
			zap.Duration("window", gate.Window()),
			zap.Duration("max_gate_wait", submitter.MaxGateWait),
			zap.String("journal", cfg.Journal.Driver),
			zap.Stringer("api", cfg.API))

		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("rate_gate", gateHealthChecker{gate: gate})
		if journal != nil {
			hm.RegisterOptionalChecker("journal", journalHealthChecker(journal))
		}
		if cfg.Metrics.Enabled {
			hm.RegisterOptionalChecker("telemetry", telemetryHealthChecker{})
		}

		srv := server.New(cfg.Server, api)
		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Flushing logger...")
			if err := logger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			if err := observability.StopMetrics(); err != nil {
				logger.Warn("Failed to stop metrics exporter", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			if journal == nil {
				return nil
			}
			logger.Info("Closing submission journal...")
			if err := journal.Close(); err != nil {
				return errwrap.WrapDatabaseError(ctx, err, "journal close failed")
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: attempting config reload")

			reloaded, err := config.Load(ctx, flagOverrides(cmd.Flags(), serveFlagBindings))
			if err != nil {
				logger.Error("Failed to reload config", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "config reload failed")
			}

			if reloaded.Logging.Level != cfg.Logging.Level {
				observability.InitServerLogger(appid.BinaryName, reloaded.Logging.Level, namespace)
				logger = observability.ServerLogger
				logger.Info("Log level changed", zap.String("level", reloaded.Logging.Level))
				cfg.Logging.Level = reloaded.Logging.Level
			}
			if reloaded.RateLimit != cfg.RateLimit {
				logger.Warn("Rate limit changed on disk; restart to apply",
					zap.Int("request_limit", reloaded.RateLimit.RequestLimit),
					zap.Int64("time_amount", reloaded.RateLimit.TimeAmount),
					zap.String("time_unit", reloaded.RateLimit.TimeUnit))
			}

			logger.Info("Configuration reloaded successfully")
			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		metrics.SetServerStartTime(time.Now().Unix())

		errChan := make(chan error, 1)
		go func() {
			logger.Info("Starting HTTP server...", zap.String("addr", srv.Addr()))
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().Int("metrics-port", 9090, "Prometheus metrics port")
	serveCmd.Flags().Float64("inbound-rps", 0, "per-client request rate on POST /v1/documents (0 disables)")
	serveCmd.Flags().Int("inbound-burst", 0, "per-client burst on POST /v1/documents")
	serveCmd.Flags().String("token", "", "registry bearer token")
	serveCmd.Flags().String("base-url", "", "registry base URL")
}
