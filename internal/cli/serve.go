package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-outage/internal/api"
	"github.com/miradorstack/mirador-outage/internal/cache"
	"github.com/miradorstack/mirador-outage/internal/config"
	"github.com/miradorstack/mirador-outage/internal/engine"
	"github.com/miradorstack/mirador-outage/internal/metrics"
	"github.com/miradorstack/mirador-outage/internal/services"
	"github.com/miradorstack/mirador-outage/internal/utils"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the Analyzer gRPC API and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := utils.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.JSON)
			return serve(cmd.Context(), logger, cfg)
		},
	}
}

func serve(parent context.Context, logger *slog.Logger, cfg *config.Config) error {
	logger.Info("starting mirador-outage", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	provider, err := newCacheProvider(cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer provider.Close()

	pipeline := engine.NewPipeline(logger, nil, nil)
	reports := cache.NewReportCache(provider, cfg.Cache.ReportTTL)
	analysisService := services.NewAnalysisService(logger, pipeline, reports, cfg.Analysis)

	server, err := api.NewServer(cfg.Server, analysisService)
	if err != nil {
		return fmt.Errorf("create gRPC server: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()
	logger.Info("gRPC server listening", slog.String("address", server.Address()))

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("gRPC server exited: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("mirador-outage stopped")
	return runErr
}

// newCacheProvider selects the report cache backend. An unreachable Valkey
// degrades to no caching rather than refusing to serve.
func newCacheProvider(cfg config.CacheConfig, logger *slog.Logger) (cache.Provider, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", config.CacheBackendNone:
		return cache.NoopProvider{}, nil
	case config.CacheBackendMemory:
		return cache.NewMemoryProvider(), nil
	case config.CacheBackendValkey:
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Addr,
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxRetries:   cfg.MaxRetries,
			TLS:          cfg.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable", slog.Any("error", err))
			return cache.NoopProvider{}, nil
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", utils.ErrInvalidConfiguration, cfg.Backend)
	}
}
