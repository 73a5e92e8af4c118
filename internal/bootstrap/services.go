package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/target/sessionauth/config"
	"github.com/target/sessionauth/internal/observability/metrics"
	"github.com/target/sessionauth/internal/service"
)

// ServiceOrchestrationConfig contains everything RunServicesWithShutdown supervises.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Auth     *AuthBundle
	Registry *prometheus.Registry
	Metrics  *metrics.Recorder
	Logger   *slog.Logger
}

// RunServicesWithShutdown starts the HTTP server and, when enabled, the metrics
// server and the session reaper. It blocks until ctx is canceled or one of them
// fails; the others are then stopped and the first error is returned.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reaper, err := newReaper(cfg, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	apiServer := NewHTTPServer(&HTTPServerConfig{
		Config:  cfg.Config,
		Auth:    cfg.Auth,
		Logger:  logger,
		Metrics: cfg.Metrics,
	})
	g.Go(func() error { return ServeUntilDone(gctx, apiServer, "HTTP", logger) })

	if cfg.Config.Observability.Metrics.IsEnabled() && cfg.Registry != nil {
		metricsServer := NewMetricsServer(cfg.Config.Observability.Metrics.Addr, cfg.Registry)
		g.Go(func() error { return ServeUntilDone(gctx, metricsServer, "metrics", logger) })
	}

	if reaper != nil {
		g.Go(func() error { return reaper.Run(gctx) })
	}

	return g.Wait()
}

func newReaper(cfg *ServiceOrchestrationConfig, logger *slog.Logger) (*service.ReaperService, error) {
	if !cfg.Config.IsReaperEnabled() || cfg.Auth == nil || cfg.Auth.Purger == nil {
		return nil, nil
	}
	return service.NewReaperService(service.ReaperServiceOptions{
		Store:    cfg.Auth.Purger,
		Lifetime: cfg.Config.Auth.Lifetime(),
		Interval: cfg.Config.Reaper.Interval,
		Logger:   logger,
		Metrics:  cfg.Metrics,
	})
}
