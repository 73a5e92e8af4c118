package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/target/sessionauth/config"
	"github.com/target/sessionauth/internal/bootstrap"
	"github.com/target/sessionauth/internal/data"
	"github.com/target/sessionauth/internal/devseed"
	"github.com/target/sessionauth/internal/observability/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := bootstrap.InitLogger(slog.LevelInfo)
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	logger = bootstrap.InitLogger(cfg.Observability.SlogLevel())

	logStartupInfo(ctx, logger, &cfg)

	res, err := bootstrap.OpenResources(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := res.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close resources failed", "error", cerr)
		}
	}()

	if cfg.IsDev && res.DB != nil {
		if serr := devseed.Run(ctx, data.NewUserRepo(res.DB), logger); serr != nil {
			logger.WarnContext(ctx, "development seeding incomplete", "error", serr)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	bundle, err := bootstrap.BuildAuth(bootstrap.AuthDeps{
		Config:    cfg.Auth,
		Redis:     cfg.Redis,
		Resources: res,
		Logger:    logger,
		Metrics:   recorder,
	})
	if err != nil {
		return fmt.Errorf("build auth strategy: %w", err)
	}

	return bootstrap.RunServicesWithShutdown(ctx, &bootstrap.ServiceOrchestrationConfig{
		Config:   &cfg,
		Auth:     bundle,
		Registry: reg,
		Metrics:  recorder,
		Logger:   logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting sessionauth service",
		"auth_type", cfg.Auth.Type,
		"session_backend", cfg.Auth.Backend(),
		"session_lifetime", cfg.Auth.Lifetime(),
		"dev", cfg.IsDev,
		"enabled_services", bootstrap.EnabledServices(cfg))
}
