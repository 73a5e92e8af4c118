package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/target/sessionauth/config"
	httpx "github.com/target/sessionauth/internal/http"
	"github.com/target/sessionauth/internal/http/ginauth"
	"github.com/target/sessionauth/internal/observability/metrics"
)

const shutdownWaitTimeout = 10 * time.Second

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config  *config.AppConfig
	Auth    *AuthBundle
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// NewHTTPServer builds the API server without starting it.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	opts := httpx.RouterOptions{
		SessionLifetime: appCfg.Auth.Lifetime(),
		CookieDomain:    appCfg.HTTP.CookieDomain,
		CookieSecure:    appCfg.HTTP.CookieSecure,
		EnableLogin:     appCfg.IsDev,
		Logger:          logger,
		Metrics:         cfg.Metrics,
	}
	if len(appCfg.Auth.ExcludedPaths) > 0 {
		opts.Excluded = appCfg.Auth.ExcludedPaths
	}
	if cfg.Auth != nil && cfg.Auth.Strategy != nil {
		opts.Strategy = cfg.Auth.Strategy
	}
	if cfg.Auth != nil && cfg.Auth.Sessions != nil {
		opts.Users = cfg.Auth.Sessions.Users()
	}

	var handler http.Handler
	switch appCfg.HTTP.Engine {
	case config.HTTPEngineGin:
		handler = ginauth.NewRouter(opts)
	default:
		handler = httpx.NewRouter(opts)
	}
	return newServer(appCfg.HTTP.Addr, handler)
}

// NewMetricsServer serves the Prometheus registry on its own listener so the
// request gate never sees scrapes.
func NewMetricsServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(gatherer))
	return newServer(addr, mux)
}

func newServer(addr string, handler http.Handler) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// ServeUntilDone runs server until ctx is canceled, then shuts it down gracefully.
func ServeUntilDone(ctx context.Context, server *http.Server, name string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting "+name+" server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s server: %w", name, err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down " + name + " server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownWaitTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown %s server: %w", name, err)
	}
	logger.Info(name + " server stopped")
	return <-errCh
}
