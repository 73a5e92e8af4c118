package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/target/sessionauth/config"
)

// InitLogger initializes the structured JSON logger and installs it as the default.
func InitLogger(level slog.Leveler) *slog.Logger {
	return initLogger(os.Stdout, level)
}

func initLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	if level == nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// EnabledServices lists the long-running services the configuration starts.
func EnabledServices(cfg *config.AppConfig) []string {
	if cfg == nil {
		return []string{}
	}
	services := []string{"http"}
	if cfg.Observability.Metrics.IsEnabled() {
		services = append(services, "metrics")
	}
	if cfg.IsReaperEnabled() {
		services = append(services, "reaper")
	}
	return services
}
