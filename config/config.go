package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: strategy selection and session settings
//   - database.go: Postgres, Redis and bbolt settings
//   - http.go: HTTP server and cookie settings
//   - observability.go: logging and metrics
//   - reaper.go: expired-session purging
type AppConfig struct {
	// IsDev enables development-only behaviour such as the login route and user seeding.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Auth AuthConfig

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Bolt     BoltConfig  `envPrefix:"BOLT_"`

	HTTP HTTPConfig

	Reaper ReaperConfig

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Auth.Sanitize()
	c.HTTP.Sanitize()
	c.Reaper.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
}

// detectDevMode falls back to NODE_ENV when DEV is not set.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// NeedsDatabase reports whether a Postgres connection is required.
// Session strategies resolve users from the users table.
func (c *AppConfig) NeedsDatabase() bool {
	return c.Auth.Type.IsSession()
}

// IsReaperEnabled reports whether the expired-session reaper should run.
// It only applies to the persistent strategy with a finite session lifetime.
func (c *AppConfig) IsReaperEnabled() bool {
	return c.Reaper.Enabled && c.Auth.Type == AuthTypeSessionDB && c.Auth.Lifetime() > 0
}
