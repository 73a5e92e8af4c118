package config

import "time"

// ReaperConfig contains expired-session reaper configuration.
type ReaperConfig struct {
	Enabled bool `env:"REAPER_ENABLED" envDefault:"true"`

	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < time.Second {
		r.Interval = time.Second
	}
}
