package config

import (
	"fmt"
	"strings"
)

// HTTPEngine selects the router that serves the API.
type HTTPEngine string

const (
	// HTTPEngineChi serves the API on a chi router.
	HTTPEngineChi HTTPEngine = "chi"
	// HTTPEngineGin serves the API on a gin engine.
	HTTPEngineGin HTTPEngine = "gin"
)

// UnmarshalText implements encoding.TextUnmarshaler for HTTPEngine.
func (e *HTTPEngine) UnmarshalText(text []byte) error {
	v := HTTPEngine(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case HTTPEngineChi, HTTPEngineGin:
		*e = v
		return nil
	case "":
		*e = HTTPEngineChi
		return nil
	default:
		return fmt.Errorf("invalid HTTPEngine: %q (valid options: chi, gin)", string(text))
	}
}

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// CookieSecure marks the session cookie Secure.
	CookieSecure bool `env:"APP_COOKIE_SECURE" envDefault:"false"`

	// Engine picks the router implementation.
	Engine HTTPEngine `env:"HTTP_ENGINE" envDefault:"chi"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	// Guard against empty addr to avoid listening on Go default
	if h.Addr = strings.TrimSpace(h.Addr); h.Addr == "" {
		h.Addr = ":8080"
	}
	h.CookieDomain = strings.TrimSpace(h.CookieDomain)
	if h.Engine == "" {
		h.Engine = HTTPEngineChi
	}
}
