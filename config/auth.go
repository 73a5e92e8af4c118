package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// AuthType selects the authentication strategy installed in the request gate.
type AuthType string

const (
	// AuthTypeNone disables the gate entirely.
	AuthTypeNone AuthType = "none"
	// AuthTypeBase installs the base strategy, which never resolves a user.
	AuthTypeBase AuthType = "auth"
	// AuthTypeSession keeps sessions in process memory without expiry.
	AuthTypeSession AuthType = "session_auth"
	// AuthTypeSessionExpiring keeps sessions in memory and expires them after SESSION_DURATION.
	AuthTypeSessionExpiring AuthType = "session_exp_auth"
	// AuthTypeSessionDB persists sessions in SESSION_DB_BACKEND and expires them after SESSION_DURATION.
	AuthTypeSessionDB AuthType = "session_db_auth"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthType.
func (a *AuthType) UnmarshalText(text []byte) error {
	v := AuthType(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case AuthTypeNone, AuthTypeBase, AuthTypeSession, AuthTypeSessionExpiring, AuthTypeSessionDB:
		*a = v
		return nil
	case "":
		*a = AuthTypeNone
		return nil
	default:
		return fmt.Errorf(
			"invalid AuthType: %q (valid options: none, auth, session_auth, session_exp_auth, session_db_auth)",
			string(text),
		)
	}
}

// IsSession reports whether the strategy issues sessions.
func (a AuthType) IsSession() bool {
	switch a {
	case AuthTypeSession, AuthTypeSessionExpiring, AuthTypeSessionDB:
		return true
	default:
		return false
	}
}

// SessionBackend selects the durable store behind session_db_auth.
type SessionBackend string

const (
	SessionBackendPostgres SessionBackend = "postgres"
	SessionBackendRedis    SessionBackend = "redis"
	SessionBackendBolt     SessionBackend = "bolt"
)

// UnmarshalText implements encoding.TextUnmarshaler for SessionBackend.
func (b *SessionBackend) UnmarshalText(text []byte) error {
	v := SessionBackend(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case SessionBackendPostgres, SessionBackendRedis, SessionBackendBolt:
		*b = v
		return nil
	default:
		return fmt.Errorf("invalid SessionBackend: %q (valid options: postgres, redis, bolt)", string(text))
	}
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	Type AuthType `env:"AUTH_TYPE" envDefault:"none"`

	// SessionDurationSeconds is the session lifetime. Zero or negative never expires.
	SessionDurationSeconds int `env:"SESSION_DURATION" envDefault:"0"`

	// SessionName is the cookie carrying the session ID.
	SessionName string `env:"SESSION_NAME" envDefault:"_my_session_id"`

	// SessionBackend is only consulted when Type is session_db_auth.
	SessionBackend SessionBackend `env:"SESSION_DB_BACKEND" envDefault:"postgres"`

	// ExcludedPaths overrides the paths that bypass authentication.
	ExcludedPaths []string `env:"AUTH_EXCLUDED_PATHS" envSeparator:","`
}

// Sanitize trims the cookie name and drops blank excluded paths.
func (a *AuthConfig) Sanitize() {
	a.SessionName = strings.TrimSpace(a.SessionName)
	if a.SessionName == "" {
		a.SessionName = "_my_session_id"
	}
	paths := a.ExcludedPaths[:0]
	for _, p := range a.ExcludedPaths {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	a.ExcludedPaths = paths
}

// MaxSessionDurationSeconds is the longest lifetime a time.Duration can hold.
const MaxSessionDurationSeconds = math.MaxInt64 / int64(time.Second)

// Lifetime returns the session lifetime as a duration, capped at
// MaxSessionDurationSeconds.
func (a AuthConfig) Lifetime() time.Duration {
	secs := int64(a.SessionDurationSeconds)
	if secs <= 0 {
		return 0
	}
	return time.Duration(min(secs, MaxSessionDurationSeconds)) * time.Second
}

// Backend returns the persistent backend, or "" when the strategy does not persist.
func (a AuthConfig) Backend() SessionBackend {
	if a.Type != AuthTypeSessionDB {
		return ""
	}
	return a.SessionBackend
}
