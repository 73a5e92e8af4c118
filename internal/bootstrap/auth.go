package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/sessionauth/config"
	redisadapter "github.com/target/sessionauth/internal/adapters/redis"
	"github.com/target/sessionauth/internal/data"
	"github.com/target/sessionauth/internal/observability/metrics"
	"github.com/target/sessionauth/internal/ports"
	"github.com/target/sessionauth/internal/service"
	"github.com/target/sessionauth/internal/session"
)

// AuthDeps groups what BuildAuth needs.
type AuthDeps struct {
	Config    config.AuthConfig
	Redis     config.RedisConfig
	Resources *Resources
	Logger    *slog.Logger
	Metrics   *metrics.Recorder
}

// AuthBundle is the strategy selected by AUTH_TYPE plus its session handle.
type AuthBundle struct {
	// Strategy is nil when AUTH_TYPE=none.
	Strategy ports.AuthStrategy
	// Sessions is set for session-issuing strategies.
	Sessions *service.SessionAuth
	// Purger is set when the reaper can reclaim expired sessions.
	Purger session.Purger
}

// BuildAuth maps the configured AuthType onto a strategy:
//
//	none             -> no gate
//	auth             -> base strategy
//	session_auth     -> sessions in memory
//	session_exp_auth -> sessions in memory, expiring
//	session_db_auth  -> sessions in SESSION_DB_BACKEND, expiring
func BuildAuth(deps AuthDeps) (*AuthBundle, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	switch cfg.Type {
	case config.AuthTypeNone, "":
		return &AuthBundle{}, nil
	case config.AuthTypeBase:
		return &AuthBundle{Strategy: service.NewAuth(service.AuthOptions{
			CookieName: cfg.SessionName,
			Logger:     logger,
		})}, nil
	}

	if deps.Resources == nil || deps.Resources.Users == nil {
		return nil, errors.New("session strategies require a user store")
	}

	store, err := buildSessionStore(deps)
	if err != nil {
		return nil, err
	}

	sessions, err := service.NewSessionAuth(service.SessionAuthOptions{
		Store:      store,
		Users:      deps.Resources.Users,
		CookieName: cfg.SessionName,
		Logger:     logger,
		Metrics:    deps.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("build session strategy: %w", err)
	}

	bundle := &AuthBundle{Strategy: sessions, Sessions: sessions}
	if p, ok := store.(session.Purger); ok && cfg.Type == config.AuthTypeSessionDB {
		bundle.Purger = p
	}
	return bundle, nil
}

//nolint:ireturn // the concrete store depends on configuration.
func buildSessionStore(deps AuthDeps) (ports.SessionStore, error) {
	cfg := deps.Config
	switch cfg.Type {
	case config.AuthTypeSession:
		return session.NewMemoryStore(), nil
	case config.AuthTypeSessionExpiring:
		return session.NewExpiringStore(session.NewMemoryStore(), cfg.Lifetime()), nil
	case config.AuthTypeSessionDB:
		repo, err := sessionRepository(deps)
		if err != nil {
			return nil, err
		}
		return session.NewExpiringStore(session.NewPersistentStore(repo), cfg.Lifetime()), nil
	default:
		return nil, fmt.Errorf("unsupported auth type %q", cfg.Type)
	}
}

//nolint:ireturn // the concrete repository depends on SESSION_DB_BACKEND.
func sessionRepository(deps AuthDeps) (ports.SessionRepository, error) {
	res := deps.Resources
	switch deps.Config.SessionBackend {
	case config.SessionBackendPostgres, "":
		if res.DB == nil {
			return nil, errors.New("postgres session backend requires a database connection")
		}
		return data.NewSessionRepo(res.DB), nil
	case config.SessionBackendRedis:
		if res.Redis == nil {
			return nil, errors.New("redis session backend requires a redis connection")
		}
		var opts []redisadapter.RepositoryOption
		if deps.Redis.KeyPrefix != "" {
			opts = append(opts, redisadapter.WithPrefix(deps.Redis.KeyPrefix))
		}
		if lifetime := deps.Config.Lifetime(); lifetime > 0 {
			opts = append(opts, redisadapter.WithTTL(lifetime))
		}
		return redisadapter.NewSessionRepository(res.Redis, opts...), nil
	case config.SessionBackendBolt:
		if res.Bolt == nil {
			return nil, errors.New("bolt session backend requires an open bolt file")
		}
		return res.Bolt, nil
	default:
		return nil, fmt.Errorf("unsupported session backend %q", deps.Config.SessionBackend)
	}
}
