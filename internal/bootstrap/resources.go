package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/sessionauth/config"
	"github.com/target/sessionauth/internal/adapters/bolt"
	"github.com/target/sessionauth/internal/data"
	"github.com/target/sessionauth/internal/ports"
)

// Resources holds the external connections the configured strategy needs.
// Fields are nil when the configuration does not call for them.
type Resources struct {
	DB    *sql.DB
	Redis redis.UniversalClient
	Bolt  *bolt.SessionRepository
	Users ports.UserStore
}

// OpenResources connects only what cfg requires: Postgres for any session
// strategy, plus Redis or bbolt when they back session_db_auth.
func OpenResources(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*Resources, error) {
	res := &Resources{}
	if !cfg.NeedsDatabase() {
		return res, nil
	}

	dbCfg := DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}
	db, err := ConnectDB(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	res.DB = db
	res.Users = data.NewUserRepo(db)

	if cfg.Postgres.RunMigrationsOnStart {
		if _, err = RunMigrations(ctx, db, logger); err != nil {
			return nil, errors.Join(err, res.Close())
		}
	} else if logger != nil {
		logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
	}

	switch cfg.Auth.Backend() {
	case config.SessionBackendRedis:
		res.Redis, err = ConnectRedis(ctx, dbCfg)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("connect redis: %w", err), res.Close())
		}
	case config.SessionBackendBolt:
		res.Bolt, err = OpenBolt(cfg.Bolt, logger)
		if err != nil {
			return nil, errors.Join(err, res.Close())
		}
	}

	return res, nil
}

// Close releases every open connection, joining their errors.
func (r *Resources) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Bolt != nil {
		if err := r.Bolt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close bolt: %w", err))
		}
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if r.DB != nil {
		if err := r.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
