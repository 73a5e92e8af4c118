package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/sessionauth/internal/bootstrap"
	"github.com/target/sessionauth/internal/data"
	"github.com/target/sessionauth/internal/devseed"
	"github.com/target/sessionauth/internal/service"
)

// adminEnv is what the subcommands operate on.
type adminEnv struct {
	Sessions *service.SessionAuth
	Migrate  func(ctx context.Context, dryRun bool) ([]string, error)
	Seed     func(ctx context.Context) error
	Close    func() error
}

type envOpener func(ctx context.Context) (*adminEnv, error)

// configEnvOpener builds the environment from the process configuration,
// the same way the server does.
func configEnvOpener(logger *slog.Logger) envOpener {
	return func(ctx context.Context) (*adminEnv, error) {
		cfg, err := bootstrap.LoadConfig()
		if err != nil {
			return nil, err
		}
		if !cfg.Auth.Type.IsSession() {
			return nil, fmt.Errorf("AUTH_TYPE=%s does not issue sessions", cfg.Auth.Type)
		}
		// Migrations are an explicit subcommand here.
		cfg.Postgres.RunMigrationsOnStart = false

		res, err := bootstrap.OpenResources(ctx, &cfg, logger)
		if err != nil {
			return nil, err
		}
		bundle, err := bootstrap.BuildAuth(bootstrap.AuthDeps{
			Config:    cfg.Auth,
			Redis:     cfg.Redis,
			Resources: res,
			Logger:    logger,
		})
		if err != nil {
			return nil, errors.Join(err, res.Close())
		}

		return &adminEnv{
			Sessions: bundle.Sessions,
			Migrate: func(ctx context.Context, dryRun bool) ([]string, error) {
				if dryRun {
					return data.PendingMigrations(ctx, res.DB)
				}
				return bootstrap.RunMigrations(ctx, res.DB, logger)
			},
			Seed: func(ctx context.Context) error {
				return devseed.Run(ctx, data.NewUserRepo(res.DB), logger)
			},
			Close: res.Close,
		}, nil
	}
}
