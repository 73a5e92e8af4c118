// Package devseed populates a development database with known users so the
// session flow can be exercised locally.
package devseed

import (
	"context"
	"fmt"
	"log/slog"

	domainauth "github.com/target/sessionauth/internal/domain/auth"
)

// UserUpserter writes user records. *data.UserRepo satisfies it.
type UserUpserter interface {
	Upsert(ctx context.Context, u domainauth.User) (*domainauth.User, error)
}

// DefaultUsers returns the development accounts.
func DefaultUsers() []domainauth.User {
	return []domainauth.User{
		{ID: "dev-user", Email: "dev@example.com", FirstName: "Dev", LastName: "User"},
		{ID: "dev-admin", Email: "admin@example.com", FirstName: "Dev", LastName: "Admin"},
		{ID: "dev-nameless", Email: "nameless@example.com"},
	}
}

// Run upserts DefaultUsers. Individual failures are logged and counted;
// the first is not fatal to the rest.
func Run(ctx context.Context, repo UserUpserter, logger *slog.Logger) error {
	return seedUsers(ctx, repo, DefaultUsers(), logger)
}

func seedUsers(ctx context.Context, repo UserUpserter, users []domainauth.User, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	failures := 0
	for _, u := range users {
		saved, err := repo.Upsert(ctx, u)
		if err != nil {
			logger.ErrorContext(ctx, "failed to seed user", "id", u.ID, "email", u.Email, "error", err)
			failures++
			continue
		}
		logger.InfoContext(ctx, "seeded user", "id", saved.ID, "name", saved.DisplayName())
	}
	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}
