package data

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/target/sessionauth/internal/migrate"
)

// RunMigrations applies pending schema migrations and returns the versions applied.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) ([]string, error) {
	return migrate.Run(ctx, db, logger)
}

// PendingMigrations lists the schema versions not yet applied.
func PendingMigrations(ctx context.Context, db *sql.DB) ([]string, error) {
	return migrate.Pending(ctx, db)
}
