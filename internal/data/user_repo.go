package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/target/sessionauth/internal/data/pgxutil"
	domainauth "github.com/target/sessionauth/internal/domain/auth"
	apperrors "github.com/target/sessionauth/internal/errors"
	"github.com/target/sessionauth/internal/ports"
)

var _ ports.UserStore = (*UserRepo)(nil)

// UserRepo reads user records from PostgreSQL. It is the lookup collaborator the
// session strategy resolves user IDs against.
type UserRepo struct {
	DB *sql.DB
}

// NewUserRepo creates a new UserRepo instance.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

const userColumns = "id, email, first_name, last_name, created_at, updated_at"

// Get looks a user up by primary ID, falling back to a case-insensitive email match.
// It returns ports.ErrUserNotFound when neither matches.
func (r *UserRepo) Get(ctx context.Context, idOrEmail string) (*domainauth.User, error) {
	key := strings.TrimSpace(idOrEmail)
	if key == "" {
		return nil, ports.ErrUserNotFound
	}

	var user domainauth.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		query := `SELECT ` + userColumns + ` FROM users
			WHERE id = $1 OR lower(email) = lower($1)
			ORDER BY (id = $1) DESC
			LIMIT 1`
		rows, err := conn.Query(ctx, query, key)
		if err != nil {
			return err
		}
		defer rows.Close()
		user, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.User])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", apperrors.MapDBError(err))
	}
	return &user, nil
}

// Upsert inserts or updates a user by ID. Used by development seeding and tests.
func (r *UserRepo) Upsert(ctx context.Context, u domainauth.User) (*domainauth.User, error) {
	if strings.TrimSpace(u.ID) == "" {
		return nil, apperrors.ValidationField("id", "user id is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		return nil, apperrors.ValidationField("email", "email is required")
	}

	var out domainauth.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		query := `
			INSERT INTO users (id, email, first_name, last_name)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET email = EXCLUDED.email,
			    first_name = EXCLUDED.first_name,
			    last_name = EXCLUDED.last_name,
			    updated_at = now()
			RETURNING ` + userColumns
		rows, err := conn.Query(ctx, query, u.ID, u.Email, u.FirstName, u.LastName)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainauth.User])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// Delete removes a user by ID and reports whether a row was deleted.
func (r *UserRepo) Delete(ctx context.Context, id string) (bool, error) {
	var n int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete user: %w", apperrors.MapDBError(err))
	}
	return n > 0, nil
}
