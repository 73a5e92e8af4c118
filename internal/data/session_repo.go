package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/target/sessionauth/internal/data/pgxutil"
	domainauth "github.com/target/sessionauth/internal/domain/auth"
	apperrors "github.com/target/sessionauth/internal/errors"
	"github.com/target/sessionauth/internal/ports"
)

var _ ports.SessionRepository = (*SessionRepo)(nil)

// SessionRepo implements ports.SessionRepository using PostgreSQL.
type SessionRepo struct {
	DB *sql.DB
}

// NewSessionRepo creates a new SessionRepo instance.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{DB: db}
}

const sessionColumns = "session_id, user_id, created_at"

type sessionRow struct {
	SessionID string    `db:"session_id"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r sessionRow) toDomain() domainauth.Session {
	return domainauth.Session{ID: r.SessionID, UserID: r.UserID, CreatedAt: r.CreatedAt.UTC()}
}

// Save inserts a session record. A duplicate session_id maps to a Conflict error.
func (r *SessionRepo) Save(ctx context.Context, sess domainauth.Session) error {
	if strings.TrimSpace(sess.ID) == "" {
		return ErrSessionIDRequired
	}
	if strings.TrimSpace(sess.UserID) == "" {
		return ErrUserIDRequired
	}
	createdAt := sess.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx,
			`INSERT INTO user_sessions (session_id, user_id, created_at) VALUES ($1, $2, $3)`,
			sess.ID, sess.UserID, createdAt)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert session: %w", apperrors.MapDBError(err))
	}
	return nil
}

// Search returns matching sessions ordered by created_at, then session_id.
func (r *SessionRepo) Search(ctx context.Context, filter ports.SessionFilter) ([]domainauth.Session, error) {
	var rows []sessionRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		query := `SELECT ` + sessionColumns + ` FROM user_sessions WHERE 1=1`
		var args []any

		if filter.SessionID != "" {
			args = append(args, filter.SessionID)
			query += fmt.Sprintf(" AND session_id = $%d", len(args))
		}
		if filter.UserID != "" {
			args = append(args, filter.UserID)
			query += fmt.Sprintf(" AND user_id = $%d", len(args))
		}
		query += " ORDER BY created_at ASC, session_id ASC"

		res, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer res.Close()

		rows, err = pgx.CollectRows(res, pgx.RowToStructByName[sessionRow])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search sessions: %w", apperrors.MapDBError(err))
	}

	out := make([]domainauth.Session, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// Remove deletes the record for sess.ID. Removing a missing record is not an error.
func (r *SessionRepo) Remove(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return ErrSessionIDRequired
	}
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `DELETE FROM user_sessions WHERE session_id = $1`, sess.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", apperrors.MapDBError(err))
	}
	return nil
}

// PurgeCreatedBefore deletes every session created before cutoff.
func (r *SessionRepo) PurgeCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM user_sessions WHERE created_at < $1`, cutoff)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", apperrors.MapDBError(err))
	}
	return n, nil
}

// Count returns the number of stored sessions.
func (r *SessionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, `SELECT count(*) FROM user_sessions`).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", apperrors.MapDBError(err))
	}
	return n, nil
}
