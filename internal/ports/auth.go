package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/session, internal/data and internal/adapters;
// orchestration in internal/service.

import (
	"context"
	"errors"
	"net/http"
	"time"

	domainauth "github.com/target/sessionauth/internal/domain/auth"
)

// ErrUserNotFound is returned by a UserStore when no user matches the lookup key.
var ErrUserNotFound = errors.New("user not found")

// AuthStrategy is the capability set the request gate consults on every request.
type AuthStrategy interface {
	// RequireAuth reports whether path must be authenticated given the excluded paths.
	RequireAuth(path string, excluded []string) bool

	// AuthorizationHeader returns the raw Authorization header, if any.
	AuthorizationHeader(r *http.Request) (string, bool)

	// SessionCookie returns the session ID carried by the configured cookie, if any.
	SessionCookie(r *http.Request) (string, bool)

	// CurrentUser resolves the request to a user. A nil user with a nil error means
	// the credential did not resolve; an error means the lookup itself failed.
	CurrentUser(r *http.Request) (*domainauth.User, error)
}

// SessionStrategy is an AuthStrategy that also issues and destroys sessions.
type SessionStrategy interface {
	AuthStrategy

	CreateSession(ctx context.Context, userID string) (string, error)
	UserIDForSessionID(ctx context.Context, sessionID string) (string, error)
	DestroySession(r *http.Request) (bool, error)
}

// SessionStore issues, resolves and removes sessions.
// Stores compose: an expiring store wraps any other store.
type SessionStore interface {
	Create(ctx context.Context, userID string) (domainauth.Session, error)
	Get(ctx context.Context, sessionID string) (domainauth.Session, error)
	Delete(ctx context.Context, sessionID string) (bool, error)
}

// SessionFilter selects session records. Empty fields match everything.
type SessionFilter struct {
	SessionID string
	UserID    string
}

// SessionRepository is the durable backing store for persistent sessions.
// Search returns records ordered by creation time, then session ID.
type SessionRepository interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Search(ctx context.Context, filter SessionFilter) ([]domainauth.Session, error)
	Remove(ctx context.Context, sess domainauth.Session) error
	PurgeCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserStore looks up users by primary ID or email.
type UserStore interface {
	Get(ctx context.Context, idOrEmail string) (*domainauth.User, error)
}
