package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	domainauth "github.com/target/sessionauth/internal/domain/auth"
	"github.com/target/sessionauth/internal/observability/metrics"
	"github.com/target/sessionauth/internal/ports"
	"github.com/target/sessionauth/internal/session"
)

var _ ports.SessionStrategy = (*SessionAuth)(nil)

// SessionAuthOptions groups dependencies for SessionAuth.
type SessionAuthOptions struct {
	Store      ports.SessionStore // Required: memory, expiring or persistent store
	Users      ports.UserStore    // Required: user lookup
	CookieName string             // Optional: session cookie name
	Logger     *slog.Logger       // Optional: structured logger
	Metrics    *metrics.Recorder  // Optional: Prometheus recorder
}

// SessionAuth is the cookie-session strategy. Which session semantics apply
// (in-memory, expiring, persistent) is decided by the store it is built with.
type SessionAuth struct {
	*Auth

	store   ports.SessionStore
	users   ports.UserStore
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// NewSessionAuth constructs a SessionAuth.
func NewSessionAuth(opts SessionAuthOptions) (*SessionAuth, error) {
	if opts.Store == nil {
		return nil, errors.New("session store is required")
	}
	if opts.Users == nil {
		return nil, errors.New("user store is required")
	}

	base := NewAuth(AuthOptions{CookieName: opts.CookieName, Logger: opts.Logger})
	return &SessionAuth{
		Auth:    base,
		store:   opts.Store,
		users:   opts.Users,
		logger:  base.logger.With("component", "session_auth"),
		metrics: opts.Metrics,
	}, nil
}

// Store returns the underlying session store.
func (s *SessionAuth) Store() ports.SessionStore { return s.store }

// Users returns the user store sessions resolve against.
func (s *SessionAuth) Users() ports.UserStore { return s.users }

// CreateSession issues a session for userID and returns its ID.
func (s *SessionAuth) CreateSession(ctx context.Context, userID string) (string, error) {
	sess, err := s.store.Create(ctx, userID)
	if err != nil {
		if session.IsAbsent(err) {
			return "", err
		}
		return "", fmt.Errorf("create session: %w", err)
	}
	s.metrics.SessionCreated()
	s.logger.DebugContext(ctx, "session created", "user_id", userID)
	return sess.ID, nil
}

// UserIDForSessionID resolves a session to its user ID.
// Unknown, expired and blank IDs yield an error for which session.IsAbsent is true.
func (s *SessionAuth) UserIDForSessionID(ctx context.Context, sessionID string) (string, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if session.IsAbsent(err) {
			return "", err
		}
		return "", fmt.Errorf("get session: %w", err)
	}
	return sess.UserID, nil
}

// DestroySession removes the session named by the request's cookie.
// It reports false when there is no request, no cookie, or no such session.
func (s *SessionAuth) DestroySession(r *http.Request) (bool, error) {
	id, ok := s.SessionCookie(r)
	if !ok {
		return false, nil
	}

	removed, err := s.store.Delete(r.Context(), id)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	if removed {
		s.metrics.SessionsDestroyed(1)
	}
	return removed, nil
}

// DestroySessionID removes a session by ID.
func (s *SessionAuth) DestroySessionID(ctx context.Context, sessionID string) (bool, error) {
	removed, err := s.store.Delete(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	if removed {
		s.metrics.SessionsDestroyed(1)
	}
	return removed, nil
}

// CurrentUser resolves the session cookie to a user.
// Any absence (cookie, session or user) yields nil without error.
func (s *SessionAuth) CurrentUser(r *http.Request) (*domainauth.User, error) {
	id, ok := s.SessionCookie(r)
	if !ok {
		return nil, nil
	}
	ctx := r.Context()

	userID, err := s.UserIDForSessionID(ctx, id)
	if err != nil {
		if session.IsAbsent(err) {
			return nil, nil
		}
		return nil, err
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			s.logger.DebugContext(ctx, "session refers to unknown user", "user_id", userID)
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// DestroyUserSessions removes every session belonging to userID.
func (s *SessionAuth) DestroyUserSessions(ctx context.Context, userID string) (int, error) {
	us, ok := s.store.(session.UserSessions)
	if !ok {
		return 0, session.ErrUnsupported
	}
	n, err := us.DeleteForUser(ctx, userID)
	if err != nil {
		return n, fmt.Errorf("delete user sessions: %w", err)
	}
	s.metrics.SessionsDestroyed(n)
	if n > 0 {
		s.logger.InfoContext(ctx, "revoked user sessions", "user_id", userID, "count", n)
	}
	return n, nil
}

// SessionCount returns the number of stored sessions when the store can report it.
func (s *SessionAuth) SessionCount(ctx context.Context) (int, error) {
	c, ok := s.store.(session.Counter)
	if !ok {
		return 0, session.ErrUnsupported
	}
	return c.Count(ctx)
}
