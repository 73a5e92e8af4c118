package session

import (
	"context"
	"time"

	domainauth "github.com/target/sessionauth/internal/domain/auth"
	"github.com/target/sessionauth/internal/ports"
)

var _ ports.SessionStore = (*ExpiringStore)(nil)

// ExpiringStore wraps a session store with a fixed session lifetime.
// A non-positive lifetime disables expiry. Expired sessions are reported as
// ErrNotFound and left in place; a reaper or the inner store's own TTL removes them.
type ExpiringStore struct {
	inner    ports.SessionStore
	lifetime time.Duration
	now      func() time.Time
}

// NewExpiringStore decorates inner with the given session lifetime.
func NewExpiringStore(inner ports.SessionStore, lifetime time.Duration, opts ...Option) *ExpiringStore {
	o := buildOptions(opts)
	return &ExpiringStore{
		inner:    inner,
		lifetime: lifetime,
		now:      o.now,
	}
}

// Lifetime returns the configured session lifetime.
func (s *ExpiringStore) Lifetime() time.Duration { return s.lifetime }

// Inner returns the decorated store.
func (s *ExpiringStore) Inner() ports.SessionStore { return s.inner }

func (s *ExpiringStore) Create(ctx context.Context, userID string) (domainauth.Session, error) {
	return s.inner.Create(ctx, userID)
}

// Get returns the session unless its lifetime has elapsed.
// Records without a creation time are treated as non-expiring.
func (s *ExpiringStore) Get(ctx context.Context, sessionID string) (domainauth.Session, error) {
	sess, err := s.inner.Get(ctx, sessionID)
	if err != nil {
		return domainauth.Session{}, err
	}
	if sess.ExpiredAt(s.now(), s.lifetime) {
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *ExpiringStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	return s.inner.Delete(ctx, sessionID)
}

// ListForUser returns the user's unexpired sessions.
func (s *ExpiringStore) ListForUser(ctx context.Context, userID string) ([]domainauth.Session, error) {
	us, ok := s.inner.(UserSessions)
	if !ok {
		return nil, ErrUnsupported
	}
	all, err := us.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	live := all[:0]
	for _, sess := range all {
		if !sess.ExpiredAt(now, s.lifetime) {
			live = append(live, sess)
		}
	}
	return live, nil
}

func (s *ExpiringStore) DeleteForUser(ctx context.Context, userID string) (int, error) {
	us, ok := s.inner.(UserSessions)
	if !ok {
		return 0, ErrUnsupported
	}
	return us.DeleteForUser(ctx, userID)
}

func (s *ExpiringStore) PurgeCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	p, ok := s.inner.(Purger)
	if !ok {
		return 0, ErrUnsupported
	}
	return p.PurgeCreatedBefore(ctx, cutoff)
}

// PurgeExpired drops every session whose lifetime has elapsed.
// It is a no-op when expiry is disabled.
func (s *ExpiringStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s.lifetime <= 0 {
		return 0, nil
	}
	// CreatedAt+lifetime <= now  <=>  CreatedAt <= now-lifetime; the extra nanosecond
	// makes the strict Before in PurgeCreatedBefore include the boundary.
	return s.PurgeCreatedBefore(ctx, s.now().Add(-s.lifetime).Add(time.Nanosecond))
}

func (s *ExpiringStore) Count(ctx context.Context) (int, error) {
	c, ok := s.inner.(Counter)
	if !ok {
		return 0, ErrUnsupported
	}
	return c.Count(ctx)
}
