package session

import (
	"context"
	"fmt"
	"time"

	domainauth "github.com/target/sessionauth/internal/domain/auth"
	"github.com/target/sessionauth/internal/ports"
)

var _ ports.SessionStore = (*PersistentStore)(nil)

// PersistentStore keeps sessions in a durable repository so they survive restarts.
// It holds no state of its own. Wrap it in an ExpiringStore to enforce a lifetime.
//
// Get and Delete are separate repository round trips; a Get racing a Delete may
// still return the session. Callers tolerate that window.
type PersistentStore struct {
	repo ports.SessionRepository
	now  func() time.Time
}

// NewPersistentStore creates a store over repo.
func NewPersistentStore(repo ports.SessionRepository, opts ...Option) *PersistentStore {
	o := buildOptions(opts)
	return &PersistentStore{repo: repo, now: o.now}
}

// Create issues a new session and persists it.
func (s *PersistentStore) Create(ctx context.Context, userID string) (domainauth.Session, error) {
	if blank(userID) {
		return domainauth.Session{}, ErrInvalidUserID
	}

	id, err := NewID()
	if err != nil {
		return domainauth.Session{}, err
	}

	sess := domainauth.Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond), // durable backends keep at most microseconds
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// Get returns the first record matching sessionID.
func (s *PersistentStore) Get(ctx context.Context, sessionID string) (domainauth.Session, error) {
	if blank(sessionID) {
		return domainauth.Session{}, ErrInvalidSessionID
	}

	found, err := s.repo.Search(ctx, ports.SessionFilter{SessionID: sessionID})
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("search sessions: %w", err)
	}
	if len(found) == 0 {
		return domainauth.Session{}, ErrNotFound
	}
	return found[0], nil
}

// Delete removes every record matching sessionID and reports whether any existed.
func (s *PersistentStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	if blank(sessionID) {
		return false, nil
	}

	found, err := s.repo.Search(ctx, ports.SessionFilter{SessionID: sessionID})
	if err != nil {
		return false, fmt.Errorf("search sessions: %w", err)
	}
	n, err := s.removeAll(ctx, found)
	return n > 0, err
}

// ListForUser returns every stored session of userID, expired ones included.
func (s *PersistentStore) ListForUser(ctx context.Context, userID string) ([]domainauth.Session, error) {
	if blank(userID) {
		return nil, ErrInvalidUserID
	}
	found, err := s.repo.Search(ctx, ports.SessionFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("search sessions: %w", err)
	}
	return found, nil
}

// DeleteForUser removes every session of userID.
func (s *PersistentStore) DeleteForUser(ctx context.Context, userID string) (int, error) {
	found, err := s.ListForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return s.removeAll(ctx, found)
}

func (s *PersistentStore) PurgeCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.repo.PurgeCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}

// Count returns the number of stored records. Repositories that implement
// Counter answer directly; others are counted through a full Search.
func (s *PersistentStore) Count(ctx context.Context) (int, error) {
	if c, ok := s.repo.(Counter); ok {
		n, err := c.Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("count sessions: %w", err)
		}
		return n, nil
	}
	found, err := s.repo.Search(ctx, ports.SessionFilter{})
	if err != nil {
		return 0, fmt.Errorf("search sessions: %w", err)
	}
	return len(found), nil
}

func (s *PersistentStore) removeAll(ctx context.Context, list []domainauth.Session) (int, error) {
	removed := 0
	for _, sess := range list {
		if err := s.repo.Remove(ctx, sess); err != nil {
			return removed, fmt.Errorf("remove session: %w", err)
		}
		removed++
	}
	return removed, nil
}
