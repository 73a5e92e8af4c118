package session

import (
	"context"
	"slices"
	"sync"
	"time"

	domainauth "github.com/target/sessionauth/internal/domain/auth"
	"github.com/target/sessionauth/internal/ports"
)

var _ ports.SessionStore = (*MemoryStore)(nil)

// MemoryStore keeps sessions in process memory. It is safe for concurrent use.
// Sessions do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]domainauth.Session
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		sessions: make(map[string]domainauth.Session),
		now:      o.now,
	}
}

// Create issues a new session for userID. Every call yields a distinct ID.
func (s *MemoryStore) Create(_ context.Context, userID string) (domainauth.Session, error) {
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
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	return sess, nil
}

// Get returns the session for sessionID.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (domainauth.Session, error) {
	if blank(sessionID) {
		return domainauth.Session{}, ErrInvalidSessionID
	}

	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

// Delete removes the session and reports whether it existed.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) (bool, error) {
	if blank(sessionID) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return false, nil
	}
	delete(s.sessions, sessionID)
	return true, nil
}

// ListForUser returns the user's sessions ordered by creation time.
func (s *MemoryStore) ListForUser(_ context.Context, userID string) ([]domainauth.Session, error) {
	s.mu.RLock()
	out := make([]domainauth.Session, 0)
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	s.mu.RUnlock()

	sortSessions(out)
	return out, nil
}

// DeleteForUser removes every session belonging to userID.
func (s *MemoryStore) DeleteForUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// PurgeCreatedBefore drops sessions created before cutoff.
func (s *MemoryStore) PurgeCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sess := range s.sessions {
		if sess.CreatedAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}

func sortSessions(list []domainauth.Session) {
	slices.SortFunc(list, domainauth.CompareSessions)
}
