package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	domainauth "github.com/target/sessionauth/internal/domain/auth"
	"github.com/target/sessionauth/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.UserStore         = (*MemoryUserStore)(nil)
	_ ports.SessionRepository = (*MemorySessionRepository)(nil)
	_ ports.AuthStrategy      = (*StubStrategy)(nil)
)

// MemoryUserStore resolves users from a fixed set keyed by ID and email.
type MemoryUserStore struct {
	GetFunc func(ctx context.Context, idOrEmail string) (*domainauth.User, error)

	mu    sync.RWMutex
	users map[string]domainauth.User
}

// NewMemoryUserStore creates a store pre-populated with users.
func NewMemoryUserStore(users ...domainauth.User) *MemoryUserStore {
	m := &MemoryUserStore{users: make(map[string]domainauth.User)}
	for _, u := range users {
		m.Add(u)
	}
	return m
}

// Add registers a user.
func (m *MemoryUserStore) Add(u domainauth.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users == nil {
		m.users = make(map[string]domainauth.User)
	}
	m.users[u.ID] = u
}

func (m *MemoryUserStore) Get(ctx context.Context, idOrEmail string) (*domainauth.User, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, idOrEmail)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if u, ok := m.users[idOrEmail]; ok {
		return &u, nil
	}
	for _, u := range m.users {
		if u.Email != "" && strings.EqualFold(u.Email, idOrEmail) {
			return &u, nil
		}
	}
	return nil, ports.ErrUserNotFound
}

// MemorySessionRepository is an in-memory ports.SessionRepository for unit tests.
// Unlike a real table it does not enforce session ID uniqueness, so tests can
// seed duplicate records.
type MemorySessionRepository struct {
	SaveErr   error
	SearchErr error
	RemoveErr error

	mu      sync.Mutex
	records []domainauth.Session
}

// NewMemorySessionRepository creates an empty repository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{}
}

func (m *MemorySessionRepository) Save(_ context.Context, sess domainauth.Session) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	m.records = append(m.records, sess)
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionRepository) Search(_ context.Context, filter ports.SessionFilter) ([]domainauth.Session, error) {
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domainauth.Session, 0)
	for _, r := range m.records {
		if filter.SessionID != "" && r.ID != filter.SessionID {
			continue
		}
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		out = append(out, r)
	}
	slices.SortStableFunc(out, domainauth.CompareSessions)
	return out, nil
}

// Remove deletes the first record equal to sess. Missing records are ignored.
func (m *MemorySessionRepository) Remove(_ context.Context, sess domainauth.Session) error {
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.records {
		if r.ID == sess.ID && r.UserID == sess.UserID && r.CreatedAt.Equal(sess.CreatedAt) {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemorySessionRepository) PurgeCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	var n int64
	for _, r := range m.records {
		if r.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return n, nil
}

// Len returns the number of stored records.
func (m *MemorySessionRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// StubStrategy is a function-field ports.AuthStrategy. Nil fields fall back to
// "auth required, no credentials, no user".
type StubStrategy struct {
	RequireAuthFunc         func(path string, excluded []string) bool
	AuthorizationHeaderFunc func(r *http.Request) (string, bool)
	SessionCookieFunc       func(r *http.Request) (string, bool)
	CurrentUserFunc         func(r *http.Request) (*domainauth.User, error)
}

func (s *StubStrategy) RequireAuth(path string, excluded []string) bool {
	if s.RequireAuthFunc != nil {
		return s.RequireAuthFunc(path, excluded)
	}
	return true
}

func (s *StubStrategy) AuthorizationHeader(r *http.Request) (string, bool) {
	if s.AuthorizationHeaderFunc != nil {
		return s.AuthorizationHeaderFunc(r)
	}
	return "", false
}

func (s *StubStrategy) SessionCookie(r *http.Request) (string, bool) {
	if s.SessionCookieFunc != nil {
		return s.SessionCookieFunc(r)
	}
	return "", false
}

func (s *StubStrategy) CurrentUser(r *http.Request) (*domainauth.User, error) {
	if s.CurrentUserFunc != nil {
		return s.CurrentUserFunc(r)
	}
	return nil, nil
}
