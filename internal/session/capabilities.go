package session

import (
	"context"
	"errors"
	"time"

	domainauth "github.com/target/sessionauth/internal/domain/auth"
)

// ErrUnsupported is returned when a store lacks an optional capability.
var ErrUnsupported = errors.New("operation not supported by session store")

// UserSessions is implemented by stores that can enumerate sessions per user.
type UserSessions interface {
	ListForUser(ctx context.Context, userID string) ([]domainauth.Session, error)
	DeleteForUser(ctx context.Context, userID string) (int, error)
}

// Purger is implemented by stores that can drop sessions older than a cutoff.
type Purger interface {
	PurgeCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Counter is implemented by stores that can report how many sessions they hold.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

var (
	_ UserSessions = (*MemoryStore)(nil)
	_ Purger       = (*MemoryStore)(nil)
	_ Counter      = (*MemoryStore)(nil)
	_ UserSessions = (*PersistentStore)(nil)
	_ Purger       = (*PersistentStore)(nil)
	_ Counter      = (*PersistentStore)(nil)
	_ UserSessions = (*ExpiringStore)(nil)
	_ Purger       = (*ExpiringStore)(nil)
	_ Counter      = (*ExpiringStore)(nil)
)
