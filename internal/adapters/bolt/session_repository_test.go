package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/sessionauth/internal/domain/auth"
	"github.com/target/sessionauth/internal/ports"
	"github.com/target/sessionauth/internal/session"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) (*SessionRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.db")
	repo, err := OpenFile(path, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo, path
}

func TestSessionRepository_SaveSearchRemove(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domainauth.Session{ID: "b", UserID: "u1", CreatedAt: t0}))
	require.NoError(t, repo.Save(ctx, domainauth.Session{ID: "a", UserID: "u1", CreatedAt: t0}))
	require.NoError(t, repo.Save(ctx, domainauth.Session{ID: "c", UserID: "u2", CreatedAt: t0.Add(-time.Hour)}))

	all, err := repo.Search(ctx, ports.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{all[0].ID, all[1].ID, all[2].ID})

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	byUser, err := repo.Search(ctx, ports.SessionFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	one, err := repo.Search(ctx, ports.SessionFilter{SessionID: "c", UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, one)

	require.NoError(t, repo.Remove(ctx, domainauth.Session{ID: "a"}))
	require.NoError(t, repo.Remove(ctx, domainauth.Session{ID: "a"}))

	byUser, err = repo.Search(ctx, ports.SessionFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, "b", byUser[0].ID)

	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSessionRepository_Validation(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	assert.ErrorIs(t, repo.Save(ctx, domainauth.Session{UserID: "u"}), ErrSessionIDRequired)
	assert.ErrorIs(t, repo.Save(ctx, domainauth.Session{ID: "s"}), ErrUserIDRequired)
	assert.ErrorIs(t, repo.Remove(ctx, domainauth.Session{}), ErrSessionIDRequired)

	require.NoError(t, repo.Save(ctx, domainauth.Session{ID: "s", UserID: "u", CreatedAt: t0}))
	assert.ErrorIs(t, repo.Save(ctx, domainauth.Session{ID: "s", UserID: "u", CreatedAt: t0}), ErrDuplicateSession)
}

func TestSessionRepository_CanceledContext(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Search(ctx, ports.SessionFilter{})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = repo.Count(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionRepository_PurgeCreatedBefore(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domainauth.Session{ID: "old", UserID: "u", CreatedAt: t0.Add(-2 * time.Minute)}))
	require.NoError(t, repo.Save(ctx, domainauth.Session{ID: "edge", UserID: "u", CreatedAt: t0}))
	require.NoError(t, repo.Save(ctx, domainauth.Session{ID: "new", UserID: "u", CreatedAt: t0.Add(time.Minute)}))

	n, err := repo.PurgeCreatedBefore(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.PurgeCreatedBefore(ctx, t0.Add(time.Nanosecond))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := repo.Search(ctx, ports.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].ID)
}

func TestSessionRepository_SurvivesReopen(t *testing.T) {
	repo, path := newTestRepo(t)
	ctx := context.Background()

	store := session.NewPersistentStore(repo)
	created, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := OpenFile(path, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := session.NewPersistentStore(reopened).Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
}
