package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateGetDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", sess.UserID)
	assert.False(t, sess.CreatedAt.IsZero())
	_, err = uuid.Parse(sess.ID)
	require.NoError(t, err, "session IDs are canonical UUIDs")

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	removed, err := store.Delete(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	first, err := store.Delete(ctx, sess.ID)
	require.NoError(t, err)
	second, err := store.Delete(ctx, sess.ID)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestMemoryStore_BlankInput(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, in := range []string{"", "   "} {
		_, err := store.Create(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidUserID)

		_, err = store.Get(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidSessionID)
		assert.True(t, IsAbsent(err))

		removed, err := store.Delete(ctx, in)
		require.NoError(t, err)
		assert.False(t, removed)
	}

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryStore_UnknownSession(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsAbsent(err))
}

func TestMemoryStore_MultipleSessionsPerUser(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	b, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)

	_, err = store.Delete(ctx, a.ID)
	require.NoError(t, err)

	got, err := store.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
}

func TestMemoryStore_UserOperations(t *testing.T) {
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	_, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	clock = clock.Add(time.Minute)
	_, err = store.Create(ctx, "user-1")
	require.NoError(t, err)
	_, err = store.Create(ctx, "user-2")
	require.NoError(t, err)

	list, err := store.ListForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].CreatedAt.Before(list[1].CreatedAt))

	n, err := store.DeleteForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	total, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestMemoryStore_PurgeCreatedBefore(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := t0
	store := NewMemoryStore(WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	old, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	clock = t0.Add(time.Hour)
	fresh, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	n, err := store.PurgeCreatedBefore(ctx, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.Get(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const workers = 16
	const perWorker = 50

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]struct{}, workers*perWorker)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				sess, err := store.Create(ctx, "user-1")
				if !assert.NoError(t, err) {
					return
				}
				_, err = store.Get(ctx, sess.ID)
				assert.NoError(t, err)

				mu.Lock()
				ids[sess.ID] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ids, workers*perWorker)
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker, n)
}
