package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLocker_Exclusive(t *testing.T) {
	_, client := setupTestRedis(t)
	locker := NewRedisLocker(client, "lock:model:", 30*time.Second)
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "Deck_240101_000000")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "deck_240101_000000")
	assert.ErrorIs(t, err, ErrHeld, "names collide case-insensitively")

	other, err := locker.Acquire(ctx, "beam_240101_000000")
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	require.NoError(t, lease.Release(ctx), "second release is a no-op")

	again, err := locker.Acquire(ctx, "deck_240101_000000")
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestRedisLocker_Expiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisLocker(client, "lock:model:", time.Second)
	ctx := context.Background()

	stale, err := locker.Acquire(ctx, "deck_240101_000000")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	fresh, err := locker.Acquire(ctx, "deck_240101_000000")
	require.NoError(t, err, "expired lease frees the name")

	require.NoError(t, stale.Release(ctx))
	assert.True(t, mr.Exists("lock:model:deck_240101_000000"), "stale release leaves the new holder's key")

	require.NoError(t, fresh.Release(ctx))
	assert.False(t, mr.Exists("lock:model:deck_240101_000000"))
}

func TestRedisLocker_Unavailable(t *testing.T) {
	mr, client := setupTestRedis(t)
	locker := NewRedisLocker(client, "lock:model:", time.Second)
	mr.Close()

	_, err := locker.Acquire(context.Background(), "deck_240101_000000")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrHeld)
}

func TestNoop(t *testing.T) {
	lease, err := Noop{}.Acquire(context.Background(), "x")
	require.NoError(t, err)
	assert.NoError(t, lease.Release(context.Background()))
}
