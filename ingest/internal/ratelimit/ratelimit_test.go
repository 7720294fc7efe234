package ratelimit

import (
	"context"
	"sync"
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

func TestNoOpRateLimiter(t *testing.T) {
	limiter := NoOpRateLimiter{}
	for i := 0; i < 10; i++ {
		allowed, err := limiter.Allow(context.Background(), "anyone")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestRedisRateLimiter_Limit(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := NewRedisRateLimiter(client, "ratelimit:", 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
	}

	allowed, err := limiter.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, allowed, "keys are independent")
}

func TestRedisRateLimiter_WindowSlides(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := NewRedisRateLimiter(client, "ratelimit:", 1, time.Minute).(*redisRateLimiter)
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	allowed, err := limiter.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, allowed)

	now = now.Add(61 * time.Second)
	allowed, err = limiter.Allow(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_SameInstantRequestsCountSeparately(t *testing.T) {
	_, client := setupTestRedis(t)
	limiter := NewRedisRateLimiter(client, "ratelimit:", 5, time.Minute).(*redisRateLimiter)
	fixed := time.Now()
	limiter.now = func() time.Time { return fixed }

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := limiter.Allow(context.Background(), "burst")
			if err == nil && ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, admitted)
}

func TestRedisRateLimiter_RedisDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	limiter := NewRedisRateLimiter(client, "ratelimit:", 5, time.Minute)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "alice")
	assert.Error(t, err)
}
