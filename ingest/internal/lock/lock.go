// Package lock serialises the uniqueness check and write for one model name
// across ingest replicas.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned when another submission holds the name.
var ErrHeld = errors.New("name is locked by another submission")

// Locker acquires a name-scoped lease.
type Locker interface {
	Acquire(ctx context.Context, name string) (Lease, error)
}

// Lease is a held lock. Release is safe to call more than once.
type Lease interface {
	Release(ctx context.Context) error
}

// releaseScript deletes the key only while it still carries our token, so an
// expired lease cannot free a lock that a later submission now holds.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLocker implements Locker with SET NX PX.
type RedisLocker struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisLocker creates a locker whose leases expire after ttl.
func NewRedisLocker(client redis.Cmdable, prefix string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl}
}

// Acquire takes the lock for name. Names are compared case-insensitively,
// matching the uniqueness check.
func (l *RedisLocker) Acquire(ctx context.Context, name string) (Lease, error) {
	key := l.prefix + strings.ToLower(name)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrHeld
	}
	return &redisLease{client: l.client, key: key, token: token}, nil
}

type redisLease struct {
	client   redis.Cmdable
	key      string
	token    string
	released bool
}

func (r *redisLease) Release(ctx context.Context) error {
	if r.released {
		return nil
	}
	r.released = true
	if err := releaseScript.Run(ctx, r.client, []string{r.key}, r.token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", r.key, err)
	}
	return nil
}

// Noop grants every lease. Used when Redis is disabled; the conditional
// object write still guards against duplicates.
type Noop struct{}

func (Noop) Acquire(context.Context, string) (Lease, error) { return noopLease{}, nil }

type noopLease struct{}

func (noopLease) Release(context.Context) error { return nil }
