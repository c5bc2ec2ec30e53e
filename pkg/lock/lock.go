// Package lock provides cross-process mutual exclusion on top of Redis.
//
// Workers running the reminder processor are independent deployments with no
// shared memory, so every mutation of a reminder row happens under a lease
// from this package. A lease auto-expires after its TTL, which bounds how
// long a crashed holder can block other workers.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker hands out TTL-bounded leases. Acquire is atomic: it fails
// immediately when the key is already held, it never waits.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// releaseScript deletes the key only if it still holds our token, so a lease
// that expired and was re-acquired by another worker is never released by the
// old holder.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

type redisLocker struct {
	client  *redis.Client
	release *redis.Script
}

func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{
		client:  client,
		release: redis.NewScript(releaseScript),
	}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}

	return token, true, nil
}

func (l *redisLocker) Release(ctx context.Context, key, token string) error {
	if err := l.release.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}

	return nil
}
