package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const (
	redisLockPrefix = "stocksync:sheetlock:"
	redisLockTTL    = 2 * time.Minute
	redisRetryEvery = 250 * time.Millisecond
)

// RedisLocker is a SheetLocker backed by redislock, extending the
// single-writer guarantee across process instances
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewRedisLocker creates a new Redis-backed locker
func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    redisLockTTL,
	}
}

// Acquire obtains the distributed lock for the spreadsheet, retrying until
// the context is cancelled
func (l *RedisLocker) Acquire(ctx context.Context, spreadsheetID string) (Handle, error) {
	held, err := l.client.Obtain(ctx, redisLockPrefix+spreadsheetID, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(redisRetryEvery),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to obtain sheet lock for %s: %w", spreadsheetID, err)
	}
	return &redisHandle{lock: held}, nil
}

type redisHandle struct {
	lock *redislock.Lock
}

// Release gives the distributed lock back
func (h *redisHandle) Release(ctx context.Context) error {
	return h.lock.Release(ctx)
}
