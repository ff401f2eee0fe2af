package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	TTL        time.Duration
	RetryDelay time.Duration
	MaxRetries int
	Prefix     string
}

// RedisLocker serializes keys across processes with redislock.
type RedisLocker struct {
	client *redislock.Client
	opts   RedisOptions
}

func NewRedisLocker(rdb redis.UniversalClient, opts RedisOptions) *RedisLocker {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 50 * time.Millisecond
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 100
	}
	if opts.Prefix == "" {
		opts.Prefix = "lock:"
	}
	return &RedisLocker{client: redislock.New(rdb), opts: opts}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string) (Release, error) {
	lk, err := l.client.Obtain(ctx, l.opts.Prefix+key, l.opts.TTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.opts.RetryDelay), l.opts.MaxRetries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain redis lock: %w", err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release with a fresh context: the request context may already be done.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := lk.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				slog.Error("Failed to release lock", "key", key, "error", err)
			}
		})
	}, nil
}
