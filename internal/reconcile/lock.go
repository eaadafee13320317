package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// NameLocker serializes passes that touch the same normalized names. The
// store's partial unique index already guarantees correctness; a locker only
// saves passes from losing races and retrying.
type NameLocker interface {
	Lock(ctx context.Context, keys []string) (unlock func(), err error)
}

type NoopLocker struct{}

func (NoopLocker) Lock(context.Context, []string) (func(), error) { return func() {}, nil }

var ErrLockTimeout = errors.New("timed out waiting for parameter name lock")

type RedisNameLocker struct {
	locker *redislock.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisNameLocker(rdb redis.UniversalClient, prefix string, ttl, wait time.Duration) *RedisNameLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if wait <= 0 {
		wait = 10 * time.Second
	}
	return &RedisNameLocker{locker: redislock.New(rdb), prefix: prefix, ttl: ttl, wait: wait}
}

// Lock takes one lock per key in sorted order so two passes with
// overlapping key sets cannot deadlock.
func (l *RedisNameLocker) Lock(ctx context.Context, keys []string) (func(), error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	held := make([]*redislock.Lock, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			_ = held[i].Release(context.Background())
		}
	}
	opts := &redislock.Options{RetryStrategy: redislock.LinearBackoff(50 * time.Millisecond)}
	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		lock, err := l.locker.Obtain(waitCtx, l.prefix+"lock:param:"+key, l.ttl, opts)
		if err != nil {
			release()
			if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
			}
			return nil, fmt.Errorf("obtain lock %q: %w", key, err)
		}
		held = append(held, lock)
	}
	return release, nil
}
