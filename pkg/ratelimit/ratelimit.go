package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter backed by Redis, safe to share across
// multiple server processes. Each key (e.g. "login:<username>") gets its own
// window; the counter expires with the window so there is nothing to evict.
type Limiter struct {
	rdb    *redis.Client
	limit  int64
	window time.Duration
}

// New creates a Limiter allowing `limit` hits per `window` per key.
func New(rdb *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, limit: int64(limit), window: window}
}

// Allow records a hit against the key and reports whether it is still within
// the window's budget.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate counter %s: %w", key, err)
	}
	if count == 1 {
		// First hit opens the window.
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate window %s: %w", key, err)
		}
	}
	return count <= l.limit, nil
}

// Reset clears the counter for a key, e.g. after a successful login.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to reset rate counter %s: %w", key, err)
	}
	return nil
}
