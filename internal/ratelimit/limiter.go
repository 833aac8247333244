package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter answers whether a subject may perform a named action right now.
type Limiter interface {
	Allow(name, subject string) (bool, error)
}

// RedisLimiter is a fixed-window counter backed by Redis. The first hit in a
// window creates the key with a TTL; hits above the limit are rejected until
// the window expires.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: int64(limit), window: window}
}

func (l *RedisLimiter) Allow(name, subject string) (bool, error) {
	ctx := context.Background()
	key := fmt.Sprintf("rl:%s:%s", name, subject)

	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if n == 1 {
		// first hit opens the window
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return n <= l.limit, nil
}

// NopLimiter allows everything. Used when no Redis address is configured and
// as a test double.
type NopLimiter struct{}

func (NopLimiter) Allow(string, string) (bool, error) { return true, nil }
