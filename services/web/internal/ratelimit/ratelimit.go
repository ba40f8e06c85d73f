package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window attempt counter backed by Redis. A Limiter with a
// nil client allows every attempt.
type Limiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// New returns a Limiter allowing limit attempts per key within window.
func New(client *redis.Client, prefix string, limit int64, window time.Duration) *Limiter {
	return &Limiter{client: client, prefix: prefix, limit: limit, window: window}
}

// NewFromURL connects to redisURL; an empty URL yields a disabled Limiter.
func NewFromURL(redisURL, prefix string, limit int64, window time.Duration) (*Limiter, error) {
	if redisURL == "" {
		return New(nil, prefix, limit, window), nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return New(redis.NewClient(opt), prefix, limit, window), nil
}

// Allow counts an attempt for key and reports whether it is within the limit.
// Redis errors allow the attempt and are returned for logging.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.client == nil || l.limit <= 0 {
		return true, nil
	}

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, l.prefix+key)
	pipe.Expire(ctx, l.prefix+key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return incr.Val() <= l.limit, nil
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Del(ctx, l.prefix+key).Err()
}

// Ping checks the Redis connection when one is configured.
func (l *Limiter) Ping(ctx context.Context) error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (l *Limiter) Close() error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Close()
}
