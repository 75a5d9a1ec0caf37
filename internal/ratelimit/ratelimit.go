// Package ratelimit provides per-client request limiters for the HTTP layer.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more request for key fits the budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter counts requests per key in fixed one-minute windows.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	count       int
	windowStart time.Time
}

func NewMemoryLimiter(requestsPerMinute int) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   requestsPerMinute,
		window:  time.Minute,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[key]
	if !ok || now.Sub(c.windowStart) >= l.window {
		l.clients[key] = &client{count: 1, windowStart: now}
		return true, nil
	}
	c.count++
	return c.count <= l.limit, nil
}

// Sweep drops idle entries every interval until ctx is done.
func (l *MemoryLimiter) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evictIdle()
		}
	}
}

func (l *MemoryLimiter) evictIdle() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for key, c := range l.clients {
		if now.Sub(c.windowStart) > 2*l.window {
			delete(l.clients, key)
			evicted++
		}
	}
	return evicted
}

// RedisLimiter is a sliding-window limiter shared by every server instance.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, requestsPerMinute int) *RedisLimiter {
	return &RedisLimiter{client: client, limit: requestsPerMinute, window: time.Minute}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	now := time.Now()
	redisKey := fmt.Sprintf("ratelimit:%s:%s", key, l.window)
	windowStart := now.Add(-l.window).UnixNano()
	nowNano := now.UnixNano()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart))
	zcard := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(nowNano), Member: nowNano})
	pipe.Expire(ctx, redisKey, l.window+time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}
	return zcard.Val() < int64(l.limit), nil
}
