package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts hits per key in fixed windows.
type Limiter interface {
	// Allow records one hit for key and reports whether it is within limit.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RedisLimiter shares counters across instances through Redis.
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
}

func NewRedisLimiter(client redis.Cmdable) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: "rate_limit"}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := r.key(key)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit transaction: %w", err)
	}
	return incr.Val() <= int64(limit), nil
}

func (r *RedisLimiter) key(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}

// sweepInterval bounds how often MemoryLimiter scans for expired windows.
const sweepInterval = time.Minute

// MemoryLimiter is used when no Redis address is configured. Counters are
// local to the process. Expired windows are dropped by a sweep that runs on
// Allow at most once per sweepInterval.
type MemoryLimiter struct {
	mu        sync.Mutex
	windows   map[string]*memWindow
	nextSweep time.Time
	now       func() time.Time
}

type memWindow struct {
	count   int
	resetAt time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*memWindow), now: time.Now}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !now.Before(m.nextSweep) {
		m.sweep(now)
		m.nextSweep = now.Add(sweepInterval)
	}

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &memWindow{resetAt: now.Add(window)}
		m.windows[key] = w
	}
	w.count++
	return w.count <= limit, nil
}

func (m *MemoryLimiter) sweep(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}
