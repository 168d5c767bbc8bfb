package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterWindow(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "login:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "login:1.2.3.4", 3, time.Minute)
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "login:5.6.7.8", 3, time.Minute)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	ok, _ = l.Allow(ctx, "login:1.2.3.4", 3, time.Minute)
	assert.True(t, ok)
}

func TestMemoryLimiterDropsExpiredWindows(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 10000; i++ {
		_, err := l.Allow(ctx, fmt.Sprintf("login:10.0.%d.%d", i/256, i%256), 5, time.Minute)
		require.NoError(t, err)
	}
	assert.Len(t, l.windows, 10000)

	now = now.Add(24 * time.Hour)
	ok, err := l.Allow(ctx, "login:192.168.0.1", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, l.windows, 1)
}

func TestMemoryLimiterSweepKeepsLiveWindows(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_, _ = l.Allow(ctx, "contact:1.2.3.4", 2, time.Hour)
	}
	_, _ = l.Allow(ctx, "login:1.2.3.4", 2, time.Minute)

	now = now.Add(2 * time.Minute)
	_, _ = l.Allow(ctx, "login:5.6.7.8", 2, time.Minute)
	assert.Len(t, l.windows, 2)

	ok, _ := l.Allow(ctx, "contact:1.2.3.4", 2, time.Hour)
	assert.False(t, ok, "the hourly window survives the sweep with its count")
}

func TestRedisLimiterKey(t *testing.T) {
	l := NewRedisLimiter(redis.NewClient(&redis.Options{Addr: "localhost:0"}))
	assert.Equal(t, "rate_limit:login:1.2.3.4", l.key("login:1.2.3.4"))
}
