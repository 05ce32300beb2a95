package mteam

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryRateLimiter(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d := rl.Allow(ctx, "user:bob", 3, time.Minute)
		require.True(t, d.allowed)
		require.Equal(t, i, d.count)
	}
	d := rl.Allow(ctx, "user:bob", 3, time.Minute)
	require.False(t, d.allowed)
	require.Equal(t, 4, d.count)
	require.True(t, rl.Allow(ctx, "user:carol", 3, time.Minute).allowed)
	require.True(t, rl.Allow(ctx, "user:bob", 0, time.Minute).allowed)
}

func TestMemoryCounterWindows(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	mc := &memoryCounter{
		windows: make(map[string]*memoryWindow),
		now:     func() time.Time { return now },
	}
	rl := newRateLimiter(mc, nil)
	ctx := context.Background()

	first := rl.Allow(ctx, "k", 1, time.Minute)
	require.True(t, first.allowed)
	require.Equal(t, now.Add(time.Minute), first.windowEnd)
	require.False(t, rl.Allow(ctx, "k", 1, time.Minute).allowed)

	now = now.Add(time.Minute)
	d := rl.Allow(ctx, "k", 1, time.Minute)
	require.True(t, d.allowed)
	require.Equal(t, 1, d.count)

	mc.evict(now.Add(time.Hour))
	require.Empty(t, mc.windows)
}

type brokenCounter struct{}

func (brokenCounter) incr(context.Context, string, time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("connection refused")
}

func (brokenCounter) close() error { return nil }

func TestRateLimiterFailsOpen(t *testing.T) {
	rl := newRateLimiter(brokenCounter{}, nil)
	defer rl.Close()

	for range 5 {
		require.True(t, rl.Allow(context.Background(), "k", 1, time.Minute).allowed)
	}
}

func TestRedisRateLimiter(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	db, _ := strconv.Atoi(os.Getenv("TEST_REDIS_DB"))

	rl, err := NewRedisRateLimiter(addr, os.Getenv("TEST_REDIS_PASSWORD"), db, zap.NewNop().Sugar())
	require.NoError(t, err)
	defer rl.Close()

	ctx := context.Background()
	key := "test:" + uuid.NewString()
	require.True(t, rl.Allow(ctx, key, 2, time.Minute).allowed)
	require.True(t, rl.Allow(ctx, key, 2, time.Minute).allowed)
	d := rl.Allow(ctx, key, 2, time.Minute)
	require.False(t, d.allowed)
	require.Equal(t, 3, d.count)
	require.True(t, d.windowEnd.After(time.Now()))
}
