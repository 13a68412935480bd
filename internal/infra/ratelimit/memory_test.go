package ratelimit

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryLimiter_SlidingWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewMemoryLimiter(MemoryLimiterConfig{Now: clock.now})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "ip:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
		clock.advance(10 * time.Second)
	}
	d, err := l.Allow(ctx, "ip:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, clock.t.Add(-30*time.Second).Add(time.Minute), d.ResetAt)

	// The first hit leaves the window 60s after it happened, freeing exactly one slot.
	clock.advance(31 * time.Second)
	d, err = l.Allow(ctx, "ip:1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	d, err = l.Allow(ctx, "ip:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	other, err := l.Allow(ctx, "ip:2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestMemoryLimiter_BoundedKeys(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewMemoryLimiter(MemoryLimiterConfig{Now: clock.now, MaxKeys: 4}).(*memoryLimiter)
	for i := 0; i < 20; i++ {
		_, err := l.Allow(context.Background(), fmt.Sprintf("caller-%d", i), 1, time.Minute)
		require.NoError(t, err)
		clock.advance(time.Second)
		assert.LessOrEqual(t, l.size(), 4)
	}
	_, stillThere := l.data["caller-19"]
	assert.True(t, stillThere)
	_, evicted := l.data["caller-0"]
	assert.False(t, evicted)
}

func TestMemoryLimiter_DisabledLimit(t *testing.T) {
	l := NewMemoryLimiter(MemoryLimiterConfig{})
	d, err := l.Allow(context.Background(), "k", 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisLimiter_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	l, err := NewRedisLimiter(addr, "", 0, nil)
	require.NoError(t, err)
	key := fmt.Sprintf("test-%d", time.Now().UnixNano())
	for i := 0; i < 2; i++ {
		d, err := l.Allow(context.Background(), key, 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := l.Allow(context.Background(), key, 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}
