package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryConsumeBoundaryAndNextDay(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)
	l := NewLimiter(NewMemStore(), 4)
	l.now = func() time.Time { return now }

	for i := 1; i <= 4; i++ {
		res, err := l.TryConsume(ctx, "g1", "mod", "ban")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "call %d", i)
		assert.Equal(t, i, res.Used)
		assert.Equal(t, 4-i, res.Remaining)
	}

	res, err := l.TryConsume(ctx, "g1", "mod", "ban")
	require.NoError(t, err)
	assert.Equal(t, Result{Allowed: false, Used: 4, Remaining: 0}, res)

	// other actions and moderators have their own counters
	res, err = l.TryConsume(ctx, "g1", "mod", "kick")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	now = now.Add(2 * time.Minute)
	res, err = l.TryConsume(ctx, "g1", "mod", "ban")
	require.NoError(t, err)
	assert.Equal(t, Result{Allowed: true, Used: 1, Remaining: 3}, res)
}

func TestUsageDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(NewMemStore(), 0)
	assert.Equal(t, DefaultDailyCap, l.Cap)

	_, err := l.TryConsume(ctx, "g1", "mod", "warn")
	require.NoError(t, err)

	res, err := l.Usage(ctx, "g1", "mod", "warn")
	require.NoError(t, err)
	assert.Equal(t, Result{Allowed: true, Used: 1, Remaining: 3}, res)

	res, err = l.Usage(ctx, "g1", "mod", "warn")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Used)
}

func TestConcurrentConsumeNeverExceedsCap(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(NewMemStore(), 4)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.TryConsume(ctx, "g1", "mod", "jail")
			if err == nil && res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 4, allowed)
}
