package middleware

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowsUpToLimitWithoutWaiting(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rl := NewRateLimiter(3, time.Minute, clock)

	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Acquire(context.Background()))
	}
	assert.Equal(t, 3, rl.InFlight())
}

func TestRateLimiter_BlocksUntilOldestLeavesWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rl := NewRateLimiter(2, time.Minute, clock)
	ctx := context.Background()

	require.NoError(t, rl.Acquire(ctx))
	clock.Advance(10 * time.Second)
	require.NoError(t, rl.Acquire(ctx))

	done := make(chan error, 1)
	go func() { done <- rl.Acquire(ctx) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	select {
	case <-done:
		t.Fatal("acquire returned while window was full")
	default:
	}

	// Первый вызов выпадает из окна через 50s после текущего момента.
	clock.Advance(49 * time.Second)
	select {
	case <-done:
		t.Fatal("acquire returned before the oldest call expired")
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(time.Second)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("acquire did not return after the window freed")
	}
	assert.Equal(t, 2, rl.InFlight())
}

func TestRateLimiter_CancelledContextStopsWaiting(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rl := NewRateLimiter(1, time.Minute, clock)

	require.NoError(t, rl.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rl.Acquire(ctx) }()

	require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("acquire ignored cancellation")
	}
	assert.Equal(t, 1, rl.InFlight())
}

func TestRateLimiter_ConcurrentCallersNeverExceedLimit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rl := NewRateLimiter(5, time.Minute, clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var passed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Acquire(ctx) == nil {
				passed.Add(1)
			}
		}()
	}

	// 15 вызовов ждут в окне, пять прошли.
	require.NoError(t, clock.BlockUntilContext(ctx, 15))
	assert.Equal(t, int32(5), passed.Load())
	assert.Equal(t, 5, rl.InFlight())

	cancel()
	wg.Wait()
	assert.Equal(t, int32(5), passed.Load())
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rl := NewRateLimiter(2, time.Minute, clock)
	ctx := context.Background()

	require.NoError(t, rl.Acquire(ctx))
	clock.Advance(30 * time.Second)
	require.NoError(t, rl.Acquire(ctx))
	clock.Advance(30 * time.Second)

	// Первый вызов ровно на границе окна и уже не считается.
	assert.Equal(t, 1, rl.InFlight())
	require.NoError(t, rl.Acquire(ctx))
	assert.Equal(t, 2, rl.InFlight())
}
