package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff_DoublesUpToMax(t *testing.T) {
	b := Backoff{Initial: 5 * time.Second, Max: time.Minute}

	want := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		time.Minute,
		time.Minute,
	}
	for i, d := range want {
		assert.Equal(t, d, b.next(i+1), "attempt %d", i+1)
	}
}

func expectRun(t *testing.T, runs <-chan struct{}) {
	t.Helper()
	select {
	case <-runs:
	case <-time.After(time.Second):
		t.Fatal("run was not restarted")
	}
}

func expectNoRun(t *testing.T, runs <-chan struct{}) {
	t.Helper()
	select {
	case <-runs:
		t.Fatal("run restarted before backoff elapsed")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSupervise_RestartsWithGrowingBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan struct{}, 10)
	run := func(context.Context) error {
		runs <- struct{}{}
		return errors.New("stream failed")
	}

	done := make(chan struct{})
	go func() {
		Supervise(ctx, "cheers", run, Backoff{Initial: 5 * time.Second, Max: 20 * time.Second}, clock)
		close(done)
	}()

	expectRun(t, runs)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(4 * time.Second)
	expectNoRun(t, runs)
	clock.Advance(time.Second)
	expectRun(t, runs)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(9 * time.Second)
	expectNoRun(t, runs)
	clock.Advance(time.Second)
	expectRun(t, runs)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop")
	}
}

func TestSupervise_ResetsBackoffAfterLongRun(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan struct{}, 10)
	attempt := 0
	run := func(context.Context) error {
		attempt++
		if attempt == 2 {
			// Второй запуск проработал дольше Max.
			clock.Advance(time.Minute)
		}
		runs <- struct{}{}
		return errors.New("stream failed")
	}

	go Supervise(ctx, "cheers", run, Backoff{Initial: 5 * time.Second, Max: 20 * time.Second}, clock)

	expectRun(t, runs)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(5 * time.Second)
	expectRun(t, runs)

	// Счётчик сбоев сброшен: снова 5s, а не 10s.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(5 * time.Second)
	expectRun(t, runs)
}

func TestSupervise_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	run := func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	}

	done := make(chan struct{})
	go func() {
		Supervise(ctx, "kudos", run, Backoff{Initial: time.Second, Max: time.Second}, clockwork.NewFakeClock())
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop")
	}
	assert.Equal(t, 1, calls)
}
