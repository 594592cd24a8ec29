package replay

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuardSeen(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	seen, err := g.Seen(ctx, "nonce-1", "1736950000")
	require.NoError(t, err)
	assert.False(t, seen, "first sighting is not a replay")

	seen, err = g.Seen(ctx, "nonce-1", "1736950000")
	require.NoError(t, err)
	assert.True(t, seen, "second sighting is a replay")
}

func TestMemoryGuardDistinctPairs(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	_, err := g.Seen(ctx, "nonce-1", "1736950000")
	require.NoError(t, err)

	seen, err := g.Seen(ctx, "nonce-2", "1736950000")
	require.NoError(t, err)
	assert.False(t, seen, "different nonce is not a replay")

	seen, err = g.Seen(ctx, "nonce-1", "1736950001")
	require.NoError(t, err)
	assert.False(t, seen, "same nonce with different timestamp is not a replay")
}

func TestMemoryGuardExpiry(t *testing.T) {
	now := time.Unix(1736950000, 0)
	clock := func() time.Time { return now }
	g := NewMemoryGuard(WithTTL(10*time.Minute), WithClock(clock))
	ctx := context.Background()

	_, err := g.Seen(ctx, "nonce-1", "ts")
	require.NoError(t, err)

	now = now.Add(9 * time.Minute)
	seen, err := g.Seen(ctx, "nonce-1", "ts")
	require.NoError(t, err)
	assert.True(t, seen, "still inside the window")

	now = now.Add(2 * time.Minute)
	seen, err = g.Seen(ctx, "nonce-1", "ts")
	require.NoError(t, err)
	assert.False(t, seen, "expired entries are re-admitted")
}

// Concurrent launches presenting the same pair must admit exactly one.
func TestMemoryGuardConcurrentSamePair(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	const workers = 64
	var admitted atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			seen, err := g.Seen(ctx, "contested-nonce", "1736950000")
			if err == nil && !seen {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
}

func TestMemoryGuardSweep(t *testing.T) {
	now := time.Unix(1736950000, 0)
	clock := func() time.Time { return now }
	g := NewMemoryGuard(WithTTL(time.Minute), WithClock(clock))
	ctx := context.Background()

	for _, n := range []string{"a", "b", "c"} {
		_, err := g.Seen(ctx, n, "ts")
		require.NoError(t, err)
	}
	require.Equal(t, 3, g.Len())

	now = now.Add(2 * time.Minute)
	g.mu.Lock()
	g.sweepLocked(g.now())
	g.mu.Unlock()
	assert.Equal(t, 0, g.Len())
}

func TestMemoryGuardRunStopsOnCancel(t *testing.T) {
	g := NewMemoryGuard(WithTTL(time.Second))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}
