package replay

import (
	"context"
	"sync"
	"time"
)

// MemoryGuard is an in-process Guard for single-instance deployments. The
// check-and-register is a single operation under one lock; a read-then-write
// split would reopen the replay window between concurrent launches.
//
// Entries self-evict: Run sweeps expired entries periodically, and Seen
// sweeps opportunistically when the map grows past sweepThreshold so the
// store stays bounded even without the janitor.
type MemoryGuard struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

const sweepThreshold = 100_000

// MemoryGuardOption configures a MemoryGuard.
type MemoryGuardOption func(*MemoryGuard)

// WithTTL overrides the retention window.
func WithTTL(ttl time.Duration) MemoryGuardOption {
	return func(g *MemoryGuard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithClock sets the clock function for testability.
func WithClock(now func() time.Time) MemoryGuardOption {
	return func(g *MemoryGuard) {
		if now != nil {
			g.now = now
		}
	}
}

// NewMemoryGuard constructs an empty in-process guard.
func NewMemoryGuard(opts ...MemoryGuardOption) *MemoryGuard {
	g := &MemoryGuard{
		entries: make(map[string]time.Time),
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Seen registers the pair on first sighting and reports replays.
func (g *MemoryGuard) Seen(_ context.Context, nonce, timestamp string) (bool, error) {
	key := nonce + "|" + timestamp
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if expiry, ok := g.entries[key]; ok && now.Before(expiry) {
		return true, nil
	}
	if len(g.entries) >= sweepThreshold {
		g.sweepLocked(now)
	}
	g.entries[key] = now.Add(g.ttl)
	return false, nil
}

// Run sweeps expired entries until the context is cancelled. Launch it once
// from the process lifecycle group.
func (g *MemoryGuard) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.ttl / 10)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			g.mu.Lock()
			g.sweepLocked(g.now())
			g.mu.Unlock()
		}
	}
}

// Len reports the number of live entries, for tests and diagnostics.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (g *MemoryGuard) sweepLocked(now time.Time) {
	for key, expiry := range g.entries {
		if !now.Before(expiry) {
			delete(g.entries, key)
		}
	}
}
