package cache

import (
	"context"
	"time"

	"github.com/chanido/blitzcache-sub003/stats"
)

// Factory computes a value on a cache miss. It is invoked at most once in
// flight per key across all concurrent callers.
type Factory[V any] func(ctx context.Context) (V, error)

// NuancedFactory is a Factory variant that receives a mutable Nuances
// context, letting it choose the computed value's retention after the fact.
type NuancedFactory[V any] func(ctx context.Context, n *Nuances) (V, error)

// GetOption customizes a single Get/GetNuanced call.
type GetOption func(*getConfig)

type getConfig struct {
	ttl    time.Duration
	ttlSet bool
}

// WithTTL overrides the cache's DefaultTTL for this call.
// A non-positive value stores the result without expiration.
func WithTTL(ttl time.Duration) GetOption {
	return func(cfg *getConfig) {
		cfg.ttl = ttl
		cfg.ttlSet = true
	}
}

// Cache is an in-process key/value cache that collapses concurrent misses
// for the same key into a single factory invocation. All methods are safe
// for concurrent use by multiple goroutines.
//
// Hits are served from a sharded store without touching the per-key
// semaphore; only misses serialize, and only per key.
type Cache[V any] interface {
	// Get returns the value for key, computing it via factory on a miss.
	// For any given key, at most one factory invocation is in flight at a
	// time; racing callers wait and share the computed result. A factory
	// error propagates verbatim to the invoking caller and nothing is
	// cached, so the next caller retries.
	Get(ctx context.Context, key string, factory Factory[V], opts ...GetOption) (V, error)

	// GetNuanced is Get for factories that decide their own retention via
	// the supplied Nuances context.
	GetNuanced(ctx context.Context, key string, factory NuancedFactory[V], opts ...GetOption) (V, error)

	// Update unconditionally computes and stores a value for key with the
	// given ttl, bypassing the hit path (cache warming). It still
	// serializes through the key's semaphore so it cannot race a
	// concurrent miss for the same key.
	Update(ctx context.Context, key string, factory Factory[V], ttl time.Duration) error

	// Remove deletes the entry if present. Removing an absent key is not
	// an error (idempotent).
	Remove(key string) error

	// SemaphoreCount returns the number of per-key semaphores currently
	// tracked by the registry (diagnostic).
	SemaphoreCount() int

	// Stats returns a read-only snapshot of the statistics collector.
	Stats() stats.Snapshot

	// ResetStats zeroes the hit/miss/eviction counters and clears both
	// Top-N trackers. Entry count and memory accounting mirror live store
	// contents and survive a reset.
	ResetStats()

	// InitializeStatistics enables statistics tracking if it was disabled
	// at construction. Idempotent.
	InitializeStatistics()

	// Close stops the background sweeper, releases all semaphores and
	// clears the store. Subsequent operations fail with ErrClosed.
	// Close itself is idempotent.
	Close() error
}
