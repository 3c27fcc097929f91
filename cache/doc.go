// Package cache provides an in-process key/value cache whose defining
// feature is collapsing concurrent misses for the same key into a single
// factory invocation (thundering-herd prevention), with per-entry TTL,
// approximate-memory capacity enforcement, and a statistics collector.
//
// Design
//
//   - Miss collapsing: each key gets a lazily created binary semaphore from
//     an internal self-cleaning registry. A miss acquires the semaphore,
//     re-checks the store (double-checked pattern), and only then runs the
//     caller-supplied factory. Racing callers for the same key wait and are
//     served the stored result; callers for different keys never serialize.
//
//   - Hit path: a hit is a sharded-map read under a shard RLock. It never
//     touches the semaphore registry; this asymmetry is what keeps the
//     steady state fast.
//
//   - TTL: entries carry absolute UnixNano deadlines. Expiry is lazy on
//     read, with a background sweeper purging entries nobody reads. A
//     factory can decide its own result's retention after computing it via
//     the Nuances context (GetNuanced).
//
//   - Capacity: with Options.MaxBytes set, each write triggers the capacity
//     enforcer, which evicts entries ordered by the configured strategy
//     (policy.SmallestFirst by default, policy.LargestFirst to free memory
//     fastest) until the approximate tracked total is back under budget.
//
//   - Statistics: hits, misses, evictions, entry count, approximate memory,
//     plus bounded top-N rankings of slowest queries and heaviest entries.
//     Counters are lock-free atomics; the trackers sit off the hit path.
//     An external StatisticsSink (e.g. the Prometheus adapter in
//     metrics/prom) can observe the same signals; sink failures are
//     isolated and can never corrupt cache state.
//
//   - Semaphore hygiene: the registry reference-counts active waiters and a
//     periodic sweep disposes semaphores that have been idle past a grace
//     window. Disposal is a race-safe attempt that backs off if a waiter
//     appears mid-dispose, so an in-flight acquisition is never swept.
//
// Basic usage
//
//	c := cache.New[string](cache.Options[string]{DefaultTTL: time.Minute})
//	defer c.Close()
//
//	v, err := c.Get(ctx, "user:42", func(ctx context.Context) (string, error) {
//	    return loadUser(ctx, 42) // runs once no matter how many callers race
//	})
//
// Retention decided by the factory
//
//	v, err := c.GetNuanced(ctx, "quote", func(ctx context.Context, n *cache.Nuances) (string, error) {
//	    q, err := fetchQuote(ctx)
//	    if err != nil {
//	        return "", err // nothing cached; the next caller retries
//	    }
//	    if q == "" {
//	        n.Retention = 5 * time.Second // keep empty results briefly
//	    } else {
//	        n.Retention = time.Hour
//	    }
//	    return q, nil
//	})
//
// Byte budget with eviction strategy
//
//	c := cache.New[[]byte](cache.Options[[]byte]{
//	    MaxBytes: 64 << 20,
//	    Strategy: policy.LargestFirst(),
//	})
//
// Thread-safety
//
// All methods on Cache are safe for concurrent use. The guarantee for Get is
// that, per key, at most one factory invocation is in flight at any time
// across all concurrent callers.
package cache
