package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chanido/blitzcache-sub003/internal/keymutex"
	"github.com/chanido/blitzcache-sub003/internal/sizeof"
	"github.com/chanido/blitzcache-sub003/internal/util"
	"github.com/chanido/blitzcache-sub003/policy"
	"github.com/chanido/blitzcache-sub003/stats"
)

const (
	defaultSweepInterval  = 10 * time.Second
	defaultSemaphoreGrace = time.Second
)

// blitzCache orchestrates the store, the per-key semaphore registry, the
// statistics collector and the capacity enforcer.
type blitzCache[V any] struct {
	opt      Options[V]
	store    *store[V]
	sems     *keymutex.Registry
	stats    *stats.Collector
	strategy policy.Strategy
	sink     StatisticsSink

	closed    atomic.Bool
	closeOnce sync.Once
	stop      chan struct{} // closed to stop the sweeper
	done      chan struct{} // closed when the sweeper has exited
}

// New constructs a cache with the provided Options. See Options for the
// defaults applied here. New panics on a negative MaxBytes (invalid
// configuration fails fast, before any lock exists).
func New[V any](opt Options[V]) Cache[V] {
	if opt.MaxBytes < 0 {
		panic("MaxBytes must be >= 0")
	}

	shards := opt.Shards
	if shards <= 0 {
		shards = util.ReasonableShardCount()
	} else {
		shards = int(util.NextPow2(uint64(shards)))
	}

	if opt.Strategy == nil {
		opt.Strategy = policy.SmallestFirst()
	}
	if opt.Sink == nil {
		opt.Sink = NoopSink{}
	}
	if opt.SweepInterval == 0 {
		opt.SweepInterval = defaultSweepInterval
	}
	if opt.SemaphoreGrace <= 0 {
		opt.SemaphoreGrace = defaultSemaphoreGrace
	}

	// The enforcer reads the collector's size ledger, so a byte budget
	// implies statistics tracking.
	enabled := opt.EnableStatistics || opt.MaxBytes > 0

	c := &blitzCache[V]{
		opt:      opt,
		sems:     keymutex.NewRegistry(opt.SemaphoreGrace, clockFunc(opt.Clock)),
		stats:    stats.NewCollector(enabled, opt.TopSlowest, opt.TopHeaviest),
		strategy: opt.Strategy,
		sink:     opt.Sink,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	c.store = newStore[V](shards, clockFunc(opt.Clock), c.onEvict)

	if opt.SweepInterval > 0 {
		go c.runSweeper(opt.SweepInterval)
	} else {
		close(c.done)
	}
	return c
}

func clockFunc(clk Clock) func() int64 {
	if clk != nil {
		return clk.NowUnixNano
	}
	return func() int64 { return time.Now().UnixNano() }
}

// ---- Cache[V] implementation ----

// Get returns the value for key, computing it via factory on a miss.
func (c *blitzCache[V]) Get(ctx context.Context, key string, factory Factory[V], opts ...GetOption) (V, error) {
	if factory == nil {
		var zero V
		return zero, ErrNilFactory
	}
	return c.GetNuanced(ctx, key, func(ctx context.Context, _ *Nuances) (V, error) {
		return factory(ctx)
	}, opts...)
}

// GetNuanced implements the miss-collapsing read path:
//
//	fast lookup -> acquire key semaphore -> double-check -> factory -> store.
//
// The hit path never touches the semaphore, so unrelated readers and
// repeated hits stay uncontended. The semaphore fully serializes would-be
// computers for one key: every holder re-checks the store and only invokes
// the factory if the key is still absent, so at most one invocation is in
// flight at any instant. A failed invocation caches nothing and its error
// propagates verbatim to the caller that ran it; the next holder retries.
func (c *blitzCache[V]) GetNuanced(ctx context.Context, key string, factory NuancedFactory[V], opts ...GetOption) (V, error) {
	var zero V
	if err := c.checkOp(key); err != nil {
		return zero, err
	}
	if factory == nil {
		return zero, ErrNilFactory
	}

	// Fast, uncontended path.
	if v, ok := c.store.get(key); ok {
		c.recordHit(key)
		return v, nil
	}

	handle, err := c.sems.Acquire(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrNotAcquired, err)
	}
	defer handle.Release()

	if c.closed.Load() {
		return zero, ErrClosed
	}

	// Double-check: another caller may have populated the entry while we
	// waited. Still a hit for this caller.
	if v, ok := c.store.get(key); ok {
		c.recordHit(key)
		return v, nil
	}
	c.recordMiss(key)

	v, err := c.invoke(ctx, key, factory, c.resolveTTL(opts))
	if err != nil {
		return zero, err
	}
	return v, nil
}

// Update unconditionally computes and stores a value for key (cache
// warming). It serializes through the key's semaphore so it cannot race a
// concurrent miss, but bypasses the hit path and the hit/miss counters.
func (c *blitzCache[V]) Update(ctx context.Context, key string, factory Factory[V], ttl time.Duration) error {
	if err := c.checkOp(key); err != nil {
		return err
	}
	if factory == nil {
		return ErrNilFactory
	}

	handle, err := c.sems.Acquire(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotAcquired, err)
	}
	defer handle.Release()

	if c.closed.Load() {
		return ErrClosed
	}

	_, err = c.invoke(ctx, key, func(ctx context.Context, n *Nuances) (V, error) {
		return factory(ctx)
	}, ttl)
	return err
}

// invoke runs the factory under the held semaphore, times it, and stores a
// successful result with the retention the Nuances context ends up holding.
func (c *blitzCache[V]) invoke(ctx context.Context, key string, factory NuancedFactory[V], ttl time.Duration) (V, error) {
	nuances := &Nuances{Retention: ttl}

	start := c.nowNano()
	v, err := factory(ctx, nuances)
	elapsed := time.Duration(c.nowNano() - start)

	// Failed loads are still loads worth ranking; the tracker is
	// observational only.
	c.stats.ObserveQuery(key, elapsed)
	c.notifySink(func(s StatisticsSink) { s.QueryDuration(key, elapsed) })

	if err != nil {
		// Propagate verbatim; nothing is cached so the next caller retries.
		var zero V
		return zero, err
	}

	c.put(key, v, nuances.Retention)
	return v, nil
}

// put stores the value, records statistics and triggers capacity enforcement.
// The sink sees the collector's insert-versus-replace verdict so its entry
// gauge stays paired with the eviction signals it will receive later.
func (c *blitzCache[V]) put(key string, v V, ttl time.Duration) {
	c.store.set(key, v, c.deadline(ttl))

	if c.stats.Enabled() {
		size := c.sizeOf(v)
		inserted := c.stats.RecordSetOrUpdate(key, size)
		c.notifySink(func(s StatisticsSink) { s.SetOrUpdate(key, size, !inserted) })
	}

	c.ensureUnderLimit()
}

// Remove deletes the entry if present; removing an absent key is a no-op.
func (c *blitzCache[V]) Remove(key string) error {
	if err := c.checkOp(key); err != nil {
		return err
	}
	c.store.remove(key, EvictRemoved)
	return nil
}

// SemaphoreCount returns the number of currently tracked per-key semaphores.
func (c *blitzCache[V]) SemaphoreCount() int {
	return c.sems.Count()
}

// Stats returns a point-in-time snapshot of the statistics collector.
func (c *blitzCache[V]) Stats() stats.Snapshot {
	return c.stats.Snapshot()
}

// ResetStats zeroes the monotonic counters and clears both trackers; entry
// and memory accounting mirror live store contents and survive the reset.
func (c *blitzCache[V]) ResetStats() {
	c.stats.Reset()
	c.notifySink(func(s StatisticsSink) { s.Reset() })
}

// InitializeStatistics enables tracking if it was disabled. Idempotent.
func (c *blitzCache[V]) InitializeStatistics() {
	c.stats.Enable()
}

// Close stops the sweeper, clears the store and drops all semaphores.
// Idempotent; operations after Close fail with ErrClosed.
func (c *blitzCache[V]) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stop)
		<-c.done
		c.store.clear()
		c.sems.Clear()
	})
	return nil
}

// ---- helpers ----

// checkOp validates the call boundary before any lock is touched.
func (c *blitzCache[V]) checkOp(key string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}

// resolveTTL picks the per-call TTL override or falls back to DefaultTTL.
func (c *blitzCache[V]) resolveTTL(opts []GetOption) time.Duration {
	cfg := getConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.ttlSet {
		return cfg.ttl
	}
	return c.opt.DefaultTTL
}

// deadline converts a relative TTL into an absolute UnixNano deadline.
// A non-positive ttl returns 0 (no expiration).
func (c *blitzCache[V]) deadline(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return c.nowNano() + int64(ttl)
}

func (c *blitzCache[V]) nowNano() int64 {
	if c.opt.Clock != nil {
		return c.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

func (c *blitzCache[V]) sizeOf(v V) int64 {
	if c.opt.Sizer != nil {
		s := c.opt.Sizer(v)
		if s < 0 {
			s = 0
		}
		return s
	}
	return sizeof.Of(v)
}

// onEvict is the store's terminal-transition observer: one call per expired,
// capacity-evicted or removed entry, never for replacements.
func (c *blitzCache[V]) onEvict(key string, reason EvictReason) {
	c.recordEviction(key, reason)
}

// recordEviction forwards an eviction to the collector and, when the entry
// was actually tracked, to the sink. Untracked entries (stored while
// statistics were disabled) produce no signal, so the sink's entry gauge
// stays paired with the SetOrUpdate signals it saw. Reports whether the
// eviction was accounted.
func (c *blitzCache[V]) recordEviction(key string, reason EvictReason) bool {
	if !c.stats.RecordEviction(key) {
		return false
	}
	c.notifySink(func(s StatisticsSink) { s.Eviction(key, reason) })
	return true
}

func (c *blitzCache[V]) recordHit(key string) {
	c.stats.Hit()
	c.notifySink(func(s StatisticsSink) { s.Hit(key) })
}

func (c *blitzCache[V]) recordMiss(key string) {
	c.stats.Miss()
	c.notifySink(func(s StatisticsSink) { s.Miss(key) })
}

// notifySink forwards a signal to the configured sink. A sink that panics
// is contained here: statistics failures must never unwind into the cache's
// locking logic or corrupt subsequent calls.
func (c *blitzCache[V]) notifySink(f func(s StatisticsSink)) {
	defer func() { _ = recover() }()
	f(c.sink)
}
