package cache

import (
	"time"

	"github.com/chanido/blitzcache-sub003/policy"
)

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// StatisticsSink receives cache-level observability signals. The engine
// depends on it only through this contract; failures (including panics)
// inside a sink are confined to the sink call site and never reach the
// cache's locking logic or its internal accounting.
//
// A NoopSink implementation is provided and used by default.
type StatisticsSink interface {
	Hit(key string)
	Miss(key string)
	Eviction(key string, reason EvictReason)
	SetOrUpdate(key string, sizeBytes int64, existedBefore bool)
	QueryDuration(key string, d time.Duration)
	Reset()
}

// NoopSink is a drop-in StatisticsSink implementation that does nothing.
type NoopSink struct{}

func (NoopSink) Hit(string)                          {}
func (NoopSink) Miss(string)                         {}
func (NoopSink) Eviction(string, EvictReason)        {}
func (NoopSink) SetOrUpdate(string, int64, bool)     {}
func (NoopSink) QueryDuration(string, time.Duration) {}
func (NoopSink) Reset()                              {}

// Ensure NoopSink implements the StatisticsSink interface at compile time.
var _ StatisticsSink = NoopSink{}

// Options configures the cache. The struct is consumed at construction and
// treated as immutable afterwards. Zero values are safe; defaults are
// applied in New():
//   - Shards <= 0        => auto (≈2*GOMAXPROCS, rounded up to power of two)
//   - Strategy nil       => policy.SmallestFirst()
//   - SweepInterval 0    => 10s (negative disables the background sweeper)
//   - SemaphoreGrace 0   => 1s
//   - TopSlowest/TopHeaviest <= 0 => 10
//   - Sink nil           => NoopSink
//   - Clock nil          => time.Now
type Options[V any] struct {
	// DefaultTTL applies when a call provides no WithTTL override and the
	// factory leaves Nuances.Retention untouched. Non-positive = no expiry.
	DefaultTTL time.Duration

	// Shards defines the number of store partitions.
	Shards int

	// EnableStatistics turns on hit/miss/eviction counters, memory
	// accounting and both Top-N trackers from the start. Statistics can
	// also be enabled later via InitializeStatistics.
	EnableStatistics bool

	// TopSlowest and TopHeaviest cap the two ranked trackers.
	TopSlowest  int
	TopHeaviest int

	// MaxBytes is the approximate memory budget; the capacity enforcer
	// evicts entries after each write while the tracked total exceeds it.
	// 0 disables the budget. A positive budget force-enables statistics,
	// since enforcement reads the collector's size ledger.
	MaxBytes int64

	// Strategy orders eviction victims when MaxBytes is exceeded.
	Strategy policy.Strategy

	// SweepInterval is the period of the background sweeper that reclaims
	// idle per-key semaphores and purges expired entries.
	SweepInterval time.Duration

	// SemaphoreGrace is how long a semaphore must sit idle with zero
	// waiters before the sweeper may dispose it. Keep it large enough that
	// a goroutine which just registered as a waiter but hasn't blocked yet
	// cannot be swept from under it.
	SemaphoreGrace time.Duration

	// Sizer estimates a value's footprint in bytes. Nil uses the built-in
	// reflect-based estimator.
	Sizer func(v V) int64

	// Sink receives observability signals (e.g. the Prometheus adapter in
	// metrics/prom). Nil => NoopSink.
	Sink StatisticsSink

	// Clock allows overriding the time source (tests). Nil => time.Now().
	Clock Clock
}
