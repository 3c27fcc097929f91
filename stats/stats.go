// Package stats collects cache statistics: lock-free counters for the hot
// path plus two bounded ranked trackers (slowest queries, heaviest entries).
//
// Statistics are observational, never authoritative for cache correctness:
// losing or resetting them must not corrupt cache state.
package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/chanido/blitzcache-sub003/internal/util"
)

// QueryStats is the rolling per-key aggregate fed by factory timings.
type QueryStats struct {
	WorstCase   time.Duration
	BestCase    time.Duration
	Average     time.Duration
	Occurrences int64
}

// EntryWeight records the approximate resident size of one cache entry.
type EntryWeight struct {
	SizeBytes int64
}

// Snapshot is a read-only view of the collector at one instant.
type Snapshot struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Entries     int64
	MemoryBytes int64

	TopSlowest  []Record[QueryStats]
	TopHeaviest []Record[EntryWeight]
}

// HitRatio returns hits/(hits+misses), or 0.0 when no operations occurred.
func (s Snapshot) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}
	return float64(s.Hits) / float64(total)
}

// Collector tracks counters and rankings. Counter updates are lock-free
// atomics padded to distinct cache lines (hot path); the trackers take a
// narrow mutex each. All methods are safe for concurrent use and become
// no-ops while tracking is disabled.
type Collector struct {
	enabled atomic.Bool

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_         util.CacheLinePad
	hits      util.PaddedAtomicInt64
	misses    util.PaddedAtomicInt64
	evictions util.PaddedAtomicInt64

	entries atomic.Int64
	memory  atomic.Int64

	// sizes holds the last recorded size per live key so replacements
	// adjust memory by the delta and evictions subtract exactly once.
	sizes sync.Map // string -> int64

	slowest  *TopN[QueryStats]
	heaviest *TopN[EntryWeight]
}

// NewCollector builds a collector with the given tracker capacities.
// Tracking starts disabled unless enabled is true; Enable can switch it on
// later (idempotent).
func NewCollector(enabled bool, topSlowest, topHeaviest int) *Collector {
	if topSlowest <= 0 {
		topSlowest = 10
	}
	if topHeaviest <= 0 {
		topHeaviest = 10
	}
	c := &Collector{
		slowest: NewTopN[QueryStats](topSlowest,
			func(q QueryStats) float64 { return float64(q.WorstCase) },
			mergeQueryStats),
		heaviest: NewTopN[EntryWeight](topHeaviest,
			func(w EntryWeight) float64 { return float64(w.SizeBytes) },
			nil),
	}
	c.enabled.Store(enabled)
	return c
}

func mergeQueryStats(prev, next QueryStats) QueryStats {
	out := prev
	if next.WorstCase > out.WorstCase {
		out.WorstCase = next.WorstCase
	}
	if next.BestCase < out.BestCase {
		out.BestCase = next.BestCase
	}
	// Running mean over all occurrences.
	n := out.Occurrences + next.Occurrences
	out.Average = time.Duration(
		(int64(out.Average)*out.Occurrences + int64(next.Average)*next.Occurrences) / n)
	out.Occurrences = n
	return out
}

// Enable turns tracking on (idempotent). Disabled collectors drop updates.
func (c *Collector) Enable() { c.enabled.Store(true) }

// Enabled reports whether tracking is active.
func (c *Collector) Enabled() bool { return c.enabled.Load() }

// Hit increments the hit counter.
func (c *Collector) Hit() {
	if c.enabled.Load() {
		c.hits.Add(1)
	}
}

// Miss increments the miss counter.
func (c *Collector) Miss() {
	if c.enabled.Load() {
		c.misses.Add(1)
	}
}

// RecordSetOrUpdate accounts for a stored value: adjusts total tracked bytes
// by the delta versus the key's previous recorded size (zero if new), bumps
// the entry count when the ledger had no record for the key yet, and feeds
// the heaviest tracker. Replacements are never counted as evictions.
//
// The ledger, not the store, decides insert versus replace: an entry stored
// before tracking was enabled has no record and is counted on its first
// tracked write. Reports whether the write was an insert in that sense.
func (c *Collector) RecordSetOrUpdate(key string, sizeBytes int64) (inserted bool) {
	if !c.enabled.Load() {
		return false
	}
	var prev int64
	p, loaded := c.sizes.Swap(key, sizeBytes)
	if loaded {
		prev = p.(int64)
	}
	c.memory.Add(sizeBytes - prev)
	if !loaded {
		c.entries.Add(1)
	}
	c.heaviest.Observe(key, EntryWeight{SizeBytes: sizeBytes})
	return !loaded
}

// RecordEviction accounts for a terminal transition (expired, evicted for
// capacity, or explicitly removed): decrements the entry count, increments
// the eviction counter, and removes the key's size contribution exactly once.
//
// Only entries with a ledger record are accounted. An entry stored while
// tracking was disabled was never counted, so evicting it must not drive the
// entry count negative. Reports whether the eviction was accounted.
func (c *Collector) RecordEviction(key string) bool {
	if !c.enabled.Load() {
		return false
	}
	p, loaded := c.sizes.LoadAndDelete(key)
	if !loaded {
		return false
	}
	c.memory.Add(-p.(int64))
	c.entries.Add(-1)
	c.evictions.Add(1)
	c.heaviest.Remove(key)
	return true
}

// ObserveQuery folds one factory invocation's duration into the slowest
// tracker's rolling aggregate for key.
func (c *Collector) ObserveQuery(key string, d time.Duration) {
	if !c.enabled.Load() {
		return
	}
	c.slowest.Observe(key, QueryStats{
		WorstCase:   d,
		BestCase:    d,
		Average:     d,
		Occurrences: 1,
	})
}

// MemoryBytes returns the current approximate tracked bytes.
func (c *Collector) MemoryBytes() int64 { return c.memory.Load() }

// SizesSnapshot returns the (key, approximate size) pairs of all live
// entries. Used by the capacity enforcer to pick eviction victims.
func (c *Collector) SizesSnapshot() []Record[EntryWeight] {
	out := make([]Record[EntryWeight], 0, c.entries.Load())
	c.sizes.Range(func(k, v any) bool {
		out = append(out, Record[EntryWeight]{
			Key:   k.(string),
			Value: EntryWeight{SizeBytes: v.(int64)},
		})
		return true
	})
	return out
}

// Snapshot captures all counters and both trackers. Individual fields are
// read atomically; the snapshot as a whole is not a consistent cut, which is
// fine for an observational surface.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Entries:     c.entries.Load(),
		MemoryBytes: c.memory.Load(),
		TopSlowest:  c.slowest.Snapshot(),
		TopHeaviest: c.heaviest.Snapshot(),
	}
}

// Reset zeroes the monotonic counters and clears both trackers. The live
// entry count, byte total and size ledger are kept: they mirror store
// contents and wiping them would desync capacity enforcement.
func (c *Collector) Reset() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
	c.slowest.Reset()
	c.heaviest.Reset()
}
