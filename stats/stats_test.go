package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_HitRatio(t *testing.T) {
	t.Parallel()

	c := NewCollector(true, 10, 10)
	assert.Equal(t, 0.0, c.Snapshot().HitRatio(), "no traffic => 0.0, never NaN")

	for i := 0; i < 3; i++ {
		c.Hit()
	}
	c.Miss()

	s := c.Snapshot()
	assert.Equal(t, int64(3), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, 0.75, s.HitRatio())
}

func TestCollector_DisabledDropsUpdates(t *testing.T) {
	t.Parallel()

	c := NewCollector(false, 10, 10)
	c.Hit()
	c.Miss()
	c.RecordSetOrUpdate("k", 100)

	s := c.Snapshot()
	assert.Zero(t, s.Hits)
	assert.Zero(t, s.Misses)
	assert.Zero(t, s.MemoryBytes)

	// Enable is idempotent and switches tracking on for later traffic.
	c.Enable()
	c.Enable()
	c.Hit()
	assert.Equal(t, int64(1), c.Snapshot().Hits)
}

func TestCollector_SetOrUpdateDelta(t *testing.T) {
	t.Parallel()

	c := NewCollector(true, 10, 10)

	require.True(t, c.RecordSetOrUpdate("k", 100))
	s := c.Snapshot()
	require.Equal(t, int64(1), s.Entries)
	require.Equal(t, int64(100), s.MemoryBytes)

	// Replacement adjusts by the delta and does not bump the entry count.
	require.False(t, c.RecordSetOrUpdate("k", 40))
	s = c.Snapshot()
	assert.Equal(t, int64(1), s.Entries)
	assert.Equal(t, int64(40), s.MemoryBytes)
	assert.Zero(t, s.Evictions, "replacement is not an eviction")
}

func TestCollector_EvictionAccountsOnce(t *testing.T) {
	t.Parallel()

	c := NewCollector(true, 10, 10)
	c.RecordSetOrUpdate("k", 100)

	require.True(t, c.RecordEviction("k"))
	s := c.Snapshot()
	assert.Equal(t, int64(0), s.Entries)
	assert.Equal(t, int64(0), s.MemoryBytes)
	assert.Equal(t, int64(1), s.Evictions)
	assert.Empty(t, s.TopHeaviest, "evicted key leaves the heaviest tracker")
}

// Evicting a key that was stored while tracking was disabled must not touch
// any counter: the entry was never counted, so there is nothing to undo.
func TestCollector_UntrackedEvictionIgnored(t *testing.T) {
	t.Parallel()

	c := NewCollector(false, 10, 10)
	c.RecordSetOrUpdate("k", 100) // dropped while disabled
	c.Enable()

	assert.False(t, c.RecordEviction("k"))
	s := c.Snapshot()
	assert.Zero(t, s.Entries, "entry count must never go negative")
	assert.Zero(t, s.Evictions)
	assert.Zero(t, s.MemoryBytes)

	// The first tracked write counts the key as an insert.
	assert.True(t, c.RecordSetOrUpdate("k", 50))
	assert.Equal(t, int64(1), c.Snapshot().Entries)
}

func TestCollector_SizesSnapshot(t *testing.T) {
	t.Parallel()

	c := NewCollector(true, 10, 10)
	c.RecordSetOrUpdate("a", 10)
	c.RecordSetOrUpdate("b", 20)

	snap := c.SizesSnapshot()
	require.Len(t, snap, 2)
	sizes := map[string]int64{}
	for _, r := range snap {
		sizes[r.Key] = r.Value.SizeBytes
	}
	assert.Equal(t, map[string]int64{"a": 10, "b": 20}, sizes)
}

func TestCollector_ObserveQueryFeedsSlowest(t *testing.T) {
	t.Parallel()

	c := NewCollector(true, 10, 10)
	c.ObserveQuery("q", 10*time.Millisecond)
	c.ObserveQuery("q", 30*time.Millisecond)

	s := c.Snapshot()
	require.Len(t, s.TopSlowest, 1)
	q := s.TopSlowest[0].Value
	assert.Equal(t, 30*time.Millisecond, q.WorstCase)
	assert.Equal(t, 10*time.Millisecond, q.BestCase)
	assert.Equal(t, int64(2), q.Occurrences)
}

func TestCollector_ResetKeepsLiveAccounting(t *testing.T) {
	t.Parallel()

	c := NewCollector(true, 10, 10)
	c.Hit()
	c.Miss()
	c.RecordSetOrUpdate("k", 100)
	c.ObserveQuery("k", time.Millisecond)

	c.Reset()

	s := c.Snapshot()
	assert.Zero(t, s.Hits)
	assert.Zero(t, s.Misses)
	assert.Zero(t, s.Evictions)
	assert.Empty(t, s.TopSlowest)
	assert.Empty(t, s.TopHeaviest)

	// Live state survives: the store still holds the entry, so the ledger
	// must keep matching it for capacity enforcement.
	assert.Equal(t, int64(1), s.Entries)
	assert.Equal(t, int64(100), s.MemoryBytes)

	// Post-reset evictions still account correctly.
	c.RecordEviction("k")
	s = c.Snapshot()
	assert.Equal(t, int64(0), s.Entries)
	assert.Equal(t, int64(0), s.MemoryBytes)
}
