package stats

import (
	"sort"
	"sync"
)

// TopN is a bounded, thread-safe ranked tracker keyed by string. It retains
// only the highest-scored capacity entries among all keys observed; when an
// insertion overflows, the lowest-scored entry is trimmed.
//
// The critical section is a single mutex around a small fixed-size map,
// which is acceptable because the tracker never sits on the hit path.
type TopN[T any] struct {
	mu       sync.Mutex
	capacity int
	score    func(T) float64
	merge    func(prev, next T) T // nil => last write wins
	byKey    map[string]T
}

// Record pairs a tracked key with its current aggregate.
type Record[T any] struct {
	Key   string
	Value T
}

// NewTopN builds a tracker keeping at most capacity entries ranked by score.
// merge combines an existing aggregate with a new observation for the same
// key (rolling max/min/mean etc.); pass nil to simply replace.
func NewTopN[T any](capacity int, score func(T) float64, merge func(prev, next T) T) *TopN[T] {
	if capacity <= 0 {
		panic("stats: TopN capacity must be > 0")
	}
	if score == nil {
		panic("stats: TopN score function is required")
	}
	return &TopN[T]{
		capacity: capacity,
		score:    score,
		merge:    merge,
		byKey:    make(map[string]T, capacity+1),
	}
}

// Observe records v for key, merging with a previous aggregate if present,
// and trims the lowest-scored entry when over capacity.
func (t *TopN[T]) Observe(key string, v T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.byKey[key]; ok && t.merge != nil {
		t.byKey[key] = t.merge(prev, v)
		return
	}
	t.byKey[key] = v

	if len(t.byKey) <= t.capacity {
		return
	}
	// Evict the current minimum. Linear scan is fine: capacity is small
	// (tens of entries) and this only runs on overflow.
	var worstKey string
	worstScore := 0.0
	first := true
	for k, cur := range t.byKey {
		s := t.score(cur)
		if first || s < worstScore {
			worstKey, worstScore, first = k, s, false
		}
	}
	delete(t.byKey, worstKey)
}

// Remove drops key's aggregate if tracked (e.g. the entry was evicted).
func (t *TopN[T]) Remove(key string) {
	t.mu.Lock()
	delete(t.byKey, key)
	t.mu.Unlock()
}

// Snapshot returns the tracked records sorted by descending score.
func (t *TopN[T]) Snapshot() []Record[T] {
	t.mu.Lock()
	out := make([]Record[T], 0, len(t.byKey))
	for k, v := range t.byKey {
		out = append(out, Record[T]{Key: k, Value: v})
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		si, sj := t.score(out[i].Value), t.score(out[j].Value)
		if si != sj {
			return si > sj
		}
		return out[i].Key < out[j].Key // stable order for equal scores
	})
	return out
}

// Len returns the number of tracked keys.
func (t *TopN[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byKey)
}

// Reset clears all tracked entries.
func (t *TopN[T]) Reset() {
	t.mu.Lock()
	t.byKey = make(map[string]T, t.capacity+1)
	t.mu.Unlock()
}
