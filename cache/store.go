package cache

import (
	"sync"

	"github.com/chanido/blitzcache-sub003/internal/util"
)

// EvictReason explains why an entry left the store.
type EvictReason int

const (
	// EvictExpired means the entry's TTL elapsed (lazy on read or swept).
	EvictExpired EvictReason = iota
	// EvictCapacity means the capacity enforcer removed the entry to satisfy MaxBytes.
	EvictCapacity
	// EvictRemoved means the entry was removed explicitly via Remove.
	EvictRemoved
)

// entry is the stored unit: the value plus its absolute expiry deadline in
// UnixNano (0 = no TTL). A key maps to at most one live entry; replacement
// swaps the pointer under the shard lock, so readers never observe a
// partially written entry.
type entry[V any] struct {
	val V
	exp int64
}

// store is a sharded map with lazy TTL expiry. Hits take only a shard read
// lock, so unrelated readers never serialize; writes take the shard lock.
// The onEvict callback fires exactly once per terminal transition (expired,
// evicted for capacity, removed) and never for replacements; it is invoked
// outside the shard lock.
type store[V any] struct {
	shards  []*storeShard[V]
	now     func() int64
	onEvict func(key string, reason EvictReason)
}

type storeShard[V any] struct {
	mu sync.RWMutex
	m  map[string]*entry[V]
}

func newStore[V any](shards int, now func() int64, onEvict func(string, EvictReason)) *store[V] {
	ss := make([]*storeShard[V], shards)
	for i := range ss {
		ss[i] = &storeShard[V]{m: make(map[string]*entry[V])}
	}
	return &store[V]{shards: ss, now: now, onEvict: onEvict}
}

func (s *store[V]) shardFor(key string) *storeShard[V] {
	return s.shards[util.ShardIndex(util.Fnv64a(key), len(s.shards))]
}

// get returns the live value for key. Expired entries are removed on the
// spot and reported as a miss.
func (s *store[V]) get(key string) (V, bool) {
	sh := s.shardFor(key)
	now := s.now()

	sh.mu.RLock()
	e, ok := sh.m[key]
	sh.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}
	if expired(e, now) {
		// Upgrade to the write lock and re-check: another goroutine may
		// have replaced or already removed the entry meanwhile.
		sh.mu.Lock()
		cur, still := sh.m[key]
		collected := still && cur == e
		if collected {
			delete(sh.m, key)
		}
		sh.mu.Unlock()

		if collected {
			s.onEvict(key, EvictExpired)
		} else if still && !expired(cur, now) {
			// Replaced with a live entry while we upgraded: a hit after all.
			return cur.val, true
		}
		var zero V
		return zero, false
	}
	return e.val, true
}

// set inserts or replaces the entry atomically from the readers' point of
// view. Reports whether a live entry existed before (replacement).
//
// Overwriting an expired-but-uncollected entry is not a replacement: the old
// entry's terminal transition is expiry, so the eviction callback fires for
// it and existedBefore is false.
func (s *store[V]) set(key string, v V, exp int64) (existedBefore bool) {
	sh := s.shardFor(key)
	now := s.now()

	sh.mu.Lock()
	prev, ok := sh.m[key]
	sh.m[key] = &entry[V]{val: v, exp: exp}
	sh.mu.Unlock()

	if ok && expired(prev, now) {
		s.onEvict(key, EvictExpired)
		return false
	}
	return ok
}

// remove deletes key if present and fires the eviction callback with the
// given reason. Reports whether an entry was removed.
func (s *store[V]) remove(key string, reason EvictReason) bool {
	sh := s.shardFor(key)

	sh.mu.Lock()
	_, ok := sh.m[key]
	if ok {
		delete(sh.m, key)
	}
	sh.mu.Unlock()

	if ok {
		s.onEvict(key, reason)
	}
	return ok
}

// purgeExpired scans all shards and removes entries whose deadline passed,
// firing the eviction callback for each. Returns the number purged.
func (s *store[V]) purgeExpired() int {
	now := s.now()
	purged := 0
	for _, sh := range s.shards {
		var dead []string
		sh.mu.RLock()
		for k, e := range sh.m {
			if expired(e, now) {
				dead = append(dead, k)
			}
		}
		sh.mu.RUnlock()

		for _, k := range dead {
			sh.mu.Lock()
			e, ok := sh.m[k]
			if ok && expired(e, now) {
				delete(sh.m, k)
			} else {
				ok = false
			}
			sh.mu.Unlock()
			if ok {
				s.onEvict(k, EvictExpired)
				purged++
			}
		}
	}
	return purged
}

// len returns the total number of resident entries (expired-but-uncollected
// included; the count is diagnostic).
func (s *store[V]) len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.m)
		sh.mu.RUnlock()
	}
	return total
}

// clear drops all entries without firing eviction callbacks (disposal path).
func (s *store[V]) clear() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.m = make(map[string]*entry[V])
		sh.mu.Unlock()
	}
}

func expired[V any](e *entry[V], now int64) bool {
	return e.exp != 0 && now > e.exp
}
