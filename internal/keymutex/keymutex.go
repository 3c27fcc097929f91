// Package keymutex maps string keys to binary semaphores, created on demand
// and reclaimed when idle.
//
// Concurrency notes:
//   - Get-or-create is atomic (sync.Map.LoadOrStore): only one semaphore
//     object ever wins for a given key, even when goroutines race to create.
//   - Each semaphore counts its active waiters. A waiter increments the count
//     before touching the underlying lock, so a sweeper that observes zero
//     waiters after the grace window can dispose safely: disposal is a
//     two-phase attempt that rolls back if a waiter slipped in concurrently.
//   - Sweep and foreground acquisition synchronize only through a single
//     semaphore's waiter count and disposed flag, never via a global lock.
package keymutex

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Registry owns one binary semaphore per key currently or recently in use.
// All methods are safe for concurrent use by multiple goroutines.
type Registry struct {
	sems  atomic.Pointer[registryMap] // swapped out wholesale on Clear
	grace int64                       // idle grace window, ns
	now   func() int64                // UnixNano source
}

// registryMap wraps sync.Map so Clear can replace the whole map atomically.
type registryMap struct{ m sync.Map }

// NewRegistry constructs a registry. grace is the minimum idle time before an
// unused semaphore may be disposed; now supplies UnixNano timestamps (pass
// nil for the wall clock).
func NewRegistry(grace time.Duration, now func() int64) *Registry {
	if grace <= 0 {
		grace = time.Second
	}
	if now == nil {
		now = func() int64 { return time.Now().UnixNano() }
	}
	r := &Registry{grace: int64(grace), now: now}
	r.sems.Store(&registryMap{})
	return r
}

// keyedSemaphore is the per-key lock plus the lifecycle state the sweeper
// inspects. The underlying lock is a weighted semaphore of capacity 1 so
// acquisition is context-aware (timeouts, cancellation).
type keyedSemaphore struct {
	lock         *semaphore.Weighted
	waiters      atomic.Int64
	lastAccessed atomic.Int64 // UnixNano
	disposed     atomic.Bool
}

func newKeyedSemaphore(now int64) *keyedSemaphore {
	ks := &keyedSemaphore{lock: semaphore.NewWeighted(1)}
	ks.lastAccessed.Store(now)
	return ks
}

// tryDispose atomically retires the semaphore if it has no waiters.
// It fails (and leaves the semaphore usable) when it is or became in-use.
func (ks *keyedSemaphore) tryDispose() bool {
	if ks.waiters.Load() != 0 {
		return false
	}
	if !ks.disposed.CompareAndSwap(false, true) {
		return false
	}
	// A waiter may have registered between the count check and the CAS.
	// Waiters increment before reading the flag, so re-reading the count
	// here detects them; roll back and keep the semaphore alive.
	if ks.waiters.Load() != 0 {
		ks.disposed.Store(false)
		return false
	}
	return true
}

// Handle releases a held semaphore. Release is idempotent and must be called
// on every exit path (typically via defer).
type Handle struct {
	ks       *keyedSemaphore
	now      func() int64
	released atomic.Bool
}

// Release signals the underlying lock and decrements the waiter count.
func (h *Handle) Release() {
	if h == nil || !h.released.CompareAndSwap(false, true) {
		return
	}
	h.ks.lastAccessed.Store(h.now())
	h.ks.lock.Release(1)
	h.ks.waiters.Add(-1)
}

// Acquire blocks until the key's semaphore is held or ctx is done.
// On ctx expiry/cancellation the waiter count is correctly unwound and the
// context error is returned; no semaphore is leaked either way.
func (r *Registry) Acquire(ctx context.Context, key string) (*Handle, error) {
	for {
		m := r.sems.Load()
		v, _ := m.m.LoadOrStore(key, newKeyedSemaphore(r.now()))
		ks := v.(*keyedSemaphore)

		// Register as a waiter before inspecting the disposed flag; the
		// sweeper re-checks the count after flipping the flag, so this
		// ordering guarantees one side always notices the other.
		ks.waiters.Add(1)
		ks.lastAccessed.Store(r.now())
		if ks.disposed.Load() {
			// Lost the race against the sweeper; its map entry is being
			// removed. Retry with a fresh semaphore.
			ks.waiters.Add(-1)
			continue
		}

		if err := ks.lock.Acquire(ctx, 1); err != nil {
			ks.waiters.Add(-1)
			ks.lastAccessed.Store(r.now())
			return nil, err
		}
		return &Handle{ks: ks, now: r.now}, nil
	}
}

// Count returns the number of currently tracked semaphores (diagnostic).
func (r *Registry) Count() int {
	n := 0
	r.sems.Load().m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Sweep disposes every semaphore that has no waiters and has been idle for
// at least the grace window. Returns the number reclaimed. Safe to run
// concurrently with Acquire/Release.
func (r *Registry) Sweep() int {
	now := r.now()
	m := r.sems.Load()
	reclaimed := 0
	m.m.Range(func(k, v any) bool {
		ks := v.(*keyedSemaphore)
		if now-ks.lastAccessed.Load() < r.grace {
			return true
		}
		if ks.tryDispose() {
			m.m.Delete(k)
			reclaimed++
		}
		return true
	})
	return reclaimed
}

// Clear drops all tracked semaphores at once (cache disposal). In-flight
// holders keep their semaphore objects; future Acquire calls start fresh.
func (r *Registry) Clear() {
	r.sems.Store(&registryMap{})
}
