package cache

import "time"

// runSweeper is the background maintenance loop: on each tick it disposes
// idle per-key semaphores and purges expired entries so their eviction
// callbacks fire even if the entries are never read again.
//
// The sweeper never blocks foreground calls: it synchronizes with them only
// through individual semaphore state (waiter count + disposed flag) and
// per-shard store locks.
func (c *blitzCache[V]) runSweeper(interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sems.Sweep()
			c.store.purgeExpired()
		}
	}
}
