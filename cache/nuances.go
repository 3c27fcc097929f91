package cache

import "time"

// Nuances is a mutable per-invocation context passed by reference into a
// NuancedFactory. It lets the factory decide the computed value's retention
// after the computation completes (e.g. a shorter lifetime for an empty
// result) without widening the return type.
//
// Lifecycle: created fresh per miss with Retention prefilled from the
// resolved TTL (per-call override or cache default), read once after the
// factory returns, then discarded. A non-positive Retention stores the value
// without expiration.
type Nuances struct {
	Retention time.Duration
}
