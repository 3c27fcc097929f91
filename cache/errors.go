package cache

import "errors"

var (
	// ErrEmptyKey is returned when an operation is invoked with an empty key.
	ErrEmptyKey = errors.New("blitzcache: key must be non-empty")

	// ErrNilFactory is returned when Get/GetNuanced/Update receive a nil factory.
	ErrNilFactory = errors.New("blitzcache: factory must be non-nil")

	// ErrClosed is returned by any operation on a disposed cache.
	ErrClosed = errors.New("blitzcache: cache is already disposed")

	// ErrNotAcquired wraps the context error when the per-key semaphore could
	// not be acquired (timeout or cancellation). It is distinguishable from a
	// factory failure so callers can apply their own retry/backoff policy.
	ErrNotAcquired = errors.New("blitzcache: per-key semaphore not acquired")
)
