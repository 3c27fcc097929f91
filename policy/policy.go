// Package policy defines the pluggable ordering strategies the capacity
// enforcer uses to pick eviction victims when the cache exceeds its byte
// budget.
package policy

// Victim is one eviction candidate in the enforcer's snapshot.
type Victim struct {
	Key       string
	SizeBytes int64
}

// Strategy orders eviction candidates. Candidates sorted with Less are
// evicted front to back until the cache is back under budget.
type Strategy interface {
	// Name returns a stable identifier (e.g. for metrics labels).
	Name() string
	// Less reports whether a should be evicted before b.
	Less(a, b Victim) bool
}

// SmallestFirst evicts the smallest entries first. This maximizes the number
// of retained entries per freed byte and is the default strategy.
func SmallestFirst() Strategy { return smallestFirst{} }

// LargestFirst evicts the largest entries first, freeing memory fastest.
func LargestFirst() Strategy { return largestFirst{} }

type smallestFirst struct{}

func (smallestFirst) Name() string { return "smallest_first" }
func (smallestFirst) Less(a, b Victim) bool {
	if a.SizeBytes != b.SizeBytes {
		return a.SizeBytes < b.SizeBytes
	}
	return a.Key < b.Key // deterministic tie-break
}

type largestFirst struct{}

func (largestFirst) Name() string { return "largest_first" }
func (largestFirst) Less(a, b Victim) bool {
	if a.SizeBytes != b.SizeBytes {
		return a.SizeBytes > b.SizeBytes
	}
	return a.Key < b.Key
}
