//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

const (
	fnvOffset64 = 1469598103934665603
	fnvPrime64  = 1099511628211
)

// Fnv64a hashes a string key using 64-bit FNV-1a without allocating.
// Cache keys are strings, so a single tight loop beats a generic hasher.
func Fnv64a(s string) uint64 {
	h := uint64(fnvOffset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return h
}
