// Package sizeof estimates the in-memory footprint of arbitrary values.
//
// The estimate is best-effort and deliberately cheap: traversal is bounded in
// depth and element count, pointers are followed once, and shared/cyclic
// structure is counted per reference, not deduplicated. Callers that need
// exact accounting should supply their own size function upstream.
package sizeof

import "reflect"

const (
	// maxDepth bounds pointer/struct recursion so pathological values
	// (deep trees, cycles) cannot stall the write path.
	maxDepth = 8
	// maxElems bounds slice/map traversal; larger collections are
	// extrapolated from the sampled prefix.
	maxElems = 1024

	// stringHeader approximates the string header (pointer + length).
	stringHeader = 16
	// sliceHeader approximates the slice header (pointer + len + cap).
	sliceHeader = 24
	// mapOverhead approximates fixed hmap bookkeeping.
	mapOverhead = 48
	// mapEntryOverhead approximates per-entry bucket bookkeeping.
	mapEntryOverhead = 16
)

// Of returns an approximate size in bytes for v. Nil values cost zero.
func Of(v any) int64 {
	if v == nil {
		return 0
	}
	return valueSize(reflect.ValueOf(v), 0)
}

func valueSize(rv reflect.Value, depth int) int64 {
	if depth > maxDepth {
		return 0
	}

	switch rv.Kind() {
	case reflect.String:
		return stringHeader + int64(rv.Len())

	case reflect.Slice:
		if rv.IsNil() {
			return sliceHeader
		}
		return sliceHeader + sequenceSize(rv, depth)

	case reflect.Array:
		return sequenceSize(rv, depth)

	case reflect.Map:
		if rv.IsNil() {
			return int64(rv.Type().Size())
		}
		total := int64(mapOverhead)
		n := rv.Len()
		iter := rv.MapRange()
		sampled := 0
		var sampledBytes int64
		for iter.Next() && sampled < maxElems {
			sampledBytes += valueSize(iter.Key(), depth+1)
			sampledBytes += valueSize(iter.Value(), depth+1)
			sampledBytes += mapEntryOverhead
			sampled++
		}
		total += extrapolate(sampledBytes, sampled, n)
		return total

	case reflect.Pointer:
		if rv.IsNil() {
			return int64(rv.Type().Size())
		}
		return int64(rv.Type().Size()) + valueSize(rv.Elem(), depth+1)

	case reflect.Interface:
		if rv.IsNil() {
			return int64(rv.Type().Size())
		}
		return int64(rv.Type().Size()) + valueSize(rv.Elem(), depth+1)

	case reflect.Struct:
		total := int64(rv.Type().Size())
		// Size() already covers inline fields; add only heap-backed parts.
		for i := 0; i < rv.NumField(); i++ {
			f := rv.Field(i)
			switch f.Kind() {
			case reflect.String, reflect.Slice, reflect.Map,
				reflect.Pointer, reflect.Interface:
				total += valueSize(f, depth+1) - int64(f.Type().Size())
			}
		}
		return total

	case reflect.Chan, reflect.Func, reflect.UnsafePointer, reflect.Invalid:
		return int64(8)

	default:
		// Fixed-size scalars: bool, ints, floats, complex.
		return int64(rv.Type().Size())
	}
}

// sequenceSize sums element sizes for slices and arrays, sampling large ones.
func sequenceSize(rv reflect.Value, depth int) int64 {
	n := rv.Len()
	if n == 0 {
		return 0
	}
	// Fast path: elements with no indirection cost exactly their type size.
	elem := rv.Type().Elem()
	switch elem.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Int64, reflect.Uint, reflect.Uint8, reflect.Uint16,
		reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return int64(n) * int64(elem.Size())
	}
	sample := n
	if sample > maxElems {
		sample = maxElems
	}
	var sampledBytes int64
	for i := 0; i < sample; i++ {
		sampledBytes += valueSize(rv.Index(i), depth+1)
	}
	return extrapolate(sampledBytes, sample, n)
}

// extrapolate scales the sampled byte count up to the full element count.
func extrapolate(sampledBytes int64, sampled, total int) int64 {
	if sampled == 0 {
		return 0
	}
	if sampled >= total {
		return sampledBytes
	}
	return sampledBytes * int64(total) / int64(sampled)
}
