package common

import "sync/atomic"

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

var idCounter atomic.Uint64

// NextID returns a process-unique, monotonically increasing resource identifier.
// Identifiers start at 1 so the zero value can mean "none".
//
// Returns:
//   - uint64: the next identifier
func NextID() uint64 {
	return idCounter.Add(1)
}
