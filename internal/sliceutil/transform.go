// Package sliceutil holds generic helpers for slices
// missing from the standard library.
package sliceutil

// Transform builds a slice by applying the provided function
// to all elements in the given slice.
// It returns nil for an empty slice.
func Transform[From, To any](from []From, f func(From) To) []To {
	if len(from) == 0 {
		return nil
	}
	to := make([]To, len(from))
	for i, v := range from {
		to[i] = f(v)
	}
	return to
}

// RemoveNil removes nil pointers from the provided slice,
// keeping the order of the others.
//
// The original slice must not be used after this.
func RemoveNil[T any](items []*T) []*T {
	kept := items[:0]
	for _, item := range items {
		if item != nil {
			kept = append(kept, item)
		}
	}
	clear(items[len(kept):])
	return kept
}
