// Package sortutil holds small ordering helpers for deterministic output.
package sortutil

import (
	"cmp"
	"slices"
)

// Sorted returns a sorted copy of ss. The input is not modified.
func Sorted[S ~[]E, E cmp.Ordered](ss S) S {
	out := slices.Clone(ss)
	slices.Sort(out)
	return out
}

// Keys returns the keys of m in ascending order.
func Keys[K cmp.Ordered, V any](m map[K]V) []K {
	out := make([]K, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
