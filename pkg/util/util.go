// Package util holds small generic slice helpers.
package util

// Map returns a new slice holding mapper applied to every element of coll. The mapper
// also receives the element index.
func Map[A any, B any](coll []A, mapper func(item A, index uint64) B) []B {
	out := make([]B, len(coll))
	for i, item := range coll {
		out[i] = mapper(item, uint64(i))
	}
	return out
}

// Find returns the first element of coll matching criteria, or nil.
func Find[A any](coll []*A, criteria func(item *A) bool) *A {
	for _, item := range coll {
		if criteria(item) {
			return item
		}
	}
	return nil
}

// Filter returns the elements of coll matching keep, preserving order. The result is nil
// when nothing matches.
func Filter[A any](coll []A, keep func(item A) bool) []A {
	var out []A
	for _, item := range coll {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
