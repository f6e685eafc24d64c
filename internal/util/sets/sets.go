package sets

import (
	"cmp"
	"slices"
)

// Set is a generic hash set for comparable keys.
type Set[T comparable] map[T]struct{}

// New creates a set pre-populated with the provided values.
func New[T comparable](vals ...T) Set[T] {
	s := make(Set[T], len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts v and reports whether it was newly added.
func (s Set[T]) Add(v T) bool {
	if _, ok := s[v]; ok {
		return false
	}
	s[v] = struct{}{}
	return true
}

// Has returns true if v is present.
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Delete removes v if present.
func (s Set[T]) Delete(v T) { delete(s, v) }

// Sorted returns the members in ascending order.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	out := make([]T, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Ordered is a set that remembers insertion order.
type Ordered[T comparable] struct {
	seen  Set[T]
	items []T
}

// NewOrdered returns an empty insertion-ordered set.
func NewOrdered[T comparable]() *Ordered[T] {
	return &Ordered[T]{seen: New[T]()}
}

// Add appends v unless already present.
func (o *Ordered[T]) Add(v T) bool {
	if !o.seen.Add(v) {
		return false
	}
	o.items = append(o.items, v)
	return true
}

// Has reports membership.
func (o *Ordered[T]) Has(v T) bool { return o.seen.Has(v) }

// Items returns a copy of the members in insertion order.
func (o *Ordered[T]) Items() []T { return slices.Clone(o.items) }

// Len returns the number of members.
func (o *Ordered[T]) Len() int { return len(o.items) }
