// Copyright 2026 The NGraph Authors. SPDX-License-Identifier: Apache-2.0

package types

import "slices"

// OrderedSet is a duplicate-free collection that preserves insertion order.
//
// The dataflow analyses rely on insertion order ("first discovered first") for
// deterministic scheduling tie-breaks, so they use OrderedSet instead of Set
// wherever iteration order matters for reproducibility.
//
// The zero value is an empty set ready to use.
type OrderedSet[T comparable] struct {
	index map[T]int
	items []T
}

// MakeOrderedSet returns an OrderedSet with the given elements inserted, in order.
func MakeOrderedSet[T comparable](elements ...T) *OrderedSet[T] {
	s := &OrderedSet[T]{}
	s.Insert(elements...)
	return s
}

// Insert the elements that are not yet in the set, preserving the order in
// which they are first seen. Re-inserting an element is a no-op: it keeps its
// original position.
func (s *OrderedSet[T]) Insert(elements ...T) {
	if s.index == nil {
		s.index = make(map[T]int, len(elements))
	}
	for _, element := range elements {
		if _, found := s.index[element]; found {
			continue
		}
		s.index[element] = len(s.items)
		s.items = append(s.items, element)
	}
}

// Has returns whether the element is in the set.
func (s *OrderedSet[T]) Has(element T) bool {
	if s == nil {
		return false
	}
	_, found := s.index[element]
	return found
}

// IndexOf returns the insertion position of the element, or -1 if it is not in
// the set.
func (s *OrderedSet[T]) IndexOf(element T) int {
	if s == nil {
		return -1
	}
	if idx, found := s.index[element]; found {
		return idx
	}
	return -1
}

// Len returns the number of elements in the set.
func (s *OrderedSet[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Values returns a copy of the elements in insertion order.
func (s *OrderedSet[T]) Values() []T {
	if s == nil {
		return nil
	}
	return slices.Clone(s.items)
}
