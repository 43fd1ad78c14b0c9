// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package exposure

import "iter"

// IndexMap is a read-only view of the object to identity index assignments
// of a Registry, ordered by index. It reflects later registrations and
// resets of the registry.
type IndexMap[T any] struct {
	r *Registry[T]
}

// Len returns the number of tracked objects.
func (m IndexMap[T]) Len() int {
	return len(m.r.entries)
}

// Index returns the identity index of obj.
func (m IndexMap[T]) Index(obj *T) (int, bool) {
	i, ok := m.r.index[obj]
	return i, ok
}

// Contains reports whether obj is tracked.
func (m IndexMap[T]) Contains(obj *T) bool {
	_, ok := m.r.index[obj]
	return ok
}

// At returns the object with identity index i, or nil if out of range.
func (m IndexMap[T]) At(i int) *T {
	if i < 0 || i >= len(m.r.entries) {
		return nil
	}
	return m.r.entries[i].obj
}

// All iterates over objects and their indices in index order.
func (m IndexMap[T]) All() iter.Seq2[*T, int] {
	return func(yield func(*T, int) bool) {
		for i, e := range m.r.entries {
			if !yield(e.obj, i) {
				return
			}
		}
	}
}

// Keys iterates over the tracked objects in index order.
func (m IndexMap[T]) Keys() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		for _, e := range m.r.entries {
			if !yield(e.obj) {
				return
			}
		}
	}
}
