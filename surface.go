// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package exposure

import (
	"maps"
	"slices"
	"sync"
)

// ColorProperty is the override name under which the identity color of a
// surface is published to the shader.
const ColorProperty = "_ExposureColor"

// Surface is an opaque renderable handle owned by the host renderer.
//
// The registry never inspects geometry; it only publishes the identity color
// through SetOverrides. Surfaces are used as map keys and must be comparable,
// which pointer implementations always are.
type Surface interface {
	// SetOverrides replaces every per-draw override of the surface with a
	// copy of block. Later calls win.
	SetOverrides(block *OverrideBlock)
}

// OverrideBlock holds per-draw shader parameter overrides.
// The zero value is ready to use.
type OverrideBlock struct {
	colors map[string]IDColor
}

// NewOverrideBlock returns an empty override block.
func NewOverrideBlock() *OverrideBlock {
	return &OverrideBlock{}
}

// SetColor sets the color override called name.
func (b *OverrideBlock) SetColor(name string, c IDColor) {
	if b.colors == nil {
		b.colors = make(map[string]IDColor, 1)
	}
	b.colors[name] = c
}

// Color returns the color override called name.
func (b *OverrideBlock) Color(name string) (IDColor, bool) {
	if b == nil {
		return IDColor{}, false
	}
	c, ok := b.colors[name]
	return c, ok
}

// Len returns the number of overrides in the block.
func (b *OverrideBlock) Len() int {
	if b == nil {
		return 0
	}
	return len(b.colors)
}

// Clear removes all overrides.
func (b *OverrideBlock) Clear() {
	clear(b.colors)
}

// Clone returns an independent copy of the block. Cloning nil returns an
// empty block.
func (b *OverrideBlock) Clone() *OverrideBlock {
	if b == nil || len(b.colors) == 0 {
		return &OverrideBlock{}
	}
	return &OverrideBlock{colors: maps.Clone(b.colors)}
}

// SurfaceSet is the ordered set of surfaces registered for one object.
type SurfaceSet struct {
	items []Surface
	index map[Surface]int
}

func newSurfaceSet() *SurfaceSet {
	return &SurfaceSet{index: make(map[Surface]int)}
}

// Add inserts s and reports whether it was not already present.
func (s *SurfaceSet) Add(surface Surface) bool {
	if _, ok := s.index[surface]; ok {
		return false
	}
	s.index[surface] = len(s.items)
	s.items = append(s.items, surface)
	return true
}

// Remove deletes s and reports whether it was present.
func (s *SurfaceSet) Remove(surface Surface) bool {
	i, ok := s.index[surface]
	if !ok {
		return false
	}
	delete(s.index, surface)
	s.items = slices.Delete(s.items, i, i+1)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j]] = j
	}
	return true
}

// Contains reports whether s is in the set.
func (s *SurfaceSet) Contains(surface Surface) bool {
	_, ok := s.index[surface]
	return ok
}

// Len returns the number of surfaces.
func (s *SurfaceSet) Len() int {
	return len(s.items)
}

// Surfaces returns the surfaces in registration order. The slice is shared
// with the set and must not be modified.
func (s *SurfaceSet) Surfaces() []Surface {
	return s.items
}

func (s *SurfaceSet) reset() {
	clear(s.items)
	s.items = s.items[:0]
	clear(s.index)
}

// surfaceSetPool recycles surface sets across registry resets and across
// registries.
var surfaceSetPool = sync.Pool{
	New: func() any { return newSurfaceSet() },
}

func getSurfaceSet() *SurfaceSet {
	return surfaceSetPool.Get().(*SurfaceSet)
}

func putSurfaceSet(s *SurfaceSet) {
	if s == nil {
		return
	}
	s.reset()
	surfaceSetPool.Put(s)
}
