// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"sync"

	"github.com/gogpu/exposure"
)

// Mesh is an indexed triangle list that can be registered as an
// exposure.Surface. Vertices are in model space; World places them in the
// scene.
type Mesh struct {
	Name     string
	Vertices []exposure.Vec3
	Indices  []uint32
	World    exposure.Mat4

	mu        sync.RWMutex
	overrides *exposure.OverrideBlock
}

var _ exposure.Surface = (*Mesh)(nil)

// NewMesh returns a mesh with an identity world transform.
func NewMesh(name string, vertices []exposure.Vec3, indices []uint32) *Mesh {
	return &Mesh{
		Name:     name,
		Vertices: vertices,
		Indices:  indices,
		World:    exposure.Identity(),
	}
}

// boxIndices lists the 12 triangles of a box over the corner numbering of
// exposure.Bounds.Corner.
var boxIndices = []uint32{
	0, 2, 3, 0, 3, 1, // -Z
	4, 5, 7, 4, 7, 6, // +Z
	0, 4, 6, 0, 6, 2, // -X
	1, 3, 7, 1, 7, 5, // +X
	0, 1, 5, 0, 5, 4, // -Y
	2, 6, 7, 2, 7, 3, // +Y
}

// NewBox returns a closed box mesh covering b.
func NewBox(name string, b exposure.Bounds) *Mesh {
	vertices := make([]exposure.Vec3, 8)
	for i := range vertices {
		vertices[i] = b.Corner(i)
	}
	return NewMesh(name, vertices, boxIndices)
}

// NewQuad returns a single rectangle spanning [min, max] in the XY plane at
// depth z, facing -Z.
func NewQuad(name string, minX, minY, maxX, maxY, z float64) *Mesh {
	return NewMesh(name, []exposure.Vec3{
		exposure.V3(minX, minY, z),
		exposure.V3(maxX, minY, z),
		exposure.V3(minX, maxY, z),
		exposure.V3(maxX, maxY, z),
	}, []uint32{0, 2, 3, 0, 3, 1})
}

// SetOverrides implements exposure.Surface. The block is copied, so the
// registry may reuse its scratch block.
func (m *Mesh) SetOverrides(block *exposure.OverrideBlock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if block == nil {
		m.overrides = nil
		return
	}
	m.overrides = block.Clone()
}

// OverrideColor returns the color override called name.
func (m *Mesh) OverrideColor(name string) (exposure.IDColor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overrides.Color(name)
}

// Bounds returns the world-space bounds of the mesh.
func (m *Mesh) Bounds() exposure.Bounds {
	if len(m.Vertices) == 0 {
		return exposure.Bounds{}
	}
	p := m.World.TransformPoint(m.Vertices[0])
	b := exposure.Bounds{Min: p, Max: p}
	for _, v := range m.Vertices[1:] {
		p := m.World.TransformPoint(v)
		b.Min = b.Min.Min(p)
		b.Max = b.Max.Max(p)
	}
	return b
}
