// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/exposure"
)

// Geometry is implemented by surfaces the software renderer can draw.
type Geometry interface {
	exposure.Surface

	// Triangles returns model-space vertices, a triangle list over them and
	// the model to world transform.
	Triangles() (vertices []exposure.Vec3, indices []uint32, world exposure.Mat4)
}

// Triangles implements Geometry.
func (m *Mesh) Triangles() ([]exposure.Vec3, []uint32, exposure.Mat4) {
	return m.Vertices, m.Indices, m.World
}

type overrideSource interface {
	OverrideColor(name string) (exposure.IDColor, bool)
}

// Software is a CPU reference implementation of exposure.Renderer.
//
// It draws every command with a z-buffered, unlit triangle rasterizer and
// writes the identity color published through the surface override block,
// falling back to the command color. Surfaces that do not implement
// Geometry are skipped.
//
// Software is safe for concurrent use; batches may render in parallel.
type Software struct {
	depthPool sync.Pool
}

var _ exposure.Renderer = (*Software)(nil)

// NewSoftware returns a software identity renderer.
func NewSoftware() *Software {
	return &Software{}
}

// Render implements exposure.Renderer.
func (s *Software) Render(ctx context.Context, pass *exposure.RenderPass) ([]uint32, error) {
	w, h := pass.Width, pass.Height
	n := w * h
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render: invalid target size %dx%d", w, h)
	}
	pixels := pass.Target
	if cap(pixels) < n {
		pixels = make([]uint32, n)
	}
	target := &IdentityTarget{width: w, height: h, pix: pixels[:n], depth: s.getDepth(n)}
	target.Clear()
	defer s.putDepth(target.depth)

	if pass.Commands == nil || pass.Camera.IsDegenerate() {
		return target.pix, nil
	}

	vp := pass.Camera.ViewProj
	var scratch []screenVertex
	for _, cmd := range pass.Commands.Draws {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		geo, ok := cmd.Surface.(Geometry)
		if !ok {
			exposure.Logger().Debug("render: surface has no geometry", "object", cmd.Object)
			continue
		}
		color := cmd.Color
		if src, ok := cmd.Surface.(overrideSource); ok {
			if c, ok := src.OverrideColor(exposure.ColorProperty); ok {
				color = c
			}
		}

		vertices, indices, world := geo.Triangles()
		mvp := vp.Multiply(world)
		scratch = projectVertices(scratch[:0], vertices, mvp, w, h)
		value := color.Uint32()
		for i := 0; i+2 < len(indices); i += 3 {
			a, b, c := int(indices[i]), int(indices[i+1]), int(indices[i+2])
			if a >= len(scratch) || b >= len(scratch) || c >= len(scratch) {
				continue
			}
			rasterizeTriangle(target, scratch[a], scratch[b], scratch[c], value)
		}
	}
	return target.pix, nil
}

func (s *Software) getDepth(n int) []float32 {
	if v, ok := s.depthPool.Get().(*[]float32); ok && cap(*v) >= n {
		return (*v)[:n]
	}
	return make([]float32, n)
}

func (s *Software) putDepth(d []float32) {
	s.depthPool.Put(&d)
}

// screenVertex is a vertex in pixel coordinates with depth in [0, 1].
type screenVertex struct {
	x, y, z float64
}

func projectVertices(dst []screenVertex, vertices []exposure.Vec3, mvp exposure.Mat4, w, h int) []screenVertex {
	fw, fh := float64(w), float64(h)
	for _, v := range vertices {
		p := mvp.TransformPoint(v)
		dst = append(dst, screenVertex{
			x: (p.X + 1) * 0.5 * fw,
			y: (1 - p.Y) * 0.5 * fh,
			z: p.Z,
		})
	}
	return dst
}

// rasterizeTriangle fills the pixels whose centers lie inside the triangle
// and pass the depth test. Both windings are drawn.
func rasterizeTriangle(t *IdentityTarget, v0, v1, v2 screenVertex, value uint32) {
	det := (v1.y-v2.y)*(v0.x-v2.x) + (v2.x-v1.x)*(v0.y-v2.y)
	if math.Abs(det) < 1e-12 {
		return
	}
	invDet := 1 / det

	minX := max(int(math.Floor(min(v0.x, v1.x, v2.x))), 0)
	maxX := min(int(math.Ceil(max(v0.x, v1.x, v2.x))), t.width-1)
	minY := max(int(math.Floor(min(v0.y, v1.y, v2.y))), 0)
	maxY := min(int(math.Ceil(max(v0.y, v1.y, v2.y))), t.height-1)
	if minX > maxX || minY > maxY {
		return
	}

	dy12 := v1.y - v2.y
	dx21 := v2.x - v1.x
	dy20 := v2.y - v0.y
	dx02 := v0.x - v2.x

	const eps = -1e-9
	for py := minY; py <= maxY; py++ {
		dsy := float64(py) + 0.5 - v2.y
		row := py * t.width
		for px := minX; px <= maxX; px++ {
			dsx := float64(px) + 0.5 - v2.x
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1 - w0 - w1
			if w0 < eps || w1 < eps || w2 < eps {
				continue
			}
			z := w0*v0.z + w1*v1.z + w2*v2.z
			if z < 0 || z > 1 {
				continue
			}
			i := row + px
			if float32(z) >= t.depth[i] {
				continue
			}
			t.depth[i] = float32(z)
			t.pix[i] = value
		}
	}
}
