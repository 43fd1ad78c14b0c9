// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package exposure

import "math"

// depthHeadroom is the factor the camera is pulled back by beyond the
// deepest corner on either side of the center plane.
const depthHeadroom = 1.1

// CameraInfo describes the orthographic camera built for one request.
// It is immutable once computed.
type CameraInfo struct {
	// Forward is the unit viewing direction.
	Forward Vec3

	// Position is the camera origin in world space.
	Position Vec3

	// ViewProj maps world space to clip space (x,y in [-1,1], depth in
	// [0,1]). It is the zero matrix for degenerate cameras.
	ViewProj Mat4

	// Width and Height are the world-space extents of the projected
	// rectangle.
	Width, Height float64

	// Area is Width*Height, the projected area covered by the render target.
	// Callers use it to convert pixel counts into areas.
	Area float64

	// Near and Far bound the view depth range, measured from Position.
	Near, Far float64
}

// IsDegenerate reports whether the camera covers no area.
func (c CameraInfo) IsDegenerate() bool {
	return c.Area == 0
}

// PixelArea returns the world-space area covered by one pixel of a
// width x height target, or 0 for degenerate cameras.
func (c CameraInfo) PixelArea(width, height int) float64 {
	if c.IsDegenerate() || width <= 0 || height <= 0 {
		return 0
	}
	return c.Area / float64(width*height)
}

// BuildCamera frames corners with an orthographic camera looking along
// direction through center.
//
// The projection is sized to the exact rectangle spanned by the corners on
// the plane perpendicular to direction. The camera sits behind center by
// 1.1 times the largest corner depth on either side of that plane, and the
// clip range is [0, 2*pullback], so every corner lies strictly inside it.
func BuildCamera(center, direction Vec3, corners []Vec3) CameraInfo {
	forward := direction.Normalize()
	if forward.IsZero() {
		forward = Vec3{Z: 1}
	}
	right, up := basis(forward)

	minX, minY, minZ := math.Inf(1), math.Inf(1), math.Inf(1)
	maxX, maxY, maxZ := math.Inf(-1), math.Inf(-1), math.Inf(-1)
	for _, p := range corners {
		rel := p.Sub(center)
		x, y, z := rel.Dot(right), rel.Dot(up), rel.Dot(forward)
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		minZ, maxZ = math.Min(minZ, z), math.Max(maxZ, z)
	}

	cam := CameraInfo{Forward: forward, Position: center}
	if len(corners) == 0 {
		return cam
	}

	pull := depthHeadroom * math.Max(math.Max(-minZ, 0), math.Max(maxZ, 0))
	if pull == 0 {
		// Flat geometry facing the camera still needs a depth range.
		pull = 1
	}
	cam.Position = center.Sub(forward.Mul(pull))
	cam.Near = 0
	cam.Far = 2 * pull
	cam.Width = maxX - minX
	cam.Height = maxY - minY
	cam.Area = cam.Width * cam.Height
	if cam.Width <= 0 || cam.Height <= 0 {
		cam.Area = 0
		return cam
	}

	view := lookAlong(cam.Position, right, up, forward)
	// The camera only moved along forward, so the rectangle measured
	// around center is the view-space rectangle.
	proj := orthographic(minX, maxX, minY, maxY, cam.Near, cam.Far)
	cam.ViewProj = proj.Multiply(view)
	return cam
}

// basis returns unit right and up vectors completing a right-handed frame
// with forward, so that right x up = forward.
func basis(forward Vec3) (right, up Vec3) {
	ref := Vec3{Y: 1}
	if math.Abs(forward.Y) > 0.9 {
		ref = Vec3{Z: 1}
	}
	right = ref.Cross(forward).Normalize()
	up = forward.Cross(right)
	return right, up
}
