// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/exposure"
)

// IdentityTarget is a CPU-backed identity buffer with a depth buffer.
//
// Each pixel holds the packed IDColor of the surface drawn there, or the
// background value zero. Depth grows away from the camera.
//
// Example:
//
//	target := render.NewIdentityTarget(256, 256)
//	target.Clear()
//	img := target.Image()
type IdentityTarget struct {
	width  int
	height int
	pix    []uint32
	depth  []float32
}

// NewIdentityTarget creates a cleared identity target.
func NewIdentityTarget(width, height int) *IdentityTarget {
	t := &IdentityTarget{}
	t.Resize(width, height)
	return t
}

// NewIdentityTargetFrom wraps pixels as the identity buffer. pixels must
// hold width*height values and is used without copying.
func NewIdentityTargetFrom(width, height int, pixels []uint32) *IdentityTarget {
	t := &IdentityTarget{
		width:  width,
		height: height,
		pix:    pixels[:width*height],
		depth:  make([]float32, width*height),
	}
	t.clearDepth()
	return t
}

// Width returns the target width in pixels.
func (t *IdentityTarget) Width() int {
	return t.width
}

// Height returns the target height in pixels.
func (t *IdentityTarget) Height() int {
	return t.height
}

// Format returns the pixel format. Identity colors are stored as RGBA8.
func (t *IdentityTarget) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Pixels returns direct access to the identity buffer.
func (t *IdentityTarget) Pixels() []uint32 {
	return t.pix
}

// Depth returns direct access to the depth buffer.
func (t *IdentityTarget) Depth() []float32 {
	return t.depth
}

// At returns the identity color at (x, y).
func (t *IdentityTarget) At(x, y int) exposure.IDColor {
	if x < 0 || y < 0 || x >= t.width || y >= t.height {
		return exposure.Background
	}
	return exposure.ColorFromUint32(t.pix[y*t.width+x])
}

// Clear resets every pixel to background and every depth to +Inf.
func (t *IdentityTarget) Clear() {
	clear(t.pix)
	t.clearDepth()
}

func (t *IdentityTarget) clearDepth() {
	inf := float32(math.Inf(1))
	for i := range t.depth {
		t.depth[i] = inf
	}
}

// Resize reallocates the buffers when the size changes and clears them.
func (t *IdentityTarget) Resize(width, height int) {
	n := width * height
	t.width, t.height = width, height
	if cap(t.pix) < n {
		t.pix = make([]uint32, n)
		t.depth = make([]float32, n)
	}
	t.pix = t.pix[:n]
	t.depth = t.depth[:n]
	t.Clear()
}

// Image returns a visualization of the identity buffer: background is
// transparent, every identity gets a distinct opaque hue.
func (t *IdentityTarget) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, t.width, t.height))
	for i, v := range t.pix {
		idx := exposure.DecodeColor(exposure.ColorFromUint32(v))
		if idx < 0 {
			continue
		}
		c := PaletteColor(idx)
		o := i * 4
		img.Pix[o+0] = c.R
		img.Pix[o+1] = c.G
		img.Pix[o+2] = c.B
		img.Pix[o+3] = c.A
	}
	return img
}

// PaletteColor returns a stable, well separated display color for an
// identity index. Hues advance by the golden angle.
func PaletteColor(index int) color.NRGBA {
	h := math.Mod(float64(index)*137.50776405, 360) / 60
	x := 1 - math.Abs(math.Mod(h, 2)-1)
	var r, g, b float64
	switch int(h) {
	case 0:
		r, g = 1, x
	case 1:
		r, g = x, 1
	case 2:
		g, b = 1, x
	case 3:
		g, b = x, 1
	case 4:
		r, b = x, 1
	default:
		r, b = 1, x
	}
	const lo, hi = 40, 230
	scale := func(v float64) uint8 { return uint8(lo + v*(hi-lo)) }
	return color.NRGBA{R: scale(r), G: scale(g), B: scale(b), A: 255}
}
