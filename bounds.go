// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package exposure

import (
	"errors"
	"fmt"
)

// ErrCornerCount is returned by ComputeCorners when the destination does not
// hold exactly eight points.
var ErrCornerCount = errors.New("exposure: corner buffer must hold exactly 8 points")

// Bounds is an axis-aligned box in local space.
type Bounds struct {
	Min, Max Vec3
}

// BoundsFromCenter creates bounds from a center and full size.
func BoundsFromCenter(center, size Vec3) Bounds {
	half := size.Mul(0.5)
	return Bounds{Min: center.Sub(half), Max: center.Add(half)}
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the extent of the box along each axis.
func (b Bounds) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Union returns the smallest box containing b and o.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Corner returns corner i in [0,8). Bit 0 selects X, bit 1 Y, bit 2 Z;
// a set bit picks Max.
func (b Bounds) Corner(i int) Vec3 {
	c := b.Min
	if i&1 != 0 {
		c.X = b.Max.X
	}
	if i&2 != 0 {
		c.Y = b.Max.Y
	}
	if i&4 != 0 {
		c.Z = b.Max.Z
	}
	return c
}

// ComputeCorners writes the eight corners of b, transformed by m, to dst.
func ComputeCorners(b Bounds, m Mat4, dst []Vec3) error {
	if len(dst) != 8 {
		return fmt.Errorf("%w: got %d", ErrCornerCount, len(dst))
	}
	for i := range dst {
		dst[i] = m.TransformPoint(b.Corner(i))
	}
	return nil
}
