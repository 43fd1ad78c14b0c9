// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package exposure

import (
	"math"

	"golang.org/x/image/math/f32"
)

// Mat4 is a 4x4 transformation matrix in row-major order acting on column
// vectors:
//
//	| m0  m1  m2  m3  |
//	| m4  m5  m6  m7  |
//	| m8  m9  m10 m11 |
//	| m12 m13 m14 m15 |
//
// For an affine transform the last row is 0 0 0 1 and
//
//	x' = m0*x + m1*y + m2*z + m3
type Mat4 [16]float64

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate creates a translation matrix.
func Translate(x, y, z float64) Mat4 {
	return Mat4{
		1, 0, 0, x,
		0, 1, 0, y,
		0, 0, 1, z,
		0, 0, 0, 1,
	}
}

// Scale creates a scaling matrix.
func Scale(x, y, z float64) Mat4 {
	return Mat4{
		x, 0, 0, 0,
		0, y, 0, 0,
		0, 0, z, 0,
		0, 0, 0, 1,
	}
}

// RotateAxis creates a rotation of angle radians around axis
// (right-handed). A zero axis yields the identity.
func RotateAxis(axis Vec3, angle float64) Mat4 {
	a := axis.Normalize()
	if a.IsZero() {
		return Identity()
	}
	s, c := math.Sincos(angle)
	t := 1 - c
	return Mat4{
		t*a.X*a.X + c, t*a.X*a.Y - s*a.Z, t*a.X*a.Z + s*a.Y, 0,
		t*a.X*a.Y + s*a.Z, t*a.Y*a.Y + c, t*a.Y*a.Z - s*a.X, 0,
		t*a.X*a.Z - s*a.Y, t*a.Y*a.Z + s*a.X, t*a.Z*a.Z + c, 0,
		0, 0, 0, 1,
	}
}

// Multiply returns m * other, applying other first.
func (m Mat4) Multiply(other Mat4) Mat4 {
	var r Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			r[row*4+col] = m[row*4+0]*other[0*4+col] +
				m[row*4+1]*other[1*4+col] +
				m[row*4+2]*other[2*4+col] +
				m[row*4+3]*other[3*4+col]
		}
	}
	return r
}

// TransformPoint applies the transformation to a point (w = 1).
// The projective row is ignored; all matrices built here are affine or
// orthographic.
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	return Vec3{
		X: m[0]*p.X + m[1]*p.Y + m[2]*p.Z + m[3],
		Y: m[4]*p.X + m[5]*p.Y + m[6]*p.Z + m[7],
		Z: m[8]*p.X + m[9]*p.Y + m[10]*p.Z + m[11],
	}
}

// TransformVector applies the transformation to a direction (no translation).
func (m Mat4) TransformVector(v Vec3) Vec3 {
	return Vec3{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[4]*v.X + m[5]*v.Y + m[6]*v.Z,
		Z: m[8]*v.X + m[9]*v.Y + m[10]*v.Z,
	}
}

// IsIdentity returns true if the matrix is exactly the identity matrix.
func (m Mat4) IsIdentity() bool {
	return m == Identity()
}

// IsZero reports whether every element is zero. Degenerate cameras carry a
// zero view-projection matrix.
func (m Mat4) IsZero() bool {
	return m == Mat4{}
}

// F32 converts the matrix for GPU upload, keeping row-major order.
func (m Mat4) F32() f32.Mat4 {
	var r f32.Mat4
	for i, v := range m {
		r[i] = float32(v)
	}
	return r
}

// lookAlong builds a view matrix for a camera at eye looking along the unit
// vector forward with the given orthonormal right/up axes. View space z is
// the distance in front of the camera.
func lookAlong(eye, right, up, forward Vec3) Mat4 {
	return Mat4{
		right.X, right.Y, right.Z, -right.Dot(eye),
		up.X, up.Y, up.Z, -up.Dot(eye),
		forward.X, forward.Y, forward.Z, -forward.Dot(eye),
		0, 0, 0, 1,
	}
}

// orthographic maps the view-space box [left,right]x[bottom,top]x[near,far]
// to clip space x,y in [-1,1] and depth in [0,1].
// The caller guarantees a non-empty box.
func orthographic(left, right, bottom, top, near, far float64) Mat4 {
	w := right - left
	h := top - bottom
	d := far - near
	return Mat4{
		2 / w, 0, 0, -(right + left) / w,
		0, 2 / h, 0, -(top + bottom) / h,
		0, 0, 1 / d, -near / d,
		0, 0, 0, 1,
	}
}
