// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package exposure

import "unsafe"

// MaxObjects is the number of identity indices tracked by a registry. The
// codec itself is lossless for any index below 2^32-1; the limit keeps
// identities inside the color channels of an RGBA8 target.
const MaxObjects = 1 << 24

// IDColor is an object identity written into the render target.
//
// Its four channels share memory with a uint32: the value of an identity
// color is index+1 read in host byte order, so a readback of an RGBA8 target
// can be reinterpreted as []uint32 without per-pixel conversion.
type IDColor struct {
	R, G, B, A uint8
}

// Background is the color of pixels not covered by any tracked object.
var Background = IDColor{}

// ColorFromUint32 reinterprets a raw pixel value as an identity color.
func ColorFromUint32(v uint32) IDColor {
	return *(*IDColor)(unsafe.Pointer(&v)) //nolint:gosec // same size, no padding
}

// Uint32 reinterprets the color channels as a raw pixel value.
func (c IDColor) Uint32() uint32 {
	return *(*uint32)(unsafe.Pointer(&c)) //nolint:gosec // same size, no padding
}

// EncodeIndex returns the identity color for an object index.
// EncodeIndex(-1) is Background.
func EncodeIndex(index int) IDColor {
	return ColorFromUint32(uint32(index + 1)) //nolint:gosec // index < MaxObjects
}

// DecodeColor returns the object index encoded in c, or -1 for Background.
func DecodeColor(c IDColor) int {
	return decodeValue(c.Uint32())
}

// decodeValue is DecodeColor on a raw pixel value.
func decodeValue(v uint32) int {
	return int(v) - 1
}
