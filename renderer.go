// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package exposure

import (
	"context"

	"golang.org/x/image/math/f32"
)

// Renderer draws identity passes. It is implemented by the host rendering
// engine; package render provides a software implementation.
//
// Render may be called from any goroutine, but never concurrently for the
// same batch.
type Renderer interface {
	// Render draws pass.Commands with pass.ViewProj into a cleared
	// pass.Width x pass.Height target and returns the encoded identity
	// pixels, row by row from the top. Background pixels are 0.
	//
	// pass.Target, when large enough, may be used as the destination to
	// avoid allocation. The returned slice is owned by the batch until its
	// next pass.
	Render(ctx context.Context, pass *RenderPass) ([]uint32, error)
}

// RenderPass is one identity pass submitted to a Renderer.
type RenderPass struct {
	// Camera is the orthographic camera of the pass.
	Camera CameraInfo

	// ViewProj is Camera.ViewProj converted for upload.
	ViewProj f32.Mat4

	// Width and Height are the render target size in pixels.
	Width, Height int

	// Material and Shader select the host resources used to draw identity
	// colors. They are forwarded untouched.
	Material any
	Shader   string

	// Commands are the draws of the pass.
	Commands *CommandList

	// Target is a reusable destination buffer of at least Width*Height
	// pixels, or nil.
	Target []uint32
}

// Request asks for the pixel coverage of all tracked objects seen along one
// direction.
type Request struct {
	// Direction is the world-space viewing direction.
	Direction Vec3

	// Bounds are the local-space bounds framed by the camera. They are
	// transformed with the transform passed to Render.
	Bounds Bounds
}

// Result holds the pixel counts of one request.
type Result struct {
	Request Request
	Camera  CameraInfo

	// Counts[i] is the number of pixels covered by identity index i.
	Counts []uint32

	// Device is the device that counted the pixels. Passes that were
	// skipped, because the camera is degenerate or nothing is drawn, report
	// DeviceCPU.
	Device Device

	// Width and Height are the render target size used for the pass.
	Width, Height int
}

// Area converts the pixel count of identity index i into a world-space
// projected area.
func (r Result) Area(i int) float64 {
	if i < 0 || i >= len(r.Counts) {
		return 0
	}
	return float64(r.Counts[i]) * r.Camera.PixelArea(r.Width, r.Height)
}
