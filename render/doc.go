// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render provides a CPU reference renderer for exposure.
//
// Software implements exposure.Renderer with a z-buffered triangle
// rasterizer that writes identity colors into an IdentityTarget. Mesh is a
// triangle-list surface that stores the override block the registry
// publishes to it.
//
// Example:
//
//	reg, _ := exposure.NewRegistry[Part](exposure.WithRenderer(render.NewSoftware()))
//	reg.SetupRenderer(part, render.NewBox("hull", part.Bounds), nil)
package render
