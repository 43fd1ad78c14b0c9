// Package exposure measures how much of the screen each tracked object
// covers when a scene is viewed from a set of directions.
//
// # Overview
//
// Every tracked object gets a unique identity color. The host renderer
// draws all registered surfaces with that color as an override, using an
// orthographic camera fitted tightly around the requested bounds. Counting
// the pixels of each color gives the exposed area of each object.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/exposure"
//		"github.com/gogpu/exposure/render"
//	)
//
//	reg, err := exposure.NewRegistry[Part](
//		exposure.WithRenderer(render.NewSoftware()),
//		exposure.WithRenderSize(256, 256),
//	)
//	if err != nil {
//		return err
//	}
//	defer reg.Close()
//
//	reg.SetupRenderer(hull, hullMesh, nil)
//	reg.SetupRenderer(mast, mastMesh, nil)
//
//	req := exposure.Request{Direction: exposure.V3(1, 0, 0), Bounds: sceneBounds}
//	err = reg.Render([]exposure.Request{req}, exposure.Identity(), func(res []exposure.Result, err error) {
//		// res[0].Counts[i] is the pixel count of identity index i.
//	})
//	...
//	err = reg.Wait(ctx)
//
// # Architecture
//
// The package is organized into:
//   - Identity codec: EncodeIndex, DecodeColor, Background
//   - Projection: ComputeCorners and BuildCamera fit an orthographic camera
//   - Counting: Counter (CPU, atomic or banded) and GPUCounter
//   - Batches: Batch runs render and count cycles off the caller's goroutine
//   - Registry: tracks objects and surfaces and reconciles batches
//
// Sub-packages:
//   - render: software z-buffered rasterizer implementing Renderer
//   - gpu: registers the wgpu compute counter (import for side effects)
//
// # Devices
//
// Counting runs on the CPU by default. Request DeviceGPU and blank-import
// the gpu package to count with a compute shader:
//
//	import _ "github.com/gogpu/exposure/gpu"
//
// When no GPU counter is registered the request falls back to the CPU and a
// warning is logged once per process.
//
// # Concurrency
//
// Registry is not safe for concurrent use. Batches run in the background,
// but completion callbacks only fire from Registry.Poll and Registry.Wait on
// the caller's goroutine.
//
// # Logging
//
// The package is silent by default. Call SetLogger with a *slog.Logger to
// enable diagnostics.
package exposure

// Version is the current version of the library.
const Version = "0.1.0"
