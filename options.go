// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package exposure

// Default render target size of a registry.
const (
	DefaultRenderWidth  = 256
	DefaultRenderHeight = 256
)

// Option configures a Registry during creation.
//
// Example:
//
//	reg, err := exposure.NewRegistry[Part](
//	    exposure.WithRenderer(render.NewSoftware()),
//	    exposure.WithRenderSize(512, 512),
//	    exposure.WithDevice(exposure.DeviceGPU),
//	)
type Option func(*options)

type options struct {
	renderer Renderer
	workers  int
	metrics  *Metrics
	cfg      Config
}

func defaultOptions() options {
	return options{
		cfg: Config{
			Device: DeviceCPU,
			Kernel: KernelBanded,
			Width:  DefaultRenderWidth,
			Height: DefaultRenderHeight,
		},
	}
}

// WithRenderer sets the renderer that draws identity passes.
func WithRenderer(r Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}

// WithWorkers sets the number of CPU counting workers.
// Zero or negative uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMetrics enables Prometheus batch metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithDevice sets the requested counting device.
func WithDevice(d Device) Option {
	return func(o *options) {
		o.cfg.Device = d
	}
}

// WithRenderSize sets the render target size in pixels.
func WithRenderSize(width, height int) Option {
	return func(o *options) {
		o.cfg.Width = width
		o.cfg.Height = height
	}
}

// WithMaterial sets the material forwarded to the renderer.
func WithMaterial(m any) Option {
	return func(o *options) {
		o.cfg.Material = m
	}
}

// WithShader sets the shader name forwarded to the renderer.
func WithShader(name string) Option {
	return func(o *options) {
		o.cfg.Shader = name
	}
}

// WithKernel sets the counting kernel.
func WithKernel(k Kernel) Option {
	return func(o *options) {
		o.cfg.Kernel = k
	}
}
