//go:build !nogpu

// Package gpu registers the wgpu pixel counter with exposure.
//
// If GPU initialization fails (no Vulkan adapter available), registration
// is skipped and batches that request DeviceGPU count on the CPU.
//
// Usage:
//
//	import _ "github.com/gogpu/exposure/gpu" // enable GPU counting
package gpu

import (
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/exposure"
	gpuimpl "github.com/gogpu/exposure/internal/gpu"
)

func init() {
	if err := exposure.RegisterGPUCounter(&gpuimpl.PixelCounter{}); err != nil {
		exposure.Logger().Warn("GPU counter not available", "err", err)
	}
}

// SetDeviceProvider makes GPU counting run on a device shared by an external
// provider (e.g., gogpu) instead of a private Vulkan device. The provider
// must expose HalDevice() and HalQueue().
//
// The counter created at import time is replaced and closed.
func SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	c, err := gpuimpl.NewSharedPixelCounter(provider)
	if err != nil {
		return err
	}
	return exposure.RegisterGPUCounter(c)
}
