//go:build !nogpu

// Package gpu counts identity pixels on the GPU.
//
// PixelCounter uploads a rendered identity buffer, runs one of two WGSL
// compute kernels compiled to SPIR-V with naga, and reads the per-identity
// histogram back:
//
//   - count_atomic: one invocation per pixel, atomicAdd into the global
//     histogram.
//   - count_banded: each workgroup builds a shared histogram of up to 1024
//     identities and merges it once.
//
// Devices come from the Vulkan backend of gogpu/wgpu, or from an external
// gpucontext.DeviceProvider exposing HAL types.
package gpu
