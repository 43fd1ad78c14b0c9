// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package exposure

import (
	"fmt"
	"sync/atomic"
)

// Device identifies where pixel counting runs.
type Device uint8

const (
	// DeviceCPU counts on the host with the parallel worker pool.
	DeviceCPU Device = iota

	// DeviceGPU counts with the registered GPUCounter.
	DeviceGPU
)

// String returns the device name.
func (d Device) String() string {
	switch d {
	case DeviceCPU:
		return "CPU"
	case DeviceGPU:
		return "GPU"
	default:
		return fmt.Sprintf("Device(%d)", uint8(d))
	}
}

// fallbackWarned latches after the first GPU-to-CPU fallback warning.
// It is only ever flipped from false to true by SelectDevice; tests rearm it
// with resetFallbackWarning.
var fallbackWarned atomic.Bool

// SelectDevice resolves the device that actually runs for a requested one.
//
// DeviceCPU is returned unchanged. DeviceGPU is honoured when a GPU counter
// is registered; otherwise DeviceCPU is returned and a warning is logged the
// first time this happens in the process.
func SelectDevice(requested Device) Device {
	if requested != DeviceGPU {
		return requested
	}
	if ComputeSupported() {
		return DeviceGPU
	}
	if fallbackWarned.CompareAndSwap(false, true) {
		Logger().Warn("exposure: GPU compute not available, counting on CPU")
	}
	return DeviceCPU
}
