// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package exposure

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrFallbackToCPU indicates the GPU counter cannot handle a request.
// The batch transparently counts on the CPU instead.
var ErrFallbackToCPU = errors.New("exposure: falling back to CPU counting")

// Kernel selects the pixel counting strategy. The same selector is honoured
// by the CPU counter and by GPU counters.
type Kernel uint8

const (
	// KernelAtomic increments a single shared counts buffer with atomics.
	KernelAtomic Kernel = iota

	// KernelBanded accumulates private histograms per band (per workgroup on
	// the GPU) and merges them afterwards. This avoids contention on hot
	// counters when a few objects cover most of the image.
	KernelBanded
)

// String returns the kernel name.
func (k Kernel) String() string {
	switch k {
	case KernelAtomic:
		return "atomic"
	case KernelBanded:
		return "banded"
	default:
		return fmt.Sprintf("Kernel(%d)", uint8(k))
	}
}

// GPUCounter is an optional GPU compute provider for pixel counting.
//
// When registered via RegisterGPUCounter, batches whose requested device is
// DeviceGPU count on the GPU. Any error from Count, including
// ErrFallbackToCPU, makes the batch count that request on the CPU.
//
// Implementations live in GPU backend packages and register themselves via
// blank import:
//
//	import _ "github.com/gogpu/exposure/gpu"
type GPUCounter interface {
	// Name returns the counter name (e.g., "wgpu-vulkan").
	Name() string

	// Init initializes GPU resources. Called once during registration.
	Init() error

	// Close releases GPU resources.
	Close()

	// SupportsKernel reports whether the counter has a pipeline for k.
	SupportsKernel(k Kernel) bool

	// Count writes the number of pixels of every identity index found in
	// pixels to counts, discarding its previous contents. Background pixels
	// and indices beyond len(counts) are ignored. The call blocks until the
	// GPU result has been read back.
	Count(ctx context.Context, k Kernel, pixels []uint32, counts []uint32) error
}

var (
	counterMu sync.RWMutex
	counter   GPUCounter
)

// RegisterGPUCounter registers the process-wide GPU counter.
//
// The counter's Init is called first; if it fails the counter is not
// registered and the error is returned. A later registration replaces and
// closes the previous counter.
func RegisterGPUCounter(c GPUCounter) error {
	if c == nil {
		return errors.New("exposure: GPU counter must not be nil")
	}
	if err := c.Init(); err != nil {
		return err
	}
	propagateLogger(c, Logger())

	counterMu.Lock()
	old := counter
	counter = c
	counterMu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// GPUCounterFor returns the registered GPU counter, or nil if none.
func GPUCounterFor() GPUCounter {
	counterMu.RLock()
	c := counter
	counterMu.RUnlock()
	return c
}

// ComputeSupported reports whether a GPU counter is available.
func ComputeSupported() bool {
	return GPUCounterFor() != nil
}
