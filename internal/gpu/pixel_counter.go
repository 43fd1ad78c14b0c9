//go:build !nogpu

package gpu

import (
	"context"
	_ "embed"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/exposure"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

//go:embed shaders/count_atomic.wgsl
var countAtomicShaderSource string

//go:embed shaders/count_banded.wgsl
var countBandedShaderSource string

const (
	workgroupSize = 256

	// maxWorkgroups is the per-dimension dispatch limit of WebGPU.
	maxWorkgroups = 65535

	// bandedMaxObjects is the size of the workgroup histogram in
	// count_banded.wgsl.
	bandedMaxObjects = 1024

	paramsSize = 16

	fenceTimeout = 5 * time.Second
)

// PixelCounter counts identity pixels with wgpu/hal compute shaders.
// It implements exposure.GPUCounter.
//
// Every Count uploads the pixels, dispatches one compute pass and reads the
// histogram back. Calls are serialized.
type PixelCounter struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	shaders    [2]hal.ShaderModule
	pipelines  [2]hal.ComputePipeline

	adapterName    string
	ready          bool
	externalDevice bool // true when using shared device (don't destroy on Close)
}

var _ exposure.GPUCounter = (*PixelCounter)(nil)

// NewSharedPixelCounter returns a counter that runs on the device of an
// external provider. The provider must also expose HalDevice() and
// HalQueue() returning hal.Device and hal.Queue.
func NewSharedPixelCounter(provider gpucontext.DeviceProvider) (*PixelCounter, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	if provider == nil {
		return nil, fmt.Errorf("gpu-count: nil device provider")
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("gpu-count: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("gpu-count: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("gpu-count: provider HalQueue is not hal.Queue")
	}
	return &PixelCounter{
		device:         device,
		queue:          queue,
		adapterName:    "shared",
		externalDevice: true,
	}, nil
}

func (c *PixelCounter) Name() string { return "wgpu-count" }

// SupportsKernel reports true for both kernels. The banded kernel falls back
// to the CPU for more than 1024 identities.
func (c *PixelCounter) SupportsKernel(k exposure.Kernel) bool {
	return k == exposure.KernelAtomic || k == exposure.KernelBanded
}

// SetLogger receives the logger from exposure.SetLogger.
func (c *PixelCounter) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// Init opens a Vulkan device unless a shared device was provided, then
// builds both counting pipelines.
func (c *PixelCounter) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}
	if c.device == nil {
		if err := c.openDevice(); err != nil {
			c.releaseLocked()
			return fmt.Errorf("gpu-count: %w", err)
		}
	}
	if err := c.createPipelines(); err != nil {
		c.releaseLocked()
		return fmt.Errorf("gpu-count: create pipelines: %w", err)
	}
	c.ready = true
	slogger().Info("gpu-count: GPU counter initialized", "adapter", c.adapterName)
	return nil
}

// Close releases the pipelines and, unless shared, the device.
func (c *PixelCounter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
}

func (c *PixelCounter) releaseLocked() {
	c.destroyPipelines()
	if !c.externalDevice {
		if c.device != nil {
			c.device.Destroy()
		}
		if c.instance != nil {
			c.instance.Destroy()
		}
	}
	c.device = nil
	c.instance = nil
	c.queue = nil
	c.ready = false
	c.externalDevice = false
}

func (c *PixelCounter) openDevice() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	c.instance = instance
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	c.device = openDev.Device
	c.queue = openDev.Queue
	c.adapterName = selected.Info.Name
	return nil
}

func (c *PixelCounter) createPipelines() error {
	bindLayout, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "count_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	c.bindLayout = bindLayout

	pipeLayout, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "count_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{c.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	c.pipeLayout = pipeLayout

	sources := [2]string{
		exposure.KernelAtomic: countAtomicShaderSource,
		exposure.KernelBanded: countBandedShaderSource,
	}
	for k, src := range sources {
		label := "count_" + exposure.Kernel(k).String()
		spirv, err := compileSPIRV(src)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		module, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  label,
			Source: hal.ShaderSource{SPIRV: spirv},
		})
		if err != nil {
			return fmt.Errorf("create shader module %s: %w", label, err)
		}
		c.shaders[k] = module

		pipeline, err := c.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label: label, Layout: c.pipeLayout,
			Compute: hal.ComputeState{Module: module, EntryPoint: "main"},
		})
		if err != nil {
			return fmt.Errorf("create compute pipeline %s: %w", label, err)
		}
		c.pipelines[k] = pipeline
	}
	return nil
}

func (c *PixelCounter) destroyPipelines() {
	if c.device == nil {
		return
	}
	for k := range c.pipelines {
		if c.pipelines[k] != nil {
			c.device.DestroyComputePipeline(c.pipelines[k])
			c.pipelines[k] = nil
		}
		if c.shaders[k] != nil {
			c.device.DestroyShaderModule(c.shaders[k])
			c.shaders[k] = nil
		}
	}
	if c.pipeLayout != nil {
		c.device.DestroyPipelineLayout(c.pipeLayout)
		c.pipeLayout = nil
	}
	if c.bindLayout != nil {
		c.device.DestroyBindGroupLayout(c.bindLayout)
		c.bindLayout = nil
	}
}

// compileSPIRV compiles WGSL to little-endian SPIR-V words.
func compileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}

// Count implements exposure.GPUCounter.
func (c *PixelCounter) Count(ctx context.Context, k exposure.Kernel, pixels []uint32, counts []uint32) error {
	if !c.SupportsKernel(k) {
		return exposure.ErrFallbackToCPU
	}
	if k == exposure.KernelBanded && len(counts) > bandedMaxObjects {
		return exposure.ErrFallbackToCPU
	}
	clear(counts)
	if len(pixels) == 0 || len(counts) == 0 {
		return nil
	}
	groupsX, groupsY, ok := dispatchSize(len(pixels))
	if !ok {
		return exposure.ErrFallbackToCPU
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return exposure.ErrFallbackToCPU
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	if err := c.dispatch(k, pixels, counts, groupsX, groupsY); err != nil {
		return err
	}
	slogger().Debug("gpu-count: dispatched",
		"kernel", k, "pixels", len(pixels), "objects", len(counts),
		"groups", groupsX*groupsY, "elapsed", time.Since(start))
	return ctx.Err()
}

// dispatchSize spreads ceil(n/256) workgroups over two dimensions.
func dispatchSize(n int) (x, y uint32, ok bool) {
	groups := (n + workgroupSize - 1) / workgroupSize
	gx := min(groups, maxWorkgroups)
	gy := (groups + gx - 1) / gx
	if gy > maxWorkgroups {
		return 0, 0, false
	}
	return uint32(gx), uint32(gy), true //nolint:gosec // bounded by maxWorkgroups
}

func (c *PixelCounter) dispatch(k exposure.Kernel, pixels []uint32, counts []uint32, groupsX, groupsY uint32) error {
	pixelBufSize := uint64(len(pixels) * 4)
	countBufSize := uint64(len(counts) * 4)

	paramsBuf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "count_params", Size: paramsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create params buffer: %w", err)
	}
	defer c.device.DestroyBuffer(paramsBuf)

	pixelBuf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "count_pixels", Size: pixelBufSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create pixel buffer: %w", err)
	}
	defer c.device.DestroyBuffer(pixelBuf)

	countBuf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "count_histogram", Size: countBufSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create count buffer: %w", err)
	}
	defer c.device.DestroyBuffer(countBuf)

	stagingBuf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "count_staging", Size: countBufSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create staging buffer: %w", err)
	}
	defer c.device.DestroyBuffer(stagingBuf)

	c.queue.WriteBuffer(paramsBuf, 0, packParams(len(pixels), len(counts), groupsX*workgroupSize))
	c.queue.WriteBuffer(pixelBuf, 0, packWords(pixels))
	c.queue.WriteBuffer(countBuf, 0, make([]byte, countBufSize))

	bindGroup, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "count_bind", Layout: c.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: paramsBuf.NativeHandle(), Offset: 0, Size: paramsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: pixelBuf.NativeHandle(), Offset: 0, Size: pixelBufSize}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: countBuf.NativeHandle(), Offset: 0, Size: countBufSize}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer c.device.DestroyBindGroup(bindGroup)

	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "count_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("count"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "count_pass"})
	pass.SetPipeline(c.pipelines[k])
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Dispatch(groupsX, groupsY, 1)
	pass.End()
	encoder.CopyBufferToBuffer(countBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: countBufSize},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer c.device.FreeCommandBuffer(cmdBuf)

	fence, err := c.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer c.device.DestroyFence(fence)
	if err := c.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := c.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !fenceOK {
		return fmt.Errorf("wait for GPU: timed out after %v", fenceTimeout)
	}

	readback := make([]byte, countBufSize)
	if err := c.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return fmt.Errorf("readback: %w", err)
	}
	unpackWords(readback, counts)
	return nil
}

func packParams(pixels, objects int, rowStride uint32) []byte {
	out := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(out[0:], uint32(pixels))  //nolint:gosec // bounded by dispatchSize
	binary.LittleEndian.PutUint32(out[4:], uint32(objects)) //nolint:gosec // bounded by exposure.MaxObjects
	binary.LittleEndian.PutUint32(out[8:], rowStride)
	return out
}

func packWords(src []uint32) []byte {
	out := make([]byte, len(src)*4)
	for i, v := range src {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func unpackWords(src []byte, dst []uint32) {
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint32(src[i*4:])
	}
}
