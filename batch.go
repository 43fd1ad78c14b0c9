// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package exposure

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/exposure/internal/parallel"
)

// BatchState is the lifecycle state of a Batch.
type BatchState int

const (
	// BatchIdle means the batch is pooled or configured and not running.
	BatchIdle BatchState = iota

	// BatchExecuting means a run is in flight.
	BatchExecuting

	// BatchCompleted means the run finished and results are valid unless
	// Err reports a failure.
	BatchCompleted

	// BatchCanceled means the run was canceled; results are absent.
	BatchCanceled

	// BatchDisposed means all resources were released.
	BatchDisposed
)

// String returns the string representation of BatchState.
func (s BatchState) String() string {
	switch s {
	case BatchIdle:
		return "Idle"
	case BatchExecuting:
		return "Executing"
	case BatchCompleted:
		return "Completed"
	case BatchCanceled:
		return "Canceled"
	case BatchDisposed:
		return "Disposed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Config is the render configuration applied to a batch.
type Config struct {
	// Device is the requested counting device.
	Device Device

	// Material and Shader are forwarded to the Renderer.
	Material any
	Shader   string

	// Kernel selects the counting strategy.
	Kernel Kernel

	// Width and Height are the render target size in pixels.
	Width, Height int
}

// CompletionFunc is invoked once when a batch reaches a terminal state.
// owner is the value passed to Execute.
type CompletionFunc func(b *Batch, owner any)

// Batch owns the resources of one "render all tracked objects, then count
// pixels" cycle.
//
// Execute starts the cycle on a separate goroutine and returns immediately.
// The completion callback never runs on that goroutine: it fires exactly
// once from Poll or Wait on the caller's goroutine, after the run finished.
//
// Lifecycle:
//
//	Idle -> Execute -> Executing -> Completed | Canceled -> Poll -> Execute ...
//	any state -> Dispose -> Disposed
type Batch struct {
	renderer Renderer
	counter  *Counter
	metrics  *Metrics

	mu       sync.Mutex
	cfg      Config
	state    BatchState
	canceled bool
	commands *CommandList
	stale    bool

	// Owned by the run goroutine while executing.
	pixels  []uint32
	results []Result
	err     error

	cancel     context.CancelFunc
	done       chan struct{}
	onComplete CompletionFunc
	owner      any
	fired      bool
}

func newBatch(r Renderer, pool *parallel.WorkerPool, m *Metrics, cfg Config) *Batch {
	return &Batch{
		renderer: r,
		counter:  newSharedCounter(pool),
		metrics:  m,
		cfg:      cfg,
		stale:    true,
	}
}

// Configure replaces the batch configuration. A running batch picks up the
// new configuration at its next request.
func (b *Batch) Configure(cfg Config) {
	b.mu.Lock()
	b.cfg = cfg
	b.mu.Unlock()
}

// Config returns the current configuration.
func (b *Batch) Config() Config {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

// State returns the lifecycle state.
func (b *Batch) State() BatchState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Canceled reports whether the last run was canceled.
func (b *Batch) Canceled() bool {
	return b.State() == BatchCanceled
}

// Err returns the error of the last completed run, if any.
func (b *Batch) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Results returns the results of the last completed run. It returns nil
// while executing, after cancellation and after a failed run. The slice is
// owned by the batch until its next Execute.
func (b *Batch) Results() []Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != BatchCompleted || b.err != nil {
		return nil
	}
	return b.results
}

// takeResults hands the results to the caller; the batch allocates fresh
// ones on its next run.
func (b *Batch) takeResults() []Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != BatchCompleted || b.err != nil {
		return nil
	}
	r := b.results
	b.results = nil
	return r
}

// ReconstructCommandBuffer marks the cached command list stale. It is
// recorded again from the surface sets at the next Execute.
func (b *Batch) ReconstructCommandBuffer() {
	b.mu.Lock()
	b.stale = true
	b.mu.Unlock()
}

// Execute renders every request with the surfaces in sets and counts the
// pixels of each identity. sets[i] holds the surfaces of identity index i.
// It returns ErrBatchBusy while a run is executing or its completion has not
// been delivered by Poll or Wait.
//
// The command list is recorded synchronously, so sets may change once
// Execute returns. onComplete(b, owner) runs from Poll or Wait.
func (b *Batch) Execute(sets []*SurfaceSet, requests []Request, transform Mat4, onComplete CompletionFunc, owner any) error {
	b.mu.Lock()
	switch b.state {
	case BatchDisposed:
		b.mu.Unlock()
		return ErrBatchDisposed
	case BatchExecuting:
		b.mu.Unlock()
		return ErrBatchBusy
	case BatchCompleted, BatchCanceled:
		// The previous completion has not been delivered yet.
		if !b.fired {
			b.mu.Unlock()
			return ErrBatchBusy
		}
	}

	if b.stale || b.commands == nil {
		b.commands = recordCommands(sets, b.commands)
		b.stale = false
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.state = BatchExecuting
	b.canceled = false
	b.cancel = cancel
	b.done = make(chan struct{})
	b.onComplete = onComplete
	b.owner = owner
	b.fired = false
	b.err = nil
	b.results = nil

	cmds := b.commands
	done := b.done
	b.mu.Unlock()

	Logger().Debug("exposure: batch execute",
		"requests", len(requests), "draws", len(cmds.Draws), "objects", cmds.Objects)

	go b.run(ctx, cancel, done, cmds, slices.Clone(requests), transform)
	return nil
}

func (b *Batch) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}, cmds *CommandList, requests []Request, transform Mat4) {
	defer close(done)
	defer cancel()

	start := time.Now()
	results := make([]Result, 0, len(requests))
	var corners [8]Vec3
	var err error

	for _, req := range requests {
		if ctx.Err() != nil {
			break
		}
		cfg := b.Config()

		// Exactly eight corners; ComputeCorners cannot fail here.
		_ = ComputeCorners(req.Bounds, transform, corners[:])
		center := transform.TransformPoint(req.Bounds.Center())
		cam := BuildCamera(center, req.Direction, corners[:])

		res := Result{
			Request: req,
			Camera:  cam,
			Counts:  make([]uint32, cmds.Objects),
			Device:  DeviceCPU,
			Width:   cfg.Width,
			Height:  cfg.Height,
		}
		if !cam.IsDegenerate() && len(cmds.Draws) > 0 {
			res.Device, err = b.pass(ctx, cfg, SelectDevice(cfg.Device), cam, cmds, res.Counts)
			if err != nil {
				break
			}
		}
		results = append(results, res)
	}

	b.mu.Lock()
	b.results = results
	switch {
	case b.canceled:
		b.state = BatchCanceled
	case err != nil && ctx.Err() == nil:
		b.err = err
		b.state = BatchCompleted
	default:
		b.state = BatchCompleted
	}
	state, runErr := b.state, b.err
	b.mu.Unlock()

	outcome := outcomeCompleted
	switch {
	case state == BatchCanceled:
		outcome = outcomeCanceled
	case runErr != nil:
		outcome = outcomeFailed
		Logger().Warn("exposure: batch failed", "err", runErr)
	}
	b.metrics.observeBatch(outcome, time.Since(start))
	Logger().Debug("exposure: batch finished", "outcome", outcome, "results", len(results))
}

// pass renders one request and counts its pixels on device, or on the CPU
// when the GPU counter declines. It returns the device that counted.
func (b *Batch) pass(ctx context.Context, cfg Config, device Device, cam CameraInfo, cmds *CommandList, counts []uint32) (Device, error) {
	n := cfg.Width * cfg.Height
	if cap(b.pixels) < n {
		b.pixels = make([]uint32, n)
	}

	pixels, err := b.renderer.Render(ctx, &RenderPass{
		Camera:   cam,
		ViewProj: cam.ViewProj.F32(),
		Width:    cfg.Width,
		Height:   cfg.Height,
		Material: cfg.Material,
		Shader:   cfg.Shader,
		Commands: cmds,
		Target:   b.pixels[:n],
	})
	if err != nil {
		return DeviceCPU, fmt.Errorf("exposure: render pass: %w", err)
	}
	if len(pixels) < n {
		return DeviceCPU, fmt.Errorf("%w: got %d, want %d", ErrShortBuffer, len(pixels), n)
	}
	pixels = pixels[:n]

	if device == DeviceGPU {
		err := b.countGPU(ctx, cfg.Kernel, pixels, counts)
		if err == nil {
			b.metrics.observePass(DeviceGPU, n)
			return DeviceGPU, nil
		}
		if ctx.Err() != nil {
			return DeviceGPU, ctx.Err()
		}
	}

	if err := b.counter.Count(ctx, cfg.Kernel, pixels, counts); err != nil {
		return DeviceCPU, err
	}
	b.metrics.observePass(DeviceCPU, n)
	return DeviceCPU, nil
}

// countGPU counts with the registered GPU counter. Any error means the
// caller counts on the CPU instead.
func (b *Batch) countGPU(ctx context.Context, k Kernel, pixels []uint32, counts []uint32) error {
	gc := GPUCounterFor()
	if gc == nil || !gc.SupportsKernel(k) {
		return ErrFallbackToCPU
	}
	err := gc.Count(ctx, k, pixels, counts)
	if err != nil && !errors.Is(err, ErrFallbackToCPU) && ctx.Err() == nil {
		Logger().Warn("exposure: GPU count failed, counting on CPU", "counter", gc.Name(), "err", err)
	}
	return err
}

// Cancel asks the running cycle to stop. The batch still reaches
// BatchCanceled and fires its completion callback; its results are absent.
// Cancel on a batch that is not executing does nothing.
func (b *Batch) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != BatchExecuting {
		return
	}
	b.canceled = true
	b.cancel()
}

// Poll fires the completion callback if the run has finished and the
// callback has not fired yet. It reports whether the callback fired.
func (b *Batch) Poll() bool {
	b.mu.Lock()
	if b.fired || (b.state != BatchCompleted && b.state != BatchCanceled) {
		b.mu.Unlock()
		return false
	}
	b.fired = true
	fn, owner := b.onComplete, b.owner
	b.onComplete, b.owner = nil, nil
	b.mu.Unlock()

	if fn != nil {
		fn(b, owner)
	}
	return true
}

// Wait blocks until the run finished or ctx is done, then polls.
func (b *Batch) Wait(ctx context.Context) error {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b.Poll()
	return nil
}

// Dispose cancels any running cycle, waits for it to stop and releases the
// batch resources. The completion callback of a run that was not polled yet
// never fires. Dispose is safe to call multiple times.
func (b *Batch) Dispose() {
	b.mu.Lock()
	if b.state == BatchDisposed {
		b.mu.Unlock()
		return
	}
	if b.state == BatchExecuting {
		b.canceled = true
		b.cancel()
	}
	done := b.done
	b.mu.Unlock()

	// The run goroutine may still write to pixels and results.
	if done != nil {
		<-done
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BatchDisposed
	b.pixels = nil
	b.results = nil
	b.commands = nil
	b.onComplete = nil
	b.owner = nil
	b.fired = true
}
