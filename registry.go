// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package exposure

import (
	"context"
	"fmt"
	"slices"

	"github.com/gogpu/exposure/internal/parallel"
)

// ResultFunc receives the results of one Render call. results is nil when
// err is non-nil. Batches canceled by CancelPendingJobs or submitted before
// a Reset report ErrCanceled. After Close no ResultFunc is called.
type ResultFunc func(results []Result, err error)

type entry[T any] struct {
	obj *T
	set *SurfaceSet
}

type activeBatch struct {
	batch    *Batch
	gen      uint64
	onResult ResultFunc
}

// Registry assigns identity colors to tracked objects, remembers which
// surfaces draw each object and runs render batches over them.
//
// Objects are keyed by pointer identity. A Registry is not safe for
// concurrent use; callers serialize calls. Batches run in the background,
// but their results are delivered only from Poll and Wait on the caller's
// goroutine.
type Registry[T any] struct {
	cfg      Config
	renderer Renderer
	metrics  *Metrics
	pool     *parallel.WorkerPool

	entries []entry[T]
	index   map[*T]int
	owners  map[Surface]int
	scratch *OverrideBlock

	dirty      bool
	generation uint64

	idle   []*Batch
	active []*activeBatch
	latest []Result

	closed bool
}

// NewRegistry creates a registry.
func NewRegistry[T any](opts ...Option) (*Registry[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateSize(o.cfg.Width, o.cfg.Height); err != nil {
		return nil, err
	}

	r := &Registry[T]{
		cfg:      o.cfg,
		renderer: o.renderer,
		metrics:  o.metrics,
		pool:     parallel.NewWorkerPool(o.workers),
		index:    make(map[*T]int),
		owners:   make(map[Surface]int),
		scratch:  NewOverrideBlock(),
	}
	Logger().Debug("exposure: registry created",
		"width", r.cfg.Width, "height", r.cfg.Height,
		"device", r.cfg.Device, "kernel", r.cfg.Kernel,
		"workers", r.pool.Workers())
	return r, nil
}

func validateSize(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidRenderSize, w, h)
	}
	return nil
}

// SetupRenderer registers obj if it is unseen, attaches s to it and
// publishes the identity color to s through an override block. When block
// is nil a shared scratch block is used; the override replaces any earlier
// overrides of s. It returns the identity color of obj.
//
// A nil obj is not tracked and returns Background.
func (r *Registry[T]) SetupRenderer(obj *T, s Surface, block *OverrideBlock) IDColor {
	if obj == nil {
		return Background
	}
	idx := r.register(obj)
	color := EncodeIndex(idx)
	if s != nil {
		r.attach(idx, s, color, block)
	}
	r.dirty = true
	return color
}

// SetupRenderers is SetupRenderer for several surfaces at once.
func (r *Registry[T]) SetupRenderers(obj *T, ss []Surface, block *OverrideBlock) IDColor {
	if obj == nil {
		return Background
	}
	idx := r.register(obj)
	color := EncodeIndex(idx)
	for _, s := range ss {
		if s != nil {
			r.attach(idx, s, color, block)
		}
	}
	r.dirty = true
	return color
}

func (r *Registry[T]) register(obj *T) int {
	if idx, ok := r.index[obj]; ok {
		return idx
	}
	idx := len(r.entries)
	if idx >= MaxObjects {
		panic(fmt.Errorf("%w: %d", ErrTooManyObjects, idx+1))
	}
	r.entries = append(r.entries, entry[T]{obj: obj, set: getSurfaceSet()})
	r.index[obj] = idx
	return idx
}

func (r *Registry[T]) attach(idx int, s Surface, color IDColor, block *OverrideBlock) {
	if prev, ok := r.owners[s]; ok && prev != idx {
		r.entries[prev].set.Remove(s)
	}
	r.entries[idx].set.Add(s)
	r.owners[s] = idx

	if block == nil {
		if r.scratch == nil {
			r.scratch = NewOverrideBlock()
		}
		block = r.scratch
		block.Clear()
	}
	block.SetColor(ColorProperty, color)
	s.SetOverrides(block)
}

// Reset forgets every tracked object and surface. Identity indices may be
// reassigned afterwards, and batches submitted before Reset deliver
// ErrCanceled instead of their results.
func (r *Registry[T]) Reset() {
	for i := range r.entries {
		putSurfaceSet(r.entries[i].set)
	}
	clear(r.entries)
	r.entries = r.entries[:0]
	clear(r.index)
	clear(r.owners)
	r.latest = nil
	r.generation++
	r.dirty = true
	Logger().Debug("exposure: registry reset", "generation", r.generation)
}

// Dirty reports whether surfaces changed since the last Render.
func (r *Registry[T]) Dirty() bool {
	return r.dirty
}

// Mapping returns a read-only view of the identity assignments.
func (r *Registry[T]) Mapping() IndexMap[T] {
	return IndexMap[T]{r: r}
}

// Render schedules one batch that renders every request and counts the
// pixels of each tracked object. It returns once the batch is running;
// onResult is called from a later Poll or Wait.
func (r *Registry[T]) Render(requests []Request, transform Mat4, onResult ResultFunc) error {
	if r.closed {
		return ErrRegistryClosed
	}
	if r.renderer == nil {
		return ErrNoRenderer
	}

	if r.dirty {
		for _, b := range r.idle {
			b.ReconstructCommandBuffer()
		}
		for _, a := range r.active {
			a.batch.ReconstructCommandBuffer()
		}
		r.dirty = false
	}

	b := r.acquire()
	b.Configure(r.cfg)

	sets := make([]*SurfaceSet, len(r.entries))
	for i := range r.entries {
		sets[i] = r.entries[i].set
	}

	a := &activeBatch{batch: b, gen: r.generation, onResult: onResult}
	if err := b.Execute(sets, requests, transform, r.complete, a); err != nil {
		r.release(b)
		return err
	}
	r.active = append(r.active, a)
	return nil
}

func (r *Registry[T]) acquire() *Batch {
	if n := len(r.idle); n > 0 {
		b := r.idle[n-1]
		r.idle[n-1] = nil
		r.idle = r.idle[:n-1]
		if b.State() == BatchDisposed {
			panic("exposure: disposed batch found in pool")
		}
		return b
	}
	b := newBatch(r.renderer, r.pool, r.metrics, r.cfg)
	Logger().Debug("exposure: batch created", "pooled", len(r.idle), "active", len(r.active))
	return b
}

func (r *Registry[T]) release(b *Batch) {
	if r.closed {
		b.Dispose()
		return
	}
	r.idle = append(r.idle, b)
}

// complete is the completion callback of every batch this registry runs.
func (r *Registry[T]) complete(b *Batch, owner any) {
	a, ok := owner.(*activeBatch)
	if !ok || a.batch != b {
		panic(fmt.Sprintf("exposure: batch completed with foreign owner %T", owner))
	}
	i := slices.Index(r.active, a)
	if i < 0 {
		panic("exposure: completed batch is not active in this registry")
	}
	r.active = slices.Delete(r.active, i, i+1)

	if b.Canceled() {
		b.Dispose()
		if a.onResult != nil {
			a.onResult(nil, ErrCanceled)
		}
		return
	}

	if a.gen != r.generation {
		r.release(b)
		if a.onResult != nil {
			a.onResult(nil, ErrCanceled)
		}
		return
	}

	if err := b.Err(); err != nil {
		r.release(b)
		if a.onResult != nil {
			a.onResult(nil, err)
		}
		return
	}

	results := b.takeResults()
	r.latest = results
	r.release(b)
	if a.onResult != nil {
		a.onResult(results, nil)
	}
}

// Poll delivers the results of every finished batch and returns how many
// batches it reconciled.
func (r *Registry[T]) Poll() int {
	n := 0
	for _, a := range slices.Clone(r.active) {
		if a.batch.Poll() {
			n++
		}
	}
	return n
}

// Wait blocks until every active batch finished or ctx is done, delivering
// results as batches finish.
func (r *Registry[T]) Wait(ctx context.Context) error {
	for len(r.active) > 0 {
		if err := r.active[0].batch.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CancelPendingJobs cancels every running batch. Canceled batches are
// discarded once reconciled and their ResultFunc receives ErrCanceled.
func (r *Registry[T]) CancelPendingJobs() {
	for _, a := range r.active {
		a.batch.Cancel()
	}
}

// Latest returns the results of the most recently delivered batch.
func (r *Registry[T]) Latest() []Result {
	return r.latest
}

// PixelCount returns the pixel count of obj for the request at index
// request of the most recently delivered batch.
func (r *Registry[T]) PixelCount(obj *T, request int) (uint32, bool) {
	idx, ok := r.index[obj]
	if !ok || request < 0 || request >= len(r.latest) {
		return 0, false
	}
	counts := r.latest[request].Counts
	if idx >= len(counts) {
		return 0, false
	}
	return counts[idx], true
}

// PooledBatches returns the number of idle batches.
func (r *Registry[T]) PooledBatches() int {
	return len(r.idle)
}

// ActiveBatches returns the number of batches not reconciled yet.
func (r *Registry[T]) ActiveBatches() int {
	return len(r.active)
}

// Config returns the current configuration.
func (r *Registry[T]) Config() Config {
	return r.cfg
}

// RequestedDevice returns the device configured by the caller.
func (r *Registry[T]) RequestedDevice() Device {
	return r.cfg.Device
}

// ActualDevice returns the device passes run on.
func (r *Registry[T]) ActualDevice() Device {
	return SelectDevice(r.cfg.Device)
}

// SetDevice sets the requested counting device.
func (r *Registry[T]) SetDevice(d Device) {
	r.cfg.Device = d
	r.propagate()
}

// SetMaterial sets the material forwarded to the renderer.
func (r *Registry[T]) SetMaterial(m any) {
	r.cfg.Material = m
	r.propagate()
}

// SetShader sets the shader name forwarded to the renderer.
func (r *Registry[T]) SetShader(name string) {
	r.cfg.Shader = name
	r.propagate()
}

// SetKernel sets the counting kernel.
func (r *Registry[T]) SetKernel(k Kernel) {
	r.cfg.Kernel = k
	r.propagate()
}

// SetRenderSize sets the render target size.
func (r *Registry[T]) SetRenderSize(width, height int) error {
	if err := validateSize(width, height); err != nil {
		return err
	}
	r.cfg.Width, r.cfg.Height = width, height
	r.propagate()
	return nil
}

// propagate pushes the configuration to pooled and running batches.
func (r *Registry[T]) propagate() {
	for _, b := range r.idle {
		b.Configure(r.cfg)
	}
	for _, a := range r.active {
		a.batch.Configure(r.cfg)
	}
}

// Close cancels and disposes every batch and releases the registry
// resources. Results of running batches are never delivered. Close is safe
// to call multiple times.
func (r *Registry[T]) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	for _, a := range r.active {
		a.batch.Cancel()
	}
	for _, a := range r.active {
		a.batch.Dispose()
	}
	clear(r.active)
	r.active = nil

	for _, b := range r.idle {
		b.Dispose()
	}
	clear(r.idle)
	r.idle = nil

	r.pool.Close()
	for i := range r.entries {
		putSurfaceSet(r.entries[i].set)
	}
	r.entries = nil
	clear(r.index)
	clear(r.owners)
	r.scratch = nil
	r.latest = nil
	Logger().Debug("exposure: registry closed")
	return nil
}
