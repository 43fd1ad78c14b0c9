// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package exposure

import (
	"context"
	"sync/atomic"

	"github.com/gogpu/exposure/internal/parallel"
)

// Counter builds per-object pixel histograms of identity buffers on the CPU.
//
// Both kernels split the buffer into disjoint bands processed concurrently
// by a worker pool. KernelAtomic increments one shared array of atomic
// counters; KernelBanded gives every band a private histogram that is summed
// once all bands finished. Results are identical.
//
// A Counter reuses its scratch buffers between calls and is not safe for
// concurrent use; the worker pool underneath may be shared.
type Counter struct {
	pool     *parallel.WorkerPool
	ownsPool bool

	shared  []atomic.Uint32
	private [][]uint32
}

// NewCounter creates a counter with its own pool of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewCounter(workers int) *Counter {
	return &Counter{pool: parallel.NewWorkerPool(workers), ownsPool: true}
}

func newSharedCounter(pool *parallel.WorkerPool) *Counter {
	return &Counter{pool: pool}
}

// Count writes the number of pixels of every identity index to counts,
// discarding its previous contents. Background pixels and indices beyond
// len(counts) are skipped. Count stops early and returns ctx.Err() when ctx
// is canceled; counts is then undefined.
func (c *Counter) Count(ctx context.Context, k Kernel, pixels []uint32, counts []uint32) error {
	switch k {
	case KernelBanded:
		return c.countBanded(ctx, pixels, counts)
	default:
		return c.countAtomic(ctx, pixels, counts)
	}
}

func (c *Counter) countAtomic(ctx context.Context, pixels []uint32, counts []uint32) error {
	n := len(counts)
	if cap(c.shared) < n {
		c.shared = make([]atomic.Uint32, n)
	}
	shared := c.shared[:n]
	for i := range shared {
		shared[i].Store(0)
	}

	bands := parallel.SplitBands(len(pixels), c.pool.Workers())
	work := make([]func(), len(bands))
	for i, b := range bands {
		work[i] = func() {
			if ctx.Err() != nil {
				return
			}
			for _, px := range pixels[b.Start:b.End] {
				idx := decodeValue(px)
				if idx < 0 || idx >= n {
					continue
				}
				shared[idx].Add(1)
			}
		}
	}
	c.pool.ExecuteAll(work)
	if err := ctx.Err(); err != nil {
		return err
	}

	for i := range counts {
		counts[i] = shared[i].Load()
	}
	return nil
}

func (c *Counter) countBanded(ctx context.Context, pixels []uint32, counts []uint32) error {
	n := len(counts)
	bands := parallel.SplitBands(len(pixels), c.pool.Workers())
	for len(c.private) < len(bands) {
		c.private = append(c.private, nil)
	}

	work := make([]func(), len(bands))
	for i, b := range bands {
		if cap(c.private[i]) < n {
			c.private[i] = make([]uint32, n)
		}
		hist := c.private[i][:n]
		clear(hist)
		work[i] = func() {
			if ctx.Err() != nil {
				return
			}
			for _, px := range pixels[b.Start:b.End] {
				idx := decodeValue(px)
				if idx < 0 || idx >= n {
					continue
				}
				hist[idx]++
			}
		}
	}
	c.pool.ExecuteAll(work)
	if err := ctx.Err(); err != nil {
		return err
	}

	clear(counts)
	for i := range bands {
		for idx, v := range c.private[i][:n] {
			counts[idx] += v
		}
	}
	return nil
}

// Close stops the worker pool if the counter owns it.
func (c *Counter) Close() {
	if c.ownsPool {
		c.pool.Close()
	}
}
