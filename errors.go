// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package exposure

import "errors"

var (
	// ErrBatchBusy is returned when Execute is called on an executing batch.
	ErrBatchBusy = errors.New("exposure: batch is already executing")

	// ErrBatchDisposed is returned when a disposed batch is used.
	ErrBatchDisposed = errors.New("exposure: batch is disposed")

	// ErrRegistryClosed is returned when a closed registry is used.
	ErrRegistryClosed = errors.New("exposure: registry is closed")

	// ErrNoRenderer is returned by Render when no Renderer was configured.
	ErrNoRenderer = errors.New("exposure: no renderer configured")

	// ErrInvalidRenderSize is returned for non-positive render sizes.
	ErrInvalidRenderSize = errors.New("exposure: render size must be positive")

	// ErrTooManyObjects is the panic value when a registry runs out of
	// identity colors.
	ErrTooManyObjects = errors.New("exposure: too many tracked objects")

	// ErrCanceled is passed to a ResultFunc whose batch was canceled or
	// submitted before a Reset. Its results are absent, not zero.
	ErrCanceled = errors.New("exposure: results canceled")

	// ErrShortBuffer is returned when a renderer returns fewer pixels than
	// the pass requires.
	ErrShortBuffer = errors.New("exposure: renderer returned a short pixel buffer")
)
