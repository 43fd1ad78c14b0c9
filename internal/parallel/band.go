// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package parallel

// Band is a half-open range [Start, End) of a flat pixel buffer.
type Band struct {
	Start, End int
}

// Len returns the number of pixels in the band.
func (b Band) Len() int {
	return b.End - b.Start
}

// minBand keeps bands large enough that scheduling cost stays negligible
// against the per-pixel work.
const minBand = 4096

// SplitBands divides n pixels into at most parts contiguous, disjoint bands
// that together cover [0, n). Bands are never shorter than 4096 pixels
// except when n itself is smaller, in which case a single band is returned.
func SplitBands(n, parts int) []Band {
	if n <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	if limit := max(n/minBand, 1); parts > limit {
		parts = limit
	}

	bands := make([]Band, parts)
	size, rem := n/parts, n%parts
	start := 0
	for i := range bands {
		end := start + size
		if i < rem {
			end++
		}
		bands[i] = Band{Start: start, End: end}
		start = end
	}
	return bands
}
