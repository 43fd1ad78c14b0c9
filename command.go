// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package exposure

// DrawCommand is one surface draw of an identity pass.
type DrawCommand struct {
	// Surface to draw. Its overrides carry the identity color under
	// ColorProperty.
	Surface Surface

	// Object is the identity index the surface was registered under.
	Object int

	// Color is EncodeIndex(Object), for renderers that do not read overrides.
	Color IDColor
}

// CommandList is the recorded draw submission of an identity pass.
// Batches cache it between executions and rebuild it after
// ReconstructCommandBuffer.
type CommandList struct {
	Draws []DrawCommand

	// Objects is the number of identity indices referenced by Draws.
	Objects int
}

// recordCommands rebuilds dst (or a new list) from surface sets indexed by
// identity.
func recordCommands(sets []*SurfaceSet, dst *CommandList) *CommandList {
	if dst == nil {
		dst = &CommandList{}
	}
	clear(dst.Draws)
	dst.Draws = dst.Draws[:0]
	dst.Objects = len(sets)
	for idx, set := range sets {
		if set == nil {
			continue
		}
		color := EncodeIndex(idx)
		for _, s := range set.Surfaces() {
			dst.Draws = append(dst.Draws, DrawCommand{Surface: s, Object: idx, Color: color})
		}
	}
	return dst
}
