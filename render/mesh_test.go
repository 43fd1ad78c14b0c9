// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"testing"

	"github.com/gogpu/exposure"
)

func TestNewBoxBounds(t *testing.T) {
	b := exposure.Bounds{Min: exposure.V3(-1, 0, 2), Max: exposure.V3(3, 1, 4)}
	box := NewBox("box", b)
	if len(box.Vertices) != 8 || len(box.Indices) != 36 {
		t.Fatalf("box has %d vertices, %d indices", len(box.Vertices), len(box.Indices))
	}
	if got := box.Bounds(); got != b {
		t.Errorf("Bounds() = %v, want %v", got, b)
	}

	box.World = exposure.Translate(10, 0, 0)
	want := exposure.Bounds{Min: exposure.V3(9, 0, 2), Max: exposure.V3(13, 1, 4)}
	if got := box.Bounds(); got != want {
		t.Errorf("translated Bounds() = %v, want %v", got, want)
	}
}

func TestMeshSetOverridesCopies(t *testing.T) {
	m := NewQuad("quad", 0, 0, 1, 1, 0)
	if _, ok := m.OverrideColor(exposure.ColorProperty); ok {
		t.Fatal("new mesh has an override")
	}

	block := exposure.NewOverrideBlock()
	block.SetColor(exposure.ColorProperty, exposure.EncodeIndex(1))
	m.SetOverrides(block)

	// The registry reuses its scratch block; later writes must not leak.
	block.SetColor(exposure.ColorProperty, exposure.EncodeIndex(9))
	c, ok := m.OverrideColor(exposure.ColorProperty)
	if !ok || exposure.DecodeColor(c) != 1 {
		t.Errorf("OverrideColor = %v, %v, want identity 1", c, ok)
	}

	m.SetOverrides(nil)
	if _, ok := m.OverrideColor(exposure.ColorProperty); ok {
		t.Error("SetOverrides(nil) kept the override")
	}
}
