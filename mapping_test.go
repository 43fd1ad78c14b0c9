package exposure

import (
	"slices"
	"testing"
)

func TestIndexMap(t *testing.T) {
	reg := newTestRegistry(t, &stubRenderer{})
	objs := []*part{{"a"}, {"b"}, {"c"}}
	for _, o := range objs {
		reg.SetupRenderer(o, &stubSurface{}, nil)
	}
	m := reg.Mapping()

	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}
	for i, o := range objs {
		if got := m.At(i); got != o {
			t.Errorf("At(%d) = %v, want %v", i, got, o)
		}
		if !m.Contains(o) {
			t.Errorf("Contains(%s) = false", o.name)
		}
	}
	if m.At(-1) != nil || m.At(3) != nil {
		t.Error("At out of range returned an object")
	}
	if _, ok := m.Index(&part{"a"}); ok {
		t.Error("Index of an untracked object succeeded")
	}

	if keys := slices.Collect(m.Keys()); !slices.Equal(keys, objs) {
		t.Errorf("Keys() = %v", keys)
	}
	seen := 0
	for o, i := range m.All() {
		if objs[i] != o {
			t.Errorf("All() yielded %v at %d", o, i)
		}
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Errorf("All() stopped after %d, want 2", seen)
	}

	// The view follows the registry.
	reg.Reset()
	if m.Len() != 0 {
		t.Errorf("Len() = %d after Reset", m.Len())
	}
}
