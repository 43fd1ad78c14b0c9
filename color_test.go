package exposure

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	indices := []int{0, 1, 2, 254, 255, 256, 65535, 65536, 1<<20 + 7, MaxObjects - 1}
	for _, i := range indices {
		c := EncodeIndex(i)
		if c == Background {
			t.Errorf("EncodeIndex(%d) is the background color", i)
		}
		if got := DecodeColor(c); got != i {
			t.Errorf("DecodeColor(EncodeIndex(%d)) = %d", i, got)
		}
	}
}

func TestEncodeIndexDistinct(t *testing.T) {
	seen := make(map[IDColor]int, 1<<12)
	for i := range 1 << 12 {
		c := EncodeIndex(i)
		if j, ok := seen[c]; ok {
			t.Fatalf("EncodeIndex(%d) == EncodeIndex(%d) == %v", i, j, c)
		}
		seen[c] = i
	}
}

func TestBackground(t *testing.T) {
	if got := DecodeColor(Background); got != -1 {
		t.Errorf("DecodeColor(Background) = %d, want -1", got)
	}
	if got := EncodeIndex(-1); got != Background {
		t.Errorf("EncodeIndex(-1) = %v, want Background", got)
	}
	if Background.Uint32() != 0 {
		t.Errorf("Background.Uint32() = %#x, want 0", Background.Uint32())
	}
}

func TestColorUint32RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 0xFF, 0x1234, 0xABCDEF, 0xFFFFFFFF} {
		if got := ColorFromUint32(v).Uint32(); got != v {
			t.Errorf("ColorFromUint32(%#x).Uint32() = %#x", v, got)
		}
	}
	if got := decodeValue(EncodeIndex(41).Uint32()); got != 41 {
		t.Errorf("decodeValue = %d, want 41", got)
	}
}
