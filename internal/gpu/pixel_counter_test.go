//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/exposure"
)

type mockProvider struct{}

func (mockProvider) Device() gpucontext.Device             { return nil }
func (mockProvider) Queue() gpucontext.Queue               { return nil }
func (mockProvider) Adapter() gpucontext.Adapter           { return nil }
func (mockProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

type badHalProvider struct{ mockProvider }

func (badHalProvider) HalDevice() any { return "device" }
func (badHalProvider) HalQueue() any  { return "queue" }

func TestNewSharedPixelCounterRejectsProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider gpucontext.DeviceProvider
	}{
		{"nil", nil},
		{"no HAL", mockProvider{}},
		{"wrong HAL types", badHalProvider{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewSharedPixelCounter(tt.provider)
			if err == nil {
				t.Fatalf("NewSharedPixelCounter() = %v, want error", c)
			}
		})
	}
}

func TestDispatchSize(t *testing.T) {
	tests := []struct {
		n      int
		wantX  uint32
		wantY  uint32
		wantOK bool
	}{
		{1, 1, 1, true},
		{256, 1, 1, true},
		{257, 2, 1, true},
		{1920 * 1080, 8100, 1, true},
		{maxWorkgroups*workgroupSize + 1, maxWorkgroups, 2, true},
		{maxWorkgroups * maxWorkgroups * workgroupSize * 2, 0, 0, false},
	}
	for _, tt := range tests {
		x, y, ok := dispatchSize(tt.n)
		if x != tt.wantX || y != tt.wantY || ok != tt.wantOK {
			t.Errorf("dispatchSize(%d) = (%d, %d, %v), want (%d, %d, %v)",
				tt.n, x, y, ok, tt.wantX, tt.wantY, tt.wantOK)
		}
	}
}

func TestPackWordsRoundTrip(t *testing.T) {
	src := []uint32{0, 1, 0xFFFFFF, 0x01020304}
	buf := packWords(src)
	if len(buf) != 16 {
		t.Fatalf("len = %d, want 16", len(buf))
	}
	if buf[12] != 0x04 || buf[15] != 0x01 {
		t.Errorf("packWords is not little-endian: % x", buf[12:])
	}
	dst := make([]uint32, len(src))
	unpackWords(buf, dst)
	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("word %d = %#x, want %#x", i, dst[i], src[i])
		}
	}
}

func TestPackParams(t *testing.T) {
	buf := packParams(1000, 7, 512)
	dst := make([]uint32, 4)
	unpackWords(buf, dst)
	want := []uint32{1000, 7, 512, 0}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("param %d = %d, want %d", i, dst[i], want[i])
		}
	}
}

func TestCountFallsBackWhenNotReady(t *testing.T) {
	c := &PixelCounter{}
	counts := make([]uint32, 2)
	err := c.Count(context.Background(), exposure.KernelAtomic, []uint32{1, 2, 2}, counts)
	if !errors.Is(err, exposure.ErrFallbackToCPU) {
		t.Errorf("Count() error = %v, want ErrFallbackToCPU", err)
	}
}

func TestCountBandedFallsBackForManyObjects(t *testing.T) {
	c := &PixelCounter{}
	counts := make([]uint32, bandedMaxObjects+1)
	err := c.Count(context.Background(), exposure.KernelBanded, []uint32{1}, counts)
	if !errors.Is(err, exposure.ErrFallbackToCPU) {
		t.Errorf("Count() error = %v, want ErrFallbackToCPU", err)
	}
}

func TestCountMatchesCPU(t *testing.T) {
	c := &PixelCounter{}
	if err := c.Init(); err != nil {
		t.Skipf("GPU not available: %v", err)
	}
	defer c.Close()

	pixels := make([]uint32, 640*480)
	for i := range pixels {
		pixels[i] = uint32(i % 5) // identities 0..3 plus background
	}
	want := make([]uint32, 4)
	for _, px := range pixels {
		if px != 0 {
			want[px-1]++
		}
	}

	for _, k := range []exposure.Kernel{exposure.KernelAtomic, exposure.KernelBanded} {
		t.Run(k.String(), func(t *testing.T) {
			got := make([]uint32, 4)
			if err := c.Count(context.Background(), k, pixels, got); err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("counts[%d] = %d, want %d", i, got[i], want[i])
				}
			}
		})
	}
}
