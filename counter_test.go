package exposure

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
)

// randomPixels returns n pixels drawn from identities [0, objects) and
// background, plus the expected histogram.
func randomPixels(n, objects int, seed uint64) ([]uint32, []uint32) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	pixels := make([]uint32, n)
	want := make([]uint32, objects)
	for i := range pixels {
		idx := rng.IntN(objects+1) - 1
		pixels[i] = EncodeIndex(idx).Uint32()
		if idx >= 0 {
			want[idx]++
		}
	}
	return pixels, want
}

func TestCounterKernelsAgree(t *testing.T) {
	c := NewCounter(4)
	defer c.Close()

	tests := []struct {
		name    string
		n       int
		objects int
	}{
		{"empty", 0, 3},
		{"single band", 1000, 5},
		{"many bands", 256 * 256, 17},
		{"one object", 100_000, 1},
		{"many objects", 300 * 200, 4000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pixels, want := randomPixels(tt.n, tt.objects, uint64(tt.n))
			for _, k := range []Kernel{KernelAtomic, KernelBanded} {
				counts := make([]uint32, tt.objects)
				for i := range counts {
					counts[i] = 12345 // previous contents are discarded
				}
				if err := c.Count(context.Background(), k, pixels, counts); err != nil {
					t.Fatalf("%v: Count() error = %v", k, err)
				}
				for i := range want {
					if counts[i] != want[i] {
						t.Fatalf("%v: counts[%d] = %d, want %d", k, i, counts[i], want[i])
					}
				}
			}
		})
	}
}

func TestCounterIgnoresUnknownIdentities(t *testing.T) {
	c := NewCounter(2)
	defer c.Close()

	pixels := []uint32{
		Background.Uint32(),
		EncodeIndex(0).Uint32(),
		EncodeIndex(1).Uint32(),
		EncodeIndex(2).Uint32(), // beyond len(counts)
		EncodeIndex(1).Uint32(),
	}
	for _, k := range []Kernel{KernelAtomic, KernelBanded} {
		counts := make([]uint32, 2)
		if err := c.Count(context.Background(), k, pixels, counts); err != nil {
			t.Fatal(err)
		}
		if counts[0] != 1 || counts[1] != 2 {
			t.Errorf("%v: counts = %v, want [1 2]", k, counts)
		}
	}
}

func TestCounterReusesScratchAcrossSizes(t *testing.T) {
	c := NewCounter(3)
	defer c.Close()

	for _, objects := range []int{50, 3, 200, 1} {
		pixels, want := randomPixels(20_000, objects, uint64(objects))
		for _, k := range []Kernel{KernelAtomic, KernelBanded} {
			counts := make([]uint32, objects)
			if err := c.Count(context.Background(), k, pixels, counts); err != nil {
				t.Fatal(err)
			}
			for i := range want {
				if counts[i] != want[i] {
					t.Fatalf("%d objects, %v: counts[%d] = %d, want %d", objects, k, i, counts[i], want[i])
				}
			}
		}
	}
}

func TestCounterCanceled(t *testing.T) {
	c := NewCounter(2)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pixels, _ := randomPixels(50_000, 4, 1)
	for _, k := range []Kernel{KernelAtomic, KernelBanded} {
		err := c.Count(ctx, k, pixels, make([]uint32, 4))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("%v: Count() error = %v, want context.Canceled", k, err)
		}
	}
}

func BenchmarkCounter(b *testing.B) {
	pixels, _ := randomPixels(1920*1080, 64, 7)
	c := NewCounter(0)
	defer c.Close()
	counts := make([]uint32, 64)

	for _, k := range []Kernel{KernelAtomic, KernelBanded} {
		b.Run(k.String(), func(b *testing.B) {
			b.SetBytes(int64(len(pixels) * 4))
			for b.Loop() {
				if err := c.Count(context.Background(), k, pixels, counts); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
