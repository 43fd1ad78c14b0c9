package exposure

import (
	"context"
	"sync"
	"testing"
	"time"
)

// stubSurface covers a fixed number of pixels wherever it is drawn.
type stubSurface struct {
	name   string
	pixels int

	mu        sync.Mutex
	overrides *OverrideBlock
	sets      int
}

func (s *stubSurface) SetOverrides(block *OverrideBlock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = block.Clone()
	s.sets++
}

func (s *stubSurface) color() (IDColor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overrides.Color(ColorProperty)
}

// passInfo is what stubRenderer remembers about a pass.
type passInfo struct {
	width, height int
	material      any
	shader        string
	draws         int
}

// stubRenderer fills the target front to back with the pixels of each
// stubSurface. If gate is set, Render blocks until it is closed or the pass
// is canceled; started receives one value per blocked pass.
type stubRenderer struct {
	gate    chan struct{}
	started chan struct{}
	err     error
	short   bool

	mu     sync.Mutex
	passes []passInfo
}

func (r *stubRenderer) Render(ctx context.Context, pass *RenderPass) ([]uint32, error) {
	r.mu.Lock()
	r.passes = append(r.passes, passInfo{
		width: pass.Width, height: pass.Height,
		material: pass.Material, shader: pass.Shader,
		draws: len(pass.Commands.Draws),
	})
	r.mu.Unlock()

	if r.gate != nil {
		if r.started != nil {
			r.started <- struct{}{}
		}
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}

	pixels := pass.Target
	if r.short {
		pixels = pixels[:len(pixels)/2]
	}
	clear(pixels)
	pos := 0
	for _, cmd := range pass.Commands.Draws {
		s, ok := cmd.Surface.(*stubSurface)
		if !ok {
			continue
		}
		for i := 0; i < s.pixels && pos < len(pixels); i++ {
			pixels[pos] = cmd.Color.Uint32()
			pos++
		}
	}
	return pixels, nil
}

func (r *stubRenderer) recorded() []passInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]passInfo(nil), r.passes...)
}

// gated returns a renderer that blocks every pass until release is called.
func gated() (r *stubRenderer, release func()) {
	r = &stubRenderer{gate: make(chan struct{}), started: make(chan struct{}, 16)}
	var once sync.Once
	return r, func() { once.Do(func() { close(r.gate) }) }
}

// testRequest looks along +Z at a unit box, which gives a valid camera.
func testRequest() Request {
	return Request{
		Direction: V3(0, 0, 1),
		Bounds:    BoundsFromCenter(Vec3{}, V3(1, 1, 1)),
	}
}

func waitStarted(t *testing.T, r *stubRenderer) {
	t.Helper()
	select {
	case <-r.started:
	case <-time.After(5 * time.Second):
		t.Fatal("render pass did not start")
	}
}

// testContext bounds Wait calls so a broken batch fails the test instead of
// hanging it.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
