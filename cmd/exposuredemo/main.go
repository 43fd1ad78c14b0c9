// Command exposuredemo measures how many pixels each object of a scene
// covers from a set of viewing directions.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/exposure"
	_ "github.com/gogpu/exposure/gpu" // enable GPU counting when available
	"github.com/gogpu/exposure/render"
)

func main() {
	var (
		scenePath = flag.String("scene", "", "scene YAML file (default: built-in scene)")
		width     = flag.Int("width", 0, "render width (overrides the scene)")
		height    = flag.Int("height", 0, "render height (overrides the scene)")
		device    = flag.String("device", "", "counting device: cpu or gpu (overrides the scene)")
		kernel    = flag.String("kernel", "", "counting kernel: atomic or banded (overrides the scene)")
		dumpDir   = flag.String("dump", "", "directory for WebP dumps of the identity buffers")
		timeout   = flag.Duration("timeout", 30*time.Second, "maximum time to wait for results")
		verbose   = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		exposure.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	scene, err := loadScene(*scenePath)
	if err != nil {
		log.Fatalf("Failed to load scene: %v", err)
	}
	overrideString(&scene.Device, *device)
	overrideString(&scene.Kernel, *kernel)
	overrideInt(&scene.Width, *width)
	overrideInt(&scene.Height, *height)

	if err := run(scene, *dumpDir, *timeout); err != nil {
		log.Fatal(err)
	}
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func run(scene *Scene, dumpDir string, timeout time.Duration) error {
	dev, err := parseDevice(scene.Device)
	if err != nil {
		return err
	}
	k, err := parseKernel(scene.Kernel)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := exposure.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	capture := &captureRenderer{Renderer: render.NewSoftware(), keep: dumpDir != ""}
	opts := []exposure.Option{
		exposure.WithRenderer(capture),
		exposure.WithDevice(dev),
		exposure.WithKernel(k),
		exposure.WithWorkers(scene.Workers),
		exposure.WithMetrics(metrics),
	}
	if scene.Width > 0 && scene.Height > 0 {
		opts = append(opts, exposure.WithRenderSize(scene.Width, scene.Height))
	}

	registry, err := exposure.NewRegistry[object](opts...)
	if err != nil {
		return err
	}
	defer registry.Close()

	objects, bounds := scene.build()
	for _, obj := range objects {
		surfaces := make([]exposure.Surface, len(obj.meshes))
		for i, m := range obj.meshes {
			surfaces[i] = m
		}
		registry.SetupRenderers(obj, surfaces, nil)
	}

	requests := make([]exposure.Request, len(scene.Views))
	for i, v := range scene.Views {
		requests[i] = exposure.Request{Direction: vec(v.Direction), Bounds: bounds}
	}

	var (
		results []exposure.Result
		runErr  error
	)
	start := time.Now()
	err = registry.Render(requests, exposure.Identity(), func(r []exposure.Result, err error) {
		results, runErr = r, err
	})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := registry.Wait(ctx); err != nil {
		registry.CancelPendingJobs()
		return fmt.Errorf("wait for results: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	cfg := registry.Config()
	log.Printf("Rendered %d views at %dx%d on %s (requested %s, kernel %s) in %v",
		len(results), cfg.Width, cfg.Height, registry.ActualDevice(), registry.RequestedDevice(),
		cfg.Kernel, time.Since(start).Round(time.Microsecond))

	printResults(scene, registry.Mapping(), results)
	printMetrics(reg)

	if dumpDir != "" {
		return dumpFrames(dumpDir, scene, capture.frames())
	}
	return nil
}

func printResults(scene *Scene, mapping exposure.IndexMap[object], results []exposure.Result) {
	for i, res := range results {
		fmt.Printf("%s (%s, %.2f world units per pixel)\n",
			scene.Views[i].Name, res.Device, res.Camera.PixelArea(res.Width, res.Height))
		for obj, idx := range mapping.All() {
			fmt.Printf("  %-12s %8d px  %8.3f units²\n", obj.name, res.Counts[idx], res.Area(idx))
		}
	}
}

func printMetrics(reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		log.Printf("Failed to gather metrics: %v", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				fmt.Printf("%s%s %g\n", mf.GetName(), labels(m.GetLabel()), m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				fmt.Printf("%s_count%s %d\n", mf.GetName(), labels(m.GetLabel()), m.GetHistogram().GetSampleCount())
			}
		}
	}
}

func labels[L interface {
	GetName() string
	GetValue() string
}](ls []L) string {
	if len(ls) == 0 {
		return ""
	}
	s := "{"
	for i, l := range ls {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%s=%q", l.GetName(), l.GetValue())
	}
	return s + "}"
}

// dumpFrames encodes every captured identity buffer as WebP concurrently.
func dumpFrames(dir string, scene *Scene, frames []*render.IdentityTarget) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dump directory: %w", err)
	}
	var g errgroup.Group
	g.SetLimit(4)
	for i, frame := range frames {
		name := fmt.Sprintf("frame%d", i)
		if i < len(scene.Views) {
			name = scene.Views[i].Name
		}
		path := filepath.Join(dir, name+".webp")
		g.Go(func() error {
			return writeWebP(path, frame)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	log.Printf("Wrote %d identity buffers to %s", len(frames), dir)
	return nil
}

func writeWebP(path string, frame *render.IdentityTarget) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := nativewebp.Encode(f, frame.Image(), nil); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// captureRenderer keeps a copy of every identity buffer it renders.
type captureRenderer struct {
	exposure.Renderer
	keep bool

	mu       sync.Mutex
	captured []*render.IdentityTarget
}

func (c *captureRenderer) Render(ctx context.Context, pass *exposure.RenderPass) ([]uint32, error) {
	pixels, err := c.Renderer.Render(ctx, pass)
	if err != nil || !c.keep {
		return pixels, err
	}
	frame := render.NewIdentityTargetFrom(pass.Width, pass.Height, slices.Clone(pixels))
	c.mu.Lock()
	c.captured = append(c.captured, frame)
	c.mu.Unlock()
	return pixels, nil
}

func (c *captureRenderer) frames() []*render.IdentityTarget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.captured)
}
