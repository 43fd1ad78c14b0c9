package main

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/exposure"
	"github.com/gogpu/exposure/render"
)

//go:embed default_scene.yaml
var defaultScene []byte

// Scene is the YAML description of a demo run.
type Scene struct {
	Width   int           `yaml:"width"`
	Height  int           `yaml:"height"`
	Device  string        `yaml:"device"`
	Kernel  string        `yaml:"kernel"`
	Workers int           `yaml:"workers"`
	Objects []SceneObject `yaml:"objects"`
	Views   []SceneView   `yaml:"views"`
}

// SceneObject is one tracked object made of boxes.
type SceneObject struct {
	Name  string     `yaml:"name"`
	Boxes []SceneBox `yaml:"boxes"`
}

// SceneBox is an axis-aligned box given by center and size.
type SceneBox struct {
	Center [3]float64 `yaml:"center"`
	Size   [3]float64 `yaml:"size"`
}

// SceneView is one viewing direction.
type SceneView struct {
	Name      string     `yaml:"name"`
	Direction [3]float64 `yaml:"direction"`
}

// loadScene reads a scene file, or the built-in scene when path is empty.
func loadScene(path string) (*Scene, error) {
	data := defaultScene
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read scene: %w", err)
		}
	}
	return parseScene(data)
}

func parseScene(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	if len(s.Objects) == 0 {
		return nil, fmt.Errorf("parse scene: no objects")
	}
	if len(s.Views) == 0 {
		return nil, fmt.Errorf("parse scene: no views")
	}
	for i, v := range s.Views {
		if vec(v.Direction).IsZero() {
			return nil, fmt.Errorf("parse scene: view %d has a zero direction", i)
		}
		if v.Name == "" {
			s.Views[i].Name = fmt.Sprintf("view%d", i)
		}
	}
	return &s, nil
}

func vec(v [3]float64) exposure.Vec3 {
	return exposure.V3(v[0], v[1], v[2])
}

func parseDevice(s string) (exposure.Device, error) {
	switch strings.ToLower(s) {
	case "", "cpu":
		return exposure.DeviceCPU, nil
	case "gpu":
		return exposure.DeviceGPU, nil
	default:
		return 0, fmt.Errorf("unknown device %q", s)
	}
}

func parseKernel(s string) (exposure.Kernel, error) {
	switch strings.ToLower(s) {
	case "", "banded":
		return exposure.KernelBanded, nil
	case "atomic":
		return exposure.KernelAtomic, nil
	default:
		return 0, fmt.Errorf("unknown kernel %q", s)
	}
}

// object is the tracked type of the demo registry.
type object struct {
	name   string
	meshes []*render.Mesh
}

// build creates the objects of the scene and the bounds of all of them.
func (s *Scene) build() ([]*object, exposure.Bounds) {
	objects := make([]*object, 0, len(s.Objects))
	var bounds exposure.Bounds
	first := true
	for _, so := range s.Objects {
		obj := &object{name: so.Name}
		for i, b := range so.Boxes {
			m := render.NewBox(fmt.Sprintf("%s/%d", so.Name, i),
				exposure.BoundsFromCenter(vec(b.Center), vec(b.Size)))
			obj.meshes = append(obj.meshes, m)
			if first {
				bounds, first = m.Bounds(), false
			} else {
				bounds = bounds.Union(m.Bounds())
			}
		}
		objects = append(objects, obj)
	}
	return objects, bounds
}
