// Package software is a CPU implementation of gpu.Device. It evaluates the
// terrain program's functions once per pixel, which makes it usable headless
// and in tests where no GPU context exists.
package software

import (
	"errors"
	"fmt"
	"image"

	"github.com/Faultbox/terrainbake/internal/engine/gpu"
	"github.com/Faultbox/terrainbake/internal/engine/procedural"
	"github.com/Faultbox/terrainbake/internal/engine/shader"
	"github.com/Faultbox/terrainbake/internal/engine/texture"
)

var (
	errForeignTarget  = errors.New("render target was not created by this device")
	errForeignProgram = errors.New("program was not created by this device")
	errReleased       = errors.New("render target already released")
)

// Options tune the software device.
type Options struct {
	// Functions replaces the terrain program's evaluators. Zero fields fall
	// back to procedural.Default.
	Functions procedural.Functions
	// MaxResolution rejects larger targets, standing in for GPU memory limits.
	// Zero means unlimited.
	MaxResolution int
}

// Device renders on the CPU.
type Device struct {
	fns     procedural.Functions
	maxRes  int
	program *shader.Uniforms
	live    int
}

// New creates a software device.
func New(opts Options) *Device {
	fns := procedural.Default()
	if opts.Functions.Height != nil {
		fns.Height = opts.Functions.Height
	}
	if opts.Functions.Color != nil {
		fns.Color = opts.Functions.Color
	}
	return &Device{
		fns:     fns,
		maxRes:  opts.MaxResolution,
		program: shader.NewUniforms(),
	}
}

// Name implements gpu.Device.
func (d *Device) Name() string { return "software" }

// Program implements gpu.Device. The returned program is a *shader.Uniforms.
func (d *Device) Program() shader.Program { return d.program }

// LiveTargets returns how many targets are allocated and not yet released.
func (d *Device) LiveTargets() int { return d.live }

// CreateTarget implements gpu.Device.
func (d *Device) CreateTarget(kind gpu.Kind, resolution int) (gpu.RenderTarget, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("%w: resolution %d", gpu.ErrInvalidBakeInput, resolution)
	}
	if d.maxRes > 0 && resolution > d.maxRes {
		return nil, fmt.Errorf("resolution %d exceeds device limit %d", resolution, d.maxRes)
	}

	rt := &target{device: d, kind: kind, size: resolution}
	switch kind.Format() {
	case gpu.FormatR32F:
		rt.height = texture.NewHeightImage(resolution)
	default:
		rt.color = image.NewNRGBA(image.Rect(0, 0, resolution, resolution))
	}
	d.live++
	return rt, nil
}

// Render implements gpu.Device. Pixel (x, y) is evaluated at its centre,
// u=(x+0.5)/N and v=(y+0.5)/N, exactly like a fragment of a full-screen quad.
func (d *Device) Render(prog shader.Program, pass shader.Pass, rt gpu.RenderTarget) error {
	t, err := d.own(rt)
	if err != nil {
		return err
	}
	u, ok := prog.(*shader.Uniforms)
	if !ok || u != d.program {
		return errForeignProgram
	}
	p := u.Params()
	n := t.size
	inv := 1 / float32(n)

	switch pass {
	case shader.PassDisplacement:
		if t.height == nil {
			return fmt.Errorf("%s pass needs an %s target, got %s", pass, gpu.FormatR32F, t.Format())
		}
		for y := range n {
			v := (float32(y) + 0.5) * inv
			for x := range n {
				t.height.Pix[y*n+x] = d.fns.Height((float32(x)+0.5)*inv, v, p)
			}
		}
	case shader.PassDiffuse, shader.PassPreview:
		if t.color == nil {
			return fmt.Errorf("%s pass needs an %s target, got %s", pass, gpu.FormatRGBA8, t.Format())
		}
		// Colour targets are stored top row first; row y holds v of row n-1-y.
		for y := range n {
			v := (float32(n-1-y) + 0.5) * inv
			for x := range n {
				t.color.SetNRGBA(x, y, texture.ColorFromFloat(d.fns.Color((float32(x)+0.5)*inv, v, p)))
			}
		}
	default:
		return fmt.Errorf("unknown pass %d", int(pass))
	}
	return nil
}

// ReadHeight implements gpu.Device.
func (d *Device) ReadHeight(rt gpu.RenderTarget) (*texture.HeightImage, error) {
	t, err := d.own(rt)
	if err != nil {
		return nil, err
	}
	if t.height == nil {
		return nil, fmt.Errorf("cannot read %s target as height", t.Format())
	}
	out := texture.NewHeightImage(t.size)
	copy(out.Pix, t.height.Pix)
	return out, nil
}

// ReadColor implements gpu.Device.
func (d *Device) ReadColor(rt gpu.RenderTarget) (*image.NRGBA, error) {
	t, err := d.own(rt)
	if err != nil {
		return nil, err
	}
	if t.color == nil {
		return nil, fmt.Errorf("cannot read %s target as color", t.Format())
	}
	out := image.NewNRGBA(t.color.Rect)
	copy(out.Pix, t.color.Pix)
	return out, nil
}

// Close implements gpu.Device.
func (d *Device) Close() error { return nil }

func (d *Device) own(rt gpu.RenderTarget) (*target, error) {
	t, ok := rt.(*target)
	if !ok || t.device != d {
		return nil, errForeignTarget
	}
	if t.released {
		return nil, errReleased
	}
	return t, nil
}

type target struct {
	device   *Device
	kind     gpu.Kind
	size     int
	height   *texture.HeightImage
	color    *image.NRGBA
	released bool
}

func (t *target) Kind() gpu.Kind     { return t.kind }
func (t *target) Format() gpu.Format { return t.kind.Format() }
func (t *target) Resolution() int    { return t.size }
func (t *target) RandomWrite() bool  { return true }

func (t *target) Release() error {
	if t.released {
		return nil
	}
	t.released = true
	t.height = nil
	t.color = nil
	t.device.live--
	return nil
}
