// Package opengl implements gpu.Device on an OpenGL 4.1 core context owned by
// a hidden SDL window. All calls must come from the thread that created the
// device; the window package pins the main goroutine for that.
package opengl

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/terrainbake/internal/engine/framebuffer"
	"github.com/Faultbox/terrainbake/internal/engine/gpu"
	"github.com/Faultbox/terrainbake/internal/engine/gpu/opengl/shaders"
	"github.com/Faultbox/terrainbake/internal/engine/shader"
	"github.com/Faultbox/terrainbake/internal/engine/texture"
	"github.com/Faultbox/terrainbake/internal/engine/window"
	"github.com/Faultbox/terrainbake/internal/logger"
)

var (
	errForeignTarget  = errors.New("render target was not created by this device")
	errForeignProgram = errors.New("program was not created by this device")
	errReleased       = errors.New("render target already released")
)

// Device renders terrain passes with OpenGL.
type Device struct {
	win        *window.Window
	program    *Program
	vao        uint32
	maxTexSize int
	log        *zap.Logger
}

// New creates a hidden GL context, loads function pointers and links the
// terrain program.
func New() (*Device, error) {
	win, err := window.New(window.Config{Title: "terrainbake", Width: 1, Height: 1, Hidden: true})
	if err != nil {
		return nil, fmt.Errorf("creating GL context: %w", err)
	}
	if err := gl.Init(); err != nil {
		win.Close()
		return nil, fmt.Errorf("gl.Init: %w", err)
	}

	prog, err := newProgram(shaders.FullscreenVertexShader, shaders.TerrainFragmentShader)
	if err != nil {
		win.Close()
		return nil, fmt.Errorf("terrain program: %w", err)
	}

	d := &Device{win: win, program: prog, log: logger.Named("gpu.opengl")}
	// Core profile refuses draws without a bound VAO, even attribute-less ones.
	gl.GenVertexArrays(1, &d.vao)

	var maxSize int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxSize)
	d.maxTexSize = int(maxSize)

	d.log.Info("OpenGL device ready",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.Int("maxTextureSize", d.maxTexSize),
	)
	return d, nil
}

// Name implements gpu.Device.
func (d *Device) Name() string { return "opengl" }

// Program implements gpu.Device.
func (d *Device) Program() shader.Program { return d.program }

// CreateTarget implements gpu.Device.
func (d *Device) CreateTarget(kind gpu.Kind, resolution int) (gpu.RenderTarget, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("%w: resolution %d", gpu.ErrInvalidBakeInput, resolution)
	}
	if resolution > d.maxTexSize {
		return nil, fmt.Errorf("resolution %d exceeds GL_MAX_TEXTURE_SIZE %d", resolution, d.maxTexSize)
	}

	format := framebuffer.RGBA8
	if kind.Format() == gpu.FormatR32F {
		format = framebuffer.R32F
	}
	fb, err := framebuffer.New(format, int32(resolution), int32(resolution))
	if err != nil {
		return nil, err
	}
	return &target{device: d, kind: kind, size: resolution, fb: fb}, nil
}

// Render implements gpu.Device. It blocks until the draw has completed.
func (d *Device) Render(prog shader.Program, pass shader.Pass, rt gpu.RenderTarget) error {
	t, err := d.own(rt)
	if err != nil {
		return err
	}
	p, ok := prog.(*Program)
	if !ok || p != d.program {
		return errForeignProgram
	}

	restore := t.fb.BindWithViewport()
	defer restore()

	t.fb.Clear(0, 0, 0, 0)
	p.setPass(pass, t.size)
	p.use()
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.BLEND)
	gl.BindVertexArray(d.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
	gl.Finish()

	if glErr := gl.GetError(); glErr != gl.NO_ERROR {
		return fmt.Errorf("%s pass: GL error 0x%x", pass, glErr)
	}
	return nil
}

// ReadHeight implements gpu.Device. GL rows start at the bottom, which is
// already texture order.
func (d *Device) ReadHeight(rt gpu.RenderTarget) (*texture.HeightImage, error) {
	t, err := d.own(rt)
	if err != nil {
		return nil, err
	}
	pix, err := t.fb.ReadFloat()
	if err != nil {
		return nil, err
	}
	return &texture.HeightImage{Size: t.size, Pix: pix}, nil
}

// ReadColor implements gpu.Device.
func (d *Device) ReadColor(rt gpu.RenderTarget) (*image.NRGBA, error) {
	t, err := d.own(rt)
	if err != nil {
		return nil, err
	}
	pix, err := t.fb.ReadRGBA()
	if err != nil {
		return nil, err
	}
	return &image.NRGBA{
		Pix:    pix,
		Stride: 4 * t.size,
		Rect:   image.Rect(0, 0, t.size, t.size),
	}, nil
}

// Close deletes the program and destroys the context.
func (d *Device) Close() error {
	var err error
	if d.program != nil {
		d.program.delete()
		d.program = nil
	}
	if d.vao != 0 {
		gl.DeleteVertexArrays(1, &d.vao)
		d.vao = 0
	}
	if glErr := gl.GetError(); glErr != gl.NO_ERROR {
		err = multierr.Append(err, fmt.Errorf("teardown: GL error 0x%x", glErr))
	}
	if d.win != nil {
		d.win.Close()
		d.win = nil
	}
	return err
}

func (d *Device) own(rt gpu.RenderTarget) (*target, error) {
	t, ok := rt.(*target)
	if !ok || t.device != d {
		return nil, errForeignTarget
	}
	if t.fb == nil {
		return nil, errReleased
	}
	return t, nil
}

type target struct {
	device *Device
	kind   gpu.Kind
	size   int
	fb     *framebuffer.Framebuffer
}

func (t *target) Kind() gpu.Kind     { return t.kind }
func (t *target) Format() gpu.Format { return t.kind.Format() }
func (t *target) Resolution() int    { return t.size }

// RandomWrite reports true: fragment output covers every texel of the
// attachment, which is all the bakes rely on.
func (t *target) RandomWrite() bool { return true }

func (t *target) Release() error {
	if t.fb == nil {
		return nil
	}
	t.fb.Destroy()
	t.fb = nil
	if glErr := gl.GetError(); glErr != gl.NO_ERROR {
		return fmt.Errorf("deleting framebuffer: GL error 0x%x", glErr)
	}
	return nil
}
