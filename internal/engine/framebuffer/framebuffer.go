// Package framebuffer provides OpenGL framebuffers used as offscreen bake targets.
package framebuffer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Format selects the colour attachment's internal format.
type Format int

// Colour attachment formats.
const (
	RGBA8 Format = iota
	R32F
)

func (f Format) gl() (internal int32, format, xtype uint32) {
	if f == R32F {
		return gl.R32F, gl.RED, gl.FLOAT
	}
	return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE
}

// Framebuffer manages an offscreen render target with a
// single colour attachment. Bakes need no depth buffer.
type Framebuffer struct {
	fbo          uint32
	colorTexture uint32
	format       Format
	width        int32
	height       int32
}

// New creates a framebuffer with the given colour format and dimensions.
func New(format Format, width, height int32) (*Framebuffer, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("invalid framebuffer size %dx%d", width, height)
	}

	fb := &Framebuffer{
		format: format,
		width:  width,
		height: height,
	}

	if err := fb.create(); err != nil {
		return nil, fmt.Errorf("creating framebuffer: %w", err)
	}

	return fb, nil
}

func (fb *Framebuffer) create() error {
	gl.GenFramebuffers(1, &fb.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)

	internal, format, xtype := fb.format.gl()
	gl.GenTextures(1, &fb.colorTexture)
	gl.BindTexture(gl.TEXTURE_2D, fb.colorTexture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, fb.width, fb.height, 0, format, xtype, nil)
	// Float textures are not filterable everywhere; readback never samples.
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, fb.colorTexture, 0)

	if glErr := gl.GetError(); glErr != gl.NO_ERROR {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		fb.Destroy()
		return fmt.Errorf("allocating %dx%d texture: GL error 0x%x", fb.width, fb.height, glErr)
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		fb.Destroy()
		return fmt.Errorf("framebuffer incomplete: 0x%x", status)
	}
	return nil
}

// BindWithViewport binds and sets viewport, saving previous state.
// Returns a restore function to restore the previous framebuffer and viewport.
func (fb *Framebuffer) BindWithViewport() func() {
	var prevFBO int32
	var prevViewport [4]int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &prevFBO)
	gl.GetIntegerv(gl.VIEWPORT, &prevViewport[0])

	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)
	gl.Viewport(0, 0, fb.width, fb.height)

	return func() {
		gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(prevFBO))
		gl.Viewport(prevViewport[0], prevViewport[1], prevViewport[2], prevViewport[3])
	}
}

// Clear clears the colour attachment.
func (fb *Framebuffer) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

// Format returns the colour attachment format.
func (fb *Framebuffer) Format() Format {
	return fb.format
}

// Size returns the framebuffer dimensions.
func (fb *Framebuffer) Size() (width, height int32) {
	return fb.width, fb.height
}

// ReadFloat reads an R32F attachment, bottom row first as OpenGL stores it.
func (fb *Framebuffer) ReadFloat() ([]float32, error) {
	if fb.format != R32F {
		return nil, fmt.Errorf("ReadFloat on non-float framebuffer")
	}
	pixels := make([]float32, int(fb.width)*int(fb.height))
	if err := fb.read(gl.RED, gl.FLOAT, gl.Ptr(pixels)); err != nil {
		return nil, err
	}
	return pixels, nil
}

// ReadRGBA reads an RGBA8 attachment with the image flipped vertically
// (OpenGL has origin at bottom-left).
func (fb *Framebuffer) ReadRGBA() ([]byte, error) {
	if fb.format != RGBA8 {
		return nil, fmt.Errorf("ReadRGBA on non-RGBA framebuffer")
	}
	pixels := make([]byte, int(fb.width)*int(fb.height)*4)
	if err := fb.read(gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels)); err != nil {
		return nil, err
	}

	stride := int(fb.width) * 4
	row := make([]byte, stride)
	for top, bottom := 0, int(fb.height)-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pixels[top*stride : (top+1)*stride]
		b := pixels[bottom*stride : (bottom+1)*stride]
		copy(row, a)
		copy(a, b)
		copy(b, row)
	}
	return pixels, nil
}

func (fb *Framebuffer) read(format, xtype uint32, ptr unsafe.Pointer) error {
	var prevFBO int32
	gl.GetIntegerv(gl.FRAMEBUFFER_BINDING, &prevFBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)

	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, fb.width, fb.height, format, xtype, ptr)

	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(prevFBO))
	if glErr := gl.GetError(); glErr != gl.NO_ERROR {
		return fmt.Errorf("glReadPixels: GL error 0x%x", glErr)
	}
	return nil
}

// Destroy releases all OpenGL resources.
func (fb *Framebuffer) Destroy() {
	if fb.fbo != 0 {
		gl.DeleteFramebuffers(1, &fb.fbo)
		fb.fbo = 0
	}
	if fb.colorTexture != 0 {
		gl.DeleteTextures(1, &fb.colorTexture)
		fb.colorTexture = 0
	}
}
