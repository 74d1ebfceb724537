// Package gpu defines the render-target and device contract the bakers run on,
// and owns the render targets shared between bakes.
package gpu

import (
	"errors"
	"fmt"
	"image"

	"github.com/Faultbox/terrainbake/internal/engine/shader"
	"github.com/Faultbox/terrainbake/internal/engine/texture"
)

// Errors shared by every device.
var (
	ErrInvalidBakeInput = errors.New("invalid bake input")
	ErrGPUResource      = errors.New("gpu resource error")
)

// Kind identifies what a render target is used for.
type Kind int

// Render target kinds.
const (
	KindHeight Kind = iota
	KindDiffuse
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindHeight:
		return "height"
	case KindDiffuse:
		return "diffuse"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Format returns the pixel format fixed for the kind.
func (k Kind) Format() Format {
	if k == KindHeight {
		return FormatR32F
	}
	return FormatRGBA8
}

// Format is a render target pixel format.
type Format int

// Pixel formats.
const (
	FormatR32F  Format = iota // one 32-bit float per pixel
	FormatRGBA8               // four 8-bit channels per pixel
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatR32F:
		return "R32F"
	case FormatRGBA8:
		return "RGBA8"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// RenderTarget is a square GPU-resident image a pass renders into.
type RenderTarget interface {
	Kind() Kind
	Format() Format
	Resolution() int
	RandomWrite() bool
	// Release frees the GPU memory. Releasing twice is a no-op.
	Release() error
}

// Device renders terrain program passes into render targets and reads them
// back. Every call blocks until the GPU work it depends on has finished.
type Device interface {
	Name() string
	// Program returns the terrain program whose uniforms the binder sets.
	Program() shader.Program
	CreateTarget(kind Kind, resolution int) (RenderTarget, error)
	Render(prog shader.Program, pass shader.Pass, target RenderTarget) error
	// ReadHeight copies an R32F target into CPU memory in texture row order.
	ReadHeight(target RenderTarget) (*texture.HeightImage, error)
	// ReadColor copies an RGBA8 target into CPU memory, top row first.
	ReadColor(target RenderTarget) (*image.NRGBA, error)
	Close() error
}

// ResourceError reports a failed allocation, render or readback.
type ResourceError struct {
	Stage      string
	Kind       Kind
	Resolution int
	Err        error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("gpu %s of %s target %dx%d: %v", e.Stage, e.Kind, e.Resolution, e.Resolution, e.Err)
}

// Unwrap exposes both ErrGPUResource and the device error.
func (e *ResourceError) Unwrap() []error {
	return []error{ErrGPUResource, e.Err}
}
