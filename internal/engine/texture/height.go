// Package texture provides CPU-side images produced by GPU readback and the
// codecs used to persist and re-import them.
package texture

import (
	"math"
)

// HeightImage is a square single-channel float image read back from a height
// render target.
//
// Rows are stored in texture order: row 0 holds v≈0, matching render-target
// readback. Encoders flip to top-down image order on the way out.
type HeightImage struct {
	Size int
	Pix  []float32
}

// NewHeightImage allocates a zeroed size×size image.
func NewHeightImage(size int) *HeightImage {
	if size < 0 {
		size = 0
	}
	return &HeightImage{
		Size: size,
		Pix:  make([]float32, size*size),
	}
}

// At returns the texel at (x, y). Coordinates are clamped to the image.
func (h *HeightImage) At(x, y int) float32 {
	x = clampIndex(x, h.Size)
	y = clampIndex(y, h.Size)
	return h.Pix[y*h.Size+x]
}

// Set writes the texel at (x, y). Out-of-range writes are ignored.
func (h *HeightImage) Set(x, y int, v float32) {
	if x < 0 || y < 0 || x >= h.Size || y >= h.Size {
		return
	}
	h.Pix[y*h.Size+x] = v
}

// Nearest fetches the texel containing (u, v) without filtering.
// u and v of 1.0 map to the last texel rather than wrapping.
func (h *HeightImage) Nearest(u, v float32) float32 {
	px := min(int(u*float32(h.Size)), h.Size-1)
	py := min(int(v*float32(h.Size)), h.Size-1)
	return h.At(px, py)
}

// Bilinear interpolates the four texels around (u, v). Texel centres sit at
// (x+0.5)/Size and lookups clamp to the edge, so nothing wraps across borders.
func (h *HeightImage) Bilinear(u, v float32) float32 {
	fx := u*float32(h.Size) - 0.5
	fy := v*float32(h.Size) - 0.5

	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	h00 := h.At(x0, y0)
	h10 := h.At(x0+1, y0)
	h01 := h.At(x0, y0+1)
	h11 := h.At(x0+1, y0+1)

	bottom := h00*(1-tx) + h10*tx
	top := h01*(1-tx) + h11*tx
	return bottom*(1-ty) + top*ty
}

// Range returns the smallest and largest texel values.
func (h *HeightImage) Range() Range {
	if len(h.Pix) == 0 {
		return Range{}
	}
	r := Range{Min: h.Pix[0], Max: h.Pix[0]}
	for _, p := range h.Pix[1:] {
		r.Min = min(r.Min, p)
		r.Max = max(r.Max, p)
	}
	return r
}

// Range is the height interval a quantized height image is normalized over.
// PNG persistence is lossless only up to quantization: a decoded texel is
// within Step() of the value that was encoded. Exact float heights survive
// in the mesh asset.
type Range struct {
	Min float32 `yaml:"min"`
	Max float32 `yaml:"max"`
}

// Span returns Max-Min.
func (r Range) Span() float32 {
	return r.Max - r.Min
}

// Step returns the height difference one 16-bit quantization level represents.
func (r Range) Step() float32 {
	return r.Span() / 65535
}

func clampIndex(i, size int) int {
	if i < 0 {
		return 0
	}
	if i >= size {
		return size - 1
	}
	return i
}
