package texture

import (
	"image"
	"image/color"
	"math"
)

// SampleRepeat bilinearly samples img at (u, v) with repeat wrapping, the way
// a tiled base texture is read by the terrain program. v=0 is the bottom row.
// A nil image samples as opaque white.
func SampleRepeat(img *image.NRGBA, u, v float32) [4]float32 {
	if img == nil || img.Rect.Empty() {
		return [4]float32{1, 1, 1, 1}
	}
	w := img.Rect.Dx()
	h := img.Rect.Dy()

	fx := u*float32(w) - 0.5
	fy := (1-v)*float32(h) - 0.5

	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	c00 := texel(img, wrap(x0, w), wrap(y0, h))
	c10 := texel(img, wrap(x0+1, w), wrap(y0, h))
	c01 := texel(img, wrap(x0, w), wrap(y0+1, h))
	c11 := texel(img, wrap(x0+1, w), wrap(y0+1, h))

	var out [4]float32
	for i := range out {
		a := c00[i]*(1-tx) + c10[i]*tx
		b := c01[i]*(1-tx) + c11[i]*tx
		out[i] = a*(1-ty) + b*ty
	}
	return out
}

// ColorFromFloat packs a [0,1] RGBA vector into 8-bit channels.
func ColorFromFloat(c [4]float32) color.NRGBA {
	q := func(f float32) uint8 {
		return uint8(min(max(f, 0), 1)*255 + 0.5)
	}
	return color.NRGBA{R: q(c[0]), G: q(c[1]), B: q(c[2]), A: q(c[3])}
}

func texel(img *image.NRGBA, x, y int) [4]float32 {
	i := img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)
	p := img.Pix[i : i+4 : i+4]
	return [4]float32{
		float32(p[0]) / 255,
		float32(p[1]) / 255,
		float32(p[2]) / 255,
		float32(p[3]) / 255,
	}
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
