package texture

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
)

// EncodeHeightPNG writes h as a 16-bit grayscale PNG normalized over r.
// The PNG is top-down, so texture row 0 becomes the last PNG row.
// A zero-span range encodes every texel as black. Decoding with the same r
// recovers each texel to within r.Step().
func EncodeHeightPNG(w io.Writer, h *HeightImage, r Range) error {
	img := image.NewGray16(image.Rect(0, 0, h.Size, h.Size))
	span := r.Span()
	for y := range h.Size {
		dstY := h.Size - 1 - y
		for x := range h.Size {
			var q uint16
			if span > 0 {
				n := (h.Pix[y*h.Size+x] - r.Min) / span
				q = uint16(min(max(n, 0), 1)*65535 + 0.5)
			}
			img.SetGray16(x, dstY, color.Gray16{Y: q})
		}
	}

	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("encoding height PNG: %w", err)
	}
	return nil
}

// DecodeHeightPNG reads a grayscale PNG written by EncodeHeightPNG and maps it
// back onto r. Non-square images are rejected.
func DecodeHeightPNG(rd io.Reader, r Range) (*HeightImage, error) {
	src, err := png.Decode(rd)
	if err != nil {
		return nil, fmt.Errorf("decoding height PNG: %w", err)
	}
	return HeightFromImage(src, r)
}

// HeightFromImage converts any square image to heights using its luminance,
// interpreting full black as r.Min and full white as r.Max.
func HeightFromImage(src image.Image, r Range) (*HeightImage, error) {
	b := src.Bounds()
	if b.Dx() != b.Dy() {
		return nil, fmt.Errorf("height image must be square, got %dx%d", b.Dx(), b.Dy())
	}

	h := NewHeightImage(b.Dx())
	span := r.Span()
	for y := range h.Size {
		srcY := b.Min.Y + h.Size - 1 - y
		for x := range h.Size {
			g := color.Gray16Model.Convert(src.At(b.Min.X+x, srcY)).(color.Gray16)
			h.Pix[y*h.Size+x] = r.Min + float32(g.Y)/65535*span
		}
	}
	return h, nil
}

// EncodeDiffusePNG writes an RGBA8 diffuse image losslessly.
func EncodeDiffusePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("encoding diffuse PNG: %w", err)
	}
	return nil
}

// DecodeDiffusePNG reads a diffuse PNG into a non-premultiplied RGBA image.
func DecodeDiffusePNG(r io.Reader) (*image.NRGBA, error) {
	src, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding diffuse PNG: %w", err)
	}
	return ToNRGBA(src), nil
}

// ToNRGBA returns img as *image.NRGBA with a zero origin, copying if needed.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
