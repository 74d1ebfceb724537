package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func rampImage(size int) *HeightImage {
	h := NewHeightImage(size)
	for y := range size {
		for x := range size {
			h.Set(x, y, float32(x)+float32(y)*0.25)
		}
	}
	return h
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestNearestLastTexel(t *testing.T) {
	h := NewHeightImage(8)
	h.Set(7, 7, 42)

	if got := h.Nearest(1, 1); got != 42 {
		t.Errorf("Nearest(1,1) = %v, want 42", got)
	}
	if got := h.Nearest(0.9995, 1); got != 42 {
		t.Errorf("Nearest(0.9995,1) = %v, want 42", got)
	}
}

func TestBilinear(t *testing.T) {
	h := rampImage(4)

	// At a texel centre bilinear equals the texel.
	u := (1 + 0.5) / float32(4)
	v := (2 + 0.5) / float32(4)
	if got, want := h.Bilinear(u, v), h.At(1, 2); got != want {
		t.Errorf("Bilinear at centre = %v, want %v", got, want)
	}

	// Halfway between texel centres (1,2) and (2,2).
	u = 2.0 / 4
	if got, want := h.Bilinear(u, v), (h.At(1, 2)+h.At(2, 2))/2; absf(got-want) > 1e-6 {
		t.Errorf("Bilinear midway = %v, want %v", got, want)
	}

	// Below the first texel centre clamps instead of wrapping.
	if got, want := h.Bilinear(0, 0), h.At(0, 0); got != want {
		t.Errorf("Bilinear(0,0) = %v, want %v", got, want)
	}
}

func TestRange(t *testing.T) {
	h := rampImage(4)
	r := h.Range()
	if r.Min != 0 || r.Max != 3.75 {
		t.Errorf("Range() = %+v, want {0 3.75}", r)
	}
	if (&HeightImage{}).Range() != (Range{}) {
		t.Error("empty image should have zero range")
	}
}

func TestHeightPNGRoundTrip(t *testing.T) {
	h := NewHeightImage(16)
	for i := range h.Pix {
		h.Pix[i] = float32(i%13)*0.37 - 1.2
	}
	r := h.Range()

	var buf bytes.Buffer
	if err := EncodeHeightPNG(&buf, h, r); err != nil {
		t.Fatalf("EncodeHeightPNG: %v", err)
	}
	got, err := DecodeHeightPNG(bytes.NewReader(buf.Bytes()), r)
	if err != nil {
		t.Fatalf("DecodeHeightPNG: %v", err)
	}
	if got.Size != h.Size {
		t.Fatalf("size = %d, want %d", got.Size, h.Size)
	}
	for i := range h.Pix {
		if d := absf(got.Pix[i] - h.Pix[i]); d > r.Step() {
			t.Fatalf("texel %d: got %v want %v (diff %v > step %v)", i, got.Pix[i], h.Pix[i], d, r.Step())
		}
	}
}

func TestHeightPNGIsTopDown(t *testing.T) {
	h := NewHeightImage(2)
	h.Set(0, 1, 1) // top-left in image order
	var buf bytes.Buffer
	if err := EncodeHeightPNG(&buf, h, Range{Min: 0, Max: 1}); err != nil {
		t.Fatalf("EncodeHeightPNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	g := color.Gray16Model.Convert(img.At(0, 0)).(color.Gray16)
	if g.Y != 65535 {
		t.Errorf("PNG (0,0) = %d, want 65535", g.Y)
	}
}

func TestHeightFromImageRejectsNonSquare(t *testing.T) {
	if _, err := HeightFromImage(image.NewGray16(image.Rect(0, 0, 4, 2)), Range{Max: 1}); err == nil {
		t.Error("expected error for non-square image")
	}
}

func TestDiffusePNGRoundTrip(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	var buf bytes.Buffer
	if err := EncodeDiffusePNG(&buf, img); err != nil {
		t.Fatalf("EncodeDiffusePNG: %v", err)
	}
	got, err := DecodeDiffusePNG(&buf)
	if err != nil {
		t.Fatalf("DecodeDiffusePNG: %v", err)
	}
	if !bytes.Equal(got.Pix, img.Pix) {
		t.Error("diffuse PNG round trip is not lossless")
	}
}

func TestImportCapsSize(t *testing.T) {
	s := DefaultImportSettings()
	if s.MaxTextureSize != 4096 || s.Compression != CompressionNone || !s.Readable {
		t.Fatalf("unexpected defaults %+v", s)
	}

	small := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	if got := Import(small, s); got != image.Image(small) {
		t.Error("images under the cap should be returned untouched")
	}

	wide := image.NewNRGBA(image.Rect(0, 0, 4100, 10))
	got := Import(wide, s)
	if b := got.Bounds(); b.Dx() != 4096 || b.Dy() != 9 {
		t.Errorf("imported size = %dx%d, want 4096x9", b.Dx(), b.Dy())
	}

	tall := image.NewGray16(image.Rect(0, 0, 8, 8))
	capped := Import(tall, ImportSettings{MaxTextureSize: 4})
	if _, ok := capped.(*image.Gray16); !ok {
		t.Errorf("gray16 import produced %T", capped)
	}
	if b := capped.Bounds(); b.Dx() != 4 || b.Dy() != 4 {
		t.Errorf("imported size = %dx%d, want 4x4", b.Dx(), b.Dy())
	}
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grass.png")
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(1, 0, color.NRGBA{R: 10, G: 200, B: 30, A: 255})

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	got, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if c := got.NRGBAAt(1, 0); c != (color.NRGBA{R: 10, G: 200, B: 30, A: 255}) {
		t.Errorf("pixel = %v", c)
	}

	if _, err := LoadImage(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSampleRepeat(t *testing.T) {
	if got := SampleRepeat(nil, 0.3, 0.7); got != [4]float32{1, 1, 1, 1} {
		t.Errorf("nil sample = %v, want white", got)
	}

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	// Uniform image samples the same everywhere, including past the edge.
	for _, uv := range [][2]float32{{0, 0}, {0.5, 0.5}, {3.25, -1.75}} {
		got := SampleRepeat(img, uv[0], uv[1])
		for i, c := range got {
			if absf(c-1) > 1e-6 {
				t.Errorf("SampleRepeat(%v)[%d] = %v, want 1", uv, i, c)
			}
		}
	}

	if c := ColorFromFloat([4]float32{1, 0.5, -1, 2}); c != (color.NRGBA{R: 255, G: 128, B: 0, A: 255}) {
		t.Errorf("ColorFromFloat = %v", c)
	}
}
