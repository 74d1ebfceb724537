package texture

import (
	"image"

	"golang.org/x/image/draw"
)

// Compression modes recorded in import settings.
const (
	CompressionNone       = "uncompressed"
	CompressionCompressed = "compressed"
)

// ImportSettings controls how a persisted texture is loaded back for use.
type ImportSettings struct {
	MaxTextureSize int    `yaml:"max_texture_size"`
	Compression    string `yaml:"compression"`
	Readable       bool   `yaml:"readable"`
}

// DefaultImportSettings returns the settings baked textures are imported with.
func DefaultImportSettings() ImportSettings {
	return ImportSettings{
		MaxTextureSize: 4096,
		Compression:    CompressionNone,
		Readable:       true,
	}
}

// Import applies s to img. Images larger than MaxTextureSize on either axis are
// scaled down, keeping their aspect ratio; smaller images are returned as is.
// Grayscale 16-bit images stay 16-bit so heightmaps keep their precision.
func Import(img image.Image, s ImportSettings) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	limit := s.MaxTextureSize
	if limit <= 0 || (w <= limit && h <= limit) {
		return img
	}

	var nw, nh int
	if w >= h {
		nw = limit
		nh = max(1, h*limit/w)
	} else {
		nh = limit
		nw = max(1, w*limit/h)
	}
	dstRect := image.Rect(0, 0, nw, nh)

	var dst draw.Image
	if _, ok := img.(*image.Gray16); ok {
		dst = image.NewGray16(dstRect)
	} else {
		dst = image.NewNRGBA(dstRect)
	}
	draw.CatmullRom.Scale(dst, dstRect, img, b, draw.Src, nil)
	return dst
}
