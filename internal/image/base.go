// Package image loads base images and provides the Porter-Duff blending and
// layer compositing used by the mask and export packages.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupported is returned for uploads that are not a decodable image.
var ErrUnsupported = errors.New("unsupported image type")

// Extensions lists the file extensions offered in open dialogs.
var Extensions = []string{".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".webp"}

// Base is a decoded base image normalized to non-premultiplied RGBA at origin (0,0).
type Base struct {
	Source string // file path or upstream render name
	Format string // decoder name, e.g. "png"
	MIME   string // sniffed MIME type
	Image  *image.NRGBA
}

// Width returns the native width in pixels.
func (b *Base) Width() int {
	if b == nil || b.Image == nil {
		return 0
	}
	return b.Image.Bounds().Dx()
}

// Height returns the native height in pixels.
func (b *Base) Height() int {
	if b == nil || b.Image == nil {
		return 0
	}
	return b.Image.Bounds().Dy()
}

// Load reads and decodes an image file.
func Load(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return Decode(data, path)
}

// Decode sniffs data by magic bytes before decoding, so a mislabeled
// upload fails with ErrUnsupported instead of a decoder error.
func Decode(data []byte, source string) (*Base, error) {
	if !filetype.IsImage(data) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(source), ErrUnsupported)
	}
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, fmt.Errorf("failed to sniff %s: %w", source, err)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return &Base{
		Source: source,
		Format: format,
		MIME:   kind.MIME.Value,
		Image:  ToNRGBA(img),
	}, nil
}

// IsSupportedPath reports whether path has an extension from Extensions.
func IsSupportedPath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ToNRGBA returns img as an *image.NRGBA whose bounds start at (0,0).
// An NRGBA already at the origin is returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Clone returns a deep copy of img.
func Clone(img *image.NRGBA) *image.NRGBA {
	out := &image.NRGBA{
		Pix:    make([]byte, len(img.Pix)),
		Stride: img.Stride,
		Rect:   img.Rect,
	}
	copy(out.Pix, img.Pix)
	return out
}
