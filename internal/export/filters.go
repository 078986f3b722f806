package export

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"golang.org/x/image/draw"
)

// Filters performs the expensive resampling steps of the pipeline.
type Filters interface {
	Resize(src *image.NRGBA, w, h int) *image.NRGBA
	// Blur blurs an opaque image; the result is fully opaque.
	Blur(src *image.NRGBA, radius float64) *image.NRGBA
}

// PureFilters implements Filters in Go: bilinear resampling from x/image
// and a gaussian blur from bild.
type PureFilters struct{}

func (PureFilters) Resize(src *image.NRGBA, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func (PureFilters) Blur(src *image.NRGBA, radius float64) *image.NRGBA {
	if radius <= 0 {
		return src
	}
	blurred := blur.Gaussian(src, radius)
	out := image.NewNRGBA(image.Rect(0, 0, blurred.Bounds().Dx(), blurred.Bounds().Dy()))
	copy(out.Pix, blurred.Pix)
	opaque(out)
	return out
}

// opaque forces alpha to 255; edge handling in the convolution can leave
// values one step short.
func opaque(img *image.NRGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
}

// DefaultFilters returns the build's preferred backend.
func DefaultFilters() Filters { return defaultFilters() }
