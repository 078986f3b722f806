package export

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	pimage "flow-mask/internal/image"
	"flow-mask/pkg/colorutil"
)

// Crop copies rect out of src into a new image whose origin is (0,0).
// Parts of rect outside src are transparent.
func Crop(src *image.NRGBA, rect image.Rectangle) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), src, rect.Min, draw.Src)
	return out
}

// TargetSize computes resize output dimensions for a w x h source and a
// square target d. With keep set, a single uniform scale min(d/w, d/h) is
// used so the long side becomes d.
func TargetSize(w, h, d int, keep bool) (int, int) {
	if w <= 0 || h <= 0 || d <= 0 {
		return max(w, 0), max(h, 0)
	}
	if !keep {
		return d, d
	}
	scale := math.Min(float64(d)/float64(w), float64(d)/float64(h))
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))
	return nw, nh
}

// Binarize maps selected pixels to opaque white and everything else to
// opaque black. A pixel is selected when its alpha is non-zero and it is not
// opaque black, so binarizing twice changes nothing.
func Binarize(src *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	forEach(src, out, func(c color.NRGBA) color.NRGBA {
		if selected(c) {
			return colorutil.White
		}
		return colorutil.Black
	})
	return out
}

func selected(c color.NRGBA) bool {
	if c.A == 0 {
		return false
	}
	return !(c.A == 255 && c.R == 0 && c.G == 0 && c.B == 0)
}

// FlattenOnBlack composites src over an opaque black backing.
func FlattenOnBlack(src *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	forEach(src, out, func(c color.NRGBA) color.NRGBA {
		return pimage.SourceOver(colorutil.Black, c, 1)
	})
	return out
}

// AlphaMask converts a mask to an alpha-only buffer: the luminance of the
// mask composited over black becomes alpha and RGB is zeroed.
func AlphaMask(src *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	forEach(src, out, func(c color.NRGBA) color.NRGBA {
		flat := pimage.SourceOver(colorutil.Black, c, 1)
		return color.NRGBA{A: uint8(math.Round(colorutil.Luminance(flat.R, flat.G, flat.B)))}
	})
	return out
}

// AlphaOnImage keeps img's color and sets each pixel's alpha to
// min(image alpha, mask alpha). Both images must have the same size.
func AlphaOnImage(img, alpha *image.NRGBA) *image.NRGBA {
	w := min(img.Bounds().Dx(), alpha.Bounds().Dx())
	h := min(img.Bounds().Dy(), alpha.Bounds().Dy())
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.NRGBAAt(img.Rect.Min.X+x, img.Rect.Min.Y+y)
			a := alpha.NRGBAAt(alpha.Rect.Min.X+x, alpha.Rect.Min.Y+y).A
			c.A = min(c.A, a)
			out.SetNRGBA(x, y, c)
		}
	}
	return out
}

// Combine stacks masks bottom-first with source-over onto a transparent
// w x h canvas, or onto a copy of base when base is non-nil.
func Combine(w, h int, base *image.NRGBA, masks ...*image.NRGBA) *image.NRGBA {
	c := pimage.NewComposite(w, h)
	if base != nil {
		c.AddLayer(base, pimage.BlendSourceOver, 1)
	}
	for _, m := range masks {
		c.AddLayer(m, pimage.BlendSourceOver, 1)
	}
	return c.Render()
}

// Whiten turns every pixel with alpha > 0 white, keeping its alpha.
func Whiten(src *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	forEach(src, out, func(c color.NRGBA) color.NRGBA {
		if c.A == 0 {
			return c
		}
		return color.NRGBA{R: 255, G: 255, B: 255, A: c.A}
	})
	return out
}

func forEach(src, dst *image.NRGBA, fn func(color.NRGBA) color.NRGBA) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.SetNRGBA(x, y, fn(src.NRGBAAt(b.Min.X+x, b.Min.Y+y)))
		}
	}
}
