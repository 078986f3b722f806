package image

import (
	"image"
	"image/color"
	"math"
)

// BlendMode specifies how a layer is composited onto what lies below it.
type BlendMode int

const (
	BlendSourceOver BlendMode = iota
	BlendDestinationOut
	BlendMultiply
	BlendScreen
)

func (m BlendMode) String() string {
	switch m {
	case BlendSourceOver:
		return "SourceOver"
	case BlendDestinationOut:
		return "DestinationOut"
	case BlendMultiply:
		return "Multiply"
	case BlendScreen:
		return "Screen"
	default:
		return "Unknown"
	}
}

// Blend composites src onto dst. opacity scales the source alpha.
// Both colors are non-premultiplied.
func (m BlendMode) Blend(dst, src color.NRGBA, opacity float64) color.NRGBA {
	switch m {
	case BlendDestinationOut:
		return DestinationOut(dst, float64(src.A)/255*opacity)
	case BlendMultiply, BlendScreen:
		return separable(m, dst, src, opacity)
	default:
		return SourceOver(dst, src, opacity)
	}
}

// SourceOver is normal alpha blending of src over dst.
func SourceOver(dst, src color.NRGBA, opacity float64) color.NRGBA {
	sa := float64(src.A) / 255 * clamp(opacity, 0, 1)
	if sa <= 0 {
		return dst
	}
	da := float64(dst.A) / 255
	oa := sa + da*(1-sa)
	if oa <= 0 {
		return color.NRGBA{}
	}
	mix := func(s, d uint8) uint8 {
		v := (float64(s)*sa + float64(d)*da*(1-sa)) / oa
		return uint8(math.Round(clamp(v, 0, 255)))
	}
	return color.NRGBA{
		R: mix(src.R, dst.R),
		G: mix(src.G, dst.G),
		B: mix(src.B, dst.B),
		A: uint8(math.Round(oa * 255)),
	}
}

// DestinationOut removes strength (0-1) of dst's alpha, leaving color intact.
// Fully cleared pixels become transparent black.
func DestinationOut(dst color.NRGBA, strength float64) color.NRGBA {
	a := math.Round(float64(dst.A) * (1 - clamp(strength, 0, 1)))
	if a <= 0 {
		return color.NRGBA{}
	}
	dst.A = uint8(a)
	return dst
}

func separable(m BlendMode, dst, src color.NRGBA, opacity float64) color.NRGBA {
	f := func(s, d uint8) uint8 {
		sf, df := float64(s)/255, float64(d)/255
		var r float64
		if m == BlendMultiply {
			r = sf * df
		} else {
			r = 1 - (1-sf)*(1-df)
		}
		return uint8(math.Round(r * 255))
	}
	blended := color.NRGBA{R: f(src.R, dst.R), G: f(src.G, dst.G), B: f(src.B, dst.B), A: src.A}
	return SourceOver(dst, blended, opacity)
}

// Composite stacks same-sized layers, bottom first.
type Composite struct {
	Width     int
	Height    int
	Layers    []*CompositeLayer
	BackColor color.NRGBA
}

// CompositeLayer is one entry of a Composite.
type CompositeLayer struct {
	Image     *image.NRGBA
	BlendMode BlendMode
	Opacity   float64
	Visible   bool
}

// NewComposite creates a transparent composite of the given size.
func NewComposite(width, height int) *Composite {
	return &Composite{Width: width, Height: height}
}

// AddLayer appends a visible layer on top.
func (c *Composite) AddLayer(img *image.NRGBA, mode BlendMode, opacity float64) {
	c.Layers = append(c.Layers, &CompositeLayer{
		Image:     img,
		BlendMode: mode,
		Opacity:   opacity,
		Visible:   true,
	})
}

// Render produces the composited image.
func (c *Composite) Render() *image.NRGBA {
	result := image.NewNRGBA(image.Rect(0, 0, c.Width, c.Height))
	if c.BackColor.A > 0 {
		for i := 0; i < len(result.Pix); i += 4 {
			result.Pix[i+0] = c.BackColor.R
			result.Pix[i+1] = c.BackColor.G
			result.Pix[i+2] = c.BackColor.B
			result.Pix[i+3] = c.BackColor.A
		}
	}

	for _, cl := range c.Layers {
		if cl == nil || cl.Image == nil || !cl.Visible {
			continue
		}
		compositeLayer(result, cl)
	}
	return result
}

// compositeLayer blends one layer onto dst, clipped to both bounds.
func compositeLayer(dst *image.NRGBA, cl *CompositeLayer) {
	src := cl.Image
	w := min(dst.Rect.Dx(), src.Rect.Dx())
	h := min(dst.Rect.Dy(), src.Rect.Dy())

	for y := 0; y < h; y++ {
		so := src.PixOffset(src.Rect.Min.X, src.Rect.Min.Y+y)
		do := dst.PixOffset(dst.Rect.Min.X, dst.Rect.Min.Y+y)
		for x := 0; x < w; x++ {
			s := color.NRGBA{R: src.Pix[so], G: src.Pix[so+1], B: src.Pix[so+2], A: src.Pix[so+3]}
			if s.A != 0 {
				d := color.NRGBA{R: dst.Pix[do], G: dst.Pix[do+1], B: dst.Pix[do+2], A: dst.Pix[do+3]}
				out := cl.BlendMode.Blend(d, s, cl.Opacity)
				dst.Pix[do], dst.Pix[do+1], dst.Pix[do+2], dst.Pix[do+3] = out.R, out.G, out.B, out.A
			}
			so += 4
			do += 4
		}
	}
}

// DrawOver composites src over dst in place with source-over at opacity.
func DrawOver(dst, src *image.NRGBA, opacity float64) {
	compositeLayer(dst, &CompositeLayer{Image: src, BlendMode: BlendSourceOver, Opacity: opacity, Visible: true})
}

func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
