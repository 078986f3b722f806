package export

import (
	"image"

	"flow-mask/pkg/colorutil"
)

// Named is an export artifact with its file name.
type Named struct {
	Name  string
	Image *image.NRGBA
}

// MaxScale bounds the Flatten multiplier.
const MaxScale = 10

// Mask returns a copy of the active mask at native size.
func (e *Exporter) Mask(s State) (*image.NRGBA, error) {
	m, ok := s.ActiveMask()
	if !ok {
		return nil, ErrNoActiveMask
	}
	return Crop(m.Pixels, m.Pixels.Bounds()), nil
}

// AllMasks returns every mask at native size.
func (e *Exporter) AllMasks(s State) ([]Named, error) {
	if len(s.Masks) == 0 {
		return nil, ErrNoMasks
	}
	out := make([]Named, 0, len(s.Masks))
	for _, m := range s.Masks {
		out = append(out, Named{Name: m.Name, Image: Crop(m.Pixels, m.Pixels.Bounds())})
	}
	return out, nil
}

// MaskOnImage draws the active mask over the image.
func (e *Exporter) MaskOnImage(s State) (*image.NRGBA, error) {
	if s.Image == nil {
		return nil, ErrNoImage
	}
	m, ok := s.ActiveMask()
	if !ok {
		return nil, ErrNoActiveMask
	}
	w, h := s.Size()
	return Combine(w, h, s.Image, m.Pixels), nil
}

// AllMasksOnImage draws every mask over the image in paint order.
func (e *Exporter) AllMasksOnImage(s State) (*image.NRGBA, error) {
	if s.Image == nil {
		return nil, ErrNoImage
	}
	if len(s.Masks) == 0 {
		return nil, ErrNoMasks
	}
	w, h := s.Size()
	return Combine(w, h, s.Image, s.pixels()...), nil
}

// AllMasksCombined stacks every mask onto a transparent canvas.
func (e *Exporter) AllMasksCombined(s State) (*image.NRGBA, error) {
	if len(s.Masks) == 0 {
		return nil, ErrNoMasks
	}
	w, h := s.Size()
	return Combine(w, h, nil, s.pixels()...), nil
}

// AllMasksCombinedOnImage flattens the masks into one layer first and draws
// that layer over the base image.
func (e *Exporter) AllMasksCombinedOnImage(s State) (*image.NRGBA, error) {
	if s.Image == nil {
		return nil, ErrNoImage
	}
	if len(s.Masks) == 0 {
		return nil, ErrNoMasks
	}
	w, h := s.Size()
	return Combine(w, h, s.Image, Combine(w, h, nil, s.pixels()...)), nil
}

// CombinedBlackWhite draws every mask in white over opaque black.
func (e *Exporter) CombinedBlackWhite(s State) (*image.NRGBA, error) {
	if len(s.Masks) == 0 {
		return nil, ErrNoMasks
	}
	w, h := s.Size()
	return Combine(w, h, solid(w, h), s.whitened()...), nil
}

// CombinedBlackWhiteOnImage draws every mask in white over the image.
func (e *Exporter) CombinedBlackWhiteOnImage(s State) (*image.NRGBA, error) {
	if s.Image == nil {
		return nil, ErrNoImage
	}
	if len(s.Masks) == 0 {
		return nil, ErrNoMasks
	}
	w, h := s.Size()
	return Combine(w, h, s.Image, s.whitened()...), nil
}

// MaskAlphaOnImage keeps the image where the active mask selects it and
// makes everything else transparent.
func (e *Exporter) MaskAlphaOnImage(s State) (*image.NRGBA, error) {
	if s.Image == nil {
		return nil, ErrNoImage
	}
	m, ok := s.ActiveMask()
	if !ok {
		return nil, ErrNoActiveMask
	}
	return AlphaOnImage(s.Image, e.alpha(m.Pixels)), nil
}

// AllMasksAlphaOnImage returns one alpha-on-image per mask.
func (e *Exporter) AllMasksAlphaOnImage(s State) ([]Named, error) {
	if s.Image == nil {
		return nil, ErrNoImage
	}
	if len(s.Masks) == 0 {
		return nil, ErrNoMasks
	}
	out := make([]Named, 0, len(s.Masks))
	for _, m := range s.Masks {
		out = append(out, Named{
			Name:  m.Name,
			Image: AlphaOnImage(s.Image, e.alpha(m.Pixels)),
		})
	}
	return out, nil
}

// AllMasksCombinedAlphaOnImage applies the union of all masks as alpha.
func (e *Exporter) AllMasksCombinedAlphaOnImage(s State) (*image.NRGBA, error) {
	if s.Image == nil {
		return nil, ErrNoImage
	}
	if len(s.Masks) == 0 {
		return nil, ErrNoMasks
	}
	w, h := s.Size()
	return AlphaOnImage(s.Image, e.alpha(Combine(w, h, nil, s.pixels()...))), nil
}

// Flatten renders the image with its visible masks and any overlays,
// enlarged by an integer scale in [1, MaxScale].
func (e *Exporter) Flatten(s State, scale int, overlays ...*image.NRGBA) (*image.NRGBA, error) {
	if s.Image == nil {
		return nil, ErrNoImage
	}
	w, h := s.Size()
	layers := make([]*image.NRGBA, 0, len(s.Masks)+len(overlays))
	for _, m := range s.Masks {
		if m.Visible {
			layers = append(layers, m.Pixels)
		}
	}
	layers = append(layers, overlays...)
	out := Combine(w, h, s.Image, layers...)
	scale = min(max(scale, 1), MaxScale)
	if scale == 1 {
		return out, nil
	}
	return e.filters.Resize(out, w*scale, h*scale), nil
}

// alpha runs the binarize and blur steps on a whole-canvas mask and derives
// its alpha mask.
func (e *Exporter) alpha(m *image.NRGBA) *image.NRGBA {
	if e.cfg.BW {
		m = Binarize(m)
	}
	if e.cfg.BlurMask > 0 {
		m = e.filters.Blur(FlattenOnBlack(m), float64(e.cfg.BlurMask))
	}
	return AlphaMask(m)
}

func (s State) pixels() []*image.NRGBA {
	out := make([]*image.NRGBA, 0, len(s.Masks))
	for _, m := range s.Masks {
		out = append(out, m.Pixels)
	}
	return out
}

func (s State) whitened() []*image.NRGBA {
	out := make([]*image.NRGBA, 0, len(s.Masks))
	for _, m := range s.Masks {
		out = append(out, Whiten(m.Pixels))
	}
	return out
}

func solid(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	c := colorutil.Black
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}
