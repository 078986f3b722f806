package export

import "image"

// Box is the tight bounds of a mask's non-transparent pixels. Max is inclusive.
type Box struct {
	MinX, MinY, MaxX, MaxY int

	TouchesLeft, TouchesRight, TouchesTop, TouchesBottom bool
}

// Width and Height of the box in pixels.
func (b Box) Width() int  { return b.MaxX - b.MinX + 1 }
func (b Box) Height() int { return b.MaxY - b.MinY + 1 }

// Rect returns the box as a half-open rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.MinX, b.MinY, b.MaxX+1, b.MaxY+1)
}

// BoundingBox scans img once for pixels with alpha > 0. It returns false
// when every pixel is transparent.
func BoundingBox(img *image.NRGBA) (Box, bool) {
	r := img.Bounds()
	w, h := r.Dx(), r.Dy()
	minX, minY, maxX, maxY := w, h, -1, -1
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			if row[x*4+3] == 0 {
				continue
			}
			minX = min(minX, x)
			maxX = max(maxX, x)
			minY = min(minY, y)
			maxY = max(maxY, y)
		}
	}
	if maxX < 0 {
		return Box{}, false
	}
	return Box{
		MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY,
		TouchesLeft:   minX == 0,
		TouchesRight:  maxX == w-1,
		TouchesTop:    minY == 0,
		TouchesBottom: maxY == h-1,
	}, true
}

// Expand grows the box by pad on each side that does not touch the buffer
// edge, then by margin on every side. The result may extend past the image.
func (b Box) Expand(pad, margin int) image.Rectangle {
	r := b.Rect()
	if !b.TouchesLeft {
		r.Min.X -= pad
	}
	if !b.TouchesTop {
		r.Min.Y -= pad
	}
	if !b.TouchesRight {
		r.Max.X += pad
	}
	if !b.TouchesBottom {
		r.Max.Y += pad
	}
	return r.Inset(-margin)
}
