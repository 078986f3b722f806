package canvas

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"flow-mask/internal/brush"
	"flow-mask/internal/mask"
	"flow-mask/internal/scene"
)

var background = color.RGBA{R: 32, G: 32, B: 36, A: 255}

// composeNative stacks the base image, every visible mask at its display
// opacity and the vector overlay, all at native resolution.
func composeNative(base *image.NRGBA, layers []*mask.Layer, overlay *image.NRGBA) *image.NRGBA {
	out := image.NewNRGBA(base.Bounds())
	draw.Draw(out, out.Bounds(), base, base.Bounds().Min, draw.Src)
	for _, l := range layers {
		if !l.Visible || l.Pixels == nil || l.Opacity <= 0 {
			continue
		}
		a := uint8(math.Round(math.Min(1, l.Opacity) * 255))
		draw.DrawMask(out, out.Bounds(), l.Pixels, image.Point{}, image.NewUniform(color.Alpha{A: a}), image.Point{}, draw.Over)
	}
	if overlay != nil {
		draw.Draw(out, out.Bounds(), overlay, image.Point{}, draw.Over)
	}
	return out
}

// imageToDevice is the affine map from native image pixels to device
// pixels: frame placement, then the viewport, then the device scale.
func imageToDevice(f scene.ImageFrame, v scene.Viewport, px float64) f64.Aff3 {
	a := px * v.Zoom * f.Scale
	tx := px * (v.Zoom*(f.Left-f.Scale*float64(f.Width)/2) + v.PanX)
	ty := px * (v.Zoom*(f.Top-f.Scale*float64(f.Height)/2) + v.PanY)
	return f64.Aff3{a, 0, tx, 0, a, ty}
}

// blit draws src into dst through m. Magnified images keep hard pixel
// edges so individual mask pixels stay visible.
func blit(dst *image.RGBA, src image.Image, m f64.Aff3) {
	var s draw.Transformer = draw.ApproxBiLinear
	if m[0] >= 1 {
		s = draw.NearestNeighbor
	}
	s.Transform(dst, m, src, src.Bounds(), draw.Over, nil)
}

// drawCursor draws the brush ring. Center and radius arrive in scene
// coordinates and are mapped through the viewport here.
func drawCursor(output *image.RGBA, cur brush.Cursor, v scene.Viewport, px float64) {
	if !cur.Visible || cur.Outline == brush.OutlineNone {
		return
	}
	c := v.ToScreen(cur.Center)
	cx, cy := c.X*px, c.Y*px
	r := cur.Radius * v.Zoom * px
	thick := math.Max(1, cur.LineWidth*px)

	primary := rgba(cur.Primary)
	if r < 3 {
		x, y := int(cx), int(cy)
		drawLine(output, x-4, y, x+4, y, primary, 1)
		drawLine(output, x, y-4, x, y+4, primary, 1)
		return
	}
	drawRing(output, cx, cy, r, thick, primary, cur.Outline)
	if cur.Secondary {
		drawRing(output, cx, cy, r-thick, thick, rgba(cur.Alternate), brush.OutlineSolid)
	}
}

// drawRing draws the band between r-thick and r. Dashes are measured
// along the circumference so their length does not change with radius.
func drawRing(output *image.RGBA, cx, cy, r, thick float64, col color.RGBA, style brush.OutlineStyle) {
	bounds := output.Bounds()
	minX, maxX := int(cx-r-1), int(cx+r+1)
	minY, maxY := int(cy-r-1), int(cy+r+1)
	r2 := r * r
	inner := math.Max(0, r-thick)
	innerR2 := inner * inner

	for y := minY; y <= maxY; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		for x := minX; x <= maxX; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			dx := float64(x) - cx
			dy := float64(y) - cy
			dist2 := dx*dx + dy*dy
			if dist2 > r2 || dist2 < innerR2 {
				continue
			}
			if !onPattern(math.Atan2(dy, dx)*r, style) {
				continue
			}
			output.SetRGBA(x, y, col)
		}
	}
}

func onPattern(arc float64, style brush.OutlineStyle) bool {
	arc = math.Abs(arc)
	switch style {
	case brush.OutlineDashed:
		return math.Mod(arc, 12) < 8
	case brush.OutlineDotted:
		return math.Mod(arc, 6) < 2
	}
	return true
}

// drawLine draws a line between two points using Bresenham's algorithm.
func drawLine(output *image.RGBA, x1, y1, x2, y2 int, col color.RGBA, thickness int) {
	bounds := output.Bounds()

	dx := x2 - x1
	dy := y2 - y1
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}

	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy
	for {
		for t := -thickness / 2; t <= thickness/2; t++ {
			for s := -thickness / 2; s <= thickness/2; s++ {
				p := image.Pt(x1+s, y1+t)
				if p.In(bounds) {
					output.SetRGBA(p.X, p.Y, col)
				}
			}
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func rgba(c color.NRGBA) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}
