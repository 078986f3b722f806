// Package raster computes anti-aliased brush coverage for round-capped strokes.
package raster

import (
	"image"
	"math"

	"flow-mask/pkg/geometry"

	"gonum.org/v1/gonum/spatial/r2"
)

// Coverage is a per-pixel 0-255 coverage buffer. Stamps combine with max,
// so overlapping samples of one stroke never accumulate.
type Coverage struct {
	Width  int
	Height int
	Data   []uint8
}

// NewCoverage allocates an empty buffer.
func NewCoverage(width, height int) *Coverage {
	return &Coverage{Width: width, Height: height, Data: make([]uint8, width*height)}
}

// At returns coverage at (x, y), 0 outside the buffer.
func (c *Coverage) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return 0
	}
	return c.Data[y*c.Width+x]
}

// Reset clears the buffer.
func (c *Coverage) Reset() {
	clear(c.Data)
}

// Circle stamps a filled disc.
func (c *Coverage) Circle(center geometry.Point2D, radius float64) image.Rectangle {
	return c.Capsule(center, center, radius)
}

// Capsule stamps the segment a-b swept by a disc of radius (round caps on
// both ends) and returns the rectangle of pixels it may have touched.
func (c *Coverage) Capsule(a, b geometry.Point2D, radius float64) image.Rectangle {
	if radius <= 0 {
		return image.Rectangle{}
	}
	pad := radius + 1
	dirty := image.Rect(
		int(math.Floor(math.Min(a.X, b.X)-pad)),
		int(math.Floor(math.Min(a.Y, b.Y)-pad)),
		int(math.Ceil(math.Max(a.X, b.X)+pad)),
		int(math.Ceil(math.Max(a.Y, b.Y)+pad)),
	).Intersect(image.Rect(0, 0, c.Width, c.Height))
	if dirty.Empty() {
		return image.Rectangle{}
	}

	va, vb := r2.Vec{X: a.X, Y: a.Y}, r2.Vec{X: b.X, Y: b.Y}
	ab := r2.Sub(vb, va)
	l2 := r2.Norm2(ab)

	for y := dirty.Min.Y; y < dirty.Max.Y; y++ {
		row := y * c.Width
		for x := dirty.Min.X; x < dirty.Max.X; x++ {
			q := r2.Vec{X: float64(x) + 0.5, Y: float64(y) + 0.5}
			d := segmentDistance(q, va, ab, l2)
			cov := radius + 0.5 - d
			if cov <= 0 {
				continue
			}
			v := uint8(255)
			if cov < 1 {
				v = uint8(math.Round(cov * 255))
			}
			if v > c.Data[row+x] {
				c.Data[row+x] = v
			}
		}
	}
	return dirty
}

// Polyline stamps every point as a disc joined by capsules.
func (c *Coverage) Polyline(points []geometry.Point2D, radius float64) image.Rectangle {
	var dirty image.Rectangle
	for i, p := range points {
		prev := p
		if i > 0 {
			prev = points[i-1]
		}
		dirty = dirty.Union(c.Capsule(prev, p, radius))
	}
	return dirty
}

func segmentDistance(q, a, ab r2.Vec, l2 float64) float64 {
	t := 0.0
	if l2 > 0 {
		t = r2.Dot(r2.Sub(q, a), ab) / l2
		t = math.Max(0, math.Min(1, t))
	}
	closest := r2.Add(a, r2.Scale(t, ab))
	return r2.Norm(r2.Sub(q, closest))
}
