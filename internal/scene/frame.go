package scene

import (
	"math"

	"flow-mask/pkg/geometry"
)

// frameBorder is the gap kept between a fitted image and the surface edge.
const frameBorder = 2

// ImageFrame places the base image inside the scene: the image is centered
// on (Left, Top) and drawn with a uniform Scale. Width and Height are native pixels.
type ImageFrame struct {
	Width  int
	Height int
	Left   float64
	Top    float64
	Scale  float64
}

// FitFrame fits a w x h image into a surface of the given size, centered,
// leaving frameBorder pixels on the limiting axis.
func FitFrame(surfaceW, surfaceH float64, w, h int) ImageFrame {
	f := ImageFrame{Width: w, Height: h, Left: surfaceW / 2, Top: surfaceH / 2, Scale: 1}
	if w <= 0 || h <= 0 || surfaceW <= 0 || surfaceH <= 0 {
		return f
	}

	desiredW := surfaceW - frameBorder*2
	desiredH := surfaceH - frameBorder*2
	if float64(w)/float64(h) > surfaceW/surfaceH {
		f.Scale = desiredW / float64(w)
	} else {
		f.Scale = desiredH / float64(h)
	}
	if f.Scale <= 0 || math.IsNaN(f.Scale) {
		f.Scale = 1
	}
	return f
}

// Valid reports whether an image is placed.
func (f ImageFrame) Valid() bool {
	return f.Width > 0 && f.Height > 0 && f.Scale > 0
}

// SceneToImage re-bases a scene point into native image pixels.
func (f ImageFrame) SceneToImage(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{
		X: (p.X-f.Left)/f.Scale + float64(f.Width)/2,
		Y: (p.Y-f.Top)/f.Scale + float64(f.Height)/2,
	}
}

// ImageToScene is the inverse of SceneToImage.
func (f ImageFrame) ImageToScene(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{
		X: (p.X-float64(f.Width)/2)*f.Scale + f.Left,
		Y: (p.Y-float64(f.Height)/2)*f.Scale + f.Top,
	}
}

// Contains reports whether an image-space point lies on the image.
func (f ImageFrame) Contains(p geometry.Point2D) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= float64(f.Width) && p.Y <= float64(f.Height)
}
