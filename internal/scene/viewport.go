package scene

import (
	"math"

	"flow-mask/pkg/geometry"
)

// Viewport is the uniform zoom and pan mapping scene coordinates to screen coordinates:
// screen = scene*Zoom + (PanX, PanY).
type Viewport struct {
	Zoom float64
	PanX float64
	PanY float64
}

// IdentityViewport is zoom 1 with no pan.
func IdentityViewport() Viewport {
	return Viewport{Zoom: 1}
}

// Transform returns the scene-to-screen transform.
func (v Viewport) Transform() geometry.AffineTransform {
	return geometry.Translation(v.PanX, v.PanY).Compose(geometry.Scale(v.Zoom, v.Zoom))
}

// ToScene maps a screen point back into scene coordinates.
func (v Viewport) ToScene(screen geometry.Point2D) geometry.Point2D {
	inv, ok := v.Transform().Inverse()
	if !ok {
		return screen
	}
	return inv.Apply(screen)
}

// ToScreen maps a scene point onto the screen.
func (v Viewport) ToScreen(scenePt geometry.Point2D) geometry.Point2D {
	return v.Transform().Apply(scenePt)
}

// ZoomAt returns the viewport zoomed to zoom while keeping the scene point
// under screen fixed.
func (v Viewport) ZoomAt(screen geometry.Point2D, zoom float64) Viewport {
	anchor := v.ToScene(screen)
	return Viewport{
		Zoom: zoom,
		PanX: screen.X - anchor.X*zoom,
		PanY: screen.Y - anchor.Y*zoom,
	}
}

// Equal compares viewports within a small tolerance.
func (v Viewport) Equal(o Viewport) bool {
	const eps = 1e-9
	return math.Abs(v.Zoom-o.Zoom) < eps &&
		math.Abs(v.PanX-o.PanX) < eps &&
		math.Abs(v.PanY-o.PanY) < eps
}
