package scene

import "flow-mask/pkg/geometry"

// Key names a keyboard key independent of the UI toolkit.
type Key string

const (
	KeyZ       Key = "Z"
	KeyY       Key = "Y"
	KeyD       Key = "D"
	KeyAlt     Key = "Alt"
	KeyControl Key = "Control"
	KeyShift   Key = "Shift"
	KeyEscape  Key = "Escape"
)

// Modifiers held during an input event.
type Modifiers struct {
	Ctrl  bool
	Shift bool
	Alt   bool
}

// Any reports whether a modifier is held.
func (m Modifiers) Any() bool { return m.Ctrl || m.Shift || m.Alt }

// With returns m with the modifier named by k set to down. Other keys
// leave m unchanged.
func (m Modifiers) With(k Key, down bool) Modifiers {
	switch k {
	case KeyControl:
		m.Ctrl = down
	case KeyShift:
		m.Shift = down
	case KeyAlt:
		m.Alt = down
	}
	return m
}

// KeyEvent is a key press or release.
type KeyEvent struct {
	Key  Key
	Mods Modifiers
}

// PointerEvent is a pointer event in screen coordinates of the surface.
type PointerEvent struct {
	Screen    geometry.Point2D
	Secondary bool
	Mods      Modifiers
}

// WheelEvent is a wheel step. DeltaY > 0 scrolls down (zoom out).
type WheelEvent struct {
	Screen geometry.Point2D
	DeltaY float64
	Mods   Modifiers
}

// PointerHandler is implemented by plugins that consume pointer input.
// Returning true stops the host's default pan handling.
type PointerHandler interface {
	PointerDown(ev PointerEvent) bool
	PointerMove(ev PointerEvent) bool
	PointerUp(ev PointerEvent) bool
	PointerLeave()
}

// WheelHandler is implemented by plugins that consume the wheel.
// Returning true suppresses camera zoom.
type WheelHandler interface {
	Wheel(ev WheelEvent) bool
}

// KeyHandler is implemented by plugins that react to keys.
type KeyHandler interface {
	KeyDown(ev KeyEvent) bool
	KeyUp(ev KeyEvent) bool
}
