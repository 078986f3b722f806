// Package canvas provides the editing surface: a fyne widget that draws
// the session's scene and feeds pointer, wheel and key input to its host.
package canvas

import (
	"image"
	"image/draw"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"flow-mask/internal/app"
	"flow-mask/internal/scene"
	"flow-mask/pkg/geometry"
)

var minSize = fyne.NewSize(320, 240)

// MaskCanvas displays the base image with its masks and the brush ring.
type MaskCanvas struct {
	widget.BaseWidget

	session *app.Session
	raster  *fynecanvas.Raster

	mods    scene.Modifiers
	focused bool

	// OnFocusChanged is called when the canvas gains or loses keyboard focus.
	OnFocusChanged func(focused bool)
}

var (
	_ fyne.Widget       = (*MaskCanvas)(nil)
	_ desktop.Mouseable = (*MaskCanvas)(nil)
	_ desktop.Hoverable = (*MaskCanvas)(nil)
	_ desktop.Keyable   = (*MaskCanvas)(nil)
	_ fyne.Draggable    = (*MaskCanvas)(nil)
	_ fyne.Scrollable   = (*MaskCanvas)(nil)
	_ fyne.Focusable    = (*MaskCanvas)(nil)
)

// New creates a canvas bound to the session's host.
func New(s *app.Session) *MaskCanvas {
	c := &MaskCanvas{session: s}
	c.raster = fynecanvas.NewRaster(c.draw)
	c.raster.ScaleMode = fynecanvas.ImageScalePixels
	c.ExtendBaseWidget(c)
	s.Host.OnRender(func() { c.raster.Refresh() })
	return c
}

// Focused reports whether the canvas holds keyboard focus.
func (c *MaskCanvas) Focused() bool { return c.focused }

// draw renders one frame at device resolution.
func (c *MaskCanvas) draw(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	host := c.session.Host
	defer host.EndRenderPass()

	px := 1.0
	if size := c.Size(); size.Width > 0 {
		px = float64(w) / float64(size.Width)
	}
	v := host.Viewport()
	if base := host.Image(); base != nil {
		b := base.Bounds()
		overlay := c.session.Vector.Render(b.Dx(), b.Dy())
		composed := composeNative(base, c.session.Masks.Layers(), overlay)
		blit(out, composed, imageToDevice(host.Frame(), v, px))
	}
	drawCursor(out, c.session.Brush.Cursor(), v, px)
	return out
}

// input forwards one event to the host under the session's edit lock.
func (c *MaskCanvas) input(fn func(h *scene.Host)) {
	c.session.Do(func() { fn(c.session.Host) })
}

func (c *MaskCanvas) requestFocus() {
	if cv := fyne.CurrentApp().Driver().CanvasForObject(c); cv != nil {
		cv.Focus(c)
	}
}

// MouseDown implements desktop.Mouseable.
func (c *MaskCanvas) MouseDown(ev *desktop.MouseEvent) {
	if !c.focused {
		c.requestFocus()
	}
	pe := scene.PointerEvent{
		Screen:    screenPoint(ev.Position),
		Secondary: ev.Button == desktop.MouseButtonSecondary,
		Mods:      modifiers(ev.Modifier),
	}
	c.input(func(h *scene.Host) { h.PointerDown(pe) })
}

// MouseUp implements desktop.Mouseable.
func (c *MaskCanvas) MouseUp(ev *desktop.MouseEvent) {
	pe := scene.PointerEvent{
		Screen:    screenPoint(ev.Position),
		Secondary: ev.Button == desktop.MouseButtonSecondary,
		Mods:      modifiers(ev.Modifier),
	}
	c.input(func(h *scene.Host) { h.PointerUp(pe) })
}

// MouseIn implements desktop.Hoverable.
func (c *MaskCanvas) MouseIn(ev *desktop.MouseEvent) { c.MouseMoved(ev) }

// MouseMoved implements desktop.Hoverable.
func (c *MaskCanvas) MouseMoved(ev *desktop.MouseEvent) {
	pe := scene.PointerEvent{
		Screen: screenPoint(ev.Position),
		Mods:   modifiers(ev.Modifier),
	}
	c.input(func(h *scene.Host) { h.PointerMove(pe) })
}

// MouseOut implements desktop.Hoverable.
func (c *MaskCanvas) MouseOut() { c.input((*scene.Host).PointerLeave) }

// Dragged implements fyne.Draggable. Drags arrive instead of MouseMoved
// while a button is held.
func (c *MaskCanvas) Dragged(ev *fyne.DragEvent) {
	pe := scene.PointerEvent{Screen: screenPoint(ev.Position), Mods: c.mods}
	c.input(func(h *scene.Host) { h.PointerMove(pe) })
}

// DragEnd implements fyne.Draggable. The stroke ends on MouseUp.
func (c *MaskCanvas) DragEnd() {}

// Scrolled implements fyne.Scrollable.
func (c *MaskCanvas) Scrolled(ev *fyne.ScrollEvent) {
	we := scene.WheelEvent{
		Screen: screenPoint(ev.Position),
		DeltaY: -float64(ev.Scrolled.DY),
		Mods:   c.mods,
	}
	c.input(func(h *scene.Host) { h.Wheel(we) })
}

// FocusGained implements fyne.Focusable.
func (c *MaskCanvas) FocusGained() {
	c.focused = true
	c.input(func(h *scene.Host) { h.SetFocus(true) })
	if c.OnFocusChanged != nil {
		c.OnFocusChanged(true)
	}
}

// FocusLost implements fyne.Focusable.
func (c *MaskCanvas) FocusLost() {
	c.focused = false
	c.mods = scene.Modifiers{}
	c.input(func(h *scene.Host) { h.SetFocus(false) })
	if c.OnFocusChanged != nil {
		c.OnFocusChanged(false)
	}
}

// TypedRune implements fyne.Focusable.
func (c *MaskCanvas) TypedRune(rune) {}

// TypedKey implements fyne.Focusable.
func (c *MaskCanvas) TypedKey(*fyne.KeyEvent) {}

// KeyDown implements desktop.Keyable.
func (c *MaskCanvas) KeyDown(ev *fyne.KeyEvent) {
	key, ok := keyFor(ev.Name)
	if !ok {
		return
	}
	c.mods = c.mods.With(key, true)
	ke := scene.KeyEvent{Key: key, Mods: c.mods}
	c.input(func(h *scene.Host) { h.KeyDown(ke) })
}

// KeyUp implements desktop.Keyable.
func (c *MaskCanvas) KeyUp(ev *fyne.KeyEvent) {
	key, ok := keyFor(ev.Name)
	if !ok {
		return
	}
	c.mods = c.mods.With(key, false)
	ke := scene.KeyEvent{Key: key, Mods: c.mods}
	c.input(func(h *scene.Host) { h.KeyUp(ke) })
}

// keyFor maps the keys the plugins react to; everything else is ignored.
func keyFor(name fyne.KeyName) (scene.Key, bool) {
	switch name {
	case fyne.KeyZ:
		return scene.KeyZ, true
	case fyne.KeyY:
		return scene.KeyY, true
	case fyne.KeyD:
		return scene.KeyD, true
	case fyne.KeyEscape:
		return scene.KeyEscape, true
	case desktop.KeyControlLeft, desktop.KeyControlRight, desktop.KeySuperLeft, desktop.KeySuperRight:
		return scene.KeyControl, true
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		return scene.KeyShift, true
	case desktop.KeyAltLeft, desktop.KeyAltRight:
		return scene.KeyAlt, true
	}
	return "", false
}

func modifiers(m fyne.KeyModifier) scene.Modifiers {
	return scene.Modifiers{
		Ctrl:  m&(fyne.KeyModifierControl|fyne.KeyModifierSuper) != 0,
		Shift: m&fyne.KeyModifierShift != 0,
		Alt:   m&fyne.KeyModifierAlt != 0,
	}
}

func screenPoint(p fyne.Position) geometry.Point2D {
	return geometry.Pt(float64(p.X), float64(p.Y))
}

// CreateRenderer implements fyne.Widget.
func (c *MaskCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &maskCanvasRenderer{canvas: c}
}

type maskCanvasRenderer struct {
	canvas *MaskCanvas
}

func (r *maskCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
	r.canvas.raster.Move(fyne.NewPos(0, 0))
	r.canvas.session.Host.Resize(int(size.Width), int(size.Height))
}

func (r *maskCanvasRenderer) MinSize() fyne.Size {
	return minSize
}

func (r *maskCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *maskCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster}
}

func (r *maskCanvasRenderer) Destroy() {}
