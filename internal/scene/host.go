// Package scene hosts the drawing surface: the pan/zoom viewport, the base
// image placement, the plugin registry and the typed event bus.
package scene

import (
	"fmt"
	"image"
	"io"
	"math"
	"sync"

	"flow-mask/pkg/geometry"

	"github.com/charmbracelet/log"
)

const (
	defaultMinZoom  = 0.05
	defaultMaxZoom  = 20.0
	defaultZoomStep = 1.1
)

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the root logger. Components derive prefixed loggers from it.
func WithLogger(l *log.Logger) Option {
	return func(h *Host) { h.log = l }
}

// WithZoomLimits bounds the zoom factor.
func WithZoomLimits(min, max float64) Option {
	return func(h *Host) {
		if min > 0 && max >= min {
			h.minZoom, h.maxZoom = min, max
		}
	}
}

// WithZoomStep sets the multiplicative step used by ZoomIn/ZoomOut and the wheel.
func WithZoomStep(step float64) Option {
	return func(h *Host) {
		if step > 1 {
			h.zoomStep = step
		}
	}
}

// Host owns the viewport, the plugin registry and the event bus.
type Host struct {
	mu sync.RWMutex

	log *log.Logger
	bus *Bus
	ctx *Context

	viewport Viewport
	settled  Viewport
	width    int
	height   int

	minZoom  float64
	maxZoom  float64
	zoomStep float64

	image   *image.NRGBA
	source  string
	frame   ImageFrame
	drawing bool
	focused bool

	plugins []Plugin

	// default pan drag
	panning bool
	panLast geometry.Point2D

	onRender func()
}

// NewHost creates a host with an identity viewport and no image.
func NewHost(opts ...Option) *Host {
	h := &Host{
		log:      log.New(io.Discard),
		bus:      NewBus(),
		viewport: IdentityViewport(),
		settled:  IdentityViewport(),
		minZoom:  defaultMinZoom,
		maxZoom:  defaultMaxZoom,
		zoomStep: defaultZoomStep,
	}
	for _, o := range opts {
		o(h)
	}
	h.ctx = &Context{host: h}
	return h
}

// Bus returns the event bus.
func (h *Host) Bus() *Bus { return h.bus }

// Context returns the shared plugin context.
func (h *Host) Context() *Context { return h.ctx }

// Logger returns the root logger.
func (h *Host) Logger() *log.Logger { return h.log }

// OnRender sets the callback used when a plugin asks for a redraw.
func (h *Host) OnRender(fn func()) {
	h.mu.Lock()
	h.onRender = fn
	h.mu.Unlock()
}

// RequestRender asks the surface to redraw.
func (h *Host) RequestRender() {
	h.mu.RLock()
	fn := h.onRender
	h.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Register validates p, calls Init and adds it to the registry. A failing
// plugin is not added and does not affect the others.
func (h *Host) Register(p Plugin) error {
	if err := checkPlugin(p); err != nil {
		h.log.Error("plugin rejected", "err", err)
		return err
	}
	if _, exists := h.Plugin(p.Name()); exists {
		return fmt.Errorf("%w: %q already registered", ErrContractViolation, p.Name())
	}
	if err := p.Init(h.ctx); err != nil {
		h.log.Error("plugin init failed", "plugin", p.Name(), "err", err)
		return fmt.Errorf("init plugin %q: %w", p.Name(), err)
	}

	h.mu.Lock()
	h.plugins = append(h.plugins, p)
	h.mu.Unlock()
	h.log.Debug("plugin registered", "plugin", p.Name())
	return nil
}

// Unregister destroys and removes the named plugin.
func (h *Host) Unregister(name string) bool {
	h.mu.Lock()
	var found Plugin
	for i, p := range h.plugins {
		if p.Name() == name {
			found = p
			h.plugins = append(h.plugins[:i:i], h.plugins[i+1:]...)
			break
		}
	}
	h.mu.Unlock()

	if found == nil {
		return false
	}
	found.Destroy()
	h.log.Debug("plugin unregistered", "plugin", name)
	return true
}

// Plugin looks up a registered plugin.
func (h *Host) Plugin(name string) (Plugin, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, p := range h.plugins {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Plugins returns the registered plugins in registration order.
func (h *Host) Plugins() []Plugin {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Plugin, len(h.plugins))
	copy(out, h.plugins)
	return out
}

// Close destroys every plugin, newest first.
func (h *Host) Close() {
	h.mu.Lock()
	plugins := h.plugins
	h.plugins = nil
	h.mu.Unlock()

	for i := len(plugins) - 1; i >= 0; i-- {
		plugins[i].Destroy()
	}
}

// Viewport returns the live viewport.
func (h *Host) Viewport() Viewport {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.viewport
}

// SetViewport replaces the viewport, clamping the zoom. Listeners hear about
// it after the next EndRenderPass.
func (h *Host) SetViewport(v Viewport) {
	h.mu.Lock()
	v.Zoom = h.clampZoom(v.Zoom)
	h.viewport = v
	h.mu.Unlock()
	h.RequestRender()
}

// ZoomAt zooms to zoom around a screen point.
func (h *Host) ZoomAt(screen geometry.Point2D, zoom float64) {
	h.mu.Lock()
	h.viewport = h.viewport.ZoomAt(screen, h.clampZoom(zoom))
	h.mu.Unlock()
	h.RequestRender()
}

// ZoomIn zooms one step around the surface center.
func (h *Host) ZoomIn() {
	v := h.Viewport()
	h.ZoomAt(h.center(), v.Zoom*h.zoomStep)
}

// ZoomOut zooms out one step around the surface center.
func (h *Host) ZoomOut() {
	v := h.Viewport()
	h.ZoomAt(h.center(), v.Zoom/h.zoomStep)
}

// ResetView returns to zoom 1 with no pan.
func (h *Host) ResetView() {
	h.SetViewport(IdentityViewport())
}

// PanBy moves the view by a screen-space delta.
func (h *Host) PanBy(dx, dy float64) {
	h.mu.Lock()
	h.viewport.PanX += dx
	h.viewport.PanY += dy
	h.mu.Unlock()
	h.RequestRender()
}

// EndRenderPass is called by the surface after each completed draw. The
// viewport is compared with the last settled value and ViewportChanged is
// published at most once per pass.
func (h *Host) EndRenderPass() {
	h.mu.Lock()
	v := h.viewport
	changed := !v.Equal(h.settled)
	if changed {
		h.settled = v
	}
	h.mu.Unlock()

	if changed {
		Publish(h.bus, ViewportChanged, ViewportEvent{Viewport: v})
	}
}

// Size returns the surface size in screen pixels.
func (h *Host) Size() (int, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.width, h.height
}

// Resize records a new surface size, refits the image and publishes CanvasResized.
// Both window and container observers call it; repeated sizes are ignored.
func (h *Host) Resize(w, height int) {
	h.mu.Lock()
	if w == h.width && height == h.height {
		h.mu.Unlock()
		return
	}
	h.width, h.height = w, height
	if h.image != nil {
		b := h.image.Bounds()
		h.frame = FitFrame(float64(w), float64(height), b.Dx(), b.Dy())
	}
	h.mu.Unlock()

	h.log.Debug("surface resized", "width", w, "height", height)
	Publish(h.bus, CanvasResized, ResizeEvent{Width: w, Height: height})
	h.RequestRender()
}

// SetImage installs a new base image, fits it to the surface and publishes ImageLoaded.
func (h *Host) SetImage(img *image.NRGBA, source string) {
	if img == nil {
		h.RemoveImage()
		return
	}
	b := img.Bounds()
	h.mu.Lock()
	h.image = img
	h.source = source
	h.frame = FitFrame(float64(h.width), float64(h.height), b.Dx(), b.Dy())
	h.mu.Unlock()

	h.log.Info("image loaded", "source", source, "width", b.Dx(), "height", b.Dy())
	Publish(h.bus, ImageLoaded, ImageEvent{Image: img, Width: b.Dx(), Height: b.Dy(), Source: source})
	h.RequestRender()
}

// RemoveImage drops the base image and publishes ImageRemoved.
func (h *Host) RemoveImage() {
	h.mu.Lock()
	img, source := h.image, h.source
	h.image = nil
	h.source = ""
	h.frame = ImageFrame{}
	h.mu.Unlock()

	if img == nil {
		return
	}
	b := img.Bounds()
	Publish(h.bus, ImageRemoved, ImageEvent{Image: img, Width: b.Dx(), Height: b.Dy(), Source: source})
	h.RequestRender()
}

// Image returns the base image, or nil.
func (h *Host) Image() *image.NRGBA {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.image
}

// Frame returns the image placement.
func (h *Host) Frame() ImageFrame {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.frame
}

// ScreenToImage runs the full mapping: inverse viewport, then image re-basing.
func (h *Host) ScreenToImage(screen geometry.Point2D) geometry.Point2D {
	h.mu.RLock()
	v, f := h.viewport, h.frame
	h.mu.RUnlock()
	return f.SceneToImage(v.ToScene(screen))
}

// DrawingMode reports whether drawing is enabled.
func (h *Host) DrawingMode() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.drawing
}

// SetDrawingMode sets the drawing gate and publishes DrawingModeChanged on change.
func (h *Host) SetDrawingMode(on bool) {
	h.mu.Lock()
	changed := h.drawing != on
	h.drawing = on
	h.mu.Unlock()
	if changed {
		Publish(h.bus, DrawingModeChanged, on)
		h.RequestRender()
	}
}

// Focused reports whether the surface holds input focus.
func (h *Host) Focused() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.focused
}

// SetFocus records focus changes from the surface.
func (h *Host) SetFocus(focused bool) {
	h.mu.Lock()
	changed := h.focused != focused
	h.focused = focused
	h.mu.Unlock()
	if changed {
		Publish(h.bus, FocusChanged, focused)
	}
}

// PointerDown routes to plugins; unconsumed presses start a pan drag.
func (h *Host) PointerDown(ev PointerEvent) {
	for _, p := range h.Plugins() {
		if ph, ok := p.(PointerHandler); ok && ph.PointerDown(ev) {
			return
		}
	}
	h.mu.Lock()
	h.panning = true
	h.panLast = ev.Screen
	h.mu.Unlock()
}

// PointerMove routes to plugins, then applies any active pan drag.
func (h *Host) PointerMove(ev PointerEvent) {
	consumed := false
	for _, p := range h.Plugins() {
		if ph, ok := p.(PointerHandler); ok && ph.PointerMove(ev) {
			consumed = true
			break
		}
	}

	h.mu.Lock()
	if !h.panning || consumed {
		h.mu.Unlock()
		return
	}
	dx, dy := ev.Screen.X-h.panLast.X, ev.Screen.Y-h.panLast.Y
	h.panLast = ev.Screen
	h.mu.Unlock()
	h.PanBy(dx, dy)
}

// PointerUp routes to plugins and ends a pan drag.
func (h *Host) PointerUp(ev PointerEvent) {
	h.mu.Lock()
	h.panning = false
	h.mu.Unlock()
	for _, p := range h.Plugins() {
		if ph, ok := p.(PointerHandler); ok && ph.PointerUp(ev) {
			return
		}
	}
}

// PointerLeave tells every pointer plugin the pointer left the surface.
func (h *Host) PointerLeave() {
	h.mu.Lock()
	h.panning = false
	h.mu.Unlock()
	for _, p := range h.Plugins() {
		if ph, ok := p.(PointerHandler); ok {
			ph.PointerLeave()
		}
	}
}

// Wheel routes to plugins; unconsumed wheel steps zoom around the pointer.
func (h *Host) Wheel(ev WheelEvent) {
	for _, p := range h.Plugins() {
		if wh, ok := p.(WheelHandler); ok && wh.Wheel(ev) {
			return
		}
	}
	if ev.DeltaY == 0 {
		return
	}
	v := h.Viewport()
	zoom := v.Zoom * math.Pow(h.zoomStep, -sign(ev.DeltaY))
	h.ZoomAt(ev.Screen, zoom)
}

// KeyDown routes a key press to plugins until one handles it.
func (h *Host) KeyDown(ev KeyEvent) bool {
	for _, p := range h.Plugins() {
		if kh, ok := p.(KeyHandler); ok && kh.KeyDown(ev) {
			return true
		}
	}
	return false
}

// KeyUp routes a key release to every key plugin.
func (h *Host) KeyUp(ev KeyEvent) {
	for _, p := range h.Plugins() {
		if kh, ok := p.(KeyHandler); ok {
			kh.KeyUp(ev)
		}
	}
}

func (h *Host) clampZoom(z float64) float64 {
	if z < h.minZoom || math.IsNaN(z) {
		return h.minZoom
	}
	if z > h.maxZoom {
		return h.maxZoom
	}
	return z
}

func (h *Host) center() geometry.Point2D {
	w, height := h.Size()
	return geometry.Pt(float64(w)/2, float64(height)/2)
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
