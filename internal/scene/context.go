package scene

import (
	"image"

	"github.com/charmbracelet/log"
)

// Context is the shared state handed to every plugin at Init. It is the only
// way plugins see each other's state: drawing mode, viewport, image placement
// and focus all live on the host and are read fresh on every call.
type Context struct {
	host *Host
}

// Bus returns the host's event bus.
func (c *Context) Bus() *Bus { return c.host.bus }

// Logger returns a logger prefixed for the named component.
func (c *Context) Logger(component string) *log.Logger {
	return c.host.log.WithPrefix(component)
}

// Viewport returns the current viewport. Never cache it across events.
func (c *Context) Viewport() Viewport { return c.host.Viewport() }

// Frame returns where the base image sits in the scene.
func (c *Context) Frame() ImageFrame { return c.host.Frame() }

// Image returns the base image, or nil.
func (c *Context) Image() *image.NRGBA { return c.host.Image() }

// DrawingMode reports whether pointer input is routed to drawing.
func (c *Context) DrawingMode() bool { return c.host.DrawingMode() }

// SetDrawingMode flips the drawing gate.
func (c *Context) SetDrawingMode(on bool) { c.host.SetDrawingMode(on) }

// Focused reports whether the surface holds input focus.
func (c *Context) Focused() bool { return c.host.Focused() }

// Plugin looks up another registered plugin by name.
func (c *Context) Plugin(name string) (Plugin, bool) { return c.host.Plugin(name) }

// RequestRender asks the surface to redraw.
func (c *Context) RequestRender() { c.host.RequestRender() }
