package brush

import (
	"image/color"
	"io"
	"math"

	"flow-mask/internal/scene"
	"flow-mask/pkg/colorutil"
	"flow-mask/pkg/geometry"

	"github.com/charmbracelet/log"
)

// PluginName is the registry name of the brush engine.
const PluginName = "brush"

// Config holds brush settings. Size is the on-screen diameter in pixels.
type Config struct {
	Size        float64
	MinSize     float64
	MaxSize     float64
	ResizeSpeed float64
	Opacity     float64
	Color       color.NRGBA
	Mode        Mode
	Outline     OutlineStyle
	Secondary   bool
	CursorColor color.NRGBA
	CursorAlt   color.NRGBA
}

// DefaultConfig returns the stock brush.
func DefaultConfig() Config {
	return Config{
		Size:        25,
		MinSize:     1,
		MaxSize:     500,
		ResizeSpeed: 1,
		Opacity:     1,
		Color:       colorutil.Red,
		Mode:        ModePaint,
		Outline:     OutlineSolid,
		Secondary:   true,
		CursorColor: colorutil.White,
		CursorAlt:   colorutil.Black,
	}
}

// State is the engine's stroke state.
type State int

const (
	Idle State = iota
	Stroking
)

func (s State) String() string {
	if s == Stroking {
		return "stroking"
	}
	return "idle"
}

// Sink consumes strokes. BeginStroke may refuse (for example when no
// mask is active), in which case the engine stays idle. ExtendStroke is
// called with consecutive image-space points; from == to for the first dab.
type Sink interface {
	BeginStroke(s *Stroke) bool
	ExtendStroke(s *Stroke, from, to geometry.Point2D)
	EndStroke(s *Stroke)
}

// Engine is the brush state machine. It is a scene plugin and consumes
// pointer, wheel and key input while drawing mode is on.
type Engine struct {
	cfg  Config
	sink Sink

	ctx     *scene.Context
	log     *log.Logger
	cancels []func()

	state     State
	stroke    *Stroke
	last      geometry.Point2D
	suspended bool

	pointer     geometry.Point2D // scene coordinates
	pointerSeen bool
}

// NewEngine creates an engine writing into sink.
func NewEngine(cfg Config, sink Sink) *Engine {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultConfig().MaxSize
	}
	if cfg.MinSize <= 0 || cfg.MinSize > cfg.MaxSize {
		cfg.MinSize = DefaultConfig().MinSize
	}
	if cfg.ResizeSpeed <= 0 {
		cfg.ResizeSpeed = 1
	}
	cfg.Size = clampSize(cfg.Size, cfg.MinSize, cfg.MaxSize)
	return &Engine{cfg: cfg, sink: sink, log: log.New(io.Discard)}
}

func (e *Engine) Name() string { return PluginName }

func (e *Engine) Init(ctx *scene.Context) error {
	e.ctx = ctx
	e.log = ctx.Logger(PluginName)
	bus := ctx.Bus()
	e.cancels = append(e.cancels,
		scene.Subscribe(bus, scene.DrawingModeChanged, func(on bool) {
			if !on {
				e.endStroke()
			}
		}),
		scene.Subscribe(bus, scene.ImageRemoved, func(scene.ImageEvent) { e.endStroke() }),
		scene.Subscribe(bus, scene.ImageLoaded, func(scene.ImageEvent) { e.endStroke() }),
	)
	return nil
}

func (e *Engine) Destroy() {
	e.endStroke()
	for _, c := range e.cancels {
		c()
	}
	e.cancels = nil
}

// Config returns a copy of the current settings.
func (e *Engine) Config() Config { return e.cfg }

// State returns Idle or Stroking.
func (e *Engine) State() State { return e.state }

// SetSink switches where strokes go. An in-progress stroke is ended first.
func (e *Engine) SetSink(s Sink) {
	e.endStroke()
	e.sink = s
}

// SetMode switches between paint and erase for subsequent strokes.
func (e *Engine) SetMode(m Mode) { e.cfg.Mode = m }

// SetColor sets the brush color used by sinks without their own color.
func (e *Engine) SetColor(c color.NRGBA) { e.cfg.Color = c }

// SetOpacity sets paint opacity, clamped to [0,1].
func (e *Engine) SetOpacity(o float64) { e.cfg.Opacity = math.Max(0, math.Min(1, o)) }

// SetOutline sets the cursor ring pattern.
func (e *Engine) SetOutline(o OutlineStyle, secondary bool) {
	e.cfg.Outline = o
	e.cfg.Secondary = secondary
}

// SetSize sets the brush diameter, clamped to [MinSize, MaxSize].
func (e *Engine) SetSize(size float64) {
	size = clampSize(size, e.cfg.MinSize, e.cfg.MaxSize)
	if size == e.cfg.Size {
		return
	}
	e.cfg.Size = size
	if e.ctx != nil {
		scene.Publish(e.ctx.Bus(), BrushSizeChanged, size)
		e.ctx.RequestRender()
	}
}

// ImageRadius is the brush radius in native image pixels at the current zoom.
func (e *Engine) ImageRadius() float64 {
	if e.ctx == nil {
		return e.cfg.Size / 2
	}
	zoom := e.ctx.Viewport().Zoom
	scale := e.ctx.Frame().Scale
	if zoom <= 0 || scale <= 0 {
		return e.cfg.Size / 2
	}
	return e.cfg.Size / (zoom * scale) / 2
}

// Cursor returns the ring for the last pointer position at the current zoom.
func (e *Engine) Cursor() Cursor {
	c := Cursor{
		Center:    e.pointer,
		Outline:   e.cfg.Outline,
		Secondary: e.cfg.Secondary,
		Primary:   e.cfg.CursorColor,
		Alternate: e.cfg.CursorAlt,
		LineWidth: 1,
		Radius:    e.cfg.Size / 2,
	}
	if e.ctx == nil {
		return c
	}
	if zoom := e.ctx.Viewport().Zoom; zoom > 0 {
		c.Radius = e.cfg.Size / 2 / zoom
		c.LineWidth = 1 / zoom
	}
	c.Visible = e.pointerSeen && e.drawing() && c.Outline != OutlineNone
	return c
}

func (e *Engine) drawing() bool {
	return e.ctx != nil && e.ctx.DrawingMode() && !e.suspended
}

// toImage re-fetches viewport and frame on every call; both may change
// between events of the same stroke.
func (e *Engine) toImage(screen geometry.Point2D) (scenePt, imgPt geometry.Point2D) {
	scenePt = e.ctx.Viewport().ToScene(screen)
	imgPt = e.ctx.Frame().SceneToImage(scenePt)
	return scenePt, imgPt
}

func (e *Engine) track(screen geometry.Point2D) geometry.Point2D {
	scenePt, imgPt := e.toImage(screen)
	e.pointer = scenePt
	e.pointerSeen = true
	return imgPt
}

func (e *Engine) PointerDown(ev scene.PointerEvent) bool {
	if !e.drawing() {
		return false
	}
	p := e.track(ev.Screen)
	defer e.ctx.RequestRender()

	frame := e.ctx.Frame()
	if ev.Secondary || !frame.Valid() || !frame.Contains(p) || e.sink == nil {
		return true
	}

	s := NewStroke(e.cfg.Color, e.ImageRadius()*2, e.cfg.Opacity, e.cfg.Mode)
	s.Points = append(s.Points, p)
	if !e.sink.BeginStroke(s) {
		e.log.Debug("stroke refused by sink")
		return true
	}
	e.state = Stroking
	e.stroke = s
	e.last = p
	e.sink.ExtendStroke(s, p, p)
	return true
}

func (e *Engine) PointerMove(ev scene.PointerEvent) bool {
	if e.ctx == nil {
		return false
	}
	if !e.drawing() && e.state == Idle {
		e.track(ev.Screen)
		return false
	}
	p := e.track(ev.Screen)
	defer e.ctx.RequestRender()

	if e.state != Stroking {
		return true
	}
	// Points off the image are skipped without ending the stroke; the next
	// point back on the image joins from the last point that was on it.
	if !e.ctx.Frame().Contains(p) {
		return true
	}
	e.stroke.Points = append(e.stroke.Points, p)
	e.sink.ExtendStroke(e.stroke, e.last, p)
	e.last = p
	return true
}

func (e *Engine) PointerUp(scene.PointerEvent) bool {
	wasStroking := e.state == Stroking
	e.endStroke()
	return wasStroking || e.drawing()
}

func (e *Engine) PointerLeave() {
	e.pointerSeen = false
	e.endStroke()
	if e.ctx != nil {
		e.ctx.RequestRender()
	}
}

// Wheel resizes the brush while drawing and suppresses camera zoom.
func (e *Engine) Wheel(ev scene.WheelEvent) bool {
	if !e.drawing() || ev.DeltaY == 0 {
		return false
	}
	step := e.cfg.ResizeSpeed
	if ev.DeltaY > 0 {
		step = -step
	}
	e.SetSize(e.cfg.Size + step)
	return true
}

// KeyDown toggles drawing mode on D and suspends drawing while a modifier is held.
func (e *Engine) KeyDown(ev scene.KeyEvent) bool {
	switch ev.Key {
	case scene.KeyD:
		if ev.Mods.Any() {
			return false
		}
		e.ctx.SetDrawingMode(!e.ctx.DrawingMode())
		return true
	case scene.KeyAlt, scene.KeyControl, scene.KeyShift:
		if e.ctx.DrawingMode() && !e.suspended {
			e.suspended = true
			e.endStroke()
			e.ctx.RequestRender()
		}
	}
	return false
}

func (e *Engine) KeyUp(ev scene.KeyEvent) bool {
	switch ev.Key {
	case scene.KeyAlt, scene.KeyControl, scene.KeyShift:
		if e.suspended {
			e.suspended = false
			e.ctx.RequestRender()
		}
	}
	return false
}

// endStroke finishes the current stroke. Whatever was painted stays.
func (e *Engine) endStroke() {
	if e.state != Stroking {
		return
	}
	s := e.stroke
	e.state = Idle
	e.stroke = nil
	if e.sink != nil {
		e.sink.EndStroke(s)
	}
	e.log.Debug("stroke ended", "id", s.ID, "points", len(s.Points), "mode", s.Mode)
}

func clampSize(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
