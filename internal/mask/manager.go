package mask

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"flow-mask/internal/brush"
	pimage "flow-mask/internal/image"
	"flow-mask/internal/raster"
	"flow-mask/internal/scene"
	"flow-mask/pkg/colorutil"
	"flow-mask/pkg/geometry"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// PluginName is the registry name of the mask manager.
const PluginName = "mask"

var (
	ErrNoImage      = errors.New("no image loaded")
	ErrUnknownLayer = errors.New("unknown mask layer")
	ErrSizeMismatch = errors.New("snapshot size does not match layer")
)

// Option configures a Manager.
type Option func(*Manager)

// WithColor sets the tag color given to new layers.
func WithColor(c color.NRGBA) Option {
	return func(m *Manager) { m.nextColor = c }
}

// WithOpacity sets the paint opacity used by PaintStroke.
func WithOpacity(o float64) Option {
	return func(m *Manager) { m.opacity = o }
}

// WithDisplayOpacity sets the opacity new layers are shown with.
func WithDisplayOpacity(o float64) Option {
	return func(m *Manager) { m.displayOpacity = o }
}

type activeStroke struct {
	layer   *Layer
	id      string
	before  *image.NRGBA
	cov     *raster.Coverage
	color   color.NRGBA
	opacity float64
	mode    brush.Mode
}

// Manager owns the mask layers of the current image. It is a scene plugin
// and a brush.Sink: strokes from the brush engine land in the active layer.
type Manager struct {
	mu     sync.RWMutex
	layers []*Layer // paint order, bottom first
	active string
	width  int
	height int
	named  int

	nextColor      color.NRGBA
	opacity        float64
	displayOpacity float64

	stroke *activeStroke

	ctx     *scene.Context
	log     *log.Logger
	cancels []func()
}

// NewManager creates a manager with no image.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		nextColor:      colorutil.Red,
		opacity:        1,
		displayOpacity: 0.5,
		log:            log.New(io.Discard),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) Name() string { return PluginName }

func (m *Manager) Init(ctx *scene.Context) error {
	m.ctx = ctx
	m.log = ctx.Logger(PluginName)
	bus := ctx.Bus()
	m.cancels = append(m.cancels,
		scene.Subscribe(bus, scene.ImageLoaded, func(ev scene.ImageEvent) {
			m.Reset(ev.Width, ev.Height)
		}),
		scene.Subscribe(bus, scene.ImageRemoved, func(scene.ImageEvent) {
			m.Reset(0, 0)
		}),
	)
	if img := ctx.Image(); img != nil {
		m.Reset(img.Bounds().Dx(), img.Bounds().Dy())
	}
	return nil
}

// Destroy drops every layer.
func (m *Manager) Destroy() {
	for _, c := range m.cancels {
		c()
	}
	m.cancels = nil
	m.mu.Lock()
	m.layers = nil
	m.active = ""
	m.stroke = nil
	m.mu.Unlock()
}

// Reset discards all layers and, for a non-empty size, creates the default layer.
func (m *Manager) Reset(width, height int) {
	m.mu.Lock()
	m.layers = nil
	m.active = ""
	m.stroke = nil
	m.named = 0
	m.width, m.height = width, height
	m.mu.Unlock()

	if width > 0 && height > 0 {
		if _, err := m.AddLayer(""); err != nil {
			m.log.Error("failed to create default mask", "err", err)
		}
		return
	}
	m.changed()
}

// Size returns the native size every layer has.
func (m *Manager) Size() (int, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.width, m.height
}

// SetColor sets the tag color for layers created from now on.
func (m *Manager) SetColor(c color.NRGBA) {
	m.mu.Lock()
	m.nextColor = c
	m.mu.Unlock()
}

// AddLayer creates a transparent layer on top of the stack and makes it active.
func (m *Manager) AddLayer(name string) (*Layer, error) {
	m.mu.Lock()
	if m.width <= 0 || m.height <= 0 {
		m.mu.Unlock()
		return nil, ErrNoImage
	}
	m.named++
	if name == "" {
		name = fmt.Sprintf("Mask %d", m.named)
	}
	l := &Layer{
		ID:      uuid.NewString(),
		Name:    name,
		Color:   m.nextColor,
		Visible: true,
		Opacity: m.displayOpacity,
		Pixels:  image.NewNRGBA(image.Rect(0, 0, m.width, m.height)),
	}
	m.layers = append(m.layers, l)
	m.active = l.ID
	m.mu.Unlock()

	m.log.Debug("layer added", "id", l.ID, "name", l.Name)
	m.changed()
	return l, nil
}

// RemoveLayer discards a layer. If it was active, the layer below it (or
// the new bottom layer) becomes active; removing the last layer creates a
// fresh default layer.
func (m *Manager) RemoveLayer(id string) error {
	m.mu.Lock()
	idx := m.indexOf(id)
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownLayer, id)
	}
	removed := m.layers[idx]
	m.layers = append(m.layers[:idx:idx], m.layers[idx+1:]...)
	if m.stroke != nil && m.stroke.layer == removed {
		m.stroke = nil
	}
	wasActive := m.active == id
	if wasActive {
		m.active = ""
		if len(m.layers) > 0 {
			m.active = m.layers[max(idx-1, 0)].ID
		}
	}
	empty := len(m.layers) == 0
	m.mu.Unlock()

	m.log.Debug("layer removed", "id", id, "name", removed.Name)
	if m.ctx != nil {
		scene.Publish(m.ctx.Bus(), LayerRemoved, LayerEvent{ID: id, Name: removed.Name})
	}
	if empty {
		if _, err := m.AddLayer(""); err != nil {
			return err
		}
		return nil
	}
	m.changed()
	return nil
}

// SetActive selects the layer strokes go to. Unknown ids are ignored.
func (m *Manager) SetActive(id string) bool {
	m.mu.Lock()
	if m.indexOf(id) < 0 {
		m.mu.Unlock()
		return false
	}
	m.active = id
	m.mu.Unlock()
	m.changed()
	return true
}

// Active returns the active layer.
func (m *Manager) Active() (*Layer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.indexOf(m.active); i >= 0 {
		return m.layers[i], true
	}
	return nil, false
}

// Layer looks a layer up by id.
func (m *Manager) Layer(id string) (*Layer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.indexOf(id); i >= 0 {
		return m.layers[i], true
	}
	return nil, false
}

// Layers returns the layers in paint order, bottom first.
func (m *Manager) Layers() []*Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Layer(nil), m.layers...)
}

// SetVisible shows or hides a layer. Pixels are never touched.
func (m *Manager) SetVisible(id string, visible bool) bool {
	m.mu.Lock()
	i := m.indexOf(id)
	if i >= 0 {
		m.layers[i].Visible = visible
	}
	m.mu.Unlock()
	if i >= 0 {
		m.changed()
	}
	return i >= 0
}

// SetAllVisible shows or hides every layer.
func (m *Manager) SetAllVisible(visible bool) {
	m.mu.Lock()
	for _, l := range m.layers {
		l.Visible = visible
	}
	m.mu.Unlock()
	m.changed()
}

// SetOpacity sets a layer's display opacity.
func (m *Manager) SetOpacity(id string, opacity float64) bool {
	m.mu.Lock()
	i := m.indexOf(id)
	if i >= 0 {
		m.layers[i].Opacity = max(0, min(1, opacity))
	}
	m.mu.Unlock()
	if i >= 0 {
		m.changed()
	}
	return i >= 0
}

// Rename changes a layer's display name.
func (m *Manager) Rename(id, name string) bool {
	m.mu.Lock()
	i := m.indexOf(id)
	if i >= 0 && name != "" {
		m.layers[i].Name = name
	}
	m.mu.Unlock()
	if i >= 0 {
		m.changed()
	}
	return i >= 0
}

// Recolor sets the tag color and rewrites RGB of every painted pixel.
// Alpha is preserved and fully transparent pixels are left alone.
func (m *Manager) Recolor(id string, c color.NRGBA) bool {
	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return false
	}
	l := m.layers[i]
	l.Color = c
	pix := l.Pixels.Pix
	for p := 0; p < len(pix); p += 4 {
		if pix[p+3] == 0 {
			continue
		}
		pix[p], pix[p+1], pix[p+2] = c.R, c.G, c.B
	}
	m.mu.Unlock()
	m.changed()
	return true
}

// Reorder moves a layer by delta positions in paint order (positive is
// up) and returns its new index.
func (m *Manager) Reorder(id string, delta int) (int, bool) {
	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return -1, false
	}
	j := max(0, min(len(m.layers)-1, i+delta))
	l := m.layers[i]
	m.layers = append(m.layers[:i:i], m.layers[i+1:]...)
	m.layers = append(m.layers[:j], append([]*Layer{l}, m.layers[j:]...)...)
	m.mu.Unlock()
	if i != j {
		m.changed()
	}
	return j, true
}

// Clear erases a whole layer as one undoable erase stroke.
func (m *Manager) Clear(id string) bool {
	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return false
	}
	l := m.layers[i]
	before := append([]byte(nil), l.Pixels.Pix...)
	clear(l.Pixels.Pix)
	m.mu.Unlock()

	m.publishStroke(StrokeEvent{LayerID: id, StrokeID: uuid.NewString(), Mode: brush.ModeErase, Before: before})
	return true
}

// Snapshot copies a layer's pixel buffer.
func (m *Manager) Snapshot(id string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return append([]byte(nil), m.layers[i].Pixels.Pix...), true
}

// Restore overwrites a layer's buffer with a snapshot, verbatim.
func (m *Manager) Restore(id string, pix []byte) error {
	m.mu.Lock()
	i := m.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownLayer, id)
	}
	l := m.layers[i]
	if len(pix) != len(l.Pixels.Pix) {
		m.mu.Unlock()
		return ErrSizeMismatch
	}
	copy(l.Pixels.Pix, pix)
	m.mu.Unlock()
	m.render()
	return nil
}

// PaintStroke paints or erases a polyline of image-space points into the
// active layer as one stroke. Points off the image are dropped. It returns
// false when there is no active layer or no point on the image.
func (m *Manager) PaintStroke(points []geometry.Point2D, radius float64, mode brush.Mode) bool {
	m.mu.RLock()
	w, h := m.width, m.height
	opacity := m.opacity
	m.mu.RUnlock()

	var kept []geometry.Point2D
	for _, p := range points {
		if p.X >= 0 && p.Y >= 0 && p.X <= float64(w) && p.Y <= float64(h) {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return false
	}

	s := brush.NewStroke(color.NRGBA{}, radius*2, opacity, mode)
	if !m.BeginStroke(s) {
		return false
	}
	prev := kept[0]
	for _, p := range kept {
		s.Points = append(s.Points, p)
		m.ExtendStroke(s, prev, p)
		prev = p
	}
	m.EndStroke(s)
	return true
}

// BeginStroke snapshots the active layer. The active layer's own tag color
// is used for paint regardless of the stroke's color.
func (m *Manager) BeginStroke(s *brush.Stroke) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(m.active)
	if i < 0 {
		return false
	}
	l := m.layers[i]
	m.stroke = &activeStroke{
		layer:   l,
		id:      s.ID,
		before:  pimage.Clone(l.Pixels),
		cov:     raster.NewCoverage(m.width, m.height),
		color:   l.Color,
		opacity: s.Opacity,
		mode:    s.Mode,
	}
	return true
}

// ExtendStroke stamps the segment and recomposites the touched pixels
// from the pre-stroke snapshot, so opacity never builds up within a stroke.
func (m *Manager) ExtendStroke(s *brush.Stroke, from, to geometry.Point2D) {
	m.mu.Lock()
	st := m.stroke
	if st == nil || st.id != s.ID {
		m.mu.Unlock()
		return
	}
	dirty := st.cov.Capsule(from, to, s.Radius())
	st.apply(dirty)
	m.mu.Unlock()
	m.render()
}

// EndStroke commits the stroke and publishes MaskStrokeAdded.
func (m *Manager) EndStroke(s *brush.Stroke) {
	m.mu.Lock()
	st := m.stroke
	if st == nil || st.id != s.ID {
		m.mu.Unlock()
		return
	}
	m.stroke = nil
	m.mu.Unlock()

	m.log.Debug("stroke committed", "layer", st.layer.Name, "mode", st.mode, "points", len(s.Points))
	m.publishStroke(StrokeEvent{
		LayerID:  st.layer.ID,
		StrokeID: st.id,
		Mode:     st.mode,
		Before:   st.before.Pix,
	})
}

func (st *activeStroke) apply(dirty image.Rectangle) {
	dst := st.layer.Pixels
	for y := dirty.Min.Y; y < dirty.Max.Y; y++ {
		for x := dirty.Min.X; x < dirty.Max.X; x++ {
			a := st.cov.At(x, y)
			if a == 0 {
				continue
			}
			b := st.before.NRGBAAt(x, y)
			if st.mode == brush.ModeErase {
				dst.SetNRGBA(x, y, pimage.DestinationOut(b, float64(a)/255))
				continue
			}
			src := st.color
			src.A = uint8(uint16(src.A) * uint16(a) / 255)
			dst.SetNRGBA(x, y, pimage.SourceOver(b, src, st.opacity))
		}
	}
}

func (m *Manager) publishStroke(ev StrokeEvent) {
	if m.ctx == nil {
		return
	}
	scene.Publish(m.ctx.Bus(), MaskStrokeAdded, ev)
	m.ctx.RequestRender()
}

func (m *Manager) changed() {
	if m.ctx == nil {
		return
	}
	m.mu.RLock()
	ev := LayersEvent{Active: m.active, Count: len(m.layers)}
	m.mu.RUnlock()
	scene.Publish(m.ctx.Bus(), LayersChanged, ev)
	m.ctx.RequestRender()
}

func (m *Manager) render() {
	if m.ctx != nil {
		m.ctx.RequestRender()
	}
}

func (m *Manager) indexOf(id string) int {
	for i, l := range m.layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}
