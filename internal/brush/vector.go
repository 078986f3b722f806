package brush

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	pimage "flow-mask/internal/image"
	"flow-mask/internal/raster"
	"flow-mask/internal/scene"
	"flow-mask/pkg/geometry"

	"github.com/charmbracelet/log"
)

// VectorPluginName is the registry name of the vector stroke layer.
const VectorPluginName = "vector-strokes"

// VectorLayer keeps free-hand strokes as objects rather than pixels. It is
// a Sink for the engine and the target of the vector undo family.
type VectorLayer struct {
	mu      sync.Mutex
	strokes []*Stroke

	ctx     *scene.Context
	log     *log.Logger
	cancels []func()
}

// NewVectorLayer creates an empty layer.
func NewVectorLayer() *VectorLayer {
	return &VectorLayer{log: log.New(io.Discard)}
}

func (v *VectorLayer) Name() string { return VectorPluginName }

func (v *VectorLayer) Init(ctx *scene.Context) error {
	v.ctx = ctx
	v.log = ctx.Logger("vector")
	v.cancels = append(v.cancels,
		scene.Subscribe(ctx.Bus(), scene.ImageLoaded, func(scene.ImageEvent) { v.Clear() }),
	)
	return nil
}

func (v *VectorLayer) Destroy() {
	for _, c := range v.cancels {
		c()
	}
	v.cancels = nil
	v.Clear()
}

func (v *VectorLayer) BeginStroke(*Stroke) bool { return true }

func (v *VectorLayer) ExtendStroke(*Stroke, geometry.Point2D, geometry.Point2D) {
	if v.ctx != nil {
		v.ctx.RequestRender()
	}
}

// EndStroke stores the finished stroke and announces it.
func (v *VectorLayer) EndStroke(s *Stroke) {
	if err := v.add(s.Clone()); err != nil {
		v.log.Error("failed to add stroke", "err", err)
	}
}

// Strokes returns the strokes in drawing order.
func (v *VectorLayer) Strokes() []*Stroke {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]*Stroke(nil), v.strokes...)
}

// Remove deletes a stroke by id and publishes StrokeRemoved.
func (v *VectorLayer) Remove(id string) bool {
	v.mu.Lock()
	var removed *Stroke
	for i, s := range v.strokes {
		if s.ID == id {
			removed = s
			v.strokes = append(v.strokes[:i:i], v.strokes[i+1:]...)
			break
		}
	}
	v.mu.Unlock()
	if removed == nil {
		return false
	}

	desc, err := removed.Descriptor()
	if err != nil {
		v.log.Error("failed to serialize stroke", "id", id, "err", err)
	}
	v.publish(StrokeRemoved, StrokeEvent{Stroke: removed, Descriptor: desc})
	return true
}

// AddDescriptor re-instantiates a stroke from its serialized form.
func (v *VectorLayer) AddDescriptor(desc []byte) (*Stroke, error) {
	s, err := ParseDescriptor(desc)
	if err != nil {
		return nil, err
	}
	if err := v.add(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Clear drops all strokes without publishing.
func (v *VectorLayer) Clear() {
	v.mu.Lock()
	v.strokes = nil
	v.mu.Unlock()
}

// Render rasterizes the strokes onto a transparent width x height image.
func (v *VectorLayer) Render(width, height int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	cov := raster.NewCoverage(width, height)
	for _, s := range v.Strokes() {
		cov.Reset()
		dirty := cov.Polyline(s.Points, s.Radius())
		applyCoverage(out, cov, dirty, s.Color, s.Opacity, s.Mode)
	}
	return out
}

func (v *VectorLayer) add(s *Stroke) error {
	desc, err := s.Descriptor()
	if err != nil {
		return fmt.Errorf("serialize stroke %s: %w", s.ID, err)
	}
	v.mu.Lock()
	for _, existing := range v.strokes {
		if existing.ID == s.ID {
			v.mu.Unlock()
			return fmt.Errorf("stroke %s already present", s.ID)
		}
	}
	v.strokes = append(v.strokes, s)
	v.mu.Unlock()

	v.publish(StrokeAdded, StrokeEvent{Stroke: s, Descriptor: desc})
	return nil
}

func (v *VectorLayer) publish(topic scene.Topic[StrokeEvent], ev StrokeEvent) {
	if v.ctx == nil {
		return
	}
	scene.Publish(v.ctx.Bus(), topic, ev)
	v.ctx.RequestRender()
}

func applyCoverage(dst *image.NRGBA, cov *raster.Coverage, dirty image.Rectangle, c color.NRGBA, opacity float64, mode Mode) {
	for y := dirty.Min.Y; y < dirty.Max.Y; y++ {
		for x := dirty.Min.X; x < dirty.Max.X; x++ {
			a := cov.At(x, y)
			if a == 0 {
				continue
			}
			d := dst.NRGBAAt(x, y)
			if mode == ModeErase {
				dst.SetNRGBA(x, y, pimage.DestinationOut(d, float64(a)/255))
				continue
			}
			src := c
			src.A = uint8(float64(c.A) * float64(a) / 255)
			dst.SetNRGBA(x, y, pimage.SourceOver(d, src, opacity))
		}
	}
}
