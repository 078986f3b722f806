// Package history records mask and vector strokes and replays them for undo/redo.
package history

import (
	"io"

	"flow-mask/internal/brush"
	"flow-mask/internal/mask"
	"flow-mask/internal/scene"

	"github.com/charmbracelet/log"
)

// PluginName is the registry name of the coordinator.
const PluginName = "history"

// DefaultCapacity bounds each stack.
const DefaultCapacity = 50

// RasterTarget restores layer snapshots. *mask.Manager implements it.
type RasterTarget interface {
	Snapshot(layerID string) ([]byte, bool)
	Restore(layerID string, pix []byte) error
}

// VectorTarget removes and re-creates vector strokes. *brush.VectorLayer implements it.
type VectorTarget interface {
	Remove(id string) bool
	AddDescriptor(desc []byte) (*brush.Stroke, error)
}

// MaskHistoryEvent is published after a raster undo or redo.
type MaskHistoryEvent struct {
	LayerID string
	Kind    Kind
}

var (
	UndoMaskStroke = scene.NewTopic[MaskHistoryEvent]("undo:mask:stroke")
	RedoMaskStroke = scene.NewTopic[MaskHistoryEvent]("redo:mask:stroke")
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCapacity sets the per-stack capacity.
func WithCapacity(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// Coordinator keeps independent undo and redo stacks per family. Undo
// always reverts the most recent edit across families, redo the most
// recently undone one. The replaying flag keeps replays out of the record.
type Coordinator struct {
	capacity int
	undo     [numFamilies]*stack
	redo     [numFamilies]*stack
	seq      uint64

	replaying bool

	raster RasterTarget
	vector VectorTarget

	ctx     *scene.Context
	log     *log.Logger
	cancels []func()
}

// New creates a coordinator. Either target may be nil if that family is unused.
func New(raster RasterTarget, vector VectorTarget, opts ...Option) *Coordinator {
	c := &Coordinator{
		capacity: DefaultCapacity,
		raster:   raster,
		vector:   vector,
		log:      log.New(io.Discard),
	}
	for _, o := range opts {
		o(c)
	}
	for f := range c.undo {
		c.undo[f] = newStack(c.capacity)
		c.redo[f] = newStack(c.capacity)
	}
	return c
}

func (c *Coordinator) Name() string { return PluginName }

func (c *Coordinator) Init(ctx *scene.Context) error {
	c.ctx = ctx
	c.log = ctx.Logger(PluginName)
	bus := ctx.Bus()
	c.cancels = append(c.cancels,
		scene.Subscribe(bus, brush.StrokeAdded, func(ev brush.StrokeEvent) {
			c.record(Entry{Kind: VectorAdd, StrokeID: ev.Stroke.ID, Descriptor: ev.Descriptor})
		}),
		scene.Subscribe(bus, brush.StrokeRemoved, func(ev brush.StrokeEvent) {
			c.record(Entry{Kind: VectorRemove, StrokeID: ev.Stroke.ID, Descriptor: ev.Descriptor})
		}),
		scene.Subscribe(bus, mask.MaskStrokeAdded, func(ev mask.StrokeEvent) {
			kind := MaskAdd
			if ev.Mode == brush.ModeErase {
				kind = MaskRemove
			}
			c.record(Entry{Kind: kind, StrokeID: ev.StrokeID, LayerID: ev.LayerID, Snapshot: ev.Before})
		}),
		scene.Subscribe(bus, mask.LayerRemoved, func(ev mask.LayerEvent) { c.DropLayer(ev.ID) }),
		scene.Subscribe(bus, scene.ImageLoaded, func(scene.ImageEvent) { c.Clear() }),
		scene.Subscribe(bus, scene.ImageRemoved, func(scene.ImageEvent) { c.Clear() }),
	)
	return nil
}

func (c *Coordinator) Destroy() {
	for _, cancel := range c.cancels {
		cancel()
	}
	c.cancels = nil
	c.Clear()
}

// Record adds an entry as a new edit: it clears the redo stack of its family.
// Calls made while an undo or redo is replaying are ignored.
func (c *Coordinator) Record(e Entry) { c.record(e) }

func (c *Coordinator) record(e Entry) {
	if c.replaying {
		return
	}
	f := e.Kind.Family()
	c.seq++
	e.seq = c.seq
	c.undo[f].push(e)
	c.redo[f].clear()
	c.log.Debug("recorded", "kind", e.Kind, "undo", c.undo[f].len())
}

// CanUndo reports whether any family has an entry to undo.
func (c *Coordinator) CanUndo() bool { return c.undo[FamilyVector].len()+c.undo[FamilyRaster].len() > 0 }

// CanRedo reports whether any family has an entry to redo.
func (c *Coordinator) CanRedo() bool { return c.redo[FamilyVector].len()+c.redo[FamilyRaster].len() > 0 }

// Depth returns the undo and redo depth of a family.
func (c *Coordinator) Depth(f Family) (undo, redo int) {
	return c.undo[f].len(), c.redo[f].len()
}

// Undo reverts the most recent edit. It returns false when nothing could be undone.
func (c *Coordinator) Undo() bool {
	for {
		f, ok := newest(c.undo)
		if !ok {
			return false
		}
		e, _ := c.undo[f].pop()
		if inverse, ok := c.apply(e, true); ok {
			c.seq++
			inverse.seq = c.seq
			c.redo[f].push(inverse)
			return true
		}
	}
}

// Redo re-applies the most recently undone edit.
func (c *Coordinator) Redo() bool {
	for {
		f, ok := newest(c.redo)
		if !ok {
			return false
		}
		e, _ := c.redo[f].pop()
		if inverse, ok := c.apply(e, false); ok {
			c.seq++
			inverse.seq = c.seq
			c.undo[f].push(inverse)
			return true
		}
	}
}

// apply replays e in the undo or redo direction and returns the entry that
// reverses it. Entries whose target is gone are dropped.
func (c *Coordinator) apply(e Entry, undo bool) (Entry, bool) {
	c.replaying = true
	defer func() { c.replaying = false }()

	switch e.Kind {
	case VectorAdd, VectorRemove:
		if c.vector == nil {
			return Entry{}, false
		}
		// Undoing an add and redoing a remove both delete the stroke.
		if (e.Kind == VectorAdd) == undo {
			if !c.vector.Remove(e.StrokeID) {
				c.log.Warn("stroke already gone", "id", e.StrokeID)
				return Entry{}, false
			}
		} else if _, err := c.vector.AddDescriptor(e.Descriptor); err != nil {
			c.log.Error("failed to restore stroke", "id", e.StrokeID, "err", err)
			return Entry{}, false
		}
		return e, true

	default:
		if c.raster == nil {
			return Entry{}, false
		}
		current, ok := c.raster.Snapshot(e.LayerID)
		if !ok {
			c.log.Warn("layer already gone", "layer", e.LayerID)
			return Entry{}, false
		}
		if err := c.raster.Restore(e.LayerID, e.Snapshot); err != nil {
			c.log.Error("failed to restore layer", "layer", e.LayerID, "err", err)
			return Entry{}, false
		}
		if c.ctx != nil {
			topic := RedoMaskStroke
			if undo {
				topic = UndoMaskStroke
			}
			scene.Publish(c.ctx.Bus(), topic, MaskHistoryEvent{LayerID: e.LayerID, Kind: e.Kind})
		}
		inverse := e
		inverse.Snapshot = current
		return inverse, true
	}
}

// DropLayer forgets every raster entry of a removed layer.
func (c *Coordinator) DropLayer(layerID string) {
	match := func(e Entry) bool { return e.LayerID == layerID }
	c.undo[FamilyRaster].drop(match)
	c.redo[FamilyRaster].drop(match)
}

// Clear empties every stack.
func (c *Coordinator) Clear() {
	for f := range c.undo {
		c.undo[f].clear()
		c.redo[f].clear()
	}
}

// KeyDown binds Ctrl+Z to undo and Ctrl+Y / Ctrl+Shift+Z to redo while the
// surface is focused.
func (c *Coordinator) KeyDown(ev scene.KeyEvent) bool {
	if c.ctx == nil || !c.ctx.Focused() || !ev.Mods.Ctrl {
		return false
	}
	switch {
	case ev.Key == scene.KeyZ && !ev.Mods.Shift:
		c.Undo()
	case ev.Key == scene.KeyY, ev.Key == scene.KeyZ && ev.Mods.Shift:
		c.Redo()
	default:
		return false
	}
	c.ctx.RequestRender()
	return true
}

func (c *Coordinator) KeyUp(scene.KeyEvent) bool { return false }

func newest(stacks [numFamilies]*stack) (Family, bool) {
	var (
		best  Family
		found bool
		top   uint64
	)
	for f, s := range stacks {
		if seq, ok := s.top(); ok && (!found || seq > top) {
			best, top, found = Family(f), seq, true
		}
	}
	return best, found
}
