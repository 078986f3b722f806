// Package mask manages the named raster mask layers painted over the base image.
package mask

import (
	"image"
	"image/color"

	"flow-mask/internal/brush"
	"flow-mask/internal/scene"
)

// Layer is one mask. Pixels always has the base image's native size.
// Callers must treat the returned pointers as read-only; all writes go
// through the Manager.
type Layer struct {
	ID      string
	Name    string
	Color   color.NRGBA
	Visible bool
	Opacity float64 // display opacity only
	Pixels  *image.NRGBA
}

// StrokeEvent is published after every committed paint or erase stroke.
// Before is the layer's full pixel buffer from just before the stroke.
type StrokeEvent struct {
	LayerID  string
	StrokeID string
	Mode     brush.Mode
	Before   []byte
}

// LayerEvent names a layer that changed.
type LayerEvent struct {
	ID   string
	Name string
}

// LayersEvent is published whenever the layer list, order, active layer,
// visibility or color changes.
type LayersEvent struct {
	Active string
	Count  int
}

var (
	MaskStrokeAdded = scene.NewTopic[StrokeEvent]("mask:stroke:added")
	LayerRemoved    = scene.NewTopic[LayerEvent]("mask:layer:removed")
	LayersChanged   = scene.NewTopic[LayersEvent]("mask:layers:changed")
)
