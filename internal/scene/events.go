package scene

import (
	"image"
)

// ImageEvent describes the base image that was loaded.
type ImageEvent struct {
	Image  *image.NRGBA
	Width  int
	Height int
	Source string
}

// ViewportEvent carries a settled viewport.
type ViewportEvent struct {
	Viewport Viewport
}

// ResizeEvent carries the new surface size in screen pixels.
type ResizeEvent struct {
	Width  int
	Height int
}

// Host-level topics. Feature packages declare their own topics with NewTopic.
var (
	ImageLoaded        = NewTopic[ImageEvent]("image:loaded")
	ImageRemoved       = NewTopic[ImageEvent]("image:removed")
	ViewportChanged    = NewTopic[ViewportEvent]("viewport:changed")
	CanvasResized      = NewTopic[ResizeEvent]("canvas:resized")
	DrawingModeChanged = NewTopic[bool]("drawing:mode")
	FocusChanged       = NewTopic[bool]("focus:changed")
)
