// Package brush turns pointer motion into image-space strokes and draws the
// zoom-compensated brush cursor.
package brush

import (
	"encoding/json"
	"fmt"
	"image/color"

	"flow-mask/internal/scene"
	"flow-mask/pkg/colorutil"
	"flow-mask/pkg/geometry"

	"github.com/google/uuid"
)

// Mode selects how a stroke is composited.
type Mode int

const (
	ModePaint Mode = iota
	ModeErase
)

func (m Mode) String() string {
	if m == ModeErase {
		return "erase"
	}
	return "paint"
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "paint", "":
		return ModePaint, nil
	case "erase":
		return ModeErase, nil
	}
	return ModePaint, fmt.Errorf("unknown brush mode %q", s)
}

// Stroke is one continuous gesture in native image pixels.
type Stroke struct {
	ID      string
	Points  []geometry.Point2D
	Color   color.NRGBA
	Width   float64 // diameter in image pixels
	Opacity float64
	Mode    Mode
}

// NewStroke allocates a stroke with a fresh id.
func NewStroke(c color.NRGBA, width, opacity float64, mode Mode) *Stroke {
	return &Stroke{
		ID:      uuid.NewString(),
		Color:   c,
		Width:   width,
		Opacity: opacity,
		Mode:    mode,
	}
}

// Radius is half the stroke width.
func (s *Stroke) Radius() float64 { return s.Width / 2 }

// Clone returns a deep copy.
func (s *Stroke) Clone() *Stroke {
	out := *s
	out.Points = append([]geometry.Point2D(nil), s.Points...)
	return &out
}

type descriptor struct {
	ID      string             `json:"id"`
	Points  []geometry.Point2D `json:"points"`
	Color   string             `json:"color"`
	Alpha   uint8              `json:"alpha"`
	Width   float64            `json:"width"`
	Opacity float64            `json:"opacity"`
	Mode    string             `json:"mode"`
}

// Descriptor serializes the stroke geometry and style.
func (s *Stroke) Descriptor() ([]byte, error) {
	return json.Marshal(descriptor{
		ID:      s.ID,
		Points:  s.Points,
		Color:   colorutil.Hex(s.Color),
		Alpha:   s.Color.A,
		Width:   s.Width,
		Opacity: s.Opacity,
		Mode:    s.Mode.String(),
	})
}

// ParseDescriptor rebuilds an identical stroke from Descriptor output.
func ParseDescriptor(data []byte) (*Stroke, error) {
	var d descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse stroke: %w", err)
	}
	c, err := colorutil.ParseHex(d.Color)
	if err != nil {
		return nil, err
	}
	c.A = d.Alpha
	mode, err := ParseMode(d.Mode)
	if err != nil {
		return nil, err
	}
	if d.ID == "" {
		return nil, fmt.Errorf("stroke descriptor has no id")
	}
	return &Stroke{
		ID:      d.ID,
		Points:  d.Points,
		Color:   c,
		Width:   d.Width,
		Opacity: d.Opacity,
		Mode:    mode,
	}, nil
}

// StrokeEvent announces a vector stroke added to or removed from the scene.
type StrokeEvent struct {
	Stroke     *Stroke
	Descriptor []byte
}

var (
	StrokeAdded      = scene.NewTopic[StrokeEvent]("stroke:added")
	StrokeRemoved    = scene.NewTopic[StrokeEvent]("stroke:removed")
	BrushSizeChanged = scene.NewTopic[float64]("brush:size")
)
