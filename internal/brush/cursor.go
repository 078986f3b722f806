package brush

import (
	"image/color"

	"flow-mask/pkg/geometry"
)

// OutlineStyle is the stroke pattern of the cursor ring.
type OutlineStyle int

const (
	OutlineSolid OutlineStyle = iota
	OutlineDashed
	OutlineDotted
	OutlineNone
)

func (o OutlineStyle) String() string {
	switch o {
	case OutlineDashed:
		return "dashed"
	case OutlineDotted:
		return "dotted"
	case OutlineNone:
		return "none"
	default:
		return "solid"
	}
}

// ParseOutline maps a config string to an OutlineStyle, defaulting to solid.
func ParseOutline(s string) OutlineStyle {
	switch s {
	case "dashed":
		return OutlineDashed
	case "dotted":
		return OutlineDotted
	case "none":
		return OutlineNone
	}
	return OutlineSolid
}

// Cursor is the brush ring. Center and Radius are in scene coordinates;
// Radius already carries the 1/zoom factor so the viewport renders it at
// the brush's true paint diameter.
type Cursor struct {
	Center    geometry.Point2D
	Radius    float64
	Visible   bool
	Outline   OutlineStyle
	Secondary bool
	Primary   color.NRGBA
	Alternate color.NRGBA
	LineWidth float64
}
