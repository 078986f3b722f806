// Package colorutil provides shared color helpers for mask tag colors and luminance.
package colorutil

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Common colors used for masks and export backgrounds.
var (
	Black       = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	White       = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	Transparent = color.NRGBA{}
	Red         = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
)

// Palette is the rotation of tag colors offered for new masks.
var Palette = []color.NRGBA{
	Red,
	{R: 0, G: 200, B: 83, A: 255},
	{R: 41, G: 121, B: 255, A: 255},
	{R: 255, G: 214, B: 0, A: 255},
	{R: 213, G: 0, B: 249, A: 255},
	{R: 0, G: 229, B: 255, A: 255},
}

// ParseHex parses "#rrggbb" (or "#rgb") into an opaque color.
func ParseHex(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// MustParseHex is ParseHex for constants.
func MustParseHex(s string) color.NRGBA {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats the RGB part of c as "#rrggbb".
func Hex(c color.Color) string {
	cf, _ := colorful.MakeColor(opaque(c))
	return cf.Hex()
}

// ToNRGBA converts any color to an opaque NRGBA tag color.
func ToNRGBA(c color.Color) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 255
	return n
}

func opaque(c color.Color) color.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 255
	return n
}

// Luminance returns Rec. 601 luma in 0-255.
func Luminance(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}
