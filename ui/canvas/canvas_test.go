package canvas

import (
	"image"
	"image/color"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"flow-mask/internal/brush"
	"flow-mask/internal/mask"
	"flow-mask/internal/scene"
	"flow-mask/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyMapping(t *testing.T) {
	cases := map[fyne.KeyName]scene.Key{
		fyne.KeyZ:               scene.KeyZ,
		fyne.KeyY:               scene.KeyY,
		fyne.KeyD:               scene.KeyD,
		fyne.KeyEscape:          scene.KeyEscape,
		desktop.KeyControlLeft:  scene.KeyControl,
		desktop.KeyControlRight: scene.KeyControl,
		desktop.KeyShiftRight:   scene.KeyShift,
		desktop.KeyAltLeft:      scene.KeyAlt,
	}
	for name, want := range cases {
		got, ok := keyFor(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := keyFor(fyne.KeyQ)
	assert.False(t, ok)
}

func TestModifierTracking(t *testing.T) {
	m := scene.Modifiers{}.With(scene.KeyControl, true).With(scene.KeyShift, true)
	assert.Equal(t, scene.Modifiers{Ctrl: true, Shift: true}, m)
	m = m.With(scene.KeyControl, false).With(scene.KeyZ, true)
	assert.Equal(t, scene.Modifiers{Shift: true}, m)

	assert.Equal(t, scene.Modifiers{Ctrl: true, Alt: true},
		modifiers(fyne.KeyModifierControl|fyne.KeyModifierAlt))
}

func TestImageToDeviceMatchesHostMapping(t *testing.T) {
	f := scene.FitFrame(400, 300, 200, 100)
	v := scene.Viewport{Zoom: 1.5, PanX: 12, PanY: -7}

	for _, px := range []float64{1, 2} {
		m := imageToDevice(f, v, px)
		for _, p := range []geometry.Point2D{{X: 0, Y: 0}, {X: 200, Y: 100}, {X: 37, Y: 81}} {
			screen := v.ToScreen(f.ImageToScene(p))
			x := m[0]*p.X + m[1]*p.Y + m[2]
			y := m[3]*p.X + m[4]*p.Y + m[5]
			assert.InDelta(t, screen.X*px, x, 1e-9)
			assert.InDelta(t, screen.Y*px, y, 1e-9)
		}
	}
}

func TestComposeNativeHonoursVisibilityAndOpacity(t *testing.T) {
	base := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range base.Pix {
		base.Pix[i] = 255
	}
	red := image.NewNRGBA(base.Bounds())
	red.SetNRGBA(1, 1, color.NRGBA{R: 255, A: 255})
	blue := image.NewNRGBA(base.Bounds())
	blue.SetNRGBA(2, 2, color.NRGBA{B: 255, A: 255})

	out := composeNative(base, []*mask.Layer{
		{ID: "a", Visible: true, Opacity: 0.5, Pixels: red},
		{ID: "b", Visible: false, Opacity: 1, Pixels: blue},
	}, nil)

	c := out.NRGBAAt(1, 1)
	assert.Equal(t, uint8(255), c.R)
	assert.InDelta(t, 127, int(c.G), 2)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(2, 2))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, base.NRGBAAt(1, 1))
}

func TestCursorRingStyles(t *testing.T) {
	count := func(style brush.OutlineStyle) int {
		out := image.NewRGBA(image.Rect(0, 0, 100, 100))
		drawCursor(out, brush.Cursor{
			Center:    geometry.Pt(50, 50),
			Radius:    30,
			Visible:   true,
			Outline:   style,
			Primary:   color.NRGBA{R: 255, A: 255},
			LineWidth: 2,
		}, scene.IdentityViewport(), 1)
		n := 0
		for i := 0; i < len(out.Pix); i += 4 {
			if out.Pix[i] == 255 {
				n++
			}
		}
		return n
	}

	solid, dashed, dotted := count(brush.OutlineSolid), count(brush.OutlineDashed), count(brush.OutlineDotted)
	assert.Positive(t, dotted)
	assert.Less(t, dotted, dashed)
	assert.Less(t, dashed, solid)
	assert.Zero(t, count(brush.OutlineNone))
}

func TestCursorRingFollowsZoom(t *testing.T) {
	out := image.NewRGBA(image.Rect(0, 0, 200, 200))
	drawCursor(out, brush.Cursor{
		Center:    geometry.Pt(50, 50),
		Radius:    20,
		Visible:   true,
		Primary:   color.NRGBA{G: 255, A: 255},
		LineWidth: 1,
	}, scene.Viewport{Zoom: 2}, 1)

	// Center maps to (100,100) and the ring to radius 40.
	assert.Equal(t, uint8(255), out.RGBAAt(139, 100).G)
	assert.Zero(t, out.RGBAAt(100, 100).G)
	assert.Zero(t, out.RGBAAt(120, 100).G)
}
