package mask

import (
	"image"
	"image/color"
	"testing"

	"flow-mask/internal/brush"
	"flow-mask/internal/scene"
	"flow-mask/pkg/colorutil"
	"flow-mask/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoaded(t *testing.T, w, h int, opts ...Option) (*scene.Host, *Manager) {
	t.Helper()
	host := scene.NewHost()
	host.Resize(800, 600)
	m := NewManager(opts...)
	require.NoError(t, host.Register(m))
	host.SetImage(image.NewNRGBA(image.Rect(0, 0, w, h)), "test")
	return host, m
}

func opaqueCount(img *image.NRGBA) int {
	n := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 0 {
			n++
		}
	}
	return n
}

func TestDefaultLayerOnImageLoad(t *testing.T) {
	_, m := newLoaded(t, 40, 30)
	l, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, "Mask 1", l.Name)
	assert.Equal(t, image.Rect(0, 0, 40, 30), l.Pixels.Bounds())
	assert.Zero(t, opaqueCount(l.Pixels))
}

func TestAddLayerNeedsImage(t *testing.T) {
	m := NewManager()
	_, err := m.AddLayer("x")
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestLayersMatchNativeSizeRegardlessOfView(t *testing.T) {
	host, m := newLoaded(t, 64, 48)
	host.SetViewport(scene.Viewport{Zoom: 7, PanX: 33})
	host.Resize(100, 50)
	l, err := m.AddLayer("")
	require.NoError(t, err)
	assert.Equal(t, "Mask 2", l.Name)
	assert.Equal(t, image.Rect(0, 0, 64, 48), l.Pixels.Bounds())

	active, _ := m.Active()
	assert.Equal(t, l.ID, active.ID)
	assert.Equal(t, l.ID, m.Layers()[1].ID, "new layers go on top")
}

func TestRemoveActivatesAdjacentLayer(t *testing.T) {
	host, m := newLoaded(t, 10, 10)
	var removed []LayerEvent
	scene.Subscribe(host.Bus(), LayerRemoved, func(e LayerEvent) { removed = append(removed, e) })

	first, _ := m.Active()
	second, _ := m.AddLayer("")
	third, _ := m.AddLayer("")
	require.True(t, m.SetVisible(second.ID, false))

	require.NoError(t, m.RemoveLayer(third.ID))
	active, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, second.ID, active.ID, "layer below the removed one")
	assert.False(t, active.Visible, "visibility follows the stored flag")
	assert.Len(t, m.Layers(), 2)

	m.SetActive(first.ID)
	require.NoError(t, m.RemoveLayer(first.ID))
	active, _ = m.Active()
	assert.Equal(t, second.ID, active.ID, "bottom layer removed: new bottom becomes active")

	require.NoError(t, m.RemoveLayer(second.ID))
	active, ok = m.Active()
	require.True(t, ok, "a fresh default layer replaces the last one")
	assert.Len(t, m.Layers(), 1)
	assert.NotEqual(t, second.ID, active.ID)

	assert.Len(t, removed, 3)
	assert.ErrorIs(t, m.RemoveLayer("nope"), ErrUnknownLayer)
}

func TestRemovingInactiveLayerKeepsActive(t *testing.T) {
	_, m := newLoaded(t, 10, 10)
	first, _ := m.Active()
	second, _ := m.AddLayer("")
	require.NoError(t, m.RemoveLayer(first.ID))
	active, _ := m.Active()
	assert.Equal(t, second.ID, active.ID)
}

func TestSetActiveUnknownIsNoop(t *testing.T) {
	_, m := newLoaded(t, 10, 10)
	before, _ := m.Active()
	assert.False(t, m.SetActive("missing"))
	after, _ := m.Active()
	assert.Equal(t, before.ID, after.ID)
}

func TestCircleScenario(t *testing.T) {
	_, m := newLoaded(t, 512, 512)
	require.True(t, m.PaintStroke([]geometry.Point2D{geometry.Pt(256, 256)}, 100, brush.ModePaint))

	l, _ := m.Active()
	n := opaqueCount(l.Pixels)
	area := 3.14159265 * 100 * 100
	assert.InDelta(t, area, float64(n), area*0.02)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, l.Pixels.NRGBAAt(256, 256))
}

func TestPaintUsesLayerColor(t *testing.T) {
	green := colorutil.MustParseHex("#00ff00")
	host, m := newLoaded(t, 50, 50, WithColor(green))
	e := brush.NewEngine(brush.DefaultConfig(), m) // red brush
	require.NoError(t, host.Register(e))
	host.SetDrawingMode(true)

	center := host.Viewport().ToScreen(host.Frame().ImageToScene(geometry.Pt(25, 25)))
	host.PointerDown(scene.PointerEvent{Screen: center})
	host.PointerUp(scene.PointerEvent{Screen: center})

	l, _ := m.Active()
	got := l.Pixels.NRGBAAt(25, 25)
	require.NotZero(t, got.A)
	got.A = 255
	assert.Equal(t, green, got)
}

func TestOpacityDoesNotAccumulateWithinStroke(t *testing.T) {
	_, m := newLoaded(t, 50, 50, WithOpacity(0.5))
	pts := []geometry.Point2D{geometry.Pt(20, 20), geometry.Pt(30, 20), geometry.Pt(20, 20), geometry.Pt(30, 20)}
	require.True(t, m.PaintStroke(pts, 4, brush.ModePaint))
	l, _ := m.Active()
	assert.Equal(t, uint8(128), l.Pixels.NRGBAAt(25, 20).A)

	require.True(t, m.PaintStroke(pts, 4, brush.ModePaint))
	assert.InDelta(t, 191.5, float64(l.Pixels.NRGBAAt(25, 20).A), 1, "a second stroke does build up")
}

func TestEraseIsAlphaSubtraction(t *testing.T) {
	_, m := newLoaded(t, 50, 50)
	require.True(t, m.PaintStroke([]geometry.Point2D{geometry.Pt(10, 25), geometry.Pt(40, 25)}, 5, brush.ModePaint))
	require.True(t, m.PaintStroke([]geometry.Point2D{geometry.Pt(25, 25)}, 3, brush.ModeErase))

	l, _ := m.Active()
	assert.Zero(t, l.Pixels.NRGBAAt(25, 25).A)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, l.Pixels.NRGBAAt(12, 25), "outside the eraser the color is untouched")
}

func TestPaintingOffImageNeverTouchesBuffers(t *testing.T) {
	host, m := newLoaded(t, 30, 30)
	second, _ := m.AddLayer("")
	strokes := 0
	scene.Subscribe(host.Bus(), MaskStrokeAdded, func(StrokeEvent) { strokes++ })

	assert.False(t, m.PaintStroke([]geometry.Point2D{geometry.Pt(-5, 10)}, 20, brush.ModePaint))
	assert.False(t, m.PaintStroke([]geometry.Point2D{geometry.Pt(10, 30.5), geometry.Pt(31, 31)}, 20, brush.ModePaint))
	for _, l := range m.Layers() {
		assert.Zero(t, opaqueCount(l.Pixels), l.Name)
	}
	assert.Zero(t, strokes)
	_ = second
}

func TestNoActiveLayerIsSilent(t *testing.T) {
	m := NewManager()
	assert.False(t, m.PaintStroke([]geometry.Point2D{geometry.Pt(1, 1)}, 2, brush.ModePaint))
}

func TestStrokeEventCarriesBeforeSnapshot(t *testing.T) {
	host, m := newLoaded(t, 20, 20)
	var events []StrokeEvent
	scene.Subscribe(host.Bus(), MaskStrokeAdded, func(e StrokeEvent) { events = append(events, e) })

	l, _ := m.Active()
	require.True(t, m.PaintStroke([]geometry.Point2D{geometry.Pt(5, 5)}, 2, brush.ModePaint))
	after, _ := m.Snapshot(l.ID)
	require.True(t, m.PaintStroke([]geometry.Point2D{geometry.Pt(15, 15)}, 2, brush.ModeErase))

	require.Len(t, events, 2)
	assert.Equal(t, l.ID, events[0].LayerID)
	assert.Zero(t, opaqueCount(&image.NRGBA{Pix: events[0].Before, Stride: 80, Rect: image.Rect(0, 0, 20, 20)}))
	assert.Equal(t, after, events[1].Before)
	assert.Equal(t, brush.ModeErase, events[1].Mode)
}

func TestRecolorPreservesAlpha(t *testing.T) {
	_, m := newLoaded(t, 20, 20)
	l, _ := m.Active()
	l.Pixels.SetNRGBA(1, 1, color.NRGBA{R: 255, A: 77})
	l.Pixels.SetNRGBA(2, 2, color.NRGBA{R: 9, G: 9, B: 9, A: 0})

	blue := colorutil.MustParseHex("#0000ff")
	require.True(t, m.Recolor(l.ID, blue))
	assert.Equal(t, color.NRGBA{B: 255, A: 77}, l.Pixels.NRGBAAt(1, 1))
	assert.Equal(t, color.NRGBA{R: 9, G: 9, B: 9, A: 0}, l.Pixels.NRGBAAt(2, 2))
	assert.Equal(t, blue, l.Color)
	assert.False(t, m.Recolor("missing", blue))
}

func TestVisibilityNeverDiscardsData(t *testing.T) {
	_, m := newLoaded(t, 20, 20)
	require.True(t, m.PaintStroke([]geometry.Point2D{geometry.Pt(10, 10)}, 3, brush.ModePaint))
	l, _ := m.Active()
	before, _ := m.Snapshot(l.ID)

	m.SetAllVisible(false)
	assert.False(t, l.Visible)
	m.SetAllVisible(true)
	after, _ := m.Snapshot(l.ID)
	assert.Equal(t, before, after)
}

func TestReorder(t *testing.T) {
	_, m := newLoaded(t, 10, 10)
	a, _ := m.Active()
	b, _ := m.AddLayer("")
	c, _ := m.AddLayer("")

	idx, ok := m.Reorder(a.ID, 5)
	require.True(t, ok)
	assert.Equal(t, 2, idx)
	ids := func() []string {
		var out []string
		for _, l := range m.Layers() {
			out = append(out, l.ID)
		}
		return out
	}
	assert.Equal(t, []string{b.ID, c.ID, a.ID}, ids())

	idx, _ = m.Reorder(c.ID, -1)
	assert.Equal(t, 0, idx)
	assert.Equal(t, []string{c.ID, b.ID, a.ID}, ids())

	_, ok = m.Reorder("missing", 1)
	assert.False(t, ok)
}

func TestRestoreValidatesSize(t *testing.T) {
	_, m := newLoaded(t, 4, 4)
	l, _ := m.Active()
	assert.ErrorIs(t, m.Restore(l.ID, make([]byte, 3)), ErrSizeMismatch)
	assert.ErrorIs(t, m.Restore("missing", nil), ErrUnknownLayer)

	pix := make([]byte, 4*4*4)
	pix[3] = 200
	require.NoError(t, m.Restore(l.ID, pix))
	assert.Equal(t, uint8(200), l.Pixels.Pix[3])
}

func TestClearIsAnEraseStroke(t *testing.T) {
	host, m := newLoaded(t, 10, 10)
	var events []StrokeEvent
	scene.Subscribe(host.Bus(), MaskStrokeAdded, func(e StrokeEvent) { events = append(events, e) })
	require.True(t, m.PaintStroke([]geometry.Point2D{geometry.Pt(5, 5)}, 2, brush.ModePaint))
	l, _ := m.Active()
	require.True(t, m.Clear(l.ID))
	assert.Zero(t, opaqueCount(l.Pixels))
	require.Len(t, events, 2)
	assert.NotZero(t, opaqueCount(&image.NRGBA{Pix: events[1].Before, Stride: 40, Rect: image.Rect(0, 0, 10, 10)}))
}
