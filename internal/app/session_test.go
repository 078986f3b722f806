package app

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"flow-mask/internal/brush"
	"flow-mask/internal/config"
	"flow-mask/internal/export"
	"flow-mask/internal/history"
	"flow-mask/internal/scene"
	"flow-mask/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetNRGBA(0, 0, color.NRGBA{A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newSession(t *testing.T) *Session {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	s, err := NewSession(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	s.Host.Resize(404, 404)
	require.NoError(t, s.LoadImageData(pngBytes(t, 400, 400), "upload.png"))
	return s
}

func opaque(pix []byte) int {
	n := 0
	for i := 3; i < len(pix); i += 4 {
		if pix[i] > 0 {
			n++
		}
	}
	return n
}

func TestPointerStrokeUndoRedo(t *testing.T) {
	s := newSession(t)
	h := s.Host
	h.SetFocus(true)
	h.SetDrawingMode(true)

	l, ok := s.Masks.Active()
	require.True(t, ok)
	before, _ := s.Masks.Snapshot(l.ID)

	h.PointerDown(scene.PointerEvent{Screen: geometry.Pt(150, 200)})
	h.PointerMove(scene.PointerEvent{Screen: geometry.Pt(250, 200)})
	h.PointerUp(scene.PointerEvent{Screen: geometry.Pt(250, 200)})

	after, _ := s.Masks.Snapshot(l.ID)
	require.NotZero(t, opaque(after))
	u, _ := s.History.Depth(history.FamilyRaster)
	assert.Equal(t, 1, u)

	assert.True(t, h.KeyDown(scene.KeyEvent{Key: scene.KeyZ, Mods: scene.Modifiers{Ctrl: true}}))
	undone, _ := s.Masks.Snapshot(l.ID)
	assert.Equal(t, before, undone)

	assert.True(t, h.KeyDown(scene.KeyEvent{Key: scene.KeyY, Mods: scene.Modifiers{Ctrl: true}}))
	redone, _ := s.Masks.Snapshot(l.ID)
	assert.Equal(t, after, redone)
}

func TestPanDoesNotShiftStrokes(t *testing.T) {
	s := newSession(t)
	h := s.Host
	h.SetDrawingMode(true)
	h.SetViewport(scene.Viewport{Zoom: 2, PanX: -100, PanY: -100})

	screen := geometry.Pt(300, 300)
	want := h.ScreenToImage(screen)
	h.PointerDown(scene.PointerEvent{Screen: screen})
	h.PointerUp(scene.PointerEvent{Screen: screen})

	l, _ := s.Masks.Active()
	c := l.Pixels.NRGBAAt(int(want.X), int(want.Y))
	assert.NotZero(t, c.A)
}

func TestVectorTarget(t *testing.T) {
	s := newSession(t)
	s.SetTarget(TargetVector)
	s.Host.SetDrawingMode(true)
	s.Host.PointerDown(scene.PointerEvent{Screen: geometry.Pt(100, 100)})
	s.Host.PointerMove(scene.PointerEvent{Screen: geometry.Pt(120, 120)})
	s.Host.PointerUp(scene.PointerEvent{Screen: geometry.Pt(120, 120)})

	require.Len(t, s.Vector.Strokes(), 1)
	l, _ := s.Masks.Active()
	assert.Zero(t, opaque(l.Pixels.Pix), "vector strokes do not touch masks")

	require.True(t, s.History.Undo())
	assert.Empty(t, s.Vector.Strokes())
}

func TestSessionSave(t *testing.T) {
	s := newSession(t)
	_, err := s.Save(export.SaveCroppedMask)
	assert.ErrorIs(t, err, export.ErrEmptyMask)

	require.True(t, s.Masks.PaintStroke([]geometry.Point2D{geometry.Pt(200, 200)}, 30, brush.ModePaint))
	paths, err := s.Save(export.SaveCroppedMask)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, s.Config().Paths.OutputDir, filepath.Dir(paths[0]))
	assert.Equal(t, "upload.png", s.Source())
}

func TestRenderWatcherLoadsImages(t *testing.T) {
	s := newSession(t)
	dir := t.TempDir()
	loaded := make(chan string, 1)
	scene.Subscribe(s.Host.Bus(), scene.ImageLoaded, func(ev scene.ImageEvent) {
		select {
		case loaded <- ev.Source:
		default:
		}
	})
	require.NoError(t, s.WatchRenders(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	path := filepath.Join(dir, "render.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 32, 16), 0o644))

	select {
	case src := <-loaded:
		assert.Equal(t, path, src)
	case <-time.After(5 * time.Second):
		t.Fatal("render was not loaded")
	}
}

func TestRenderLoadsSerializeWithInput(t *testing.T) {
	s := newSession(t)
	h := s.Host
	h.SetFocus(true)
	h.SetDrawingMode(true)

	loaded := make(chan struct{})
	var once sync.Once
	scene.Subscribe(h.Bus(), scene.ImageLoaded, func(scene.ImageEvent) {
		once.Do(func() { close(loaded) })
	})

	dir := t.TempDir()
	require.NoError(t, s.WatchRenders(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "render.png"), pngBytes(t, 64, 64), 0o644))

	deadline := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case <-loaded:
			done = true
		case <-deadline:
			t.Fatal("render was not loaded")
		default:
		}

		var undone bool
		s.Do(func() {
			h.PointerDown(scene.PointerEvent{Screen: geometry.Pt(150, 200)})
			h.PointerMove(scene.PointerEvent{Screen: geometry.Pt(250, 200)})
			h.PointerUp(scene.PointerEvent{Screen: geometry.Pt(250, 200)})
			undone = s.History.Undo()
		})
		require.True(t, undone, "a stroke finished inside one edit must be undoable")
	}

	s.Do(func() {
		require.NotNil(t, h.Image())
		assert.Equal(t, 64, h.Image().Bounds().Dx())
		assert.False(t, s.History.CanUndo())
	})
}
