package export

import (
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"flow-mask/internal/brush"
	"flow-mask/internal/mask"
	"flow-mask/internal/scene"
	"flow-mask/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rectMask(w, h int, r image.Rectangle, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func gradientImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: uint8((x + y) % 256)})
		}
	}
	return img
}

var red = color.NRGBA{R: 255, A: 255}

func plain() Config {
	return Config{ResizeDimensions: 1024}
}

func TestBoundingBoxRectangle(t *testing.T) {
	m := rectMask(100, 80, image.Rect(12, 7, 12+30, 7+20), red)
	box, ok := BoundingBox(m)
	require.True(t, ok)
	assert.Equal(t, 12, box.MinX)
	assert.Equal(t, 7, box.MinY)
	assert.Equal(t, 12+30-1, box.MaxX)
	assert.Equal(t, 7+20-1, box.MaxY)
	assert.False(t, box.TouchesLeft || box.TouchesTop || box.TouchesRight || box.TouchesBottom)
}

func TestBoundingBoxEmptyAndEdges(t *testing.T) {
	_, ok := BoundingBox(image.NewNRGBA(image.Rect(0, 0, 10, 10)))
	assert.False(t, ok)

	box, ok := BoundingBox(rectMask(10, 10, image.Rect(0, 4, 10, 10), red))
	require.True(t, ok)
	assert.True(t, box.TouchesLeft)
	assert.True(t, box.TouchesRight)
	assert.True(t, box.TouchesBottom)
	assert.False(t, box.TouchesTop)
}

func TestExpandSkipsTouchingEdges(t *testing.T) {
	box, _ := BoundingBox(rectMask(100, 100, image.Rect(0, 40, 50, 60), red))
	assert.Equal(t, image.Rect(0, 15, 75, 85), box.Expand(25, 0))
	assert.Equal(t, image.Rect(-5, 10, 80, 90), box.Expand(25, 5))
}

func TestTargetSize(t *testing.T) {
	tests := []struct {
		w, h, d int
		keep    bool
		ow, oh  int
	}{
		{200, 100, 1024, true, 1024, 512},
		{100, 300, 1024, true, 341, 1024},
		{640, 480, 512, true, 512, 384},
		{640, 480, 512, false, 512, 512},
	}
	for _, tt := range tests {
		w, h := TargetSize(tt.w, tt.h, tt.d, tt.keep)
		assert.Equal(t, tt.ow, w, "%dx%d", tt.w, tt.h)
		assert.Equal(t, tt.oh, h, "%dx%d", tt.w, tt.h)
		if tt.keep {
			assert.Equal(t, tt.d, max(w, h))
			assert.InDelta(t, float64(tt.w)/float64(tt.h), float64(w)/float64(h), 0.05)
		}
	}
}

func TestBinarizeIdempotent(t *testing.T) {
	m := rectMask(20, 20, image.Rect(5, 5, 15, 15), color.NRGBA{R: 10, G: 200, A: 3})
	m.SetNRGBA(0, 0, color.NRGBA{A: 255})
	m.SetNRGBA(1, 0, color.NRGBA{R: 1, A: 255})

	once := Binarize(m)
	twice := Binarize(once)
	assert.Equal(t, once.Pix, twice.Pix)

	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, once.NRGBAAt(7, 7))
	assert.Equal(t, color.NRGBA{A: 255}, once.NRGBAAt(0, 0), "opaque black is background")
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, once.NRGBAAt(1, 0))
	assert.Equal(t, color.NRGBA{A: 255}, once.NRGBAAt(19, 19))
}

func TestAlphaMaskZeroesRGB(t *testing.T) {
	m := Binarize(rectMask(4, 4, image.Rect(0, 0, 2, 4), red))
	a := AlphaMask(m)
	assert.Equal(t, color.NRGBA{A: 255}, a.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{}, a.NRGBAAt(3, 3))
}

func TestAlphaOnImageNeverExceedsImageAlpha(t *testing.T) {
	img := gradientImage(64, 64)
	m := rectMask(64, 64, image.Rect(10, 10, 50, 50), red)
	e := New(Config{BW: true, BlurMask: 3})
	s := State{Image: img, Masks: []Mask{{Name: "m", Pixels: m}}, Active: 0}

	out, err := e.MaskAlphaOnImage(s)
	require.NoError(t, err)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			require.LessOrEqual(t, out.NRGBAAt(x, y).A, img.NRGBAAt(x, y).A)
		}
	}

	res, err := e.CropWith(s, Config{Padding: 20, BW: true, BlurMask: 4})
	require.NoError(t, err)
	for y := 0; y < res.Image.Bounds().Dy(); y++ {
		for x := 0; x < res.Image.Bounds().Dx(); x++ {
			require.LessOrEqual(t, res.AlphaOnImage.NRGBAAt(x, y).A, res.Image.NRGBAAt(x, y).A)
		}
	}
}

func TestCropPreconditions(t *testing.T) {
	e := New(DefaultConfig())
	_, err := e.Crop(State{Active: -1})
	assert.ErrorIs(t, err, ErrNoActiveMask)
	assert.ErrorIs(t, err, ErrPrecondition)

	s := State{Masks: []Mask{{Name: "a", Pixels: image.NewNRGBA(image.Rect(0, 0, 5, 5))}}, Active: 0}
	_, err = e.Crop(s)
	assert.ErrorIs(t, err, ErrEmptyMask)

	_, err = e.CropImage(s, plain())
	assert.ErrorIs(t, err, ErrNoImage)
	_, err = e.AllMasksCombined(State{Active: -1})
	assert.ErrorIs(t, err, ErrNoMasks)
}

func TestCropPaddingAndGeometry(t *testing.T) {
	img := gradientImage(100, 100)
	m := rectMask(100, 100, image.Rect(0, 30, 40, 60), red)
	s := State{Image: img, Masks: []Mask{{Name: "m", Pixels: m}}, Active: 0}

	res, err := New(plain()).CropWith(s, Config{Padding: 20})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 20, 50, 70), res.Region)
	assert.Equal(t, Geometry{X: 0, Y: 30, Width: 40, Height: 30, ResizePaddingWidth: 50, ResizePaddingHeight: 50}, res.Geometry)
	assert.Equal(t, image.Rect(0, 0, 50, 50), res.Image.Bounds())
	assert.Equal(t, img.NRGBAAt(5, 25), res.Image.NRGBAAt(5, 5), "image is cropped with the same region")
	assert.Zero(t, res.Mask.NRGBAAt(45, 5).A, "padding is transparent")
}

func TestCropPaddingBeyondImageIsTransparent(t *testing.T) {
	img := gradientImage(20, 20)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	m := rectMask(20, 20, image.Rect(2, 2, 18, 18), red)
	s := State{Image: img, Masks: []Mask{{Name: "m", Pixels: m}}, Active: 0}
	res, err := New(plain()).CropWith(s, Config{Padding: 10})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(-3, -3, 23, 23), res.Region)
	assert.Zero(t, res.Image.NRGBAAt(0, 0).A)
	assert.Equal(t, uint8(255), res.Image.NRGBAAt(3, 3).A)
}

func TestCropResizeKeepsAspect(t *testing.T) {
	m := rectMask(300, 300, image.Rect(50, 100, 250, 150), red)
	s := State{Masks: []Mask{{Name: "m", Pixels: m}}, Active: 0}
	res, err := New(plain()).CropWith(s, Config{ResizeMask: true, ResizeDimensions: 400, ResizeKeepProportion: true, BW: true})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 100), res.Mask.Bounds())
	assert.Equal(t, 400, res.Geometry.ResizePaddingWidth)
	assert.Equal(t, 100, res.Geometry.ResizePaddingHeight)
}

func TestCropBlurIsOpaque(t *testing.T) {
	m := rectMask(60, 60, image.Rect(20, 20, 40, 40), red)
	s := State{Masks: []Mask{{Name: "m", Pixels: m}}, Active: 0}
	res, err := New(plain()).CropWith(s, Config{Padding: 20, BW: true, BlurMask: 3})
	require.NoError(t, err)
	for i := 3; i < len(res.Mask.Pix); i += 4 {
		require.Equal(t, uint8(255), res.Mask.Pix[i])
	}
	center := res.Mask.NRGBAAt(15, 15)
	corner := res.Mask.NRGBAAt(0, 0)
	assert.Greater(t, center.R, uint8(200))
	assert.Less(t, corner.R, uint8(30))
}

func TestConfigMerge(t *testing.T) {
	c := DefaultConfig().Merge(Update{Padding: Int(0), BW: Bool(false)})
	assert.Equal(t, 0, c.Padding)
	assert.False(t, c.BW)
	assert.Equal(t, 25, c.BlurMask, "untouched fields survive")
	assert.Equal(t, 1024, c.ResizeDimensions)

	c = c.Merge(Update{BlurMask: Int(-4), ResizeDimensions: Int(0)})
	assert.Equal(t, 0, c.BlurMask)
	assert.False(t, c.ResizeMask)
}

func TestCroppedMaskFilename(t *testing.T) {
	assert.Equal(t,
		"Mask 1_cropped_padded_50_resized_1024x1024_proportional_blurred_25_bw_true.png",
		CroppedMaskFilename("Mask 1", DefaultConfig()))
	assert.Equal(t, "Mask 1_cropped.png", CroppedMaskFilename("Mask 1", Config{}))
	assert.Equal(t, "photo_cropped_padded_50_resized_1024x1024_proportional.png",
		CroppedImageFilename("photo", DefaultConfig()))
}

func TestParseOption(t *testing.T) {
	o, err := ParseOption("Cropped Mask")
	require.NoError(t, err)
	assert.Equal(t, SaveCroppedMask, o)
	o, err = ParseOption("saveAllMasksCombinedBW")
	require.NoError(t, err)
	assert.Equal(t, SaveAllMasksCombinedBW, o)
	_, err = ParseOption("nope")
	assert.ErrorIs(t, err, ErrUnknownOption)
}

func TestCombinedBlackWhite(t *testing.T) {
	a := rectMask(10, 10, image.Rect(0, 0, 3, 3), red)
	b := rectMask(10, 10, image.Rect(6, 6, 10, 10), color.NRGBA{G: 255, A: 255})
	s := State{Masks: []Mask{{Name: "a", Pixels: a}, {Name: "b", Pixels: b}}, Active: 1}
	out, err := New(plain()).CombinedBlackWhite(s)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(1, 1))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(8, 8))
	assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(5, 5))
}

func TestCombinedOnImageKeepsImage(t *testing.T) {
	white := rectMask(8, 8, image.Rect(0, 0, 8, 8), color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	m := rectMask(8, 8, image.Rect(0, 0, 1, 1), red)
	s := State{Image: white, Masks: []Mask{{Name: "m", Pixels: m, Visible: true}}, Active: 0}
	e := New(plain())

	onImage, err := e.Render(SaveAllMasksCombinedOnImage, s, 1)
	require.NoError(t, err)
	require.Len(t, onImage, 1)
	alpha, err := e.Render(SaveAllMasksCombinedAlphaOnImage, s, 1)
	require.NoError(t, err)
	require.Len(t, alpha, 1)

	out := onImage[0].Image
	assert.Equal(t, "combined_masks_on_image.png", onImage[0].Name)
	assert.Equal(t, red, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(7, 7))
	assert.NotEqual(t, alpha[0].Image.Pix, out.Pix)
}

func TestWriteFilesLeavesNoPartialSet(t *testing.T) {
	dir := t.TempDir()
	img := rectMask(4, 4, image.Rect(0, 0, 2, 2), red)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "b.png"), 0o755))

	paths, err := WriteFiles(dir, []Named{{Name: "a.png", Image: img}, {Name: "b.png", Image: img}})
	require.Error(t, err)
	assert.Nil(t, paths)
	_, err = os.Stat(filepath.Join(dir, "a.png"))
	assert.True(t, os.IsNotExist(err), "first file must be removed after the second write fails")

	paths, err = WriteFiles(dir, []Named{{Name: "a.png", Image: img}, {Name: "c.png", Image: img}})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "c.png")}, paths)
}

func TestFlattenScale(t *testing.T) {
	img := gradientImage(8, 6)
	m := rectMask(8, 6, image.Rect(0, 0, 2, 2), red)
	s := State{Image: img, Masks: []Mask{{Name: "m", Pixels: m, Visible: true}}, Active: 0}
	out, err := New(plain()).Flatten(s, 3)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 24, 18), out.Bounds())
	out, err = New(plain()).Flatten(s, 50)
	require.NoError(t, err)
	assert.Equal(t, 8*MaxScale, out.Bounds().Dx())
}

func TestEncodeResult(t *testing.T) {
	img := gradientImage(30, 30)
	m := rectMask(30, 30, image.Rect(5, 5, 20, 20), red)
	res, err := New(plain()).CropWith(State{Image: img, Masks: []Mask{{Name: "m", Pixels: m}}, Active: 0}, Config{BW: true})
	require.NoError(t, err)
	assets, err := res.Encode()
	require.NoError(t, err)
	require.Len(t, assets, 4)
	assert.Equal(t, AssetMask, assets[0].Name)
	assert.Equal(t, AssetAlphaOnImage, assets[3].Name)
	assert.Equal(t, []byte("\x89PNG"), assets[0].Data[:4])

	_, err = EncodePNG(nil)
	assert.ErrorIs(t, err, ErrEncode)
}

func TestCircleScenario(t *testing.T) {
	host := scene.NewHost()
	host.Resize(800, 600)
	masks := mask.NewManager()
	require.NoError(t, host.Register(masks))
	host.SetImage(gradientImage(512, 512), "scene.png")

	l, ok := masks.Active()
	require.True(t, ok)
	assert.Equal(t, "Mask 1", l.Name)
	require.True(t, masks.PaintStroke([]geometry.Point2D{geometry.Pt(256, 256)}, 100, brush.ModePaint))

	e := New(DefaultConfig())
	e.Update(Update{Padding: Int(0), ResizeMask: Bool(false), BlurMask: Int(0), BW: Bool(false)})
	files, err := e.Render(SaveCroppedMask, StateOf(host.Image(), "scene.png", masks), 1)
	require.NoError(t, err)
	require.Len(t, files, 1)
	out := files[0].Image

	box, ok := BoundingBox(out)
	require.True(t, ok)
	assert.InDelta(t, 200, box.Width(), 2)
	assert.InDelta(t, 200, box.Height(), 2)

	n := 0
	for i := 3; i < len(out.Pix); i += 4 {
		if out.Pix[i] > 0 {
			n++
		}
	}
	area := math.Pi * 100 * 100
	assert.InEpsilon(t, area, float64(n), 0.02)
}

func TestSaverWritesFiles(t *testing.T) {
	host := scene.NewHost()
	host.Resize(400, 400)
	masks := mask.NewManager()
	require.NoError(t, host.Register(masks))
	dir := t.TempDir()
	saver := NewSaver(New(DefaultConfig()), masks, nil, dir)
	require.NoError(t, host.Register(saver))
	host.SetImage(gradientImage(64, 64), "/tmp/photo.jpg")
	require.True(t, masks.PaintStroke([]geometry.Point2D{geometry.Pt(32, 32)}, 10, brush.ModePaint))

	var results []SaveResult
	scene.Subscribe(host.Bus(), SaveCompleted, func(r SaveResult) { results = append(results, r) })

	scene.Publish(host.Bus(), SaveTrigger, SaveCroppedImage)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.Len(t, results[0].Paths, 1)
	assert.Equal(t, filepath.Join(dir, "photo_cropped_padded_50_resized_1024x1024_proportional.png"), results[0].Paths[0])
	_, err := os.Stat(results[0].Paths[0])
	assert.NoError(t, err)

	paths, err := saver.Save(SaveAllMasksAlphaOnImage)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "Mask 1_alpha_on_image.png")}, paths)

	l, _ := masks.Active()
	require.True(t, masks.Clear(l.ID))
	_, err = saver.Save(SaveCroppedMask)
	assert.ErrorIs(t, err, ErrEmptyMask)
	assert.ErrorIs(t, results[len(results)-1].Err, ErrEmptyMask)
}
