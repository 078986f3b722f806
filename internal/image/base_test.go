package image

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodePNG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 7, 3))
	src.Set(2, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	b, err := Decode(encodePNG(t, src), "upload.png")
	require.NoError(t, err)
	assert.Equal(t, "png", b.Format)
	assert.Equal(t, "image/png", b.MIME)
	assert.Equal(t, 7, b.Width())
	assert.Equal(t, 3, b.Height())
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, b.Image.NRGBAAt(2, 1))
}

func TestDecodeRejectsNonImages(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"), "notes.png")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, image.NewNRGBA(image.Rect(0, 0, 4, 5))), 0o644))

	b, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, b.Source)
	assert.Equal(t, 4, b.Width())

	_, err = Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestToNRGBARebasesOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 14, 12))
	src.Set(11, 10, color.RGBA{R: 255, A: 255})
	out := ToNRGBA(src)
	assert.Equal(t, image.Rect(0, 0, 4, 2), out.Bounds())
	assert.Equal(t, uint8(255), out.NRGBAAt(1, 0).R)
}

func TestIsSupportedPath(t *testing.T) {
	assert.True(t, IsSupportedPath("a/B.TIFF"))
	assert.False(t, IsSupportedPath("a/b.txt"))
}
