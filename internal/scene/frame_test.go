package scene

import (
	"testing"

	"flow-mask/pkg/geometry"

	"github.com/stretchr/testify/assert"
)

func TestFitFrame(t *testing.T) {
	tests := []struct {
		name      string
		sw, sh    float64
		w, h      int
		wantScale float64
	}{
		{"wide image limited by width", 404, 304, 800, 400, 0.5},
		{"tall image limited by height", 404, 304, 300, 600, 0.5},
		{"exact", 104, 104, 100, 100, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FitFrame(tt.sw, tt.sh, tt.w, tt.h)
			assert.InDelta(t, tt.wantScale, f.Scale, 1e-9)
			assert.Equal(t, tt.sw/2, f.Left)
			assert.Equal(t, tt.sh/2, f.Top)
		})
	}
}

func TestFrameMappingCentersImage(t *testing.T) {
	f := ImageFrame{Width: 512, Height: 256, Left: 300, Top: 200, Scale: 0.5}
	assert.Equal(t, geometry.Pt(256, 128), f.SceneToImage(geometry.Pt(300, 200)))
	assert.Equal(t, geometry.Pt(0, 0), f.SceneToImage(geometry.Pt(172, 136)))
	assert.Equal(t, geometry.Pt(172, 136), f.ImageToScene(geometry.Pt(0, 0)))

	assert.True(t, f.Contains(geometry.Pt(0, 0)))
	assert.True(t, f.Contains(geometry.Pt(512, 256)))
	assert.False(t, f.Contains(geometry.Pt(-0.5, 10)))
	assert.False(t, f.Contains(geometry.Pt(10, 256.1)))
}
