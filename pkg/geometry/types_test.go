package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAffineInverseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		tr   AffineTransform
	}{
		{"identity", Identity()},
		{"translate", Translation(12, -7)},
		{"zoom and pan", Translation(40, 25).Compose(Scale(2.5, 2.5))},
		{"zoom out", Translation(-3, 9).Compose(Scale(0.2, 0.2))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, ok := tt.tr.Inverse()
			require.True(t, ok)
			p := Pt(123.5, 77.25)
			back := inv.Apply(tt.tr.Apply(p))
			assert.InDelta(t, p.X, back.X, 1e-9)
			assert.InDelta(t, p.Y, back.Y, 1e-9)
		})
	}
}

func TestInverseOfSingular(t *testing.T) {
	_, ok := Scale(0, 1).Inverse()
	assert.False(t, ok)
}

func TestComposeOrder(t *testing.T) {
	// Scale first, then translate.
	tr := Translation(10, 0).Compose(Scale(2, 2))
	assert.Equal(t, Pt(12, 4), tr.Apply(Pt(1, 2)))
}

func TestRectIntMax(t *testing.T) {
	r := RectInt{X: 5, Y: 6, Width: 10, Height: 3}
	assert.Equal(t, 14, r.MaxX())
	assert.Equal(t, 8, r.MaxY())
	assert.False(t, r.Empty())
	assert.True(t, RectInt{Width: 0, Height: 4}.Empty())
}
