package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#ff0000", Red},
		{"00ff00", color.NRGBA{G: 255, A: 255}},
		{" #FFFFFF ", White},
	}
	for _, tt := range tests {
		got, err := ParseHex(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseHex("#zzzzzz")
	assert.Error(t, err)
}

func TestHexRoundTrip(t *testing.T) {
	for _, c := range Palette {
		assert.Equal(t, c, MustParseHex(Hex(c)))
	}
}

func TestLuminance(t *testing.T) {
	assert.InDelta(t, 255, Luminance(255, 255, 255), 1e-9)
	assert.InDelta(t, 0, Luminance(0, 0, 0), 1e-9)
	assert.InDelta(t, 76.245, Luminance(255, 0, 0), 1e-9)
}
