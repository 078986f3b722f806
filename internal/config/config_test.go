package config

import (
	"os"
	"path/filepath"
	"testing"

	"flow-mask/internal/brush"
	"flow-mask/internal/history"
	"flow-mask/pkg/colorutil"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[brush]
size = 40
color = "#00ff00"
outline = "dashed"

[history]
max_depth = 0

[export]
padding = -10
blur_mask = 5

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 40.0, cfg.Brush.Size)
	assert.Equal(t, 500.0, cfg.Brush.MaxSize, "unset keys keep defaults")
	assert.Equal(t, history.DefaultCapacity, cfg.History.MaxDepth)
	assert.Equal(t, 0, cfg.Export.Padding)
	assert.Equal(t, 5, cfg.Export.BlurMask)
	assert.True(t, cfg.Export.BW)
	assert.Equal(t, log.DebugLevel, cfg.LogLevel())

	b := cfg.BrushConfig()
	assert.Equal(t, brush.OutlineDashed, b.Outline)
	assert.Equal(t, colorutil.MustParseHex("#00ff00"), b.Color)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[brush\nsize="), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := Default()
	cfg.Paths.RenderDir = "/tmp/renders"
	cfg.Export.Padding = 12
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestBadColorFallsBack(t *testing.T) {
	cfg := Default()
	cfg.Brush.Color = "not a color"
	assert.Equal(t, brush.DefaultConfig().Color, cfg.BrushConfig().Color)
	cfg.Log.Level = "loud"
	assert.Equal(t, log.InfoLevel, cfg.LogLevel())
}
