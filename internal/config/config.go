// Package config reads and writes the TOML settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"flow-mask/internal/brush"
	"flow-mask/internal/export"
	"flow-mask/internal/history"
	"flow-mask/pkg/colorutil"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

const (
	appDir     = "flow-mask"
	configFile = "config.toml"
)

// Config is the on-disk settings file.
type Config struct {
	Brush   Brush         `toml:"brush"`
	History History       `toml:"history"`
	Export  export.Config `toml:"export"`
	Log     Log           `toml:"log"`
	Paths   Paths         `toml:"paths"`
}

type Brush struct {
	Size        float64 `toml:"size"`
	MinSize     float64 `toml:"min_size"`
	MaxSize     float64 `toml:"max_size"`
	ResizeSpeed float64 `toml:"resize_speed"`
	Opacity     float64 `toml:"opacity"`
	Color       string  `toml:"color"`
	Outline     string  `toml:"outline"`
	Secondary   bool    `toml:"secondary_outline"`
}

type History struct {
	MaxDepth int `toml:"max_depth"`
}

type Log struct {
	Level string `toml:"level"`
}

// Paths holds the output directory for saves and the folder watched for
// upstream renders. An empty RenderDir disables watching.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	RenderDir string `toml:"render_dir"`
}

// Default returns the built-in settings.
func Default() Config {
	b := brush.DefaultConfig()
	return Config{
		Brush: Brush{
			Size:        b.Size,
			MinSize:     b.MinSize,
			MaxSize:     b.MaxSize,
			ResizeSpeed: b.ResizeSpeed,
			Opacity:     b.Opacity,
			Color:       colorutil.Hex(b.Color),
			Outline:     b.Outline.String(),
			Secondary:   b.Secondary,
		},
		History: History{MaxDepth: history.DefaultCapacity},
		Export:  export.DefaultConfig(),
		Log:     Log{Level: "info"},
		Paths:   Paths{OutputDir: "."},
	}
}

// Dir is the per-user configuration directory.
func Dir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, appDir)
}

// DefaultPath is the settings file location.
func DefaultPath() string { return filepath.Join(Dir(), configFile) }

// Load reads path on top of the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Default(), fmt.Errorf("read config %s: %w", path, err)
	}
	cfg.Export = cfg.Export.Normalize()
	if cfg.History.MaxDepth <= 0 {
		cfg.History.MaxDepth = history.DefaultCapacity
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// BrushConfig converts the file's brush section. An invalid color falls
// back to the default.
func (c Config) BrushConfig() brush.Config {
	b := brush.DefaultConfig()
	b.Size = c.Brush.Size
	b.MinSize = c.Brush.MinSize
	b.MaxSize = c.Brush.MaxSize
	b.ResizeSpeed = c.Brush.ResizeSpeed
	b.Opacity = c.Brush.Opacity
	b.Outline = brush.ParseOutline(c.Brush.Outline)
	b.Secondary = c.Brush.Secondary
	if col, err := colorutil.ParseHex(c.Brush.Color); err == nil {
		b.Color = col
	}
	return b
}

// LogLevel parses the log level, defaulting to info.
func (c Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
