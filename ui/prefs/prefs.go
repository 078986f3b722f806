// Package prefs keeps window state between runs: last directory, last
// image, window geometry and split position. User settings live in the
// TOML config; this file is rewritten freely by the UI.
package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"flow-mask/internal/config"
)

const prefsFile = "preferences.json"

// Keys used by the main window.
const (
	KeyLastDir     = "lastDirectory"
	KeyLastImage   = "lastImage"
	KeyWindowW     = "windowWidth"
	KeyWindowH     = "windowHeight"
	KeySplitOffset = "splitOffset"
	KeySaveOption  = "saveOption"
)

// Prefs stores application preferences as a key-value map.
type Prefs struct {
	mu     sync.RWMutex
	values map[string]any
	path   string
}

// Load reads preferences from the flow-mask config directory.
// Returns empty Prefs if the file doesn't exist.
func Load() *Prefs {
	return LoadFrom(filepath.Join(config.Dir(), prefsFile))
}

// LoadFrom reads preferences from path. A missing or unreadable file
// yields empty Prefs that will be written back to path.
func LoadFrom(path string) *Prefs {
	p := &Prefs{values: make(map[string]any), path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return p
	}
	_ = json.Unmarshal(data, &p.values)
	return p
}

// Path is where Save writes.
func (p *Prefs) Path() string { return p.path }

// Save writes preferences to disk.
func (p *Prefs) Save() error {
	p.mu.RLock()
	data, err := json.MarshalIndent(p.values, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// FloatWithFallback returns a float64 preference, or fallback if not set.
func (p *Prefs) FloatWithFallback(key string, fallback float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch n := p.values[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return fallback
}

// SetFloat stores a float64 preference.
func (p *Prefs) SetFloat(key string, val float64) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}

// String returns a string preference, or "" if not set.
func (p *Prefs) String(key string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, _ := p.values[key].(string)
	return s
}

// SetString stores a string preference.
func (p *Prefs) SetString(key string, val string) {
	p.mu.Lock()
	p.values[key] = val
	p.mu.Unlock()
}
