// Package app wires the scene host and its feature plugins into one editing session.
package app

import (
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"flow-mask/internal/brush"
	"flow-mask/internal/config"
	"flow-mask/internal/export"
	"flow-mask/internal/history"
	pimage "flow-mask/internal/image"
	"flow-mask/internal/mask"
	"flow-mask/internal/scene"

	"github.com/charmbracelet/log"
)

// Target selects what the brush draws into.
type Target int

const (
	TargetMask Target = iota
	TargetVector
)

// Session owns one Host and the plugins registered on it.
type Session struct {
	Host     *scene.Host
	Brush    *brush.Engine
	Masks    *mask.Manager
	Vector   *brush.VectorLayer
	History  *history.Coordinator
	Exporter *export.Exporter
	Saver    *export.Saver

	log     *log.Logger
	cfg     config.Config
	target  Target
	watcher *RenderWatcher

	// edit serializes every change to host and plugin state. Input handlers
	// and the render watcher both go through it.
	edit sync.Mutex

	mu     sync.Mutex
	source string
}

// NewSession builds a session from settings. Plugins are registered in
// input priority order: the brush sees pointer and key events first.
func NewSession(cfg config.Config, logger *log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	bc := cfg.BrushConfig()
	s := &Session{
		Host:   scene.NewHost(scene.WithLogger(logger)),
		Masks:  mask.NewManager(mask.WithColor(bc.Color), mask.WithOpacity(bc.Opacity)),
		Vector: brush.NewVectorLayer(),
		log:    logger.WithPrefix("session"),
		cfg:    cfg,
	}
	s.Brush = brush.NewEngine(bc, s.Masks)
	s.History = history.New(s.Masks, s.Vector, history.WithCapacity(cfg.History.MaxDepth))
	s.Exporter = export.New(cfg.Export, export.WithLogger(logger.WithPrefix("export")))
	s.Saver = export.NewSaver(s.Exporter, s.Masks, s.Vector, cfg.Paths.OutputDir)

	for _, p := range []scene.Plugin{s.Brush, s.History, s.Masks, s.Vector, s.Saver} {
		if err := s.Host.Register(p); err != nil {
			s.Host.Close()
			return nil, fmt.Errorf("register %s: %w", p.Name(), err)
		}
	}
	scene.Subscribe(s.Host.Bus(), scene.ImageLoaded, func(ev scene.ImageEvent) {
		s.mu.Lock()
		s.source = ev.Source
		s.mu.Unlock()
	})
	return s, nil
}

// Config returns the settings the session was built with.
func (s *Session) Config() config.Config { return s.cfg }

// Source is the path or name of the current image.
func (s *Session) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Do runs fn while holding the session's edit lock. Pointer, wheel and key
// input, layer edits and undo/redo must run inside Do when other goroutines
// can reach the session. fn must not call Do or any locking Session method.
func (s *Session) Do(fn func()) {
	s.edit.Lock()
	defer s.edit.Unlock()
	fn()
}

// LoadImage reads an image file and makes it the base image.
func (s *Session) LoadImage(path string) error {
	base, err := pimage.Load(path)
	if err != nil {
		return err
	}
	s.Do(func() { s.Host.SetImage(base.Image, path) })
	return nil
}

// LoadImageData decodes an in-memory image, such as an upstream preview.
func (s *Session) LoadImageData(data []byte, source string) error {
	base, err := pimage.Decode(data, source)
	if err != nil {
		return err
	}
	s.Do(func() { s.Host.SetImage(base.Image, source) })
	return nil
}

// SetImage installs an already decoded image.
func (s *Session) SetImage(img image.Image, source string) {
	nrgba := pimage.ToNRGBA(img)
	s.Do(func() { s.Host.SetImage(nrgba, source) })
}

// SetTarget routes brush strokes to the mask layers or the vector layer.
func (s *Session) SetTarget(t Target) {
	s.Do(func() {
		s.target = t
		if t == TargetVector {
			s.Brush.SetSink(s.Vector)
		} else {
			s.Brush.SetSink(s.Masks)
		}
	})
}

// Target returns the current brush target.
func (s *Session) Target() Target {
	s.edit.Lock()
	defer s.edit.Unlock()
	return s.target
}

// Save publishes a save trigger and waits for the saver's answer.
func (s *Session) Save(o export.SaveOption) ([]string, error) {
	s.edit.Lock()
	defer s.edit.Unlock()

	var res export.SaveResult
	cancel := scene.Subscribe(s.Host.Bus(), export.SaveCompleted, func(r export.SaveResult) {
		if r.Option == o {
			res = r
		}
	})
	defer cancel()
	scene.Publish(s.Host.Bus(), export.SaveTrigger, o)
	return res.Paths, res.Err
}

// UpdateExport merges export settings.
func (s *Session) UpdateExport(u export.Update) export.Config {
	s.edit.Lock()
	defer s.edit.Unlock()
	return s.Exporter.Update(u)
}

// WatchRenders loads every image that appears in dir. Loads run on the
// watcher goroutine under the edit lock, so they never interleave with input.
func (s *Session) WatchRenders(dir string) error {
	s.StopWatching()
	w := NewRenderWatcher(dir, 250*time.Millisecond, s.log.WithPrefix("watch"))
	w.OnRender(func(path string) {
		if err := s.LoadImage(path); err != nil {
			s.log.Error("failed to load render", "path", path, "err", err)
		}
	})
	if err := w.Start(); err != nil {
		return err
	}
	s.watcher = w
	return nil
}

// StopWatching stops the render watcher, if any.
func (s *Session) StopWatching() {
	if s.watcher != nil {
		s.watcher.Stop()
		s.watcher = nil
	}
}

// Close tears down all plugins.
func (s *Session) Close() {
	s.StopWatching()
	s.Host.Close()
}
