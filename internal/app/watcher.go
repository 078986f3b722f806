package app

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	pimage "flow-mask/internal/image"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// RenderWatcher watches a folder for images written by an upstream renderer
// and reports each finished file once. Writes are debounced because
// renderers usually write a file in several chunks.
type RenderWatcher struct {
	dir      string
	debounce time.Duration
	onRender func(path string)
	log      *log.Logger

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewRenderWatcher creates a watcher for dir. Call Start to begin.
func NewRenderWatcher(dir string, debounce time.Duration, logger *log.Logger) *RenderWatcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &RenderWatcher{
		dir:      dir,
		debounce: debounce,
		log:      logger,
		pending:  make(map[string]*time.Timer),
	}
}

// OnRender sets the callback for finished images. It is called from a
// background goroutine.
func (w *RenderWatcher) OnRender(callback func(path string)) {
	w.onRender = callback
}

// Dir returns the watched folder.
func (w *RenderWatcher) Dir() string { return w.dir }

// Start begins watching in a background goroutine.
func (w *RenderWatcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.watchLoop()
	w.log.Info("watching renders", "dir", w.dir)
	return nil
}

// Stop stops the watcher and cancels pending notifications.
func (w *RenderWatcher) Stop() {
	if w.watcher == nil {
		return
	}
	close(w.stopCh)
	w.watcher.Close()
	<-w.done
	w.watcher = nil

	w.mu.Lock()
	for p, t := range w.pending {
		t.Stop()
		delete(w.pending, p)
	}
	w.mu.Unlock()
}

func (w *RenderWatcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !pimage.IsSupportedPath(ev.Name) {
				continue
			}
			w.schedule(filepath.Clean(ev.Name))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "err", err)
		}
	}
}

func (w *RenderWatcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.log.Debug("render finished", "path", path)
		if w.onRender != nil {
			w.onRender(path)
		}
	})
}
