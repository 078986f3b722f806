package export

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"flow-mask/internal/mask"
	"flow-mask/internal/scene"
)

// SaverPluginName is the registry name of the saver.
const SaverPluginName = "export"

// SaveResult reports the outcome of one save.
type SaveResult struct {
	Option SaveOption
	Paths  []string
	Err    error
}

var (
	SaveTrigger   = scene.NewTopic[SaveOption]("save:trigger")
	SaveCompleted = scene.NewTopic[SaveResult]("save:completed")
	ScaleChanged  = scene.NewTopic[int]("canvas:scale:changed")
)

// Overlay renders extra content for canvas flattening.
type Overlay interface {
	Render(width, height int) *image.NRGBA
}

// Saver writes export artifacts into a directory when a SaveTrigger is
// published. Failures are logged and reported through SaveCompleted; they
// never touch editing state.
type Saver struct {
	exporter *Exporter
	masks    *mask.Manager
	overlay  Overlay

	mu        sync.Mutex
	dir       string
	scale     int
	imageName string

	ctx     *scene.Context
	cancels []func()
}

// NewSaver creates a saver writing into dir. overlay may be nil.
func NewSaver(e *Exporter, masks *mask.Manager, overlay Overlay, dir string) *Saver {
	return &Saver{exporter: e, masks: masks, overlay: overlay, dir: dir, scale: 1}
}

func (s *Saver) Name() string { return SaverPluginName }

func (s *Saver) Init(ctx *scene.Context) error {
	s.ctx = ctx
	bus := ctx.Bus()
	s.cancels = append(s.cancels,
		scene.Subscribe(bus, scene.ImageLoaded, func(ev scene.ImageEvent) {
			s.mu.Lock()
			s.imageName = ev.Source
			s.mu.Unlock()
		}),
		scene.Subscribe(bus, SaveTrigger, func(o SaveOption) { s.Save(o) }),
	)
	return nil
}

func (s *Saver) Destroy() {
	for _, c := range s.cancels {
		c()
	}
	s.cancels = nil
}

// Dir returns the output directory.
func (s *Saver) Dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir
}

// SetDir changes the output directory.
func (s *Saver) SetDir(dir string) {
	s.mu.Lock()
	s.dir = dir
	s.mu.Unlock()
}

// Scale is the canvas save multiplier.
func (s *Saver) Scale() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

// SetScale sets the canvas save multiplier, clamped to [1, MaxScale].
func (s *Saver) SetScale(scale int) {
	scale = min(max(scale, 1), MaxScale)
	s.mu.Lock()
	changed := scale != s.scale
	s.scale = scale
	s.mu.Unlock()
	if changed && s.ctx != nil {
		scene.Publish(s.ctx.Bus(), ScaleChanged, scale)
	}
}

// State captures what an export would read right now.
func (s *Saver) State() State {
	var img *image.NRGBA
	if s.ctx != nil {
		img = s.ctx.Image()
	}
	s.mu.Lock()
	name := s.imageName
	s.mu.Unlock()
	return StateOf(img, name, s.masks)
}

// Save renders option o and writes its files. It returns the written paths.
func (s *Saver) Save(o SaveOption) ([]string, error) {
	paths, err := s.save(o)
	if s.ctx != nil {
		log := s.ctx.Logger("export")
		switch {
		case errors.Is(err, ErrPrecondition):
			log.Warn("nothing to export", "option", o, "reason", err)
		case err != nil:
			log.Error("export failed", "option", o, "err", err)
		default:
			log.Info("exported", "option", o, "files", len(paths))
		}
		scene.Publish(s.ctx.Bus(), SaveCompleted, SaveResult{Option: o, Paths: paths, Err: err})
	}
	return paths, err
}

func (s *Saver) save(o SaveOption) ([]string, error) {
	state := s.State()
	var overlays []*image.NRGBA
	if o == SaveCanvas && s.overlay != nil {
		w, h := state.Size()
		overlays = append(overlays, s.overlay.Render(w, h))
	}
	files, err := s.exporter.Render(o, state, s.Scale(), overlays...)
	if err != nil {
		return nil, err
	}
	return WriteFiles(s.Dir(), files)
}

// WriteFiles encodes files as PNG and writes them into dir. Everything is
// encoded before the first write, and files already written are removed
// when a later write fails, so a failure leaves no partial set.
func WriteFiles(dir string, files []Named) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	encoded := make([][]byte, len(files))
	for i, f := range files {
		data, err := EncodePNG(f.Image)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		encoded[i] = data
	}
	paths := make([]string, 0, len(files))
	for i, f := range files {
		p := filepath.Join(dir, sanitize(f.Name))
		if err := os.WriteFile(p, encoded[i], 0o644); err != nil {
			for _, written := range paths {
				os.Remove(written)
			}
			return nil, fmt.Errorf("write %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
