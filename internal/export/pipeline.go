package export

import (
	"image"
	"io"

	"flow-mask/internal/mask"

	"github.com/charmbracelet/log"
)

// Mask is one mask layer as seen by the exporter.
type Mask struct {
	Name    string
	Pixels  *image.NRGBA
	Visible bool
}

// State is the editor state an export reads. Masks are in paint order;
// Active indexes into Masks or is -1.
type State struct {
	Image     *image.NRGBA
	ImageName string
	Masks     []Mask
	Active    int
}

// ActiveMask returns the active mask, if any.
func (s State) ActiveMask() (Mask, bool) {
	if s.Active < 0 || s.Active >= len(s.Masks) {
		return Mask{}, false
	}
	return s.Masks[s.Active], true
}

// Size returns the native size of the editing surface.
func (s State) Size() (int, int) {
	if s.Image != nil {
		return s.Image.Bounds().Dx(), s.Image.Bounds().Dy()
	}
	for _, m := range s.Masks {
		return m.Pixels.Bounds().Dx(), m.Pixels.Bounds().Dy()
	}
	return 0, 0
}

// StateOf captures the current state of a mask manager. Hidden layers are
// included; only Flatten honors visibility.
func StateOf(img *image.NRGBA, imageName string, m *mask.Manager) State {
	s := State{Image: img, ImageName: imageName, Active: -1}
	if m == nil {
		return s
	}
	active, hasActive := m.Active()
	for _, l := range m.Layers() {
		if hasActive && l.ID == active.ID {
			s.Active = len(s.Masks)
		}
		s.Masks = append(s.Masks, Mask{Name: l.Name, Pixels: l.Pixels, Visible: l.Visible})
	}
	return s
}

// Geometry locates a crop in original image coordinates. X, Y, Width and
// Height are the unpadded mask bounds; the resize padding fields are the
// final output size after padding and resizing.
type Geometry struct {
	X                   int `json:"x"`
	Y                   int `json:"y"`
	Width               int `json:"width"`
	Height              int `json:"height"`
	ResizePaddingWidth  int `json:"resizePaddingWidth"`
	ResizePaddingHeight int `json:"resizePaddingHeight"`
}

// Result holds the crop pipeline outputs. Region is the padded crop
// rectangle in image coordinates and may extend past the image.
type Result struct {
	Mask         *image.NRGBA
	Image        *image.NRGBA
	AlphaMask    *image.NRGBA
	AlphaOnImage *image.NRGBA
	Geometry     Geometry
	Region       image.Rectangle
}

// Names of the packaged crop artifacts.
const (
	AssetMask         = "mask"
	AssetImage        = "image"
	AssetAlphaMask    = "alphaMask"
	AssetAlphaOnImage = "alphaOnImage"
)

// Images returns the artifacts keyed by asset name. Image entries are
// omitted when no base image was loaded.
func (r *Result) Images() map[string]*image.NRGBA {
	out := map[string]*image.NRGBA{
		AssetMask:      r.Mask,
		AssetAlphaMask: r.AlphaMask,
	}
	if r.Image != nil {
		out[AssetImage] = r.Image
		out[AssetAlphaOnImage] = r.AlphaOnImage
	}
	return out
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithFilters sets the resize and blur backend.
func WithFilters(f Filters) Option { return func(e *Exporter) { e.filters = f } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(e *Exporter) { e.log = l } }

// Exporter runs the export pipeline. All operations are synchronous pure
// functions of the supplied State.
type Exporter struct {
	cfg     Config
	filters Filters
	log     *log.Logger
}

// New creates an exporter with the given settings.
func New(cfg Config, opts ...Option) *Exporter {
	e := &Exporter{cfg: cfg.Normalize(), filters: DefaultFilters(), log: log.New(io.Discard)}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Config returns the current settings.
func (e *Exporter) Config() Config { return e.cfg }

// Update merges u into the settings.
func (e *Exporter) Update(u Update) Config {
	e.cfg = e.cfg.Merge(u)
	return e.cfg
}

// Crop runs the bounding-box pipeline on the active mask with the
// exporter's settings.
func (e *Exporter) Crop(s State) (*Result, error) {
	return e.CropWith(s, e.cfg)
}

// CropWith runs the bounding-box pipeline with explicit settings.
func (e *Exporter) CropWith(s State, cfg Config) (*Result, error) {
	cfg = cfg.Normalize()
	m, ok := s.ActiveMask()
	if !ok {
		return nil, ErrNoActiveMask
	}
	box, ok := BoundingBox(m.Pixels)
	if !ok {
		return nil, ErrEmptyMask
	}

	margin := 0
	if cfg.Margin > 0 {
		margin = max(cfg.Margin, cfg.BlurMask*2) / 2
	}
	region := box.Expand(cfg.Padding/2, margin)

	maskOut := Crop(m.Pixels, region)
	var imgOut *image.NRGBA
	if s.Image != nil {
		imgOut = Crop(s.Image, region)
	}

	if cfg.ResizeMask {
		w, h := TargetSize(region.Dx(), region.Dy(), cfg.ResizeDimensions, cfg.ResizeKeepProportion)
		maskOut = e.filters.Resize(maskOut, w, h)
		if imgOut != nil {
			imgOut = e.filters.Resize(imgOut, w, h)
		}
	}

	if cfg.BW {
		maskOut = Binarize(maskOut)
	}
	if cfg.BlurMask > 0 {
		maskOut = e.filters.Blur(FlattenOnBlack(maskOut), float64(cfg.BlurMask))
	}

	res := &Result{
		Mask:      maskOut,
		Image:     imgOut,
		AlphaMask: AlphaMask(maskOut),
		Region:    region,
		Geometry: Geometry{
			X:                   box.MinX,
			Y:                   box.MinY,
			Width:               box.Width(),
			Height:              box.Height(),
			ResizePaddingWidth:  maskOut.Bounds().Dx(),
			ResizePaddingHeight: maskOut.Bounds().Dy(),
		},
	}
	if imgOut != nil {
		res.AlphaOnImage = AlphaOnImage(imgOut, res.AlphaMask)
	}
	e.log.Debug("cropped", "mask", m.Name, "region", region, "out", maskOut.Bounds().Size())
	return res, nil
}

// CropImage crops the base image to the padded region of the active mask
// and resizes it, without any mask processing.
func (e *Exporter) CropImage(s State, cfg Config) (*image.NRGBA, error) {
	if s.Image == nil {
		return nil, ErrNoImage
	}
	cfg.BW = false
	cfg.BlurMask = 0
	res, err := e.CropWith(s, cfg)
	if err != nil {
		return nil, err
	}
	return res.Image, nil
}

// CropAlphaOnImage crops the image and makes the unselected area
// transparent using the processed mask.
func (e *Exporter) CropAlphaOnImage(s State, cfg Config) (*image.NRGBA, error) {
	if s.Image == nil {
		return nil, ErrNoImage
	}
	res, err := e.CropWith(s, cfg)
	if err != nil {
		return nil, err
	}
	return res.AlphaOnImage, nil
}
