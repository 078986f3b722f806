package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"flow-mask/internal/config"
	"flow-mask/internal/export"
	pimage "flow-mask/internal/image"
)

var errSizeMismatch = errors.New("mask size does not match")

type renderOptions struct {
	image      string
	masks      []string
	active     int
	option     string
	out        string
	configPath string
	scale      int

	padding   int
	margin    int
	size      int
	blur      int
	resize    bool
	keepRatio bool
	bw        bool
}

func newRenderCmd() *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one save option from a base image and mask PNGs",
		Long: `Render loads the base image and one PNG per mask layer (painted pixels on a
transparent background), runs the export pipeline and writes the files the
editor's save action would write.`,
		Example: `  maskexport render --image shot.png --mask sky.png --mask tree.png
  maskexport render --mask sky.png --option "All Masks Combined" --out exports/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.image, "image", "i", "", "base image")
	f.StringArrayVarP(&opts.masks, "mask", "m", nil, "mask layer image, bottom first (repeatable)")
	f.IntVar(&opts.active, "active", -1, "index of the active mask (default: top mask)")
	f.StringVar(&opts.option, "option", string(export.SaveCroppedMask), "save option, by name or label")
	f.StringVarP(&opts.out, "out", "o", ".", "output folder")
	f.StringVarP(&opts.configPath, "config", "c", config.DefaultPath(), "settings file supplying export defaults")
	f.IntVar(&opts.scale, "scale", 1, "canvas save multiplier")
	f.IntVar(&opts.padding, "padding", 0, "padding around the mask bounding box")
	f.IntVar(&opts.margin, "margin", 0, "margin added on every side")
	f.IntVar(&opts.size, "size", 0, "resize target in pixels")
	f.IntVar(&opts.blur, "blur", 0, "gaussian blur amount")
	f.BoolVar(&opts.resize, "resize", true, "resize the cropped mask")
	f.BoolVar(&opts.keepRatio, "keep-proportion", true, "keep the crop's aspect ratio when resizing")
	f.BoolVar(&opts.bw, "bw", true, "binarize the mask to black and white")
	return cmd
}

func runRender(cmd *cobra.Command, opts renderOptions) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	option, err := export.ParseOption(opts.option)
	if err != nil {
		return err
	}
	settings, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	cfg := settings.Export.Merge(flagUpdate(cmd, opts))
	logger.Debug("export settings", "padding", cfg.Padding, "margin", cfg.Margin,
		"resize", cfg.ResizeMask, "size", cfg.ResizeDimensions, "blur", cfg.BlurMask, "bw", cfg.BW)

	prog := newProgress(logger)
	state, err := loadState(opts.image, opts.masks, opts.active)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	exporter := export.New(cfg, export.WithLogger(logger.WithPrefix("export")))
	files, err := exporter.Render(option, state, opts.scale)
	if err != nil {
		return fmt.Errorf("%s: %w", option.Label(), err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	paths, err := export.WriteFiles(opts.out, files)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	prog.done(fmt.Sprintf("Wrote %d file(s) for %q", len(paths), option.Label()))
	return nil
}

// flagUpdate turns explicitly set flags into an export.Update so unset
// flags keep the settings file's values.
func flagUpdate(cmd *cobra.Command, opts renderOptions) export.Update {
	var u export.Update
	f := cmd.Flags()
	if f.Changed("padding") {
		u.Padding = export.Int(opts.padding)
	}
	if f.Changed("margin") {
		u.Margin = export.Int(opts.margin)
	}
	if f.Changed("size") {
		u.ResizeDimensions = export.Int(opts.size)
	}
	if f.Changed("blur") {
		u.BlurMask = export.Int(opts.blur)
	}
	if f.Changed("resize") {
		u.ResizeMask = export.Bool(opts.resize)
	}
	if f.Changed("keep-proportion") {
		u.ResizeKeepProportion = export.Bool(opts.keepRatio)
	}
	if f.Changed("bw") {
		u.BW = export.Bool(opts.bw)
	}
	return u
}

// loadState reads the base image and mask files into an export.State.
// Every mask must match the base image size, or the first mask's size
// when no image is given.
func loadState(imagePath string, maskPaths []string, active int) (export.State, error) {
	s := export.State{Active: -1}
	if imagePath != "" {
		base, err := pimage.Load(imagePath)
		if err != nil {
			return s, err
		}
		s.Image = base.Image
		s.ImageName = imagePath
	}

	for _, p := range maskPaths {
		m, err := pimage.Load(p)
		if err != nil {
			return s, err
		}
		pix := pimage.ToNRGBA(m.Image)
		if w, h := s.Size(); w > 0 && (pix.Bounds().Dx() != w || pix.Bounds().Dy() != h) {
			return s, fmt.Errorf("%w: %s is %dx%d, expected %dx%d",
				errSizeMismatch, filepath.Base(p), pix.Bounds().Dx(), pix.Bounds().Dy(), w, h)
		}
		s.Masks = append(s.Masks, export.Mask{Name: maskName(p), Pixels: pix, Visible: true})
	}

	switch {
	case len(s.Masks) == 0:
	case active < 0:
		s.Active = len(s.Masks) - 1
	case active < len(s.Masks):
		s.Active = active
	default:
		return s, fmt.Errorf("--active %d: only %d mask(s) given", active, len(s.Masks))
	}
	return s, nil
}

func maskName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func newOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "List the save options render accepts",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, o := range export.Options() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-34s %s\n", o, o.Label())
			}
		},
	}
}
