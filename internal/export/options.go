package export

import (
	"fmt"
	"image"
	"strings"
)

// SaveOption names one save action offered to the user.
type SaveOption string

const (
	SaveCroppedMask                  SaveOption = "saveCroppedMask"
	SaveCroppedImage                 SaveOption = "saveCroppedImage"
	SaveCroppedAlphaOnImage          SaveOption = "saveCroppedAlphaOnImage"
	SaveMaskAlphaOnImage             SaveOption = "saveMaskAlphaOnImage"
	SaveAllMasksAlphaOnImage         SaveOption = "saveAllMasksAlphaOnImage"
	SaveAllMasksCombinedAlphaOnImage SaveOption = "saveAllMasksCombinedAlphaOnImage"
	SaveMask                         SaveOption = "saveMask"
	SaveAllMasks                     SaveOption = "saveAllMasks"
	SaveAllMasksCombined             SaveOption = "saveAllMasksCombined"
	SaveAllMasksCombinedBW           SaveOption = "saveAllMasksCombinedBW"
	SaveMaskOnImage                  SaveOption = "saveMaskOnImage"
	SaveAllMasksOnImage              SaveOption = "saveAllMasksOnImage"
	SaveAllMasksCombinedOnImage      SaveOption = "saveAllMasksCombinedOnImage"
	SaveAllMasksCombinedBWOnImage    SaveOption = "saveAllMasksCombinedBWOnImage"
	SaveCanvas                       SaveOption = "saveCanvas"
)

var labels = map[SaveOption]string{
	SaveCroppedMask:                  "Cropped Mask",
	SaveCroppedImage:                 "Cropped Image",
	SaveCroppedAlphaOnImage:          "Cropped Alpha on Image",
	SaveMaskAlphaOnImage:             "Mask As Alpha on Image",
	SaveAllMasksAlphaOnImage:         "All Masks As Alpha on Image",
	SaveAllMasksCombinedAlphaOnImage: "All Masks As Alpha Combined on Image",
	SaveMask:                         "Mask",
	SaveAllMasks:                     "All Masks",
	SaveAllMasksCombined:             "All Masks Combined",
	SaveAllMasksCombinedBW:           "All Masks Combined (B&W)",
	SaveMaskOnImage:                  "Mask on Image",
	SaveAllMasksOnImage:              "All Masks on Image",
	SaveAllMasksCombinedOnImage:      "All Masks Combined on Image",
	SaveAllMasksCombinedBWOnImage:    "All Masks Combined (B&W) on Image",
	SaveCanvas:                       "Canvas",
}

// Options lists every save option in menu order.
func Options() []SaveOption {
	return []SaveOption{
		SaveCroppedMask, SaveCroppedImage, SaveCroppedAlphaOnImage,
		SaveMaskAlphaOnImage, SaveAllMasksAlphaOnImage, SaveAllMasksCombinedAlphaOnImage,
		SaveMask, SaveAllMasks, SaveAllMasksCombined, SaveAllMasksCombinedBW,
		SaveMaskOnImage, SaveAllMasksOnImage, SaveAllMasksCombinedOnImage, SaveAllMasksCombinedBWOnImage,
		SaveCanvas,
	}
}

// Label is the human readable name of o.
func (o SaveOption) Label() string {
	if l, ok := labels[o]; ok {
		return l
	}
	return string(o)
}

// ParseOption resolves an option by value or label.
func ParseOption(s string) (SaveOption, error) {
	for _, o := range Options() {
		if string(o) == s || strings.EqualFold(o.Label(), s) {
			return o, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOption, s)
}

// Render produces the named files for option o. scale only applies to
// SaveCanvas; overlays are drawn on top of the canvas flatten.
func (e *Exporter) Render(o SaveOption, s State, scale int, overlays ...*image.NRGBA) ([]Named, error) {
	cfg := e.cfg
	single := func(name string, build func(State) (*image.NRGBA, error)) ([]Named, error) {
		img, err := build(s)
		if err != nil {
			return nil, err
		}
		return []Named{{Name: name, Image: img}}, nil
	}
	activeName := func() string {
		if m, ok := s.ActiveMask(); ok {
			return m.Name
		}
		return "mask"
	}

	switch o {
	case SaveCroppedMask:
		res, err := e.CropWith(s, cfg)
		if err != nil {
			return nil, err
		}
		return []Named{{Name: CroppedMaskFilename(activeName(), cfg), Image: res.Mask}}, nil
	case SaveCroppedImage:
		img, err := e.CropImage(s, cfg)
		if err != nil {
			return nil, err
		}
		return []Named{{Name: CroppedImageFilename(s.imageName(), cfg), Image: img}}, nil
	case SaveCroppedAlphaOnImage:
		img, err := e.CropAlphaOnImage(s, cfg)
		if err != nil {
			return nil, err
		}
		return []Named{{Name: CroppedAlphaFilename(s.imageName(), cfg), Image: img}}, nil
	case SaveMaskAlphaOnImage:
		return single(activeName()+"_alpha_on_image.png", e.MaskAlphaOnImage)
	case SaveAllMasksAlphaOnImage:
		return e.renamed(e.AllMasksAlphaOnImage(s))("_alpha_on_image.png")
	case SaveAllMasksCombinedAlphaOnImage:
		return single("combined_masks_alpha_on_image.png", e.AllMasksCombinedAlphaOnImage)
	case SaveMask:
		return single(activeName()+".png", e.Mask)
	case SaveAllMasks:
		return e.renamed(e.AllMasks(s))(".png")
	case SaveAllMasksCombined:
		return single("combined_masks.png", e.AllMasksCombined)
	case SaveAllMasksCombinedBW:
		return single("combined_masks_black_white.png", e.CombinedBlackWhite)
	case SaveMaskOnImage:
		return single(activeName()+"_on_image.png", e.MaskOnImage)
	case SaveAllMasksOnImage:
		return single("all_masks_on_image.png", e.AllMasksOnImage)
	case SaveAllMasksCombinedOnImage:
		return single("combined_masks_on_image.png", e.AllMasksCombinedOnImage)
	case SaveAllMasksCombinedBWOnImage:
		return single("combined_masks_black_white_on_image.png", e.CombinedBlackWhiteOnImage)
	case SaveCanvas:
		return single("canvas-image.png", func(s State) (*image.NRGBA, error) { return e.Flatten(s, scale, overlays...) })
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOption, o)
}

func (e *Exporter) renamed(files []Named, err error) func(suffix string) ([]Named, error) {
	return func(suffix string) ([]Named, error) {
		if err != nil {
			return nil, err
		}
		for i := range files {
			files[i].Name += suffix
		}
		return files, nil
	}
}

// CroppedMaskFilename describes the crop settings in the file name, e.g.
// "Mask 1_cropped_padded_50_resized_1024x1024_proportional_blurred_25_bw_true.png".
func CroppedMaskFilename(mask string, cfg Config) string {
	parts := []string{mask + "_cropped"}
	parts = append(parts, cropParts(cfg)...)
	if cfg.BlurMask > 0 {
		parts = append(parts, fmt.Sprintf("blurred_%d", cfg.BlurMask))
	}
	if cfg.BW {
		parts = append(parts, "bw_true")
	}
	return strings.Join(parts, "_") + ".png"
}

// CroppedImageFilename names a cropped image export.
func CroppedImageFilename(img string, cfg Config) string {
	parts := append([]string{img + "_cropped"}, cropParts(cfg)...)
	return strings.Join(parts, "_") + ".png"
}

// CroppedAlphaFilename names a cropped alpha-on-image export.
func CroppedAlphaFilename(img string, cfg Config) string {
	parts := append([]string{img + "_cropped_alpha_on_image"}, cropParts(cfg)...)
	if cfg.BlurMask > 0 {
		parts = append(parts, fmt.Sprintf("blurred_%d", cfg.BlurMask))
	}
	return strings.Join(parts, "_") + ".png"
}

func cropParts(cfg Config) []string {
	var parts []string
	if cfg.Padding > 0 {
		parts = append(parts, fmt.Sprintf("padded_%d", cfg.Padding))
	}
	if cfg.Margin > 0 {
		parts = append(parts, fmt.Sprintf("margin_%d", cfg.Margin))
	}
	if cfg.ResizeMask {
		p := fmt.Sprintf("resized_%dx%d", cfg.ResizeDimensions, cfg.ResizeDimensions)
		if cfg.ResizeKeepProportion {
			p += "_proportional"
		}
		parts = append(parts, p)
	}
	return parts
}

func (s State) imageName() string {
	name := s.ImageName
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	if name == "" {
		return "image"
	}
	return name
}
