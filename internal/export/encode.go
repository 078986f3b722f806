package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// Asset is an encoded artifact.
type Asset struct {
	Name string
	Data []byte
}

var encoder = png.Encoder{CompressionLevel: png.DefaultCompression}

// EncodePNG encodes img as PNG. Failures wrap ErrEncode.
func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrEncode)
	}
	var buf bytes.Buffer
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

// Encode packages the crop outputs as named PNG buffers in a fixed order.
func (r *Result) Encode() ([]Asset, error) {
	imgs := r.Images()
	var assets []Asset
	for _, name := range []string{AssetMask, AssetImage, AssetAlphaMask, AssetAlphaOnImage} {
		img, ok := imgs[name]
		if !ok {
			continue
		}
		data, err := EncodePNG(img)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		assets = append(assets, Asset{Name: name, Data: data})
	}
	return assets, nil
}
