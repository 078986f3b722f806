// Package export derives cropped, resized, binarized, blurred and alpha
// artifacts from the mask layers and the base image.
package export

// Config parameterizes the crop pipeline. Values are coerced by Normalize,
// never rejected.
type Config struct {
	Padding              int  `toml:"padding" json:"padding"`
	Margin               int  `toml:"margin" json:"margin"`
	ResizeMask           bool `toml:"resize_mask" json:"resizeMask"`
	ResizeDimensions     int  `toml:"resize_dimensions" json:"resizeDimensions"`
	ResizeKeepProportion bool `toml:"resize_keep_proportion" json:"resizeKeepProportion"`
	BlurMask             int  `toml:"blur_mask" json:"blurMask"`
	BW                   bool `toml:"bw" json:"bw"`
}

// DefaultConfig returns the stock export settings.
func DefaultConfig() Config {
	return Config{
		Padding:              50,
		ResizeMask:           true,
		ResizeDimensions:     1024,
		ResizeKeepProportion: true,
		BlurMask:             25,
		BW:                   true,
	}
}

// Update is a partial Config. Nil fields leave the current value alone.
type Update struct {
	Padding              *int  `json:"padding,omitempty"`
	Margin               *int  `json:"margin,omitempty"`
	ResizeMask           *bool `json:"resizeMask,omitempty"`
	ResizeDimensions     *int  `json:"resizeDimensions,omitempty"`
	ResizeKeepProportion *bool `json:"resizeKeepProportion,omitempty"`
	BlurMask             *int  `json:"blurMask,omitempty"`
	BW                   *bool `json:"bw,omitempty"`
}

// Merge applies u on top of c and returns the normalized result.
func (c Config) Merge(u Update) Config {
	if u.Padding != nil {
		c.Padding = *u.Padding
	}
	if u.Margin != nil {
		c.Margin = *u.Margin
	}
	if u.ResizeMask != nil {
		c.ResizeMask = *u.ResizeMask
	}
	if u.ResizeDimensions != nil {
		c.ResizeDimensions = *u.ResizeDimensions
	}
	if u.ResizeKeepProportion != nil {
		c.ResizeKeepProportion = *u.ResizeKeepProportion
	}
	if u.BlurMask != nil {
		c.BlurMask = *u.BlurMask
	}
	if u.BW != nil {
		c.BW = *u.BW
	}
	return c.Normalize()
}

// Normalize coerces invalid values: negative sizes become 0 and a
// non-positive resize target disables resizing.
func (c Config) Normalize() Config {
	c.Padding = max(c.Padding, 0)
	c.Margin = max(c.Margin, 0)
	c.BlurMask = max(c.BlurMask, 0)
	if c.ResizeDimensions <= 0 {
		c.ResizeDimensions = 0
		c.ResizeMask = false
	}
	return c
}

// Int, Bool are helpers for building an Update.
func Int(v int) *int    { return &v }
func Bool(v bool) *bool { return &v }
