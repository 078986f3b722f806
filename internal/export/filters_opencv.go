//go:build opencv

package export

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

func defaultFilters() Filters { return CVFilters{} }

// CVFilters runs resize and blur through OpenCV. Pixels stay in RGBA
// channel order throughout, so no color conversion is needed.
type CVFilters struct{}

func (CVFilters) Resize(src *image.NRGBA, w, h int) *image.NRGBA {
	mat, err := toMat(src)
	if err != nil {
		return PureFilters{}.Resize(src, w, h)
	}
	defer mat.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Point{X: w, Y: h}, 0, 0, gocv.InterpolationLinear)
	return fromMat(resized, w, h)
}

func (CVFilters) Blur(src *image.NRGBA, radius float64) *image.NRGBA {
	if radius <= 0 {
		return src
	}
	mat, err := toMat(src)
	if err != nil {
		return PureFilters{}.Blur(src, radius)
	}
	defer mat.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	k := int(math.Ceil(radius))*2 + 1
	gocv.GaussianBlur(mat, &blurred, image.Point{X: k, Y: k}, radius, radius, gocv.BorderReplicate)
	out := fromMat(blurred, src.Bounds().Dx(), src.Bounds().Dy())
	opaque(out)
	return out
}

func toMat(img *image.NRGBA) (gocv.Mat, error) {
	b := img.Bounds()
	pix := img.Pix
	if img.Stride != b.Dx()*4 {
		pix = make([]byte, 0, b.Dx()*b.Dy()*4)
		for y := 0; y < b.Dy(); y++ {
			off := y * img.Stride
			pix = append(pix, img.Pix[off:off+b.Dx()*4]...)
		}
	}
	return gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, pix)
}

func fromMat(mat gocv.Mat, w, h int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	copy(out.Pix, mat.ToBytes())
	return out
}
