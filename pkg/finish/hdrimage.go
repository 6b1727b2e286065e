package finish

import(
	"image"
	"image/color"

	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/abworrall/hdrburst/pkg/bmath"
)

// An rgbImage is the finishing workspace: three linear float planes.
// It implements image.Image and hdr.Image, so the off-the-shelf tone
// mapping operators can chew on it directly.
type rgbImage struct {
	R, G, B bmath.Grid
}

func newRGBImage(w, h int) *rgbImage {
	return &rgbImage{
		R: bmath.NewGrid(w, h),
		G: bmath.NewGrid(w, h),
		B: bmath.NewGrid(w, h),
	}
}

func (img *rgbImage)hdrAt(x, y int) hdrcolor.RGB {
	return hdrcolor.RGB{R: img.R.Get(x, y), G: img.G.Get(x, y), B: img.B.Get(x, y)}
}

// Implement image.Image
func (img *rgbImage)ColorModel() color.Model { return hdrcolor.RGBModel }
func (img *rgbImage)Bounds() image.Rectangle { return image.Rect(0, 0, img.R.Dx(), img.R.Dy()) }
func (img *rgbImage)At(x, y int) color.Color { return img.hdrAt(x, y) }

// Implement hdr.Image
func (img *rgbImage)HDRAt(x, y int) hdrcolor.Color { return img.hdrAt(x, y) }
func (img *rgbImage)Size() int                     { return img.R.Dx() * img.R.Dy() }

// luminance, with the linear sRGB weights
const(
	lumR = 0.2126
	lumG = 0.7152
	lumB = 0.0722
)

func (img *rgbImage)luminanceGrid() bmath.Grid {
	Y := bmath.NewGrid(img.R.Dx(), img.R.Dy())
	for i := range Y.Values() {
		Y.Values()[i] = lumR*img.R.Values()[i] + lumG*img.G.Values()[i] + lumB*img.B.Values()[i]
	}
	return Y
}

// scaleByLuminanceRatio rescales every channel so the pixel's
// luminance moves from oldY to newY, preserving chromaticity.
func (img *rgbImage)scaleByLuminanceRatio(oldY, newY *bmath.Grid) {
	const epsilon = 1e-6
	for i := range img.R.Values() {
		o := oldY.Values()[i]
		if o < epsilon { o = epsilon }
		ratio := newY.Values()[i] / o
		img.R.Values()[i] *= ratio
		img.G.Values()[i] *= ratio
		img.B.Values()[i] *= ratio
	}
}
