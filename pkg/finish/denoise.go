package finish

import(
	"github.com/abworrall/hdrburst/pkg/bmath"
)

// chromaDenoise smooths the color difference planes while leaving
// luminance untouched. Chroma noise is what reads as ugly color
// speckle in shadows; luminance carries the detail we spent the whole
// merge protecting, so it never gets blurred here.
func chromaDenoise(img *rgbImage, radius int) error {
	if radius <= 0 {
		return nil
	}

	Y := img.luminanceGrid()

	cb := bmath.NewGrid(img.R.Dx(), img.R.Dy())
	cr := bmath.NewGrid(img.R.Dx(), img.R.Dy())
	for i := range Y.Values() {
		cb.Values()[i] = img.B.Values()[i] - Y.Values()[i]
		cr.Values()[i] = img.R.Values()[i] - Y.Values()[i]
	}

	cb = cb.BoxBlur(radius)
	cr = cr.BoxBlur(radius)

	// Rebuild R and B from the smoothed chroma, then solve G so the
	// pixel's luminance is exactly what it was.
	for i := range Y.Values() {
		r := Y.Values()[i] + cr.Values()[i]
		b := Y.Values()[i] + cb.Values()[i]
		g := (Y.Values()[i] - lumR*r - lumB*b) / lumG
		if g < 0.0 { g = 0.0 }
		img.R.Values()[i] = r
		img.G.Values()[i] = g
		img.B.Values()[i] = b
	}

	return nil
}
