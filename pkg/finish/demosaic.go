package finish

import(
	"fmt"

	"github.com/abworrall/hdrburst/pkg/bcolor"
	"github.com/abworrall/hdrburst/pkg/bmath"
)

// demosaic reconstructs full RGB planes from the single-channel
// mosaic by bilinear interpolation, after black level subtraction and
// normalization to [0,1]. Works for any of the four Bayer layouts;
// border pixels use replicated sampling.
func demosaic(m *Mosaic) (*rgbImage, error) {
	if m.Width < 2 || m.Height < 2 {
		return nil, fmt.Errorf("mosaic is %dx%d, need >= 2x2", m.Width, m.Height)
	}
	if !m.Meta.CFA.Valid() {
		return nil, fmt.Errorf("CFA pattern %s not usable", m.Meta.CFA)
	}
	if m.Meta.WhiteLevel <= m.Meta.BlackLevel {
		return nil, fmt.Errorf("white level %d <= black level %d", m.Meta.WhiteLevel, m.Meta.BlackLevel)
	}

	img := newRGBImage(m.Width, m.Height)

	scale := 1.0 / float64(m.Meta.WhiteLevel - m.Meta.BlackLevel)
	black := float64(m.Meta.BlackLevel)
	sample := func(x, y int) float64 {
		x = clampParity(x, m.Width)
		y = clampParity(y, m.Height)
		v := (m.At(x, y) - black) * scale
		if v < 0.0 { return 0.0 }
		return v
	}

	isR := func(ch bcolor.Channel) bool { return ch == bcolor.ChanR }
	isG := func(ch bcolor.Channel) bool { return ch == bcolor.ChanG0 || ch == bcolor.ChanG1 }
	isB := func(ch bcolor.Channel) bool { return ch == bcolor.ChanB }

	for y:=0; y<m.Height; y++ {
		for x:=0; x<m.Width; x++ {
			img.R.Set(x, y, interpolate(m, sample, x, y, isR))
			img.G.Set(x, y, interpolate(m, sample, x, y, isG))
			img.B.Set(x, y, interpolate(m, sample, x, y, isB))
		}
	}

	return img, nil
}

var(
	crossOffsets = [4][2]int{{-1,0},{1,0},{0,-1},{0,1}}
	diagOffsets  = [4][2]int{{-1,-1},{1,-1},{-1,1},{1,1}}
)

// interpolate averages the nearest mosaic samples of the wanted
// color: the pixel itself if it matches, else its cross neighbors,
// else its diagonals. With a 2x2 Bayer quad one of the three rings
// always matches.
func interpolate(m *Mosaic, sample func(x, y int) float64, x, y int, want func(bcolor.Channel) bool) float64 {
	cfa := m.Meta.CFA

	if want(cfa.ChannelAt(x, y)) {
		return sample(x, y)
	}

	for _, ring := range [2][4][2]int{crossOffsets, diagOffsets} {
		tot, n := 0.0, 0
		for _, d := range ring {
			if want(cfa.ChannelAt(x+d[0], y+d[1])) {
				tot += sample(x+d[0], y+d[1])
				n++
			}
		}
		if n > 0 {
			return tot / float64(n)
		}
	}

	return 0.0 // unreachable for a valid CFA
}

func clampParity(v, n int) int {
	if v < 0  { return v & 1 }
	if v >= n { return n - 2 + (v & 1) }
	return v
}

// whiteBalance scales the demosaiced planes by the camera's gains.
// The two green photosites get the average of their gains.
func whiteBalance(img *rgbImage, wb bcolor.WhiteBalance) error {
	if !wb.Valid() {
		return fmt.Errorf("white balance %s has non-positive gain", wb)
	}

	rGain := wb.Gain(bcolor.ChanR)
	gGain := (wb.Gain(bcolor.ChanG0) + wb.Gain(bcolor.ChanG1)) / 2.0
	bGain := wb.Gain(bcolor.ChanB)

	for i := range img.R.Values() {
		img.R.Values()[i] *= rGain
		img.G.Values()[i] *= gGain
		img.B.Values()[i] *= bGain
	}
	return nil
}

// colorCorrect maps camera RGB through the CCM into XYZ(D50) and on
// to linear sRGB(D65). A zero CCM means "camera did not say", and we
// leave the colors in camera space rather than guess.
func colorCorrect(img *rgbImage, ccm bmath.Mat3) error {
	if ccm.IsZero() {
		return nil
	}

	for y:=0; y<img.R.Dy(); y++ {
		for x:=0; x<img.R.Dx(); x++ {
			rgb := img.hdrAt(x, y)
			srgb := bcolor.XYZToSRGB(bcolor.ApplyCCM(rgb, ccm))
			// Near-black noise can go slightly -ve through the matrices,
			// which would underflow into bright pixels later.
			srgb = bcolor.RGBFloorAt(srgb, 0.0)
			img.R.Set(x, y, srgb.R)
			img.G.Set(x, y, srgb.G)
			img.B.Set(x, y, srgb.B)
		}
	}
	return nil
}
