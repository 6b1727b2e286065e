package bcolor

import(
	"fmt"

	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/abworrall/hdrburst/pkg/bmath"
)

// A WhiteBalance holds the per-channel gains reported by the camera,
// normalized so the greens are 1.0.
type WhiteBalance [4]float64 // indexed by Channel

func (wb WhiteBalance)Gain(ch Channel) float64 { return wb[ch] }

func (wb WhiteBalance)String() string {
	return fmt.Sprintf("wb[r:%.4f g0:%.4f g1:%.4f b:%.4f]", wb[ChanR], wb[ChanG0], wb[ChanG1], wb[ChanB])
}

func NeutralWhiteBalance() WhiteBalance {
	return WhiteBalance{1, 1, 1, 1}
}

func (wb WhiteBalance)Valid() bool {
	for _, g := range wb {
		if g <= 0.0 { return false }
	}
	return true
}

var(
	// Translates XYZ(D50) to sRGB(D65)
	//
	// https://sites.google.com/site/crossstereo/raw-converting/dng
	// http://www.brucelindbloom.com/index.html?Eqn_RGB_XYZ_Matrix.html
	//
	// We use the second table on Bruce Lindbloom's site; it bundles in
	// the chromatic adaptation transform that we need to move from D50
	// to D65 reference whites without seeing the image's white balance
	// shift.
	XYZD50_to_linear_sRGBD65 = bmath.Mat3{
		 3.1338561, -1.6168667, -0.4906146,
		-0.9787684,  1.9161415,  0.0334540,
		 0.0719453, -0.2289914,  1.4052427,
	}
)

// ApplyCCM does the color correction, assuming a matrix that maps
// white balanced camera native RGB into XYZ(D50), like a DNG
// ForwardMatrix does.
func ApplyCCM(rgb hdrcolor.RGB, ccm bmath.Mat3) hdrcolor.XYZ {
	xyz := ccm.Apply(bmath.Vec3{rgb.R, rgb.G, rgb.B})
	return hdrcolor.XYZ{X: xyz[0], Y: xyz[1], Z: xyz[2]}
}

// XYZToSRGB also adjusts reference white from D50 to D65. (A camera
// CCM maps into XYZ(D50), but the standard sRGB output space assumes
// D65, so a chromatic adaptation is needed.)
func XYZToSRGB(xyz hdrcolor.XYZ) hdrcolor.RGB {
	rgb := XYZD50_to_linear_sRGBD65.Apply(bmath.Vec3{xyz.X, xyz.Y, xyz.Z})
	return hdrcolor.RGB{R: rgb[0], G: rgb[1], B: rgb[2]}
}

func RGBFloorAt(c1 hdrcolor.RGB, min float64) hdrcolor.RGB {
	c2 := c1
	if c2.R < min { c2.R = min }
	if c2.G < min { c2.G = min }
	if c2.B < min { c2.B = min }
	return c2
}
