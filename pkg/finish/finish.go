// Package finish turns a merged raw mosaic into a displayable image:
// demosaic, white balance, color correction, tone mapping, chroma
// denoise, sharpening and gamma encoding, in that order. Stages are
// all-or-nothing; the first failure aborts the pass with the stage
// name attached.
package finish

import(
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/abworrall/hdrburst/pkg/bcolor"
	"github.com/abworrall/hdrburst/pkg/bmath"
)

// Meta is the camera metadata finishing needs; the pipeline copies it
// over from the reference frame.
type Meta struct {
	BlackLevel   int
	WhiteLevel   int
	CFA          bcolor.CFA
	WhiteBalance bcolor.WhiteBalance
	CCM          bmath.Mat3 // white balanced camera RGB -> XYZ(D50); zero = skip color correction
}

// A Mosaic is finishing's input: merged raw samples in DN scale.
type Mosaic struct {
	Width, Height int
	Pix         []float64
	Meta          Meta
}

func (m *Mosaic)At(x, y int) float64 { return m.Pix[y*m.Width + x] }

type Options struct {
	Compression         float64 // global dynamic range compression strength
	Gain                float64 // brightness gain
	Contrast            float64 // local contrast; 1.0 = neutral
	ChromaDenoiseRadius int
	SharpenAmount       float64
	Tonemapper          string  // "" = built-in; else a tmo operator name
	ApplyGammaEncoding  bool
	DumpGrids           bool
}

// Result is the finished image plus its color space tag.
type Result struct {
	Image      *image.RGBA64
	ColorSpace string
}

// A FinishingError names the stage that failed.
type FinishingError struct {
	Stage string
	Err   error
}

func (e FinishingError)Error() string { return fmt.Sprintf("finishing stage %q: %v", e.Stage, e.Err) }
func (e FinishingError)Unwrap() error { return e.Err }

// Finish runs the full deterministic finishing pass.
func Finish(m *Mosaic, opts Options) (*Result, error) {
	img, err := demosaic(m)
	if err != nil {
		return nil, FinishingError{Stage: "demosaic", Err: err}
	}

	if err := whiteBalance(img, m.Meta.WhiteBalance); err != nil {
		return nil, FinishingError{Stage: "whitebalance", Err: err}
	}

	if err := colorCorrect(img, m.Meta.CCM); err != nil {
		return nil, FinishingError{Stage: "color", Err: err}
	}

	if err := tonemap(img, opts); err != nil {
		return nil, FinishingError{Stage: "tonemap", Err: err}
	}

	if err := chromaDenoise(img, opts.ChromaDenoiseRadius); err != nil {
		return nil, FinishingError{Stage: "denoise", Err: err}
	}

	if err := sharpen(img, opts.SharpenAmount); err != nil {
		return nil, FinishingError{Stage: "sharpen", Err: err}
	}

	res, err := encode(img, opts.ApplyGammaEncoding)
	if err != nil {
		return nil, FinishingError{Stage: "encode", Err: err}
	}

	return res, nil
}

// encode clips, optionally gamma expands, and publishes 16 bit sRGB.
// This is the only place in the whole pipeline that clips.
func encode(img *rgbImage, applyGamma bool) (*Result, error) {
	w, h := img.R.Dx(), img.R.Dy()
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("empty image %dx%d", w, h)
	}

	out := image.NewRGBA64(image.Rect(0, 0, w, h))
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			v := bmath.Vec3{img.R.Get(x,y), img.G.Get(x,y), img.B.Get(x,y)}
			v.FloorAt(0.0)
			v.CeilingAt(1.0)
			if applyGamma {
				v = bmath.GammaEncode_sRGB(v)
			}
			out.SetRGBA64(x, y, rgba64(v))
		}
	}

	cs := "linear-sRGB"
	if applyGamma {
		cs = "sRGB"
	}
	return &Result{Image: out, ColorSpace: cs}, nil
}

func rgba64(v bmath.Vec3) color.RGBA64 {
	return color.RGBA64{
		R: uint16(v[0] * float64(0xFFFF)),
		G: uint16(v[1] * float64(0xFFFF)),
		B: uint16(v[2] * float64(0xFFFF)),
		A: 0xFFFF,
	}
}

func dumpGrid(g *bmath.Grid, opts Options, title, filename string) {
	if !opts.DumpGrids {
		return
	}
	log.Printf("finish: dumping %s (%s)\n", filename, g.Stats())
	g.ToImg(title, filename)
}
