package finish

import(
	"fmt"
	"log"
	"math"

	"github.com/codahale/hdrhistogram"
	"github.com/mdouchement/hdr/tmo"
)

var(
	Tonemappers = []string{"drago03", "durand", "icam06", "linear", "reinhard05"}
)

func ListTonemappers() string {
	return fmt.Sprintf("%v", Tonemappers)
}

// tonemap compresses the merged dynamic range into display range.
// The built-in path does a histogram-anchored normalization, a
// Reinhard-style global compression with the configured strength,
// then a local contrast pass that preserves (or boosts) detail the
// global curve would flatten. Alternatively, any of the stock HDR
// operators can be named in the options.
func tonemap(img *rgbImage, opts Options) error {
	if opts.Tonemapper != "" {
		return applyTonemapOperator(img, opts.Tonemapper)
	}

	Y := img.luminanceGrid()
	dumpGrid(&Y, opts, "merged luminance", "finish-luma-in.png")

	// Anchor black/white points at robust percentiles, so a handful
	// of stuck pixels can't swing the whole exposure.
	hist := hdrhistogram.New(1, 0xFFFF, 3)
	for _, v := range Y.Values() {
		dn := int64(v * float64(0xFFFF))
		if dn < 1      { dn = 1 }
		if dn > 0xFFFF { dn = 0xFFFF }
		hist.RecordValue(dn)
	}
	lo := float64(hist.ValueAtQuantile(0.1)) / float64(0xFFFF)
	hi := float64(hist.ValueAtQuantile(99.9)) / float64(0xFFFF)
	if hi <= lo {
		return fmt.Errorf("degenerate luminance range [%f,%f]", lo, hi)
	}

	s := opts.Compression
	gain := opts.Gain

	Yt := Y.NewFromThis()
	for i, v := range Y.Values() {
		yn := (v - lo) / (hi - lo)
		if yn < 0.0 { yn = 0.0 }
		// Reinhard-ish: strength s leaves shadows alone, rolls off highlights
		yc := (1.0 + s) * yn / (1.0 + s*yn)
		Yt.Values()[i] = yc * gain
	}

	// Local contrast: split log luminance into base + detail with a
	// small blur pyramid, then re-amplify the detail.
	const epsilon = 1e-4
	logY := Yt.NewFromThis()
	for i, v := range Yt.Values() {
		logY.Values()[i] = math.Log(v + epsilon)
	}

	base := logY.Copy()
	for k:=0; k<4; k++ {
		*base = base.Blur()
	}

	Yout := Yt.NewFromThis()
	for i := range Yout.Values() {
		b := base.Values()[i]
		detail := logY.Values()[i] - b
		Yout.Values()[i] = math.Exp(b + opts.Contrast*detail) - epsilon
	}

	img.scaleByLuminanceRatio(&Y, &Yout)
	dumpGrid(&Yout, opts, "tonemapped luminance", "finish-luma-out.png")
	return nil
}

// applyTonemapOperator runs one of the stock global operators over
// the HDR planes, and reads the LDR result back in. The operator
// output is display-referred, so callers normally disable the final
// gamma encode when using this path.
func applyTonemapOperator(img *rgbImage, name string) error {
	op, err := setupTonemapper(img, name)
	if err != nil {
		return err
	}

	log.Printf("tonemap: %s\n", name)
	ldr := op.Perform()

	for y:=0; y<img.R.Dy(); y++ {
		for x:=0; x<img.R.Dx(); x++ {
			r, g, b, _ := ldr.At(x, y).RGBA()
			img.R.Set(x, y, float64(r)/float64(0xFFFF))
			img.G.Set(x, y, float64(g)/float64(0xFFFF))
			img.B.Set(x, y, float64(b)/float64(0xFFFF))
		}
	}
	return nil
}

// Tweak the operator parameters for burst output; the defaults tend
// to overexpose the highlights we just worked to keep.
func setupTonemapper(img *rgbImage, name string) (tmo.ToneMappingOperator, error) {
	switch name {
	case "drago03":
		op := tmo.NewDefaultDrago03(img)
		op.Bias = 1.0
		return op, nil

	case "durand":
		return tmo.NewDefaultDurand(img), nil

	case "icam06":
		op := tmo.NewDefaultICam06(img)
		op.MaxClipping = 0.99999
		return op, nil

	case "linear":
		return tmo.NewLinear(img), nil

	case "reinhard05":
		op := tmo.NewDefaultReinhard05(img)
		op.Light = 0.005
		return op, nil
	}

	return nil, fmt.Errorf("tonemapper %q not recognized, wanted one of %s", name, ListTonemappers())
}
