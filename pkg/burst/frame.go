package burst

import(
	"fmt"

	"github.com/abworrall/hdrburst/pkg/bcolor"
	"github.com/abworrall/hdrburst/pkg/bmath"
)

// A Frame is one raw mosaic from the burst, plus the sensor metadata
// we need to merge and finish it. Frames are read-only once built, so
// tile workers can sample them concurrently without locks.
type Frame struct {
	Width, Height int
	Pix         []uint16 // Bayer mosaic samples, row major
	Meta          Meta
}

// Meta carries the capture metadata for a frame.
type Meta struct {
	Index        int     // position within the burst
	ISO          int64
	Gain         float64 // analog+digital gain relative to base ISO
	BlackLevel   int
	WhiteLevel   int
	CFA          bcolor.CFA
	WhiteBalance bcolor.WhiteBalance
	CCM          bmath.Mat3 // white balanced camera RGB -> XYZ(D50)
}

func NewFrame(w, h int, pix []uint16, meta Meta) *Frame {
	return &Frame{Width: w, Height: h, Pix: pix, Meta: meta}
}

func (f *Frame)String() string {
	return fmt.Sprintf("frame %d: %dx%d, ISO%d (gain %.1f), %s, black %d, white %d",
		f.Meta.Index, f.Width, f.Height, f.Meta.ISO, f.Meta.Gain, f.Meta.CFA, f.Meta.BlackLevel, f.Meta.WhiteLevel)
}

func (f *Frame)At(x, y int) uint16 { return f.Pix[y*f.Width + x] }

// AtClamped samples with replicated borders. The clamp sticks to the
// same Bayer channel: out-of-range coords land on the nearest border
// texel of matching parity, so a red sample never turns green. Needs
// even frame dimensions, which CheckGeometry enforces.
func (f *Frame)AtClamped(x, y int) uint16 {
	x = clampParity(x, f.Width)
	y = clampParity(y, f.Height)
	return f.Pix[y*f.Width + x]
}

func clampParity(v, n int) int {
	if v < 0  { return v & 1 }
	if v >= n { return n - 2 + (v & 1) }
	return v
}

func (f *Frame)SameGeometry(o *Frame) bool {
	return f.Width == o.Width && f.Height == o.Height && f.Meta.CFA == o.Meta.CFA
}

// CheckGeometry rejects frames the pipeline cannot process: empty,
// odd-sized (would split Bayer quads) or with nonsense levels.
func (f *Frame)CheckGeometry() error {
	if f.Width < 2 || f.Height < 2 || f.Width%2 != 0 || f.Height%2 != 0 {
		return InvalidDimensionsError{What: fmt.Sprintf("frame %d is %dx%d, need even dimensions >= 2", f.Meta.Index, f.Width, f.Height)}
	}
	if len(f.Pix) != f.Width*f.Height {
		return InvalidDimensionsError{What: fmt.Sprintf("frame %d has %d samples for %dx%d", f.Meta.Index, len(f.Pix), f.Width, f.Height)}
	}
	if f.Meta.WhiteLevel <= f.Meta.BlackLevel {
		return InvalidDimensionsError{What: fmt.Sprintf("frame %d white level %d <= black level %d", f.Meta.Index, f.Meta.WhiteLevel, f.Meta.BlackLevel)}
	}
	return nil
}

// GrayPlane collapses each 2x2 Bayer quad into one normalized
// luminance-ish value, giving a half resolution grayscale plane. All
// motion search happens on these planes; a displacement of 1 gray
// pixel is a displacement of 2 mosaic pixels, which conveniently
// keeps motion vectors Bayer-aligned.
func (f *Frame)GrayPlane() bmath.Grid {
	w, h := f.Width/2, f.Height/2
	g := bmath.NewGrid(w, h)
	scale := 1.0 / float64(f.Meta.WhiteLevel)

	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			t := float64(f.At(2*x, 2*y))
			t += float64(f.At(2*x+1, 2*y))
			t += float64(f.At(2*x, 2*y+1))
			t += float64(f.At(2*x+1, 2*y+1))
			g.Set(x, y, t * scale / 4.0)
		}
	}

	return g
}

// A Mosaic is a raw-resolution mosaic in float, the output of the
// merge stage and the input to finishing. Values stay in the sensor's
// DN scale so the finisher can apply black/white levels as usual.
type Mosaic struct {
	Width, Height int
	Pix         []float64
	Meta          Meta
}

func NewMosaic(w, h int, meta Meta) *Mosaic {
	return &Mosaic{Width: w, Height: h, Pix: make([]float64, w*h), Meta: meta}
}

func (m *Mosaic)At(x, y int) float64      { return m.Pix[y*m.Width + x] }
func (m *Mosaic)Set(x, y int, v float64)  { m.Pix[y*m.Width + x] = v }

// FrameToMosaic is the degenerate single-frame merge: every weight is
// trivially the reference's.
func FrameToMosaic(f *Frame) *Mosaic {
	m := NewMosaic(f.Width, f.Height, f.Meta)
	for i, v := range f.Pix {
		m.Pix[i] = float64(v)
	}
	return m
}
