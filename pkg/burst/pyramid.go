package burst

import(
	"fmt"

	"github.com/abworrall/hdrburst/pkg/bmath"
)

// A Pyramid is the multi-resolution representation of one frame's
// gray plane, used for coarse-to-fine motion search. Levels[0] is the
// finest (the gray plane itself); each level up is box-filtered and
// decimated 2x. Pyramids are built once per frame and are read-only
// after that.
type Pyramid struct {
	Levels []bmath.Grid
}

func (p Pyramid)NumLevels() int           { return len(p.Levels) }
func (p Pyramid)Finest() *bmath.Grid      { return &p.Levels[0] }
func (p Pyramid)Coarsest() *bmath.Grid    { return &p.Levels[len(p.Levels)-1] }

func (p Pyramid)String() string {
	str := "pyramid["
	for i, l := range p.Levels {
		if i > 0 { str += " " }
		str += fmt.Sprintf("%dx%d", l.Dx(), l.Dy())
	}
	return str + "]"
}

// BuildPyramid is a pure function: same grid in, same pyramid out.
// It fails if any requested level would collapse below one pixel per
// dimension.
func BuildPyramid(g bmath.Grid, numLevels int) (Pyramid, error) {
	if g.Dx() < 1 || g.Dy() < 1 {
		return Pyramid{}, InvalidDimensionsError{What: fmt.Sprintf("pyramid input is %dx%d", g.Dx(), g.Dy())}
	}
	if numLevels < 1 {
		return Pyramid{}, InvalidDimensionsError{What: fmt.Sprintf("pyramid needs >= 1 level, got %d", numLevels)}
	}

	p := Pyramid{Levels: make([]bmath.Grid, numLevels)}
	p.Levels[0] = *g.Copy()

	for k:=1; k<numLevels; k++ {
		prev := &p.Levels[k-1]
		if prev.Dx()/2 < 1 || prev.Dy()/2 < 1 {
			return Pyramid{}, InvalidDimensionsError{
				What: fmt.Sprintf("pyramid level %d would be %dx%d", k, prev.Dx()/2, prev.Dy()/2),
			}
		}
		p.Levels[k] = prev.BoxDownsample()
	}

	return p, nil
}
