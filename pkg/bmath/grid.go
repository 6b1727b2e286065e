package bmath

import(
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
)

// A Grid is a flat 2D array of floats, indexed by stride rather than
// nested slices, so tile workers can iterate it cheaply.
type Grid struct {
	stride int
	values []float64
}

func NewGrid(w, h int) Grid {
	return Grid{
		stride: w,
		values: make([]float64, w*h),
	}
}

func (g1 *Grid)NewFromThis() Grid        { return NewGrid(g1.Dx(), g1.Dy()) }
func (g *Grid)Set(x, y int, v float64)   { g.values[g.stride*y + x] = v }
func (g *Grid)Get(x, y int) float64      { return g.values[g.stride*y + x] }
func (g *Grid)Add(x, y int, v float64)   { g.values[g.stride*y + x] += v }
func (g *Grid)Dx() int                   { return g.stride }
func (g *Grid)Dy() int                   { return len(g.values) / g.stride }
func (g *Grid)Values() []float64         { return g.values }

func (g1 *Grid)Copy() *Grid {
	g2 := Grid{stride: g1.stride, values: make([]float64, len(g1.values))}
	copy(g2.values, g1.values)
	return &g2
}

// GetClamped samples with replicated borders, so callers can walk off
// the edge of the grid without caring.
func (g *Grid)GetClamped(x, y int) float64 {
	if x < 0          { x = 0 }
	if x >= g.Dx()    { x = g.Dx()-1 }
	if y < 0          { y = 0 }
	if y >= g.Dy()    { y = g.Dy()-1 }
	return g.values[g.stride*y + x]
}

// BoxDownsample returns a grid half the size in each dimension, each
// output value the box-filtered average of the corresponding 2x2 block.
func (g1 *Grid)BoxDownsample() Grid {
	width := g1.Dx() / 2
	height := g1.Dy() / 2
	g2 := NewGrid(width, height)

	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			p := g1.Get(2*x,   2*y)
			p += g1.Get(2*x+1, 2*y)
			p += g1.Get(2*x,   2*y+1)
			p += g1.Get(2*x+1, 2*y+1)
			g2.Set(x, y, p/4.0)
		}
	}

	return g2
}

// Blur does a separable [1 2 1]/4 blur; at the borders the edge
// value is weighted 3x, which keeps the kernel sum at 4.
func (g1 Grid)Blur() Grid {
	width := g1.Dx()
	height := g1.Dy()
	g2 := g1.NewFromThis()

	T := g1.NewFromThis()

	//--- X blur, build up in T
	for y:=0; y<height; y++ {
		for x:=1; x<width-1; x++ {
			t := 2.0*g1.Get(x,y)
			t += g1.Get(x-1,y)
			t += g1.Get(x+1,y)
			T.Set(x, y, t/4.0)
		}
		T.Set(0, y,       (3.0*g1.Get(0,      y) + g1.Get(1,      y)) / 4.0)
		T.Set(width-1, y, (3.0*g1.Get(width-1,y) + g1.Get(width-2,y)) / 4.0)
	}

	//--- Y blur, read from T and generate output
	for x:=0; x<width; x++ {
		for y:=1; y<height-1; y++ {
			t := 2.0*T.Get(x,y)
			t += T.Get(x,y-1)
			t += T.Get(x,y+1)
			g2.Set(x, y, t/4.0)
		}
		g2.Set(x, 0,        (3.0*T.Get(x,       0) + T.Get(x,       1)) / 4.0)
		g2.Set(x, height-1, (3.0*T.Get(x,height-1) + T.Get(x,height-2)) / 4.0)
	}

	return g2
}

// BoxBlur averages over a (2r+1)^2 window with clamped borders. Used
// for chroma smoothing, where a soft cheap kernel is fine.
func (g1 *Grid)BoxBlur(r int) Grid {
	if r <= 0 {
		return *g1.Copy()
	}

	width := g1.Dx()
	height := g1.Dy()
	g2 := g1.NewFromThis()
	n := float64((2*r+1)*(2*r+1))

	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			t := 0.0
			for dy:=-r; dy<=r; dy++ {
				for dx:=-r; dx<=r; dx++ {
					t += g1.GetClamped(x+dx, y+dy)
				}
			}
			g2.Set(x, y, t/n)
		}
	}

	return g2
}

// GradientEnergy sums squared forward differences; a crude but
// effective sharpness score for reference frame selection.
func (g *Grid)GradientEnergy() float64 {
	tot := 0.0
	for y:=0; y<g.Dy()-1; y++ {
		for x:=0; x<g.Dx()-1; x++ {
			gx := g.Get(x+1,y) - g.Get(x,y)
			gy := g.Get(x,y+1) - g.Get(x,y)
			tot += gx*gx + gy*gy
		}
	}
	return tot
}

// FindMinMaxAtPercentile sorts the non-zero values and reads off the
// requested percentiles, e.g. (0.001, 0.999).
func (g *Grid)FindMinMaxAtPercentile(minPrct, maxPrct float64) (float64, float64) {
	vals := []float64{}
	for i:=0; i<len(g.values); i++ {
		if v := g.values[i]; v != 0.0 {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return 0.0, 0.0
	}

	sort.Float64s(vals)

	iMin := int(minPrct * float64(len(vals)))
	iMax := int(maxPrct * float64(len(vals)))
	if iMin < 0          { iMin = 0 }
	if iMax >= len(vals) { iMax = len(vals)-1 }

	return vals[iMin], vals[iMax]
}

func (g *Grid)Stats() string {
	min := math.MaxFloat64
	max := -1.0 * min

	for i:=0; i<len(g.values); i++ {
		if g.values[i] > max { max = g.values[i] }
		if g.values[i] < min { min = g.values[i] }
	}
	return fmt.Sprintf("grid[%dx%d, vals{%f,%f}]", g.Dx(), g.Dy(), min, max)
}

// ToImg saves a simple grayscale, based on the range of values in the grid,
// gamma scaled so it looks normal to human vision. Debugging only.
func (g *Grid)ToImg(title, filename string) {
	min, max := math.MaxFloat64, -math.MaxFloat64
	for i:=0; i<len(g.values); i++ {
		if g.values[i] > max { max = g.values[i] }
		if g.values[i] < min { min = g.values[i] }
	}
	if max <= min {
		max = min + 1.0
	}

	img := image.NewRGBA64(image.Rectangle{Max:image.Point{g.Dx(), g.Dy()}})
	for x:=0; x<g.Dx(); x++ {
		for y:=0; y<g.Dy(); y++ {
			gray := GammaEncodeF64((g.Get(x,y) - min) / (max - min))
			col := color.RGBA64{uint16(gray * 65535.0), uint16(gray * 65535.0), uint16(gray * 65535.0), 0xFFFF}
			img.Set(x, y, col)
		}
	}

	dc := gg.NewContextForImage(img)
	dc.SetRGB(1,1,1)
	dc.DrawString(title, 50, 50)
	dc.SavePNG(filename)
}
