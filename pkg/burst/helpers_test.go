package burst

import (
	"math"
	"math/rand"

	"github.com/abworrall/hdrburst/pkg/bcolor"
)

// Synthetic burst helpers shared across the package tests.

func testMeta(index int) Meta {
	return Meta{
		Index:        index,
		ISO:          100,
		Gain:         1.0,
		BlackLevel:   0,
		WhiteLevel:   0xFFFF,
		CFA:          bcolor.RGGB,
		WhiteBalance: bcolor.NeutralWhiteBalance(),
	}
}

// texture is a smooth non-periodic scene, defined over all of Z^2 so
// frames can sample it at any displacement.
func texture(x, y int) uint16 {
	fx, fy := float64(x), float64(y)
	v := math.Sin(fx*0.31) * math.Sin(fy*0.23)
	v += math.Sin(fx*0.077 + fy*0.113)
	v += 0.3 * math.Sin(fx*0.011*fy*0.007)
	return uint16(20000.0 + 8000.0*v)
}

// textureFrame samples the scene displaced by (dx,dy) mosaic pixels,
// so alignment against the (0,0) frame should recover (dx,dy).
func textureFrame(index, w, h, dx, dy int) *Frame {
	pix := make([]uint16, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pix[y*w+x] = texture(x-dx, y-dy)
		}
	}
	return NewFrame(w, h, pix, testMeta(index))
}

// noisyTextureFrame is the shifted scene plus gaussian noise of known
// sigma, for end to end scenarios.
func noisyTextureFrame(index, w, h, dx, dy int, sigma float64, seed int64) *Frame {
	rng := rand.New(rand.NewSource(seed))
	pix := make([]uint16, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float64(texture(x-dx, y-dy)) + rng.NormFloat64()*sigma
			if v < 0 {
				v = 0
			}
			if v > 0xFFFF {
				v = 0xFFFF
			}
			pix[y*w+x] = uint16(v)
		}
	}
	return NewFrame(w, h, pix, testMeta(index))
}

// noisyFrame is a flat field at the given level plus gaussian noise,
// deterministic per seed.
func noisyFrame(index, w, h int, level, sigma float64, seed int64) *Frame {
	rng := rand.New(rand.NewSource(seed))
	pix := make([]uint16, w*h)
	for i := range pix {
		v := level + rng.NormFloat64()*sigma
		if v < 0 {
			v = 0
		}
		if v > 0xFFFF {
			v = 0xFFFF
		}
		pix[i] = uint16(v)
	}
	return NewFrame(w, h, pix, testMeta(index))
}

func testConfig() Config {
	c := DefaultConfig()
	c.Workers = 4
	c.Finalize()
	return c
}

func buildPyramids(frames []*Frame, numLevels int) []Pyramid {
	pyrs := make([]Pyramid, len(frames))
	for i, f := range frames {
		p, err := BuildPyramid(f.GrayPlane(), numLevels)
		if err != nil {
			panic(err)
		}
		pyrs[i] = p
	}
	return pyrs
}
