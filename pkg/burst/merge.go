package burst

import(
	"context"
	"fmt"
	"math"

	"github.com/abworrall/hdrburst/pkg/bmath"
)

// The merge works on half-overlapping tiles (stride = TileSize/2),
// each windowed by a raised cosine, so neighboring tiles cross-fade
// instead of forming seams. For each tile and each alternate frame we
// fetch the motion-compensated source tile, score how much it
// disagrees with the reference relative to the expected noise, and
// turn that into a robustness weight in [0,1]. The reference always
// contributes with weight 1, so the total fused weight per pixel
// never drops below 1.

// robustnessDecay controls how fast the weight falls once a tile's
// dissimilarity exceeds the noise envelope. weight = 1 inside the
// envelope, exp(-(d2-v)/(decay*v)) beyond it; with decay 8 the weight
// is down to ~0.3 by d2 = 10v.
const robustnessDecay = 8.0

// robustnessWeight maps a patch dissimilarity (mean squared
// difference, normalized units) and an expected noise variance to a
// merge weight. Monotonically non-increasing in d2, smooth, no hard
// cutoff.
func robustnessWeight(d2, noiseVar float64) float64 {
	if d2 <= noiseVar {
		return 1.0
	}
	return math.Exp(-(d2 - noiseVar) / (robustnessDecay * noiseVar))
}

// raisedCosine is the 1D window for tile blending; offset i in [0,n).
// Shifted copies at stride n/2 sum to exactly 1.
func raisedCosine(i, n int) float64 {
	return 0.5 - 0.5*math.Cos(2.0*math.Pi*(float64(i)+0.5)/float64(n))
}

type mergeTileResult struct {
	sums    []float64 // per-pixel: ref + sum of weight*alt, DN scale
	tweight float64   // temporal weight: 1 + sum of the alt weights
}

// Merge fuses the burst into a single noise-reduced mosaic. The
// second return is the per-pixel total temporal weight (>= 1
// everywhere), handy for debug dumps and for verifying what the merge
// did. All-or-nothing: on error there is no partial mosaic.
func Merge(ctx context.Context, ref *Frame, alts []*Frame, fields []MotionField, nm NoiseModel, cfg Config) (*Mosaic, *bmath.Grid, error) {
	if !nm.Valid() {
		return nil, nil, ConfigurationError{What: fmt.Sprintf("noise model %s unusable", nm)}
	}
	if len(fields) != len(alts) {
		return nil, nil, ConfigurationError{What: fmt.Sprintf("%d motion fields for %d alternate frames", len(fields), len(alts))}
	}

	want := NewMotionField(ref.Width, ref.Height, cfg.TileSize)
	for i, mf := range fields {
		if mf.TileSize != want.TileSize || mf.TilesX != want.TilesX || mf.TilesY != want.TilesY {
			return nil, nil, ConfigurationError{
				What: fmt.Sprintf("motion field %d is %dx%d tiles of %d, frame grid is %dx%d tiles of %d",
					i, mf.TilesX, mf.TilesY, mf.TileSize, want.TilesX, want.TilesY, want.TileSize),
			}
		}
	}
	for _, alt := range alts {
		if !ref.SameGeometry(alt) {
			return nil, nil, DimensionMismatchError{
				FrameIndex: alt.Meta.Index,
				Want:       fmt.Sprintf("%dx%d %s", ref.Width, ref.Height, ref.Meta.CFA),
				Got:        fmt.Sprintf("%dx%d %s", alt.Width, alt.Height, alt.Meta.CFA),
			}
		}
	}

	if len(alts) == 0 {
		// Single frame burst: nothing to merge, all weights trivially 1.
		weights := bmath.NewGrid(ref.Width, ref.Height)
		for i := range weights.Values() {
			weights.Values()[i] = 1.0
		}
		return FrameToMosaic(ref), &weights, nil
	}

	T := cfg.TileSize
	hs := T / 2
	tilesX := ceilDiv(ref.Width, hs) + 1
	tilesY := ceilDiv(ref.Height, hs) + 1

	results := make([]mergeTileResult, tilesX*tilesY)

	if err := forEachTileParallel(ctx, tilesX, tilesY, cfg.Workers, func(tx, ty int) {
		results[ty*tilesX + tx] = mergeTile(ref, alts, fields, nm, tx*hs - hs, ty*hs - hs, T)
	}); err != nil {
		return nil, nil, fmt.Errorf("merge cancelled: %w", err)
	}

	// Accumulate tiles in row-major order, so the output is
	// deterministic regardless of how the workers were scheduled.
	num := bmath.NewGrid(ref.Width, ref.Height)
	den := bmath.NewGrid(ref.Width, ref.Height)
	wnum := bmath.NewGrid(ref.Width, ref.Height)
	wden := bmath.NewGrid(ref.Width, ref.Height)

	for ty:=0; ty<tilesY; ty++ {
		for tx:=0; tx<tilesX; tx++ {
			res := &results[ty*tilesX + tx]
			ox, oy := tx*hs - hs, ty*hs - hs

			for y:=0; y<T; y++ {
				py := oy + y
				if py < 0 || py >= ref.Height { continue }
				wy := raisedCosine(y, T)
				for x:=0; x<T; x++ {
					px := ox + x
					if px < 0 || px >= ref.Width { continue }
					win := wy * raisedCosine(x, T)

					num.Add(px, py, win*res.sums[y*T+x])
					den.Add(px, py, win*res.tweight)
					wnum.Add(px, py, win*res.tweight)
					wden.Add(px, py, win)
				}
			}
		}
	}

	out := NewMosaic(ref.Width, ref.Height, ref.Meta)
	weights := bmath.NewGrid(ref.Width, ref.Height)
	for y:=0; y<ref.Height; y++ {
		for x:=0; x<ref.Width; x++ {
			out.Set(x, y, num.Get(x, y) / den.Get(x, y))
			weights.Set(x, y, wnum.Get(x, y) / wden.Get(x, y))
		}
	}

	return out, &weights, nil
}

// mergeTile computes the temporal merge for one windowed tile at
// mosaic origin (ox,oy). The robustness weight is per tile per frame;
// the per-pixel blend across tiles happens in the caller.
func mergeTile(ref *Frame, alts []*Frame, fields []MotionField, nm NoiseModel, ox, oy, T int) mergeTileResult {
	res := mergeTileResult{
		sums:    make([]float64, T*T),
		tweight: 1.0,
	}

	scale := 1.0 / float64(ref.Meta.WhiteLevel - ref.Meta.BlackLevel)
	black := float64(ref.Meta.BlackLevel)
	norm := func(dn float64) float64 {
		v := (dn - black) * scale
		if v < 0.0 { return 0.0 }
		return v
	}

	// Start with the reference contribution, weight 1.
	for y:=0; y<T; y++ {
		for x:=0; x<T; x++ {
			res.sums[y*T+x] = float64(ref.AtClamped(ox+x, oy+y))
		}
	}

	// Motion is looked up at the tile center, clamped into the frame.
	cx := clampInt(ox + T/2, 0, ref.Width-1)
	cy := clampInt(oy + T/2, 0, ref.Height-1)

	for i, alt := range alts {
		mv := fields[i].VecAtPixel(cx, cy)

		// Dissimilarity between the reference tile and the fetched
		// alternate tile, as mean squared difference in normalized units.
		d2 := 0.0
		meanSignal := 0.0
		for y:=0; y<T; y++ {
			for x:=0; x<T; x++ {
				r := norm(float64(ref.AtClamped(ox+x, oy+y)))
				a := norm(float64(alt.AtClamped(ox+x+mv.DX, oy+y+mv.DY)))
				d := r - a
				d2 += d * d
				meanSignal += r
			}
		}
		n := float64(T * T)
		d2 /= n
		meanSignal /= n

		w := robustnessWeight(d2, nm.VarianceAt(meanSignal, ref.Meta.Gain))
		if w <= 0.0 {
			continue
		}

		for y:=0; y<T; y++ {
			for x:=0; x<T; x++ {
				res.sums[y*T+x] += w * float64(alt.AtClamped(ox+x+mv.DX, oy+y+mv.DY))
			}
		}
		res.tweight += w
	}

	return res
}
