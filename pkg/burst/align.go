package burst

import(
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/abworrall/hdrburst/pkg/bmath"
)

// A MotionVector is the estimated displacement of one tile of an
// alternate frame relative to the reference, in mosaic pixels.
// Vectors are always even, because the search runs on half resolution
// gray planes; that keeps warps Bayer-aligned for free.
type MotionVector struct {
	DX, DY int
}

func (v MotionVector)IsZero() bool { return v.DX == 0 && v.DY == 0 }
func (v MotionVector)mag2() int    { return v.DX*v.DX + v.DY*v.DY }

func (v MotionVector)String() string { return fmt.Sprintf("(%+d,%+d)", v.DX, v.DY) }

// A MotionField holds one vector per tile of the reference frame, at
// full mosaic resolution.
type MotionField struct {
	TileSize       int // mosaic pixels
	TilesX, TilesY int
	Vecs         []MotionVector // row major
}

func NewMotionField(frameW, frameH, tileSize int) MotionField {
	tx := ceilDiv(frameW, tileSize)
	ty := ceilDiv(frameH, tileSize)
	return MotionField{
		TileSize: tileSize,
		TilesX:   tx,
		TilesY:   ty,
		Vecs:     make([]MotionVector, tx*ty),
	}
}

func (mf *MotionField)VecAt(tx, ty int) MotionVector      { return mf.Vecs[ty*mf.TilesX + tx] }
func (mf *MotionField)setVec(tx, ty int, v MotionVector)  { mf.Vecs[ty*mf.TilesX + tx] = v }

// VecAtPixel returns the vector of the tile containing mosaic pixel
// (x,y), clamped to the tile grid.
func (mf *MotionField)VecAtPixel(x, y int) MotionVector {
	tx := clampInt(x / mf.TileSize, 0, mf.TilesX-1)
	ty := clampInt(y / mf.TileSize, 0, mf.TilesY-1)
	return mf.VecAt(tx, ty)
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

func clampInt(v, lo, hi int) int {
	if v < lo { return lo }
	if v > hi { return hi }
	return v
}

// A levelField is the interim motion field at one pyramid level,
// vectors in that level's own pixel units.
type levelField struct {
	tileSize       int
	tilesX, tilesY int
	vecs         []MotionVector
}

func newLevelField(w, h, tileSize int) levelField {
	tx := ceilDiv(w, tileSize)
	ty := ceilDiv(h, tileSize)
	return levelField{tileSize: tileSize, tilesX: tx, tilesY: ty, vecs: make([]MotionVector, tx*ty)}
}

func (lf *levelField)vecAtPixel(x, y int) MotionVector {
	tx := clampInt(x / lf.tileSize, 0, lf.tilesX-1)
	ty := clampInt(y / lf.tileSize, 0, lf.tilesY-1)
	return lf.vecs[ty*lf.tilesX + tx]
}

// Align estimates per-tile motion of one alternate frame against the
// reference, by coarse-to-fine block matching over the two pyramids.
//
// At the coarsest level each tile searches a +/-radius window around
// zero. At every finer level the estimate from the level above is
// scaled by 2 and refined in a small window. Information only ever
// flows coarse to fine. Candidates are scored by L1 patch distance;
// ties go to the smallest displacement magnitude, then to the
// earliest candidate in row-major scan order, so identical inputs
// always produce identical fields.
//
// A tile whose final estimate scores no better than zero motion falls
// back to zero and is reported as an AlignmentDegraded notice - never
// an error; the merge's robustness weighting absorbs the occasional
// poor tile.
func Align(ctx context.Context, refPyr, altPyr Pyramid, cfg Config, frameIndex int) (MotionField, []AlignmentDegraded, error) {
	if refPyr.NumLevels() != altPyr.NumLevels() ||
		refPyr.Finest().Dx() != altPyr.Finest().Dx() ||
		refPyr.Finest().Dy() != altPyr.Finest().Dy() {
		return MotionField{}, nil, DimensionMismatchError{
			FrameIndex: frameIndex,
			Want:       fmt.Sprintf("%dx%d/%d levels", refPyr.Finest().Dx(), refPyr.Finest().Dy(), refPyr.NumLevels()),
			Got:        fmt.Sprintf("%dx%d/%d levels", altPyr.Finest().Dx(), altPyr.Finest().Dy(), altPyr.NumLevels()),
		}
	}

	numLevels := refPyr.NumLevels()
	grayTile := cfg.TileSize / 2 // gray planes are half mosaic resolution

	// Radii config is coarsest-first; radii[k] is for pyramid level k.
	radii := make([]int, numLevels)
	for k:=0; k<numLevels; k++ {
		radii[k] = cfg.SearchRadiusPerLevel[numLevels-1-k]
	}

	fields := make([]levelField, numLevels)

	for k:=numLevels-1; k>=0; k-- {
		ref := &refPyr.Levels[k]
		alt := &altPyr.Levels[k]
		lf := newLevelField(ref.Dx(), ref.Dy(), grayTile)

		var coarser *levelField
		if k < numLevels-1 {
			coarser = &fields[k+1]
		}

		if err := forEachTileParallel(ctx, lf.tilesX, lf.tilesY, cfg.Workers, func(tx, ty int) {
			lf.vecs[ty*lf.tilesX + tx] = searchTile(ref, alt, coarser, tx, ty, grayTile, radii[k])
		}); err != nil {
			return MotionField{}, nil, err
		}

		fields[k] = lf
	}

	// Finest level: apply the zero-motion fallback, then scale the
	// vectors up to mosaic resolution.
	finest := &fields[0]
	ref0, alt0 := refPyr.Finest(), altPyr.Finest()
	degraded := []AlignmentDegraded{}

	mf := NewMotionField(ref0.Dx()*2, ref0.Dy()*2, cfg.TileSize)
	for ty:=0; ty<finest.tilesY; ty++ {
		for tx:=0; tx<finest.tilesX; tx++ {
			v := finest.vecs[ty*finest.tilesX + tx]
			if !v.IsZero() {
				best := patchDist(ref0, alt0, tx*grayTile, ty*grayTile, v.DX, v.DY, grayTile)
				zero := patchDist(ref0, alt0, tx*grayTile, ty*grayTile, 0, 0, grayTile)
				if best >= zero {
					v = MotionVector{}
					degraded = append(degraded, AlignmentDegraded{FrameIndex: frameIndex, TileX: tx, TileY: ty})
				}
			}
			mf.setVec(tx, ty, MotionVector{DX: v.DX * 2, DY: v.DY * 2})
		}
	}

	return mf, degraded, nil
}

// searchTile scores every candidate displacement in the window and
// keeps the best. The scan order (dy outer, dx inner, both ascending)
// is the row-major order the tie-break rules refer to.
func searchTile(ref, alt *bmath.Grid, coarser *levelField, tx, ty, tileSize, radius int) MotionVector {
	ox, oy := tx*tileSize, ty*tileSize

	guess := MotionVector{}
	if coarser != nil {
		// Center of this tile, mapped into the coarser level.
		cx := (ox + tileSize/2) / 2
		cy := (oy + tileSize/2) / 2
		prev := coarser.vecAtPixel(cx, cy)
		guess = MotionVector{DX: prev.DX * 2, DY: prev.DY * 2}
	}

	best := guess
	bestDist := math.MaxFloat64

	for dy:=-radius; dy<=radius; dy++ {
		for dx:=-radius; dx<=radius; dx++ {
			cand := MotionVector{DX: guess.DX + dx, DY: guess.DY + dy}
			d := patchDist(ref, alt, ox, oy, cand.DX, cand.DY, tileSize)
			if d < bestDist || (d == bestDist && cand.mag2() < best.mag2()) {
				best = cand
				bestDist = d
			}
		}
	}

	return best
}

// patchDist is the L1 distance between the reference tile at (ox,oy)
// and the alternate tile displaced by (dx,dy). Both sides sample with
// replicated borders, so edge tiles and large displacements are safe.
func patchDist(ref, alt *bmath.Grid, ox, oy, dx, dy, tileSize int) float64 {
	tot := 0.0
	for y:=0; y<tileSize; y++ {
		for x:=0; x<tileSize; x++ {
			d := ref.GetClamped(ox+x, oy+y) - alt.GetClamped(ox+x+dx, oy+y+dy)
			if d < 0 { d = -d }
			tot += d
		}
	}
	return tot
}

// forEachTileParallel runs fn over every tile with a fixed worker
// pool. Each tile writes only its own output slot, so there is no
// locking. Cancellation is checked between tiles, never mid-tile.
func forEachTileParallel(ctx context.Context, tilesX, tilesY, workers int, fn func(tx, ty int)) error {
	if workers < 1 { workers = 1 }

	type tileJob struct{ tx, ty int }
	jobsChan := make(chan tileJob, tilesX*tilesY)

	var wg sync.WaitGroup
	for i:=0; i<workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobsChan {
				if ctx.Err() != nil {
					continue // drain without working; caller reports the cancellation
				}
				fn(job.tx, job.ty)
			}
		}()
	}

	for ty:=0; ty<tilesY; ty++ {
		for tx:=0; tx<tilesX; tx++ {
			jobsChan<- tileJob{tx, ty}
		}
	}
	close(jobsChan)
	wg.Wait()

	return ctx.Err()
}
