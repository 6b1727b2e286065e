package burst

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignIdenticalFrames(t *testing.T) {
	cfg := testConfig()
	frames := []*Frame{textureFrame(0, 128, 128, 0, 0), textureFrame(1, 128, 128, 0, 0)}
	pyrs := buildPyramids(frames, cfg.NumPyramidLevels)

	mf, degraded, err := Align(context.Background(), pyrs[0], pyrs[1], cfg, 1)
	require.NoError(t, err)
	assert.Empty(t, degraded)

	for _, v := range mf.Vecs {
		assert.True(t, v.IsZero(), "identical frames should align at %s", v)
	}
}

func TestAlignRecoversKnownShift(t *testing.T) {
	cfg := testConfig()
	cfg.SearchRadiusPerLevel = []int{8, 4, 4, 4} // roomy fine levels
	const dx, dy = 4, 2 // mosaic pixels, even so the gray planes see (2,1)

	ref := textureFrame(0, 128, 128, 0, 0)
	alt := textureFrame(1, 128, 128, dx, dy)
	pyrs := buildPyramids([]*Frame{ref, alt}, cfg.NumPyramidLevels)

	mf, _, err := Align(context.Background(), pyrs[0], pyrs[1], cfg, 1)
	require.NoError(t, err)

	// Interior tiles must nail the displacement; border tiles see
	// replicated-edge content and are allowed to disagree.
	for ty := 1; ty < mf.TilesY-1; ty++ {
		for tx := 1; tx < mf.TilesX-1; tx++ {
			v := mf.VecAt(tx, ty)
			assert.Equal(t, MotionVector{DX: dx, DY: dy}, v, "tile (%d,%d)", tx, ty)
		}
	}
}

func TestAlignVectorsAlwaysEven(t *testing.T) {
	cfg := testConfig()
	ref := textureFrame(0, 96, 96, 0, 0)
	alt := textureFrame(1, 96, 96, 6, -4)
	pyrs := buildPyramids([]*Frame{ref, alt}, cfg.NumPyramidLevels)

	mf, _, err := Align(context.Background(), pyrs[0], pyrs[1], cfg, 1)
	require.NoError(t, err)

	for _, v := range mf.Vecs {
		assert.Zero(t, v.DX%2, "vector %s has odd DX", v)
		assert.Zero(t, v.DY%2, "vector %s has odd DY", v)
	}
}

func TestAlignDimensionMismatch(t *testing.T) {
	cfg := testConfig()
	ref := textureFrame(0, 128, 128, 0, 0)
	alt := textureFrame(1, 96, 128, 0, 0)
	refPyr, _ := BuildPyramid(ref.GrayPlane(), cfg.NumPyramidLevels)
	altPyr, _ := BuildPyramid(alt.GrayPlane(), cfg.NumPyramidLevels)

	_, _, err := Align(context.Background(), refPyr, altPyr, cfg, 1)
	var dme DimensionMismatchError
	require.ErrorAs(t, err, &dme)
	assert.Equal(t, 1, dme.FrameIndex)
}

func TestAlignDeterministicAcrossWorkerCounts(t *testing.T) {
	ref := textureFrame(0, 128, 128, 0, 0)
	alt := textureFrame(1, 128, 128, -2, 4)

	var first MotionField
	for i, workers := range []int{1, 3, 8} {
		cfg := testConfig()
		cfg.Workers = workers
		pyrs := buildPyramids([]*Frame{ref, alt}, cfg.NumPyramidLevels)

		mf, _, err := Align(context.Background(), pyrs[0], pyrs[1], cfg, 1)
		require.NoError(t, err)

		if i == 0 {
			first = mf
		} else if diff := cmp.Diff(first.Vecs, mf.Vecs); diff != "" {
			t.Errorf("workers=%d changed the field:\n%s", workers, diff)
		}
	}
}

func TestAlignCancellation(t *testing.T) {
	cfg := testConfig()
	ref := textureFrame(0, 128, 128, 0, 0)
	alt := textureFrame(1, 128, 128, 2, 2)
	pyrs := buildPyramids([]*Frame{ref, alt}, cfg.NumPyramidLevels)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Align(ctx, pyrs[0], pyrs[1], cfg, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMotionFieldVecAtPixel(t *testing.T) {
	mf := NewMotionField(64, 64, 16)
	require.Equal(t, 4, mf.TilesX)
	require.Equal(t, 4, mf.TilesY)

	mf.setVec(1, 2, MotionVector{DX: 6, DY: -2})
	assert.Equal(t, MotionVector{DX: 6, DY: -2}, mf.VecAtPixel(20, 40))
	assert.True(t, mf.VecAtPixel(0, 0).IsZero())

	// Out of range pixels clamp onto the tile grid.
	assert.True(t, mf.VecAtPixel(1000, 1000).IsZero())
}
