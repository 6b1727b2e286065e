package burst

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/abworrall/hdrburst/pkg/bcolor"
)

func writeTestTIFF(t *testing.T, filename string, w, h int, fill func(x, y int) uint16) {
	t.Helper()

	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray16(x, y, color.Gray16{Y: fill(x, y)})
		}
	}

	f, err := os.Create(filename)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, tiff.Encode(f, img, nil))
}

func TestBurstLoadDirectory(t *testing.T) {
	dir := t.TempDir()

	// Three frames plus a config, all in one directory. ReadDir sorts,
	// so frame order follows the filenames.
	for i, name := range []string{"frame-00.tif", "frame-01.tif", "frame-02.tif"} {
		base := uint16(10000 * (i + 1))
		writeTestTIFF(t, filepath.Join(dir, name), 16, 16, func(x, y int) uint16 {
			return base + uint16(x)
		})
	}
	cfgYaml := `
tilesize: 8
numpyramidlevels: 2
searchradiusperlevel: [4, 2]
camera:
  blacklevel: 64
  whitelevel: 65535
  cfa: BGGR
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "burst.yaml"), []byte(cfgYaml), 0644))

	b := NewBurst()
	require.NoError(t, b.Load(dir))
	require.NoError(t, b.Finalize())

	require.Len(t, b.Frames, 3)
	assert.Equal(t, 8, b.Config.TileSize)

	for i, f := range b.Frames {
		assert.Equal(t, i, f.Meta.Index)
		assert.Equal(t, uint16(10000*(i+1)), f.At(0, 0))
		assert.Equal(t, uint16(10000*(i+1)+5), f.At(5, 7))
		assert.Equal(t, 64, f.Meta.BlackLevel)
		assert.Equal(t, bcolor.BGGR, f.Meta.CFA)
		assert.Equal(t, int64(100), f.Meta.ISO) // no EXIF in these files
		assert.Equal(t, 1.0, f.Meta.Gain)
	}
}

func TestBurstLoadErrors(t *testing.T) {
	b := NewBurst()
	assert.Error(t, b.Load("/no/such/path"))

	// Finalizing an empty burst fails cleanly.
	var ebe EmptyBurstError
	require.ErrorAs(t, NewBurst().Finalize(), &ebe)
}

func TestBurstLoadIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0644))
	writeTestTIFF(t, filepath.Join(dir, "frame.tif"), 8, 8, func(x, y int) uint16 { return 100 })

	b := NewBurst()
	require.NoError(t, b.Load(dir))
	require.Len(t, b.Frames, 1)
}
