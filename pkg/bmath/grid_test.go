package bmath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridBasics(t *testing.T) {
	g := NewGrid(4, 3)
	require.Equal(t, 4, g.Dx())
	require.Equal(t, 3, g.Dy())

	g.Set(2, 1, 7.5)
	g.Add(2, 1, 0.5)
	assert.Equal(t, 8.0, g.Get(2, 1))
	assert.Equal(t, 0.0, g.Get(0, 0))
}

func TestGridGetClamped(t *testing.T) {
	g := NewGrid(2, 2)
	g.Set(0, 0, 1.0)
	g.Set(1, 0, 2.0)
	g.Set(0, 1, 3.0)
	g.Set(1, 1, 4.0)

	// Out of range coords replicate the nearest border texel.
	assert.Equal(t, 1.0, g.GetClamped(-5, -5))
	assert.Equal(t, 2.0, g.GetClamped(9, -1))
	assert.Equal(t, 3.0, g.GetClamped(-1, 9))
	assert.Equal(t, 4.0, g.GetClamped(9, 9))
	assert.Equal(t, 1.0, g.GetClamped(0, 0))
}

func TestBoxDownsample(t *testing.T) {
	g := NewGrid(4, 2)
	for i, v := range []float64{1, 3, 5, 7, 5, 7, 9, 11} {
		g.Set(i%4, i/4, v)
	}

	d := g.BoxDownsample()
	require.Equal(t, 2, d.Dx())
	require.Equal(t, 1, d.Dy())
	assert.Equal(t, 4.0, d.Get(0, 0)) // mean of 1,3,5,7
	assert.Equal(t, 8.0, d.Get(1, 0)) // mean of 5,7,9,11
}

func TestBlurPreservesConstant(t *testing.T) {
	g := NewGrid(8, 8)
	for i := range g.Values() {
		g.Values()[i] = 3.25
	}

	b := g.Blur()
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			assert.InDelta(t, 3.25, b.Get(x, y), 1e-12)
		}
	}
}

func TestGradientEnergyOrdersBySharpness(t *testing.T) {
	flat := NewGrid(16, 16)
	sharp := NewGrid(16, 16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			flat.Set(x, y, 0.5)
			sharp.Set(x, y, float64((x+y)%2)) // checkerboard
		}
	}

	assert.Equal(t, 0.0, flat.GradientEnergy())
	assert.Greater(t, sharp.GradientEnergy(), flat.GradientEnergy())
}

func TestFindMinMaxAtPercentile(t *testing.T) {
	g := NewGrid(10, 10)
	for i := range g.Values() {
		g.Values()[i] = float64(i + 1)
	}

	min, max := g.FindMinMaxAtPercentile(0.0, 1.0)
	assert.Equal(t, 1.0, min)
	assert.Equal(t, 100.0, max)

	min, max = g.FindMinMaxAtPercentile(0.1, 0.9)
	assert.Equal(t, 11.0, min)
	assert.Equal(t, 91.0, max)
}

func TestCopyIsIndependent(t *testing.T) {
	g := NewGrid(3, 3)
	g.Set(1, 1, 5.0)

	c := g.Copy()
	c.Set(1, 1, 9.0)

	assert.Equal(t, 5.0, g.Get(1, 1))
	assert.Equal(t, 9.0, c.Get(1, 1))
}
