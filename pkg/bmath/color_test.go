package bmath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMat3(t *testing.T) {
	m := Mat3{
		2, 0, 0,
		0, 3, 0,
		1, 0, 1,
	}

	assert.Equal(t, m, Identity().Mult(m))
	assert.Equal(t, m, m.Mult(Identity()))

	v := m.Apply(Vec3{1, 1, 1})
	assert.Equal(t, Vec3{2, 3, 2}, v)

	assert.False(t, m.IsZero())
	assert.True(t, Mat3{}.IsZero())
}

func TestInvertDiag(t *testing.T) {
	d := Vec3{2, 4, 8}.InvertDiag()
	v := d.Apply(Vec3{2, 4, 8})
	assert.InDelta(t, 1.0, v[0], 1e-12)
	assert.InDelta(t, 1.0, v[1], 1e-12)
	assert.InDelta(t, 1.0, v[2], 1e-12)
}

func TestVec3Clamps(t *testing.T) {
	v := Vec3{-0.5, 0.5, 1.5}
	v.FloorAt(0.0)
	v.CeilingAt(1.0)
	assert.Equal(t, Vec3{0.0, 0.5, 1.0}, v)
}

func TestGammaEncode(t *testing.T) {
	// Linear segment near black, power curve above it, monotonic
	// throughout, endpoints fixed.
	assert.Equal(t, 0.0, GammaEncodeF64(0.0))
	assert.InDelta(t, 1.0, GammaEncodeF64(1.0), 1e-12)
	assert.InDelta(t, 12.92*0.001, GammaEncodeF64(0.001), 1e-12)

	prev := -1.0
	for f := 0.0; f <= 1.0; f += 0.01 {
		g := GammaEncodeF64(f)
		assert.Greater(t, g, prev)
		prev = g
	}
}
