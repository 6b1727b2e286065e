package burst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoiseModelVarianceAt(t *testing.T) {
	nm := NoiseModel{Shot: 1e-4, Read: 2e-6}

	// var(x) = shot*gain*x + read*gain^2
	assert.InDelta(t, 1e-4*0.5+2e-6, nm.VarianceAt(0.5, 1.0), 1e-15)
	assert.InDelta(t, 1e-4*2.0*0.5+2e-6*4.0, nm.VarianceAt(0.5, 2.0), 1e-15)

	// Never zero, and negative signals clamp to the read floor.
	assert.Greater(t, nm.VarianceAt(0.0, 0.0), 0.0)
	assert.Equal(t, nm.VarianceAt(0.0, 1.0), nm.VarianceAt(-5.0, 1.0))
}

func TestNoiseModelValid(t *testing.T) {
	assert.True(t, NoiseModel{Shot: 1e-4, Read: 0}.Valid())
	assert.False(t, NoiseModel{Shot: 0, Read: 1e-6}.Valid())
	assert.False(t, NoiseModel{Shot: -1, Read: 1e-6}.Valid())
}

func TestFitNoiseModel(t *testing.T) {
	// Synthesize exact (mean, variance) pairs from a known model and
	// check the fit recovers it.
	truth := NoiseModel{Shot: 2e-4, Read: 5e-6}
	const gain = 2.0

	means := []float64{0.05, 0.1, 0.2, 0.4, 0.8}
	variances := make([]float64, len(means))
	for i, m := range means {
		variances[i] = truth.VarianceAt(m, gain)
	}

	nm, err := FitNoiseModel(means, variances, gain)
	require.NoError(t, err)
	assert.InDelta(t, truth.Shot, nm.Shot, 1e-9)
	assert.InDelta(t, truth.Read, nm.Read, 1e-9)
}

func TestFitNoiseModelErrors(t *testing.T) {
	_, err := FitNoiseModel([]float64{0.1}, []float64{1e-5}, 1.0)
	assert.Error(t, err)

	_, err = FitNoiseModel([]float64{0.1, 0.2}, []float64{1e-5}, 1.0)
	assert.Error(t, err)

	_, err = FitNoiseModel([]float64{0.1, 0.2}, []float64{1e-5, 2e-5}, 0.0)
	assert.Error(t, err)

	// A decreasing variance curve fits a negative shot coefficient.
	_, err = FitNoiseModel([]float64{0.1, 0.2, 0.3}, []float64{3e-5, 2e-5, 1e-5}, 1.0)
	assert.Error(t, err)
}
