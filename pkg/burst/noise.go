package burst

import(
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// A NoiseModel predicts how much variance the sensor adds to a signal
// at a given brightness, the usual shot+read formulation:
//
//    var(x) = Shot*gain*x + Read*gain^2
//
// with x a normalized sample in [0,1]. Shot and Read are per-camera
// coefficients at unit gain; the burst's gain comes from its ISO.
// The merge uses this envelope to decide whether a patch difference
// is just noise (merge it) or real scene mismatch (reject it).
type NoiseModel struct {
	Shot float64 `yaml:"shot"`
	Read float64 `yaml:"read"`
}

func (nm NoiseModel)String() string {
	return fmt.Sprintf("noise[shot %g, read %g]", nm.Shot, nm.Read)
}

func (nm NoiseModel)Valid() bool {
	return nm.Shot > 0.0 && nm.Read >= 0.0
}

// VarianceAt returns the expected noise variance for a normalized
// signal level. Never returns zero, so it is safe to divide by.
func (nm NoiseModel)VarianceAt(signal, gain float64) float64 {
	if signal < 0.0 { signal = 0.0 }
	v := nm.Shot*gain*signal + nm.Read*gain*gain
	if v < 1e-12 { v = 1e-12 }
	return v
}

// FitNoiseModel recovers shot/read coefficients from measured
// (mean, variance) pairs of flat patches, e.g. from a calibration
// burst of a gray card at several brightnesses. Plain least squares
// on var = read' + shot'*mean.
func FitNoiseModel(means, variances []float64, gain float64) (NoiseModel, error) {
	if len(means) != len(variances) || len(means) < 2 {
		return NoiseModel{}, fmt.Errorf("need >= 2 (mean,variance) pairs, got %d/%d", len(means), len(variances))
	}
	if gain <= 0.0 {
		return NoiseModel{}, fmt.Errorf("gain must be positive, got %g", gain)
	}

	alpha, beta := stat.LinearRegression(means, variances, nil, false)
	nm := NoiseModel{
		Shot: beta / gain,
		Read: alpha / (gain * gain),
	}
	if !nm.Valid() {
		return nm, fmt.Errorf("fit produced unusable model %s", nm)
	}
	return nm, nil
}

// MeasurePatch returns the mean and variance of a sample slice, for
// calibration and for test assertions about noise reduction.
func MeasurePatch(samples []float64) (mean, variance float64) {
	return stat.MeanVariance(samples, nil)
}
