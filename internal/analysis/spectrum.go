package analysis

import (
	"errors"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns the magnitude of each non-negative frequency
// coefficient of series after removing its mean.
func PowerSpectrum(series []float64) []float64 {
	if len(series) == 0 {
		return nil
	}
	mean := stat.Mean(series, nil)
	centered := make([]float64, len(series))
	for i, v := range series {
		centered[i] = v - mean
	}

	fft := fourier.NewFFT(len(centered))
	coeffs := fft.Coefficients(nil, centered)
	ps := make([]float64, len(coeffs))
	for i, c := range coeffs {
		ps[i] = cmplx.Abs(c)
	}
	return ps
}

// DominantPeriod is the period of the strongest non-constant component of
// a series sampled every dt. The resolution is limited to whole cycles
// over the length of the series.
func DominantPeriod(series []float64, dt float64) (float64, error) {
	if len(series) < 4 || dt <= 0 {
		return 0, errors.New("analysis: series too short for a spectrum")
	}
	ps := PowerSpectrum(series)

	peak := 0
	for i := 1; i < len(ps); i++ {
		if peak == 0 || ps[i] > ps[peak] {
			peak = i
		}
	}
	if ps[peak] == 0 {
		return 0, errors.New("analysis: series has no oscillating component")
	}
	return float64(len(series)) * dt / float64(peak), nil
}
