package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns the magnitude of bins 0..n/2 of the mean-removed
// series.
func PowerSpectrum(data []float64) []float64 {
	if len(data) < 2 {
		return nil
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	centered := make([]float64, len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	coeffs := fft.FFTReal(centered)
	ps := make([]float64, len(coeffs)/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(coeffs[i])
	}
	return ps
}

// DominantPeriod is the period in seconds of the strongest non-constant
// frequency of data sampled every dt. It reports false for flat series and
// for peaks that complete fewer than two cycles.
func DominantPeriod(data []float64, dt float64) (float64, bool) {
	ps := PowerSpectrum(data)
	if len(ps) < 3 || dt <= 0 {
		return 0, false
	}

	best, peak := 0, 0.0
	for k := 2; k < len(ps); k++ {
		if ps[k] > peak {
			best, peak = k, ps[k]
		}
	}
	if best == 0 || peak < 1e-9 {
		return 0, false
	}
	return float64(len(data)) * dt / float64(best), true
}

// Autocorrelation returns the normalized autocorrelation for lags
// 0..maxLag. A flat series yields nil.
func Autocorrelation(data []float64, maxLag int) []float64 {
	n := len(data)
	if n == 0 {
		return nil
	}
	if maxLag >= n {
		maxLag = n - 1
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	variance := 0.0
	for _, v := range data {
		variance += (v - mean) * (v - mean)
	}
	if variance < 1e-12 {
		return nil
	}

	out := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag; lag++ {
		s := 0.0
		for i := 0; i+lag < n; i++ {
			s += (data[i] - mean) * (data[i+lag] - mean)
		}
		out[lag] = s / variance
	}
	return out
}
