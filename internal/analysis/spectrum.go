package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// PowerSpectrum returns the one-sided amplitude spectrum of a series
// sampled every dt, with its mean removed. freqs[i] is the frequency of
// power[i].
func PowerSpectrum(series []float64, dt float64) (freqs, power []float64) {
	n := len(series)
	if n < 2 || !(dt > 0) {
		return nil, nil
	}

	mean := floats.Sum(series) / float64(n)
	centred := make([]float64, n)
	copy(centred, series)
	floats.AddConst(-mean, centred)

	spectrum := fft.FFTReal(centred)

	half := n/2 + 1
	freqs = make([]float64, half)
	power = make([]float64, half)
	for i := 0; i < half; i++ {
		freqs[i] = float64(i) / (float64(n) * dt)
		power[i] = cmplx.Abs(spectrum[i]) / float64(n)
	}
	return freqs, power
}

// DominantFrequency is the non-zero frequency with the largest amplitude.
func DominantFrequency(series []float64, dt float64) float64 {
	freqs, power := PowerSpectrum(series, dt)
	if len(power) < 2 {
		return 0
	}
	i := floats.MaxIdx(power[1:]) + 1
	return freqs[i]
}
