// Package analysis post-processes recorded runs.
//
//   - [Analyze] and [Summarize]: mean, spread and extremes of the energy
//     and temperature series, with drift and relative error
//   - [PowerSpectrum] and [DominantFrequency]: spectrum of an energy
//     series, for spotting the oscillation of a bound pair
//   - [LyapunovExponent]: largest Lyapunov exponent of a particle system
//     via trajectory separation
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	lambda, err := analysis.LyapunovExponent(sys, dt, 5000, 50, 1e-8)
//	if err == nil && lambda > 0 {
//	    // trajectories diverge
//	}
package analysis
