// Package physics provides the Lennard-Jones pair interaction used by the
// engine.
//
// [PairwiseField] works entirely on [tensor.AxisTensor] values, so the
// same code runs on the host and on a kernel device:
//
//	field := physics.PairwiseField{Sigma: 1, Eps: 1}
//	u, _ := field.Potential(pos)
//	f, _ := field.Force(pos)
//	defer f.Release()
//
// # Energy Convention
//
// Potential counts each unordered pair once. Force is the exact negative
// gradient of that potential, so Newton's third law holds and the total
// force on the system is zero up to rounding.
package physics
