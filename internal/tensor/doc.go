// Package tensor provides AxisTensor, a per-axis collection of matrices
// used to hold positions, velocities, pairwise differences and forces.
//
// Tensors are immutable. Every operation returns a new tensor backed by
// fresh storage, so intermediates can be shared without copies. Storage
// lives on a Backend: Host keeps gonum matrices in process memory, and
// NewDevice dispatches every operation as a kernel on a compute.Backend.
//
// Operands form a closed set: *AxisTensor (matched axis by axis), *Matrix
// (applied to every axis) and Scalar. Shapes must match exactly; nothing
// is broadcast implicitly.
package tensor
