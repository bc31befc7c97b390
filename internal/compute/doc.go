// Package compute provides the kernel-dispatch device used by the device
// tensor backend.
//
// A [Backend] owns device buffers and runs elementwise, matrix-multiply
// and reduction kernels on them. [GridBackend] emulates a GPU on the host:
//
//   - every kernel is launched over a 2-D grid of tiles sized by
//     [LaunchConfig.ThreadsPerBlock]
//   - tiles are spread over [LaunchConfig.Workers] goroutines
//   - a launch returns only after every cell has been written
//
// # Buffers
//
// Kernels never write into one of their inputs; each call takes a distinct
// output buffer and returns [ErrAliasedBuffer] otherwise:
//
//	dst, _ := dev.Alloc(n, n)
//	err := dev.Binary(compute.OpMul, dst, a, b)
//
// Buffers stay alive until [Backend.Free]; [Backend.LiveBuffers] reports
// how many are outstanding, which makes leaks across time steps visible.
//
// Launch geometry is injected, see [Discover].
package compute
