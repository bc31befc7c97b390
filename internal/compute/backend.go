package compute

import "errors"

var (
	ErrShape         = errors.New("compute: buffer shape mismatch")
	ErrAliasedBuffer = errors.New("compute: output buffer aliases an input")
	ErrFreed         = errors.New("compute: buffer already freed")
	ErrForeign       = errors.New("compute: buffer belongs to another backend")
	ErrClosed        = errors.New("compute: backend closed")
)

// Backend is a kernel-dispatch device. Buffers live on the device; data
// crosses to the host only through Upload and Download.
type Backend interface {
	Name() string
	Available() bool

	Alloc(rows, cols int) (*Buffer, error)
	Upload(rows, cols int, data []float64) (*Buffer, error)
	Download(b *Buffer) ([]float64, error)
	Free(b *Buffer)
	LiveBuffers() int

	Binary(op Op, dst, a, b *Buffer) error
	BinaryScalar(op Op, dst, a *Buffer, s float64, swapped bool) error
	Unary(op UnaryOp, dst, a *Buffer) error
	MatMul(dst, a, b *Buffer) error
	Transpose(dst, a *Buffer) error
	Identity(dst *Buffer) error
	Fill(dst *Buffer, v float64) error

	SumColumns(dst, a *Buffer) error
	SumRows(dst, a *Buffer) error
	Sum(a *Buffer) (float64, error)

	Cleanup()
}

// AutoSelectBackend returns the best device for the given launch geometry.
// Only the grid emulator ships in-tree, so it is always the answer.
func AutoSelectBackend(cfg LaunchConfig) Backend {
	return NewGridBackend(cfg)
}
