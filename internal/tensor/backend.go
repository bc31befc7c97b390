package tensor

import (
	"github.com/san-kum/ljsim/internal/compute"
	"gonum.org/v1/gonum/mat"
)

// Storage is a backend-owned matrix. Only the backend that produced it may
// read it.
type Storage interface {
	Dims() (r, c int)
}

// Backend evaluates matrix kernels. Every operation returns freshly
// allocated storage and never writes to its inputs.
type Backend interface {
	Name() string

	Upload(m mat.Matrix) (Storage, error)
	Download(s Storage) (*mat.Dense, error)
	Free(s Storage)

	Full(r, c int, v float64) (Storage, error)
	Eye(n int) (Storage, error)

	Binary(op compute.Op, a, b Storage) (Storage, error)
	BinaryScalar(op compute.Op, a Storage, s float64, swapped bool) (Storage, error)
	Unary(op compute.UnaryOp, a Storage) (Storage, error)
	MatMul(a, b Storage) (Storage, error)
	Transpose(a Storage) (Storage, error)

	SumColumns(a Storage) (Storage, error)
	SumRows(a Storage) (Storage, error)
	Sum(a Storage) (float64, error)
}
