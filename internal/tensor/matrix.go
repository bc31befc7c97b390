package tensor

import (
	"fmt"

	"github.com/san-kum/ljsim/internal/compute"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Matrix is an immutable backend-resident matrix. Arithmetic returns a new
// Matrix; inputs are never written.
type Matrix struct {
	be Backend
	s  Storage
}

// NewMatrix uploads m to be.
func NewMatrix(be Backend, m mat.Matrix) (*Matrix, error) {
	s, err := be.Upload(m)
	if err != nil {
		return nil, err
	}
	return &Matrix{be: be, s: s}, nil
}

// Eye returns the n x n identity matrix.
func Eye(be Backend, n int) (*Matrix, error) {
	s, err := be.Eye(n)
	if err != nil {
		return nil, err
	}
	return &Matrix{be: be, s: s}, nil
}

// Ones returns an r x c matrix of ones.
func Ones(be Backend, r, c int) (*Matrix, error) {
	return Full(be, r, c, 1)
}

// Full returns an r x c matrix with every element set to v.
func Full(be Backend, r, c int, v float64) (*Matrix, error) {
	s, err := be.Full(r, c, v)
	if err != nil {
		return nil, err
	}
	return &Matrix{be: be, s: s}, nil
}

func (m *Matrix) Backend() Backend { return m.be }

func (m *Matrix) Dims() (r, c int) {
	if m == nil || m.s == nil {
		return 0, 0
	}
	return m.s.Dims()
}

func (m *Matrix) Add(o Operand) (*Matrix, error)      { return m.binary(compute.OpAdd, o, false) }
func (m *Matrix) Sub(o Operand) (*Matrix, error)      { return m.binary(compute.OpSub, o, false) }
func (m *Matrix) Mul(o Operand) (*Matrix, error)      { return m.binary(compute.OpMul, o, false) }
func (m *Matrix) Div(o Operand) (*Matrix, error)      { return m.binary(compute.OpDiv, o, false) }
func (m *Matrix) FloorDiv(o Operand) (*Matrix, error) { return m.binary(compute.OpFloorDiv, o, false) }
func (m *Matrix) Mod(o Operand) (*Matrix, error)      { return m.binary(compute.OpMod, o, false) }

// The R-prefixed forms put the operand on the left: m.RSub(o) is o - m.

func (m *Matrix) RAdd(o Operand) (*Matrix, error)      { return m.binary(compute.OpAdd, o, true) }
func (m *Matrix) RSub(o Operand) (*Matrix, error)      { return m.binary(compute.OpSub, o, true) }
func (m *Matrix) RMul(o Operand) (*Matrix, error)      { return m.binary(compute.OpMul, o, true) }
func (m *Matrix) RDiv(o Operand) (*Matrix, error)      { return m.binary(compute.OpDiv, o, true) }
func (m *Matrix) RFloorDiv(o Operand) (*Matrix, error) { return m.binary(compute.OpFloorDiv, o, true) }
func (m *Matrix) RMod(o Operand) (*Matrix, error)      { return m.binary(compute.OpMod, o, true) }

// Pow raises every element to the matching element of o; RPow is o ** m.
func (m *Matrix) Pow(o Operand) (*Matrix, error)  { return m.binary(compute.OpPow, o, false) }
func (m *Matrix) RPow(o Operand) (*Matrix, error) { return m.binary(compute.OpPow, o, true) }

// PowScalar raises every element to p.
func (m *Matrix) PowScalar(p float64) (*Matrix, error) {
	return m.binary(compute.OpPow, Scalar(p), false)
}

func (m *Matrix) Sqrt() (*Matrix, error) { return m.unary(compute.OpSqrt) }

func (m *Matrix) Neg() (*Matrix, error) { return m.unary(compute.OpNeg) }

// MatMul returns the matrix product m * o.
func (m *Matrix) MatMul(o *Matrix) (*Matrix, error) {
	if err := m.compatible(o); err != nil {
		return nil, err
	}
	s, err := m.be.MatMul(m.s, o.s)
	if err != nil {
		return nil, err
	}
	return &Matrix{be: m.be, s: s}, nil
}

func (m *Matrix) T() (*Matrix, error) {
	if err := m.valid(); err != nil {
		return nil, err
	}
	s, err := m.be.Transpose(m.s)
	if err != nil {
		return nil, err
	}
	return &Matrix{be: m.be, s: s}, nil
}

func (m *Matrix) Sum() (float64, error) {
	if err := m.valid(); err != nil {
		return 0, err
	}
	return m.be.Sum(m.s)
}

// SumColumns collapses the column dimension: an r x c matrix becomes r x 1.
func (m *Matrix) SumColumns() (*Matrix, error) {
	if err := m.valid(); err != nil {
		return nil, err
	}
	s, err := m.be.SumColumns(m.s)
	if err != nil {
		return nil, err
	}
	return &Matrix{be: m.be, s: s}, nil
}

// SumRows collapses the row dimension: an r x c matrix becomes 1 x c.
func (m *Matrix) SumRows() (*Matrix, error) {
	if err := m.valid(); err != nil {
		return nil, err
	}
	s, err := m.be.SumRows(m.s)
	if err != nil {
		return nil, err
	}
	return &Matrix{be: m.be, s: s}, nil
}

// Min returns the smallest element.
func (m *Matrix) Min() (float64, error) {
	d, err := m.Dense()
	if err != nil {
		return 0, err
	}
	return floats.Min(d.RawMatrix().Data), nil
}

// Dense copies the matrix to host memory.
func (m *Matrix) Dense() (*mat.Dense, error) {
	if err := m.valid(); err != nil {
		return nil, err
	}
	return m.be.Download(m.s)
}

// Release returns the storage to the backend. The matrix must not be used
// afterwards; releasing twice is a no-op.
func (m *Matrix) Release() {
	if m == nil || m.s == nil {
		return
	}
	m.be.Free(m.s)
	m.s = nil
}

func (m *Matrix) String() string {
	r, c := m.Dims()
	return fmt.Sprintf("Matrix(%dx%d)", r, c)
}

func (m *Matrix) valid() error {
	if m == nil {
		return fmt.Errorf("%w: nil matrix", ErrUnsupportedOperand)
	}
	if m.s == nil {
		return ErrReleased
	}
	return nil
}

func (m *Matrix) compatible(o *Matrix) error {
	if err := m.valid(); err != nil {
		return err
	}
	if err := o.valid(); err != nil {
		return err
	}
	if m.be != o.be {
		return ErrBackendMismatch
	}
	return nil
}

func (m *Matrix) binary(op compute.Op, o Operand, swapped bool) (*Matrix, error) {
	if err := m.valid(); err != nil {
		return nil, err
	}

	var (
		s   Storage
		err error
	)
	switch v := o.(type) {
	case Scalar:
		s, err = m.be.BinaryScalar(op, m.s, float64(v), swapped)
	case *Matrix:
		if err := m.compatible(v); err != nil {
			return nil, err
		}
		r, c := m.Dims()
		if rv, cv := v.Dims(); r != rv || c != cv {
			return nil, fmt.Errorf("%w: %s %dx%d with %dx%d", ErrShapeMismatch, op, r, c, rv, cv)
		}
		a, b := m.s, v.s
		if swapped {
			a, b = b, a
		}
		s, err = m.be.Binary(op, a, b)
	default:
		return nil, fmt.Errorf("%w: %T for matrix %s", ErrUnsupportedOperand, o, op)
	}
	if err != nil {
		return nil, err
	}
	return &Matrix{be: m.be, s: s}, nil
}

func (m *Matrix) unary(op compute.UnaryOp) (*Matrix, error) {
	if err := m.valid(); err != nil {
		return nil, err
	}
	s, err := m.be.Unary(op, m.s)
	if err != nil {
		return nil, err
	}
	return &Matrix{be: m.be, s: s}, nil
}
