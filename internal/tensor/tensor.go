package tensor

import (
	"fmt"
	"strings"

	"github.com/san-kum/ljsim/internal/compute"
	"gonum.org/v1/gonum/mat"
)

// AxisTensor is a set of equally shaped matrices, one per spatial axis.
// All of its matrices live on the same backend. Operations never modify
// their inputs; each returns a new tensor that owns fresh storage.
type AxisTensor struct {
	be    Backend
	axes  []Axis
	parts []*Matrix
}

// New uploads one matrix per axis. All matrices must share a shape.
func New(be Backend, parts map[Axis]mat.Matrix) (*AxisTensor, error) {
	if len(parts) == 0 {
		return nil, ErrEmptyTensor
	}

	axes := make([]Axis, 0, len(parts))
	for a := range parts {
		axes = append(axes, a)
	}
	axes = sortedAxes(axes)

	r, c := parts[axes[0]].Dims()
	for _, a := range axes[1:] {
		if ra, ca := parts[a].Dims(); ra != r || ca != c {
			return nil, fmt.Errorf("%w: axis %s is %dx%d, axis %s is %dx%d",
				ErrShapeMismatch, axes[0], r, c, a, ra, ca)
		}
	}

	t := &AxisTensor{be: be, axes: axes, parts: make([]*Matrix, 0, len(axes))}
	for _, a := range axes {
		m, err := NewMatrix(be, parts[a])
		if err != nil {
			t.Release()
			return nil, fmt.Errorf("axis %s: %w", a, err)
		}
		t.parts = append(t.parts, m)
	}
	return t, nil
}

// FromVectors builds a tensor of N x 1 column vectors, one per axis.
func FromVectors(be Backend, vecs map[Axis][]float64) (*AxisTensor, error) {
	parts := make(map[Axis]mat.Matrix, len(vecs))
	for a, v := range vecs {
		if len(v) == 0 {
			return nil, ErrEmptyTensor
		}
		parts[a] = mat.NewVecDense(len(v), v)
	}
	return New(be, parts)
}

// Zeros returns a tensor over axes with every matrix r x c and zero.
func Zeros(be Backend, axes []Axis, r, c int) (*AxisTensor, error) {
	if len(axes) == 0 {
		return nil, ErrEmptyTensor
	}
	sorted := sortedAxes(axes)
	t := &AxisTensor{be: be, axes: sorted, parts: make([]*Matrix, 0, len(sorted))}
	for range sorted {
		m, err := Full(be, r, c, 0)
		if err != nil {
			t.Release()
			return nil, err
		}
		t.parts = append(t.parts, m)
	}
	return t, nil
}

func (t *AxisTensor) Backend() Backend { return t.be }

// Axes returns the axis labels in canonical order.
func (t *AxisTensor) Axes() []Axis {
	out := make([]Axis, len(t.axes))
	copy(out, t.axes)
	return out
}

// Dims returns the shape shared by every component matrix.
func (t *AxisTensor) Dims() (r, c int) {
	if t == nil || len(t.parts) == 0 {
		return 0, 0
	}
	return t.parts[0].Dims()
}

func (t *AxisTensor) Add(o Operand) (*AxisTensor, error) { return t.binary(compute.OpAdd, o, false) }
func (t *AxisTensor) Sub(o Operand) (*AxisTensor, error) { return t.binary(compute.OpSub, o, false) }
func (t *AxisTensor) Mul(o Operand) (*AxisTensor, error) { return t.binary(compute.OpMul, o, false) }
func (t *AxisTensor) Div(o Operand) (*AxisTensor, error) { return t.binary(compute.OpDiv, o, false) }
func (t *AxisTensor) FloorDiv(o Operand) (*AxisTensor, error) {
	return t.binary(compute.OpFloorDiv, o, false)
}
func (t *AxisTensor) Mod(o Operand) (*AxisTensor, error) { return t.binary(compute.OpMod, o, false) }

// The R-prefixed forms put the operand on the left: t.RSub(o) is o - t.

func (t *AxisTensor) RAdd(o Operand) (*AxisTensor, error) { return t.binary(compute.OpAdd, o, true) }
func (t *AxisTensor) RSub(o Operand) (*AxisTensor, error) { return t.binary(compute.OpSub, o, true) }
func (t *AxisTensor) RMul(o Operand) (*AxisTensor, error) { return t.binary(compute.OpMul, o, true) }
func (t *AxisTensor) RDiv(o Operand) (*AxisTensor, error) { return t.binary(compute.OpDiv, o, true) }
func (t *AxisTensor) RFloorDiv(o Operand) (*AxisTensor, error) {
	return t.binary(compute.OpFloorDiv, o, true)
}
func (t *AxisTensor) RMod(o Operand) (*AxisTensor, error) { return t.binary(compute.OpMod, o, true) }

func (t *AxisTensor) Pow(o Operand) (*AxisTensor, error)  { return t.binary(compute.OpPow, o, false) }
func (t *AxisTensor) RPow(o Operand) (*AxisTensor, error) { return t.binary(compute.OpPow, o, true) }

// PowScalar raises every element of every axis to p.
func (t *AxisTensor) PowScalar(p float64) (*AxisTensor, error) {
	return t.each(func(m *Matrix) (*Matrix, error) { return m.PowScalar(p) })
}

// T transposes every component matrix.
func (t *AxisTensor) T() (*AxisTensor, error) {
	return t.each((*Matrix).T)
}

func (t *AxisTensor) SumColumns() (*AxisTensor, error) {
	return t.each((*Matrix).SumColumns)
}

func (t *AxisTensor) SumRows() (*AxisTensor, error) {
	return t.each((*Matrix).SumRows)
}

// Sum adds every element of every axis.
func (t *AxisTensor) Sum() (float64, error) {
	if err := t.valid(); err != nil {
		return 0, err
	}
	total := 0.0
	for _, m := range t.parts {
		s, err := m.Sum()
		if err != nil {
			return 0, err
		}
		total += s
	}
	return total, nil
}

// Abs returns the Euclidean norm across axes, elementwise: sqrt of the sum
// of squares of the component matrices.
func (t *AxisTensor) Abs() (*Matrix, error) {
	if err := t.valid(); err != nil {
		return nil, err
	}

	var acc *Matrix
	for _, m := range t.parts {
		sq, err := m.PowScalar(2)
		if err != nil {
			acc.Release()
			return nil, err
		}
		if acc == nil {
			acc = sq
			continue
		}
		next, err := acc.Add(sq)
		acc.Release()
		sq.Release()
		if err != nil {
			return nil, err
		}
		acc = next
	}

	norm, err := acc.Sqrt()
	acc.Release()
	return norm, err
}

// PairwiseDifference turns a tensor of N x 1 vectors into N x N matrices
// with element [i, j] equal to v[i] - v[j]. Each matrix is built as
// v * 1^T - 1 * v^T, so the diagonal is exactly zero and the result is
// anti-symmetric.
func (t *AxisTensor) PairwiseDifference() (*AxisTensor, error) {
	if err := t.valid(); err != nil {
		return nil, err
	}
	n, c := t.Dims()
	if c != 1 {
		return nil, fmt.Errorf("%w: pairwise difference needs N x 1 vectors, have %dx%d",
			ErrShapeMismatch, n, c)
	}

	row, err := Ones(t.be, 1, n)
	if err != nil {
		return nil, err
	}
	defer row.Release()
	col, err := Ones(t.be, n, 1)
	if err != nil {
		return nil, err
	}
	defer col.Release()

	return t.each(func(v *Matrix) (*Matrix, error) {
		left, err := v.MatMul(row)
		if err != nil {
			return nil, err
		}
		defer left.Release()

		vt, err := v.T()
		if err != nil {
			return nil, err
		}
		defer vt.Release()

		right, err := col.MatMul(vt)
		if err != nil {
			return nil, err
		}
		defer right.Release()

		return left.Sub(right)
	})
}

// Component copies the matrix of one axis to host memory.
func (t *AxisTensor) Component(a Axis) (*mat.Dense, error) {
	if err := t.valid(); err != nil {
		return nil, err
	}
	for i, ax := range t.axes {
		if ax == a {
			return t.parts[i].Dense()
		}
	}
	return nil, fmt.Errorf("%w: no axis %s in %v", ErrAxisMismatch, a, t.axes)
}

// ToMap copies every component to host memory.
func (t *AxisTensor) ToMap() (map[Axis]*mat.Dense, error) {
	if err := t.valid(); err != nil {
		return nil, err
	}
	out := make(map[Axis]*mat.Dense, len(t.axes))
	for i, a := range t.axes {
		d, err := t.parts[i].Dense()
		if err != nil {
			return nil, err
		}
		out[a] = d
	}
	return out, nil
}

// Clone returns an independent copy of t on the same backend.
func (t *AxisTensor) Clone() (*AxisTensor, error) {
	return t.Mul(Scalar(1))
}

// Release frees every component. The tensor must not be used afterwards.
func (t *AxisTensor) Release() {
	if t == nil {
		return
	}
	for _, m := range t.parts {
		m.Release()
	}
}

func (t *AxisTensor) String() string {
	r, c := t.Dims()
	names := make([]string, len(t.axes))
	for i, a := range t.axes {
		names[i] = string(a)
	}
	return fmt.Sprintf("AxisTensor(%s; %dx%d)", strings.Join(names, ","), r, c)
}

func (t *AxisTensor) valid() error {
	if t == nil {
		return fmt.Errorf("%w: nil tensor", ErrUnsupportedOperand)
	}
	if len(t.parts) == 0 {
		return ErrEmptyTensor
	}
	return nil
}

// each applies fn to every component and collects the results into a new
// tensor. Partial results are released on error.
func (t *AxisTensor) each(fn func(m *Matrix) (*Matrix, error)) (*AxisTensor, error) {
	if err := t.valid(); err != nil {
		return nil, err
	}
	out := &AxisTensor{be: t.be, axes: t.axes, parts: make([]*Matrix, 0, len(t.parts))}
	for i, m := range t.parts {
		r, err := fn(m)
		if err != nil {
			out.Release()
			return nil, fmt.Errorf("axis %s: %w", t.axes[i], err)
		}
		out.parts = append(out.parts, r)
	}
	return out, nil
}

func (t *AxisTensor) binary(op compute.Op, o Operand, swapped bool) (*AxisTensor, error) {
	if err := t.valid(); err != nil {
		return nil, err
	}

	switch v := o.(type) {
	case Scalar:
		return t.each(func(m *Matrix) (*Matrix, error) {
			return m.binary(op, v, swapped)
		})
	case *Matrix:
		if v == nil {
			return nil, fmt.Errorf("%w: nil matrix", ErrUnsupportedOperand)
		}
		return t.each(func(m *Matrix) (*Matrix, error) {
			return m.binary(op, v, swapped)
		})
	case *AxisTensor:
		if err := v.valid(); err != nil {
			return nil, err
		}
		if v.be != t.be {
			return nil, ErrBackendMismatch
		}
		if !sameAxes(t.axes, v.axes) {
			return nil, fmt.Errorf("%w: %v with %v", ErrAxisMismatch, t.axes, v.axes)
		}
		i := 0
		return t.each(func(m *Matrix) (*Matrix, error) {
			other := v.parts[i]
			i++
			return m.binary(op, other, swapped)
		})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedOperand, o)
	}
}
