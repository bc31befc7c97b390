package tensor

import (
	"fmt"

	"github.com/san-kum/ljsim/internal/compute"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type hostBackend struct{}

var host Backend = &hostBackend{}

// Host returns the in-process backend. Its storage is a gonum *mat.Dense.
func Host() Backend { return host }

func (*hostBackend) Name() string { return "host" }

func (*hostBackend) dense(s Storage) (*mat.Dense, error) {
	d, ok := s.(*mat.Dense)
	if !ok {
		return nil, fmt.Errorf("%w: host cannot read %T", ErrBackendMismatch, s)
	}
	return d, nil
}

func (*hostBackend) Upload(m mat.Matrix) (Storage, error) {
	if r, c := m.Dims(); r == 0 || c == 0 {
		return nil, ErrEmptyTensor
	}
	return mat.DenseCopyOf(m), nil
}

func (h *hostBackend) Download(s Storage) (*mat.Dense, error) {
	d, err := h.dense(s)
	if err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(d), nil
}

func (*hostBackend) Free(Storage) {}

func (*hostBackend) Full(r, c int, v float64) (Storage, error) {
	if r <= 0 || c <= 0 {
		return nil, ErrEmptyTensor
	}
	data := make([]float64, r*c)
	if v != 0 {
		for i := range data {
			data[i] = v
		}
	}
	return mat.NewDense(r, c, data), nil
}

func (*hostBackend) Eye(n int) (Storage, error) {
	if n <= 0 {
		return nil, ErrEmptyTensor
	}
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		out.Set(i, i, 1)
	}
	return out, nil
}

func (h *hostBackend) Binary(op compute.Op, a, b Storage) (Storage, error) {
	x, err := h.dense(a)
	if err != nil {
		return nil, err
	}
	y, err := h.dense(b)
	if err != nil {
		return nil, err
	}
	r, c := x.Dims()
	if rb, cb := y.Dims(); r != rb || c != cb {
		return nil, fmt.Errorf("%w: %s %dx%d with %dx%d", ErrShapeMismatch, op, r, c, rb, cb)
	}

	out := mat.NewDense(r, c, nil)
	switch op {
	case compute.OpAdd:
		out.Add(x, y)
	case compute.OpSub:
		out.Sub(x, y)
	case compute.OpMul:
		out.MulElem(x, y)
	case compute.OpDiv:
		out.DivElem(x, y)
	default:
		out.Apply(func(i, j int, v float64) float64 {
			return op.Apply(v, y.At(i, j))
		}, x)
	}
	return out, nil
}

func (h *hostBackend) BinaryScalar(op compute.Op, a Storage, s float64, swapped bool) (Storage, error) {
	x, err := h.dense(a)
	if err != nil {
		return nil, err
	}
	r, c := x.Dims()
	out := mat.NewDense(r, c, nil)
	if op == compute.OpMul {
		out.Scale(s, x)
		return out, nil
	}
	if swapped {
		out.Apply(func(_, _ int, v float64) float64 { return op.Apply(s, v) }, x)
	} else {
		out.Apply(func(_, _ int, v float64) float64 { return op.Apply(v, s) }, x)
	}
	return out, nil
}

func (h *hostBackend) Unary(op compute.UnaryOp, a Storage) (Storage, error) {
	x, err := h.dense(a)
	if err != nil {
		return nil, err
	}
	r, c := x.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return op.Apply(v) }, x)
	return out, nil
}

func (h *hostBackend) MatMul(a, b Storage) (Storage, error) {
	x, err := h.dense(a)
	if err != nil {
		return nil, err
	}
	y, err := h.dense(b)
	if err != nil {
		return nil, err
	}
	ar, ac := x.Dims()
	br, bc := y.Dims()
	if ac != br {
		return nil, fmt.Errorf("%w: matmul %dx%d by %dx%d", ErrShapeMismatch, ar, ac, br, bc)
	}
	out := mat.NewDense(ar, bc, nil)
	out.Mul(x, y)
	return out, nil
}

func (h *hostBackend) Transpose(a Storage) (Storage, error) {
	x, err := h.dense(a)
	if err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(x.T()), nil
}

func (h *hostBackend) SumColumns(a Storage) (Storage, error) {
	x, err := h.dense(a)
	if err != nil {
		return nil, err
	}
	r, _ := x.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, floats.Sum(x.RawRowView(i)))
	}
	return out, nil
}

func (h *hostBackend) SumRows(a Storage) (Storage, error) {
	x, err := h.dense(a)
	if err != nil {
		return nil, err
	}
	r, c := x.Dims()
	out := mat.NewDense(1, c, nil)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		out.Set(0, j, floats.Sum(col))
	}
	return out, nil
}

func (h *hostBackend) Sum(a Storage) (float64, error) {
	x, err := h.dense(a)
	if err != nil {
		return 0, err
	}
	return mat.Sum(x), nil
}
