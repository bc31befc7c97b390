package tensor

import (
	"fmt"

	"github.com/san-kum/ljsim/internal/compute"
	"gonum.org/v1/gonum/mat"
)

type deviceBackend struct {
	dev compute.Backend
}

// NewDevice returns a backend whose storage lives on dev. Every operation
// launches one kernel into a freshly allocated output buffer.
func NewDevice(dev compute.Backend) Backend {
	return &deviceBackend{dev: dev}
}

// Device returns the kernel device behind be, if it has one.
func Device(be Backend) (compute.Backend, bool) {
	d, ok := be.(*deviceBackend)
	if !ok {
		return nil, false
	}
	return d.dev, true
}

func (d *deviceBackend) Name() string { return d.dev.Name() }

func (d *deviceBackend) buffer(s Storage) (*compute.Buffer, error) {
	b, ok := s.(*compute.Buffer)
	if !ok {
		return nil, fmt.Errorf("%w: device cannot read %T", ErrBackendMismatch, s)
	}
	return b, nil
}

func (d *deviceBackend) Upload(m mat.Matrix) (Storage, error) {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, ErrEmptyTensor
	}
	b, err := d.dev.Upload(r, c, mat.DenseCopyOf(m).RawMatrix().Data)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (d *deviceBackend) Download(s Storage) (*mat.Dense, error) {
	b, err := d.buffer(s)
	if err != nil {
		return nil, err
	}
	data, err := d.dev.Download(b)
	if err != nil {
		return nil, err
	}
	r, c := b.Dims()
	return mat.NewDense(r, c, data), nil
}

func (d *deviceBackend) Free(s Storage) {
	if b, ok := s.(*compute.Buffer); ok {
		d.dev.Free(b)
	}
}

func (d *deviceBackend) Full(r, c int, v float64) (Storage, error) {
	if r <= 0 || c <= 0 {
		return nil, ErrEmptyTensor
	}
	return d.launch(r, c, func(dst *compute.Buffer) error {
		return d.dev.Fill(dst, v)
	})
}

func (d *deviceBackend) Eye(n int) (Storage, error) {
	if n <= 0 {
		return nil, ErrEmptyTensor
	}
	return d.launch(n, n, d.dev.Identity)
}

func (d *deviceBackend) Binary(op compute.Op, a, b Storage) (Storage, error) {
	x, err := d.buffer(a)
	if err != nil {
		return nil, err
	}
	y, err := d.buffer(b)
	if err != nil {
		return nil, err
	}
	r, c := x.Dims()
	if rb, cb := y.Dims(); r != rb || c != cb {
		return nil, fmt.Errorf("%w: %s %dx%d with %dx%d", ErrShapeMismatch, op, r, c, rb, cb)
	}
	return d.launch(r, c, func(dst *compute.Buffer) error {
		return d.dev.Binary(op, dst, x, y)
	})
}

func (d *deviceBackend) BinaryScalar(op compute.Op, a Storage, s float64, swapped bool) (Storage, error) {
	x, err := d.buffer(a)
	if err != nil {
		return nil, err
	}
	r, c := x.Dims()
	return d.launch(r, c, func(dst *compute.Buffer) error {
		return d.dev.BinaryScalar(op, dst, x, s, swapped)
	})
}

func (d *deviceBackend) Unary(op compute.UnaryOp, a Storage) (Storage, error) {
	x, err := d.buffer(a)
	if err != nil {
		return nil, err
	}
	r, c := x.Dims()
	return d.launch(r, c, func(dst *compute.Buffer) error {
		return d.dev.Unary(op, dst, x)
	})
}

func (d *deviceBackend) MatMul(a, b Storage) (Storage, error) {
	x, err := d.buffer(a)
	if err != nil {
		return nil, err
	}
	y, err := d.buffer(b)
	if err != nil {
		return nil, err
	}
	ar, ac := x.Dims()
	br, bc := y.Dims()
	if ac != br {
		return nil, fmt.Errorf("%w: matmul %dx%d by %dx%d", ErrShapeMismatch, ar, ac, br, bc)
	}
	return d.launch(ar, bc, func(dst *compute.Buffer) error {
		return d.dev.MatMul(dst, x, y)
	})
}

func (d *deviceBackend) Transpose(a Storage) (Storage, error) {
	x, err := d.buffer(a)
	if err != nil {
		return nil, err
	}
	r, c := x.Dims()
	return d.launch(c, r, func(dst *compute.Buffer) error {
		return d.dev.Transpose(dst, x)
	})
}

func (d *deviceBackend) SumColumns(a Storage) (Storage, error) {
	x, err := d.buffer(a)
	if err != nil {
		return nil, err
	}
	r, _ := x.Dims()
	return d.launch(r, 1, func(dst *compute.Buffer) error {
		return d.dev.SumColumns(dst, x)
	})
}

func (d *deviceBackend) SumRows(a Storage) (Storage, error) {
	x, err := d.buffer(a)
	if err != nil {
		return nil, err
	}
	_, c := x.Dims()
	return d.launch(1, c, func(dst *compute.Buffer) error {
		return d.dev.SumRows(dst, x)
	})
}

func (d *deviceBackend) Sum(a Storage) (float64, error) {
	x, err := d.buffer(a)
	if err != nil {
		return 0, err
	}
	return d.dev.Sum(x)
}

// launch allocates the output buffer and runs kernel into it. The buffer is
// released again if the kernel fails.
func (d *deviceBackend) launch(r, c int, kernel func(dst *compute.Buffer) error) (Storage, error) {
	dst, err := d.dev.Alloc(r, c)
	if err != nil {
		return nil, err
	}
	if err := kernel(dst); err != nil {
		d.dev.Free(dst)
		return nil, err
	}
	return dst, nil
}
