package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/ljsim/internal/tensor"
)

// ErrInvalidField indicates a non-positive sigma or a negative epsilon.
var ErrInvalidField = errors.New("physics: invalid Lennard-Jones parameters")

// PairwiseField is the Lennard-Jones pair interaction
//
//	U(r) = 4 eps [(sigma/r)^12 - (sigma/r)^6]
//
// evaluated over all unordered particle pairs.
type PairwiseField struct {
	Sigma float64
	Eps   float64
}

func NewPairwiseField(sigma, eps float64) (PairwiseField, error) {
	f := PairwiseField{Sigma: sigma, Eps: eps}
	return f, f.Validate()
}

func (f PairwiseField) Validate() error {
	if !(f.Sigma > 0) || math.IsInf(f.Sigma, 0) {
		return fmt.Errorf("%w: sigma=%g", ErrInvalidField, f.Sigma)
	}
	if !(f.Eps >= 0) || math.IsInf(f.Eps, 0) {
		return fmt.Errorf("%w: eps=%g", ErrInvalidField, f.Eps)
	}
	return nil
}

// Equilibrium returns the separation at which the pair potential is
// minimal, 2^(1/6) sigma.
func (f PairwiseField) Equilibrium() float64 {
	return math.Pow(2, 1.0/6) * f.Sigma
}

// PairwiseDifference returns diff[i, j] = x_i - x_j for every axis.
func (f PairwiseField) PairwiseDifference(pos *tensor.AxisTensor) (*tensor.AxisTensor, error) {
	return pos.PairwiseDifference()
}

// Distance returns |diff| + I. The identity bias keeps the diagonal at
// exactly 1 so that sigma/r stays finite for self pairs.
func (f PairwiseField) Distance(diff *tensor.AxisTensor) (*tensor.Matrix, error) {
	abs, err := diff.Abs()
	if err != nil {
		return nil, err
	}
	defer abs.Release()

	n, _ := abs.Dims()
	eye, err := tensor.Eye(abs.Backend(), n)
	if err != nil {
		return nil, err
	}
	defer eye.Release()

	return abs.Add(eye)
}

// Potential returns the total potential energy. The full N x N matrix of
// pair terms is masked to its off-diagonal and halved, so each unordered
// pair is counted once.
func (f PairwiseField) Potential(pos *tensor.AxisTensor) (float64, error) {
	var sc tensor.Scope
	defer sc.Release()

	diff, err := sc.T(f.PairwiseDifference(pos))
	if err != nil {
		return 0, err
	}
	r, err := sc.M(f.Distance(diff))
	if err != nil {
		return 0, err
	}
	q, err := sc.M(r.RDiv(tensor.Scalar(f.Sigma)))
	if err != nil {
		return 0, err
	}
	q6, err := sc.M(q.PowScalar(6))
	if err != nil {
		return 0, err
	}
	q12, err := sc.M(q6.PowScalar(2))
	if err != nil {
		return 0, err
	}
	term, err := sc.M(q12.Sub(q6))
	if err != nil {
		return 0, err
	}
	mask, err := sc.M(offDiagonal(pos.Backend(), pos))
	if err != nil {
		return 0, err
	}
	pairs, err := sc.M(term.Mul(mask))
	if err != nil {
		return 0, err
	}

	total, err := pairs.Sum()
	if err != nil {
		return 0, err
	}
	return 2 * f.Eps * total, nil
}

// Force returns the N x 1 force on every particle,
//
//	F_i = sum_j 24 eps / sigma^2 [2 (sigma/r)^14 - (sigma/r)^8] (x_i - x_j)
//
// which is the negative gradient of Potential. Self terms vanish because
// diff[i, i] is zero.
func (f PairwiseField) Force(pos *tensor.AxisTensor) (*tensor.AxisTensor, error) {
	var sc tensor.Scope
	defer sc.Release()

	diff, err := sc.T(f.PairwiseDifference(pos))
	if err != nil {
		return nil, err
	}
	r, err := sc.M(f.Distance(diff))
	if err != nil {
		return nil, err
	}
	q, err := sc.M(r.RDiv(tensor.Scalar(f.Sigma)))
	if err != nil {
		return nil, err
	}
	q8, err := sc.M(q.PowScalar(8))
	if err != nil {
		return nil, err
	}
	q14, err := sc.M(q.PowScalar(14))
	if err != nil {
		return nil, err
	}
	twice, err := sc.M(q14.Mul(tensor.Scalar(2)))
	if err != nil {
		return nil, err
	}
	bracket, err := sc.M(twice.Sub(q8))
	if err != nil {
		return nil, err
	}
	coef, err := sc.M(bracket.Mul(tensor.Scalar(24 * f.Eps / (f.Sigma * f.Sigma))))
	if err != nil {
		return nil, err
	}
	pairForce, err := sc.T(diff.Mul(coef))
	if err != nil {
		return nil, err
	}

	return pairForce.SumColumns()
}

// MinSeparation returns the smallest distance between two distinct
// particles, or +Inf for fewer than two particles.
func (f PairwiseField) MinSeparation(pos *tensor.AxisTensor) (float64, error) {
	n, _ := pos.Dims()
	if n < 2 {
		return math.Inf(1), nil
	}

	var sc tensor.Scope
	defer sc.Release()

	diff, err := sc.T(pos.PairwiseDifference())
	if err != nil {
		return 0, err
	}
	abs, err := sc.M(diff.Abs())
	if err != nil {
		return 0, err
	}
	eye, err := sc.M(tensor.Eye(pos.Backend(), n))
	if err != nil {
		return 0, err
	}
	bias, err := sc.M(eye.Mul(tensor.Scalar(math.MaxFloat64)))
	if err != nil {
		return 0, err
	}
	masked, err := sc.M(abs.Add(bias))
	if err != nil {
		return 0, err
	}
	return masked.Min()
}

// offDiagonal returns the N x N matrix with zeros on the diagonal and ones
// elsewhere.
func offDiagonal(be tensor.Backend, pos *tensor.AxisTensor) (*tensor.Matrix, error) {
	n, _ := pos.Dims()
	ones, err := tensor.Ones(be, n, n)
	if err != nil {
		return nil, err
	}
	defer ones.Release()

	eye, err := tensor.Eye(be, n)
	if err != nil {
		return nil, err
	}
	defer eye.Release()

	return ones.Sub(eye)
}
