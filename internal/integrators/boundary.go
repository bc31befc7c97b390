package integrators

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/ljsim/internal/tensor"
)

// ErrInvalidBox indicates a non-positive or non-finite box length.
var ErrInvalidBox = errors.New("integrators: box length must be positive and finite")

// PeriodicBoundary wraps every coordinate into [0, l). Wrapping is
// idempotent: applying it to its own output changes nothing.
func PeriodicBoundary(x *tensor.AxisTensor, l float64) (*tensor.AxisTensor, error) {
	if !(l > 0) || math.IsInf(l, 0) {
		return nil, fmt.Errorf("%w: %g", ErrInvalidBox, l)
	}
	return x.Mod(tensor.Scalar(l))
}
