package tensor

import "errors"

var (
	// ErrShapeMismatch indicates operands whose matrices differ in shape.
	ErrShapeMismatch = errors.New("tensor: shape mismatch")

	// ErrAxisMismatch indicates tensors built over different axis sets.
	ErrAxisMismatch = errors.New("tensor: axis set mismatch")

	// ErrUnsupportedOperand indicates an operand outside {tensor, matrix, scalar}
	// for the operation, or a nil operand.
	ErrUnsupportedOperand = errors.New("tensor: unsupported operand type")

	// ErrBackendMismatch indicates operands resident on different backends.
	ErrBackendMismatch = errors.New("tensor: operands live on different backends")

	// ErrEmptyTensor indicates a tensor with no axes or a zero-sized matrix.
	ErrEmptyTensor = errors.New("tensor: empty tensor")

	// ErrReleased indicates use of a matrix after Release.
	ErrReleased = errors.New("tensor: use after release")
)
