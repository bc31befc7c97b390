package tensor

// Operand is the right-hand side of an arithmetic operation: an
// *AxisTensor, a *Matrix or a Scalar. The set is closed.
type Operand interface {
	operand()
}

// Scalar broadcasts a single value over every element.
type Scalar float64

func (Scalar) operand()      {}
func (*Matrix) operand()     {}
func (*AxisTensor) operand() {}
