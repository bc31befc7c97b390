package compute

import "math"

// Op is a binary elementwise kernel.
type Op uint8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpFloorDiv:
		return "floordiv"
	case OpMod:
		return "mod"
	case OpPow:
		return "pow"
	}
	return "unknown"
}

// Apply evaluates the kernel for one cell.
func (o Op) Apply(a, b float64) float64 {
	switch o {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	case OpFloorDiv:
		return math.Floor(a / b)
	case OpMod:
		return FloorMod(a, b)
	case OpPow:
		return pow(a, b)
	}
	return math.NaN()
}

// UnaryOp is a single-input elementwise kernel.
type UnaryOp uint8

const (
	OpSqrt UnaryOp = iota
	OpAbs
	OpNeg
	OpFloor
)

func (o UnaryOp) String() string {
	switch o {
	case OpSqrt:
		return "sqrt"
	case OpAbs:
		return "abs"
	case OpNeg:
		return "neg"
	case OpFloor:
		return "floor"
	}
	return "unknown"
}

func (o UnaryOp) Apply(a float64) float64 {
	switch o {
	case OpSqrt:
		return math.Sqrt(a)
	case OpAbs:
		return math.Abs(a)
	case OpNeg:
		return -a
	case OpFloor:
		return math.Floor(a)
	}
	return math.NaN()
}

// FloorMod returns a - floor(a/b)*b with the sign of b. For b > 0 the
// result is always in [0, b), including the case where a is a tiny
// negative number whose wrapped value rounds up to b. A zero result is
// always +0.
func FloorMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	if m == 0 || (b > 0 && m >= b) || (b < 0 && m <= b) {
		return 0
	}
	return m
}

// pow special-cases the small integer exponents the LJ terms use so the
// hot path avoids math.Pow.
func pow(a, p float64) float64 {
	switch p {
	case 0:
		return 1
	case 1:
		return a
	case 2:
		return a * a
	case 3:
		return a * a * a
	case 6:
		a3 := a * a * a
		return a3 * a3
	case 0.5:
		return math.Sqrt(a)
	}
	if p == math.Trunc(p) && p > 0 && p <= 64 {
		result := 1.0
		base := a
		for n := int(p); n > 0; n >>= 1 {
			if n&1 == 1 {
				result *= base
			}
			base *= base
		}
		return result
	}
	return math.Pow(a, p)
}
