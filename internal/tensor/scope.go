package tensor

// Scope collects intermediates so a computation can release them together.
// Results that escape the computation are simply not registered.
//
//	var sc tensor.Scope
//	defer sc.Release()
//	sq, err := sc.T(x.PowScalar(2))
type Scope struct {
	tensors  []*AxisTensor
	matrices []*Matrix
}

// T registers t when err is nil and passes both through.
func (s *Scope) T(t *AxisTensor, err error) (*AxisTensor, error) {
	if err == nil && t != nil {
		s.tensors = append(s.tensors, t)
	}
	return t, err
}

// M registers m when err is nil and passes both through.
func (s *Scope) M(m *Matrix, err error) (*Matrix, error) {
	if err == nil && m != nil {
		s.matrices = append(s.matrices, m)
	}
	return m, err
}

func (s *Scope) Release() {
	for _, t := range s.tensors {
		t.Release()
	}
	for _, m := range s.matrices {
		m.Release()
	}
	s.tensors = s.tensors[:0]
	s.matrices = s.matrices[:0]
}
