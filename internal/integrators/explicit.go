package integrators

import (
	"github.com/san-kum/ljsim/internal/dynamo"
	"github.com/san-kum/ljsim/internal/tensor"
)

// Explicit is the first-order scheme: velocities are rescaled and kicked
// by the current force, then positions drift with the new velocities.
//
//	v' = c v + F/m dt
//	x' = wrap(x + v' dt)
type Explicit struct{}

func NewExplicit() *Explicit {
	return &Explicit{}
}

func (*Explicit) Name() string { return "explicit" }

func (*Explicit) Advance(s *dynamo.System, force *tensor.AxisTensor, dt float64) error {
	p := s.Params()
	c, err := VelocityCoef(s)
	if err != nil {
		return err
	}

	var sc tensor.Scope
	defer sc.Release()

	scaled, err := sc.T(s.VelocityTensor().Mul(tensor.Scalar(c)))
	if err != nil {
		return err
	}
	kick, err := sc.T(force.Mul(tensor.Scalar(dt / p.Mass)))
	if err != nil {
		return err
	}
	vel, err := scaled.Add(kick)
	if err != nil {
		return err
	}

	drift, err := sc.T(vel.Mul(tensor.Scalar(dt)))
	if err != nil {
		vel.Release()
		return err
	}
	moved, err := sc.T(s.PositionTensor().Add(drift))
	if err != nil {
		vel.Release()
		return err
	}
	pos, err := PeriodicBoundary(moved, p.BoxLength)
	if err != nil {
		vel.Release()
		return err
	}

	if err := s.Update(pos, vel); err != nil {
		pos.Release()
		vel.Release()
		return err
	}
	return nil
}
