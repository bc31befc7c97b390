package integrators

import (
	"github.com/san-kum/ljsim/internal/dynamo"
	"github.com/san-kum/ljsim/internal/tensor"
)

// VelocityVerlet is the second-order symplectic scheme:
//
//	x' = x + v dt + 1/2 F/m dt^2
//	v' = c v + 1/2 (F + F(x'))/m dt
//
// F(x') is evaluated before wrapping, and the thermostat factor c is
// taken from the velocities at the start of the step.
type VelocityVerlet struct{}

func NewVelocityVerlet() *VelocityVerlet {
	return &VelocityVerlet{}
}

func (*VelocityVerlet) Name() string { return "verlet" }

func (*VelocityVerlet) Advance(s *dynamo.System, force *tensor.AxisTensor, dt float64) error {
	p := s.Params()
	c, err := VelocityCoef(s)
	if err != nil {
		return err
	}

	var sc tensor.Scope
	defer sc.Release()

	v := s.VelocityTensor()

	drift, err := sc.T(v.Mul(tensor.Scalar(dt)))
	if err != nil {
		return err
	}
	accel, err := sc.T(force.Mul(tensor.Scalar(0.5 * dt * dt / p.Mass)))
	if err != nil {
		return err
	}
	partial, err := sc.T(s.PositionTensor().Add(drift))
	if err != nil {
		return err
	}
	moved, err := sc.T(partial.Add(accel))
	if err != nil {
		return err
	}

	next, err := sc.T(s.Field().Force(moved))
	if err != nil {
		return err
	}
	total, err := sc.T(force.Add(next))
	if err != nil {
		return err
	}
	kick, err := sc.T(total.Mul(tensor.Scalar(0.5 * dt / p.Mass)))
	if err != nil {
		return err
	}
	scaled, err := sc.T(v.Mul(tensor.Scalar(c)))
	if err != nil {
		return err
	}
	vel, err := scaled.Add(kick)
	if err != nil {
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
