package dynamo

import (
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/ljsim/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// System is the state of a single-species particle system: positions,
// velocities, physical parameters and the two collaborators that evolve
// it. It is mutated only by Step, SetState and Update and is not safe for
// concurrent use.
type System struct {
	be     tensor.Backend
	params Params
	axes   []tensor.Axis
	n      int

	field ForceField
	integ Integrator

	pos *tensor.AxisTensor
	vel *tensor.AxisTensor

	step int
	time float64
}

// NewSystem builds a system on be and uploads the initial state. Every
// axis of pos and vel must carry n values.
func NewSystem(be tensor.Backend, p Params, field ForceField, integ Integrator,
	pos, vel map[tensor.Axis][]float64) (*System, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if field == nil || integ == nil {
		return nil, fmt.Errorf("%w: system needs a force field and an integrator", ErrParameterBounds)
	}

	s := &System{be: be, params: p, field: field, integ: integ}
	if err := s.SetState(pos, vel); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *System) Backend() tensor.Backend { return s.be }
func (s *System) Params() Params          { return s.params }
func (s *System) Field() ForceField       { return s.field }
func (s *System) Integrator() Integrator  { return s.integ }
func (s *System) N() int                  { return s.n }
func (s *System) Axes() []tensor.Axis     { return slices.Clone(s.axes) }
func (s *System) StepCount() int          { return s.step }
func (s *System) Time() float64           { return s.time }

// PositionTensor returns the live position tensor. It stays owned by the
// system and is invalidated by the next Step.
func (s *System) PositionTensor() *tensor.AxisTensor { return s.pos }

// VelocityTensor returns the live velocity tensor. It stays owned by the
// system and is invalidated by the next Step.
func (s *System) VelocityTensor() *tensor.AxisTensor { return s.vel }

// Step advances the system by dt: the force at the current positions is
// computed, handed to the integrator and released.
func (s *System) Step(dt float64) error {
	if s.pos == nil {
		return ErrReleased
	}
	if !(dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrParameterBounds, dt)
	}

	force, err := s.field.Force(s.pos)
	if err != nil {
		return fmt.Errorf("force: %w", err)
	}
	defer force.Release()

	if err := s.integ.Advance(s, force, dt); err != nil {
		return fmt.Errorf("%s: %w", s.integ.Name(), err)
	}
	s.step++
	s.time += dt
	return nil
}

// Update replaces positions and velocities with pos and vel, taking
// ownership of both and releasing the previous state. Integrators call it
// once per step.
func (s *System) Update(pos, vel *tensor.AxisTensor) error {
	if s.pos == nil {
		return ErrReleased
	}
	if err := s.compatible(pos); err != nil {
		return fmt.Errorf("positions: %w", err)
	}
	if err := s.compatible(vel); err != nil {
		return fmt.Errorf("velocities: %w", err)
	}
	if pos == vel {
		return fmt.Errorf("%w: positions and velocities share storage", ErrDimensionMismatch)
	}

	if pos != s.pos {
		s.pos.Release()
	}
	if vel != s.vel {
		s.vel.Release()
	}
	s.pos, s.vel = pos, vel
	return nil
}

// Potential returns the potential energy of the current configuration.
func (s *System) Potential() (float64, error) {
	if s.pos == nil {
		return 0, ErrReleased
	}
	return s.field.Potential(s.pos)
}

// Kinetic returns 1/2 m sum(v^2) over every particle and axis.
func (s *System) Kinetic() (float64, error) {
	if s.vel == nil {
		return 0, ErrReleased
	}
	sq, err := s.vel.PowScalar(2)
	if err != nil {
		return 0, err
	}
	defer sq.Release()

	sum, err := sq.Sum()
	if err != nil {
		return 0, err
	}
	return 0.5 * s.params.Mass * sum, nil
}

// Hamilton returns the total energy.
func (s *System) Hamilton() (float64, error) {
	k, err := s.Kinetic()
	if err != nil {
		return 0, err
	}
	u, err := s.Potential()
	if err != nil {
		return 0, err
	}
	return k + u, nil
}

// Temperature returns the instantaneous temperature 2K / (3 N k_B).
func (s *System) Temperature() (float64, error) {
	k, err := s.Kinetic()
	if err != nil {
		return 0, err
	}
	return TemperatureOf(k, s.n, s.params.Boltzmann), nil
}

// TemperatureOf converts kinetic energy to temperature with three degrees
// of freedom per particle.
func TemperatureOf(kinetic float64, n int, boltzmann float64) float64 {
	if n == 0 {
		return 0
	}
	return 2 * kinetic / (3 * float64(n) * boltzmann)
}

// Sample measures the current state.
func (s *System) Sample() (Sample, error) {
	k, err := s.Kinetic()
	if err != nil {
		return Sample{}, err
	}
	u, err := s.Potential()
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		Step:        s.step,
		Time:        s.time,
		Potential:   u,
		Kinetic:     k,
		Hamilton:    k + u,
		Temperature: TemperatureOf(k, s.n, s.params.Boltzmann),
	}, nil
}

// Positions copies the positions to host memory.
func (s *System) Positions() (map[tensor.Axis]*mat.Dense, error) {
	if s.pos == nil {
		return nil, ErrReleased
	}
	return s.pos.ToMap()
}

// Velocities copies the velocities to host memory.
func (s *System) Velocities() (map[tensor.Axis]*mat.Dense, error) {
	if s.vel == nil {
		return nil, ErrReleased
	}
	return s.vel.ToMap()
}

// SetState replaces the state with host vectors, one slice of N values per
// axis. The step counter and clock are left untouched.
func (s *System) SetState(pos, vel map[tensor.Axis][]float64) error {
	if len(pos) == 0 {
		return fmt.Errorf("%w: no positions", ErrDimensionMismatch)
	}

	axes := make([]tensor.Axis, 0, len(pos))
	for a := range pos {
		axes = append(axes, a)
	}
	slices.Sort(axes)

	n := len(pos[axes[0]])
	for _, a := range axes {
		v, ok := vel[a]
		if !ok {
			return fmt.Errorf("%w: no velocities for axis %s", ErrDimensionMismatch, a)
		}
		if len(pos[a]) != n || len(v) != n {
			return fmt.Errorf("%w: axis %s has %d positions and %d velocities, want %d",
				ErrDimensionMismatch, a, len(pos[a]), len(v), n)
		}
		if !finite(pos[a]) || !finite(v) {
			return fmt.Errorf("%w: axis %s", ErrInvalidState, a)
		}
	}
	if len(vel) != len(pos) {
		return fmt.Errorf("%w: %d velocity axes for %d position axes", ErrDimensionMismatch, len(vel), len(pos))
	}

	p, err := tensor.FromVectors(s.be, pos)
	if err != nil {
		return err
	}
	v, err := tensor.FromVectors(s.be, vel)
	if err != nil {
		p.Release()
		return err
	}

	s.pos.Release()
	s.vel.Release()
	s.pos, s.vel = p, v
	s.axes = axes
	s.n = n
	return nil
}

// Snapshot is a host copy of a system at one instant.
type Snapshot struct {
	Step       int
	Time       float64
	Positions  map[tensor.Axis][]float64
	Velocities map[tensor.Axis][]float64
}

func (s *System) Snapshot() (Snapshot, error) {
	pos, err := s.Positions()
	if err != nil {
		return Snapshot{}, err
	}
	vel, err := s.Velocities()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Step:       s.step,
		Time:       s.time,
		Positions:  columns(pos),
		Velocities: columns(vel),
	}, nil
}

// Release frees the state. The system must not be stepped afterwards.
func (s *System) Release() {
	s.pos.Release()
	s.vel.Release()
	s.pos, s.vel = nil, nil
}

func (s *System) compatible(t *tensor.AxisTensor) error {
	if t == nil {
		return fmt.Errorf("%w: nil tensor", ErrDimensionMismatch)
	}
	if t.Backend() != s.be {
		return fmt.Errorf("%w: tensor on %s, system on %s", ErrDimensionMismatch, t.Backend().Name(), s.be.Name())
	}
	if !slices.Equal(t.Axes(), s.axes) {
		return fmt.Errorf("%w: axes %v, want %v", ErrDimensionMismatch, t.Axes(), s.axes)
	}
	if r, c := t.Dims(); r != s.n || c != 1 {
		return fmt.Errorf("%w: %dx%d, want %dx1", ErrDimensionMismatch, r, c, s.n)
	}
	return nil
}

func columns(m map[tensor.Axis]*mat.Dense) map[tensor.Axis][]float64 {
	out := make(map[tensor.Axis][]float64, len(m))
	for a, d := range m {
		out[a] = mat.Col(nil, 0, d)
	}
	return out
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
