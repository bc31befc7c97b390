package dynamo

import (
	"fmt"
	"math"

	"github.com/san-kum/ljsim/internal/tensor"
)

// ForceField computes the interaction of a particle configuration.
type ForceField interface {
	// Force returns an N x 1 tensor with the same axes as pos. The caller
	// owns the result.
	Force(pos *tensor.AxisTensor) (*tensor.AxisTensor, error)
	Potential(pos *tensor.AxisTensor) (float64, error)
}

// Integrator advances a system by one time step given the force at the
// current positions. Implementations commit the new state with
// System.Update and must not retain force.
type Integrator interface {
	Name() string
	Advance(s *System, force *tensor.AxisTensor, dt float64) error
}

// Params are the physical constants of a single-species system.
type Params struct {
	Mass        float64 `yaml:"mass" json:"mass"`
	Sigma       float64 `yaml:"sigma" json:"sigma"`
	Eps         float64 `yaml:"eps" json:"eps"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	BoxLength   float64 `yaml:"box_length" json:"box_length"`
	Boltzmann   float64 `yaml:"boltzmann" json:"boltzmann"`
}

// ReducedParams returns Lennard-Jones reduced units with the thermostat
// off and a box of side l.
func ReducedParams(l float64) Params {
	return Params{
		Mass:      1,
		Sigma:     1,
		Eps:       1,
		BoxLength: l,
		Boltzmann: 1,
	}
}

func (p Params) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"mass", p.Mass},
		{"sigma", p.Sigma},
		{"box_length", p.BoxLength},
		{"boltzmann", p.Boltzmann},
	}
	for _, f := range positive {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be positive and finite, got %g", ErrParameterBounds, f.name, f.v)
		}
	}
	if !(p.Eps >= 0) || math.IsInf(p.Eps, 0) {
		return fmt.Errorf("%w: eps must be non-negative, got %g", ErrParameterBounds, p.Eps)
	}
	if !(p.Temperature >= 0) || math.IsInf(p.Temperature, 0) {
		return fmt.Errorf("%w: temperature must be non-negative, got %g", ErrParameterBounds, p.Temperature)
	}
	return nil
}

// Sample is one recorded point of a run.
type Sample struct {
	Step        int     `json:"step"`
	Time        float64 `json:"time"`
	Potential   float64 `json:"potential"`
	Kinetic     float64 `json:"kinetic"`
	Hamilton    float64 `json:"hamilton"`
	Temperature float64 `json:"temperature"`
}

func (s Sample) IsValid() bool {
	for _, v := range []float64{s.Potential, s.Kinetic, s.Hamilton, s.Temperature} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Metric accumulates a scalar over the samples of a run.
type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

// Observer is notified of every recorded sample.
type Observer interface {
	OnSample(s Sample)
}

type Config struct {
	Dt            float64
	Steps         int
	RecordEvery   int
	Seed          int64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            1e-4,
		Steps:         1000,
		RecordEvery:   1,
		ValidateState: true,
	}
}

// Result holds a finished run. FinalDrift compares only the last and the
// first sample; the per-sample maximum is the "energy_drift" metric.
type Result struct {
	Samples     []Sample
	Metrics     map[string]float64
	FinalDrift  float64
	EnergyError float64
	StepsTaken  int
	Backend     string
	Integrator  string
}

// Energies returns the recorded Hamiltonian series.
func (r *Result) Energies() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Hamilton
	}
	return out
}

func (r *Result) Times() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Time
	}
	return out
}
