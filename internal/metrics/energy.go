package metrics

import (
	"math"

	"github.com/san-kum/ljsim/internal/dynamo"
)

// Energy is the mean total energy over the recorded samples.
type Energy struct {
	name        string
	samples     int
	totalEnergy float64
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s dynamo.Sample) {
	e.totalEnergy += s.Hamilton
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest relative deviation of the total energy from
// its first recorded value.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s dynamo.Sample) {
	if e.samples == 0 {
		e.initialEnergy = s.Hamilton
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(s.Hamilton-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

// EnergyError is (max(H) - mean(H)) / mean(H) over the recorded samples.
type EnergyError struct {
	name    string
	sum     float64
	max     float64
	samples int
}

func NewEnergyError() *EnergyError {
	return &EnergyError{name: "energy_error", max: math.Inf(-1)}
}

func (e *EnergyError) Name() string { return e.name }

func (e *EnergyError) Observe(s dynamo.Sample) {
	e.sum += s.Hamilton
	e.max = math.Max(e.max, s.Hamilton)
	e.samples++
}

func (e *EnergyError) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return dynamo.MaxMeanError(e.max, e.sum/float64(e.samples))
}

func (e *EnergyError) Reset() {
	e.sum = 0
	e.max = math.Inf(-1)
	e.samples = 0
}
