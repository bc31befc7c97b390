package metrics

import (
	"math"

	"github.com/san-kum/ljsim/internal/dynamo"
)

// Stability is the fraction of samples whose total energy stays within a
// relative threshold of the first sample.
type Stability struct {
	name       string
	threshold  float64
	reference  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(smp dynamo.Sample) {
	if s.samples == 0 {
		s.reference = smp.Hamilton
	}
	s.samples++

	if !smp.IsValid() {
		s.violations++
		return
	}
	scale := math.Abs(s.reference)
	if scale == 0 {
		scale = 1
	}
	if math.Abs(smp.Hamilton-s.reference)/scale > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
	s.reference = 0
}

// Default returns the metrics recorded for every run.
func Default() []dynamo.Metric {
	return []dynamo.Metric{
		NewEnergy(),
		NewEnergyDrift(),
		NewEnergyError(),
		NewTemperature(),
		NewStability(0.05),
	}
}
