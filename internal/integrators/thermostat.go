package integrators

import (
	"math"

	"github.com/san-kum/ljsim/internal/dynamo"
)

// VelocityCoef returns the isokinetic rescaling factor sqrt(T / T_inst)
// for the current velocities. It is 1 when the thermostat is off
// (target temperature <= 0) or when the system is at rest.
func VelocityCoef(s *dynamo.System) (float64, error) {
	target := s.Params().Temperature
	if target <= 0 {
		return 1, nil
	}

	inst, err := s.Temperature()
	if err != nil {
		return 0, err
	}
	if inst <= 0 {
		return 1, nil
	}
	return math.Sqrt(target / inst), nil
}
