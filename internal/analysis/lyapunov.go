package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/ljsim/internal/compute"
	"github.com/san-kum/ljsim/internal/dynamo"
	"github.com/san-kum/ljsim/internal/tensor"
)

// LyapunovExponent estimates the largest Lyapunov exponent of ref using
// the trajectory separation method. A twin system starts with the first
// particle displaced by perturbation along the first axis; both are
// stepped together and the twin is pulled back to distance perturbation
// every renorm steps. ref is advanced by steps steps.
//
// Separations use the minimum image along every axis so a particle that
// wraps in one system but not the other is not counted as diverged.
func LyapunovExponent(ref *dynamo.System, dt float64, steps, renorm int, perturbation float64) (float64, error) {
	if steps < 1 || renorm < 1 || !(dt > 0) || !(perturbation > 0) {
		return 0, fmt.Errorf("analysis: invalid lyapunov parameters")
	}

	snap, err := ref.Snapshot()
	if err != nil {
		return 0, err
	}
	axes := ref.Axes()
	snap.Positions[axes[0]][0] += perturbation

	twin, err := dynamo.NewSystem(ref.Backend(), ref.Params(), ref.Field(), ref.Integrator(),
		snap.Positions, snap.Velocities)
	if err != nil {
		return 0, err
	}
	defer twin.Release()

	box := ref.Params().BoxLength
	sum := 0.0
	periods := 0

	for i := 1; i <= steps; i++ {
		if err := ref.Step(dt); err != nil {
			return 0, err
		}
		if err := twin.Step(dt); err != nil {
			return 0, err
		}
		if i%renorm != 0 {
			continue
		}

		a, err := ref.Snapshot()
		if err != nil {
			return 0, err
		}
		b, err := twin.Snapshot()
		if err != nil {
			return 0, err
		}

		d := separation(a, b, axes, box)
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		sum += math.Log(d / perturbation)
		periods++

		if err := twin.SetState(rescale(a, b, axes, box, perturbation/d)); err != nil {
			return 0, err
		}
	}

	if periods == 0 {
		return 0, nil
	}
	return sum / (float64(periods*renorm) * dt), nil
}

func minimumImage(d, box float64) float64 {
	return d - box*math.Round(d/box)
}

func separation(a, b dynamo.Snapshot, axes []tensor.Axis, box float64) float64 {
	sum := 0.0
	for _, ax := range axes {
		for i := range a.Positions[ax] {
			dx := minimumImage(b.Positions[ax][i]-a.Positions[ax][i], box)
			dv := b.Velocities[ax][i] - a.Velocities[ax][i]
			sum += dx*dx + dv*dv
		}
	}
	return math.Sqrt(sum)
}

// rescale moves b towards a so that their separation is scaled by f.
func rescale(a, b dynamo.Snapshot, axes []tensor.Axis, box, f float64) (pos, vel map[tensor.Axis][]float64) {
	pos = make(map[tensor.Axis][]float64, len(axes))
	vel = make(map[tensor.Axis][]float64, len(axes))
	for _, ax := range axes {
		n := len(a.Positions[ax])
		pos[ax] = make([]float64, n)
		vel[ax] = make([]float64, n)
		for i := 0; i < n; i++ {
			dx := minimumImage(b.Positions[ax][i]-a.Positions[ax][i], box)
			pos[ax][i] = compute.FloorMod(a.Positions[ax][i]+f*dx, box)
			vel[ax][i] = a.Velocities[ax][i] + f*(b.Velocities[ax][i]-a.Velocities[ax][i])
		}
	}
	return pos, vel
}
