package integrators_test

import (
	"math"
	"testing"

	"github.com/san-kum/ljsim/internal/compute"
	"github.com/san-kum/ljsim/internal/dynamo"
	"github.com/san-kum/ljsim/internal/integrators"
	"github.com/san-kum/ljsim/internal/physics"
	"github.com/san-kum/ljsim/internal/tensor"
)

func benchLattice(b *testing.B, be tensor.Backend, integ dynamo.Integrator, side int) *dynamo.System {
	b.Helper()
	n := side * side
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = 1.2 * float64(i%side)
		y[i] = 1.2 * float64(i/side)
	}
	zero := make([]float64, n)

	p := dynamo.ReducedParams(1.2 * float64(side))
	sys, err := dynamo.NewSystem(be, p, physics.PairwiseField{Sigma: 1, Eps: 1}, integ,
		map[tensor.Axis][]float64{tensor.X: x, tensor.Y: y},
		map[tensor.Axis][]float64{tensor.X: zero, tensor.Y: zero})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(sys.Release)
	return sys
}

func benchStep(b *testing.B, be tensor.Backend, integ dynamo.Integrator) {
	sys := benchLattice(b, be, integ, 8)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := sys.Step(1e-4); err != nil {
			b.Fatal(err)
		}
	}
	b.StopTimer()

	if h, err := sys.Hamilton(); err != nil || math.IsNaN(h) {
		b.Fatalf("invalid energy %v (%v)", h, err)
	}
}

func BenchmarkExplicitHost(b *testing.B) {
	benchStep(b, tensor.Host(), integrators.NewExplicit())
}

func BenchmarkVerletHost(b *testing.B) {
	benchStep(b, tensor.Host(), integrators.NewVelocityVerlet())
}

func BenchmarkVerletDevice(b *testing.B) {
	dev := compute.NewGridBackend(compute.Discover())
	b.Cleanup(dev.Cleanup)
	benchStep(b, tensor.NewDevice(dev), integrators.NewVelocityVerlet())
}
