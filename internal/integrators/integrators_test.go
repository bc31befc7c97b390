package integrators_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ljsim/internal/dynamo"
	"github.com/san-kum/ljsim/internal/integrators"
	"github.com/san-kum/ljsim/internal/physics"
	"github.com/san-kum/ljsim/internal/tensor"
)

func newLine(p dynamo.Params, integ dynamo.Integrator, x, v []float64) *dynamo.System {
	field := physics.PairwiseField{Sigma: p.Sigma, Eps: p.Eps}
	sys, err := dynamo.NewSystem(tensor.Host(), p, field, integ,
		map[tensor.Axis][]float64{tensor.X: x},
		map[tensor.Axis][]float64{tensor.X: v})
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(sys.Release)
	return sys
}

func column(sys *dynamo.System, positions bool) []float64 {
	snap, err := sys.Snapshot()
	Expect(err).NotTo(HaveOccurred())
	if positions {
		return snap.Positions[tensor.X]
	}
	return snap.Velocities[tensor.X]
}

var _ = Describe("PeriodicBoundary", func() {
	It("wraps every coordinate into [0, L)", func() {
		x, err := tensor.FromVectors(tensor.Host(), map[tensor.Axis][]float64{
			tensor.X: {-0.5, 10.25, 3, 0, -1e-17, 20},
		})
		Expect(err).NotTo(HaveOccurred())
		defer x.Release()

		wrapped, err := integrators.PeriodicBoundary(x, 10)
		Expect(err).NotTo(HaveOccurred())
		defer wrapped.Release()

		d, err := wrapped.Component(tensor.X)
		Expect(err).NotTo(HaveOccurred())
		got := d.RawMatrix().Data
		want := []float64{9.5, 0.25, 3, 0, 0, 0}
		for i := range want {
			Expect(got[i]).To(BeNumerically("~", want[i], 1e-12))
			Expect(got[i]).To(BeNumerically(">=", 0))
			Expect(got[i]).To(BeNumerically("<", 10))
		}

		again, err := integrators.PeriodicBoundary(wrapped, 10)
		Expect(err).NotTo(HaveOccurred())
		defer again.Release()
		d2, err := again.Component(tensor.X)
		Expect(err).NotTo(HaveOccurred())
		Expect(d2.RawMatrix().Data).To(Equal(got))
	})

	It("rejects a degenerate box", func() {
		x, err := tensor.FromVectors(tensor.Host(), map[tensor.Axis][]float64{tensor.X: {1}})
		Expect(err).NotTo(HaveOccurred())
		defer x.Release()

		for _, l := range []float64{0, -1, math.Inf(1), math.NaN()} {
			_, err := integrators.PeriodicBoundary(x, l)
			Expect(err).To(MatchError(integrators.ErrInvalidBox))
		}
	})
})

var _ = Describe("VelocityCoef", func() {
	var p dynamo.Params

	BeforeEach(func() {
		p = dynamo.ReducedParams(100)
	})

	It("is 1 at the target temperature", func() {
		p.Temperature = 3
		sys := newLine(p, integrators.NewExplicit(), []float64{0, 5}, []float64{3, -3})

		temp, err := sys.Temperature()
		Expect(err).NotTo(HaveOccurred())
		Expect(temp).To(BeNumerically("~", 3, 1e-12))

		c, err := integrators.VelocityCoef(sys)
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(BeNumerically("~", 1, 1e-12))
	})

	It("scales with the square root of the temperature ratio", func() {
		p.Temperature = 12
		sys := newLine(p, integrators.NewExplicit(), []float64{0, 5}, []float64{3, -3})

		c, err := integrators.VelocityCoef(sys)
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(BeNumerically("~", 2, 1e-12))
	})

	It("is 1 when the thermostat is off", func() {
		sys := newLine(p, integrators.NewExplicit(), []float64{0, 5}, []float64{3, -3})

		c, err := integrators.VelocityCoef(sys)
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(1.0))
	})

	It("is 1 for a system at rest", func() {
		p.Temperature = 300
		sys := newLine(p, integrators.NewExplicit(), []float64{0, 5}, []float64{0, 0})

		c, err := integrators.VelocityCoef(sys)
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(1.0))
	})
})

var _ = Describe("Explicit", func() {
	It("kicks the velocity and drifts with the new velocity", func() {
		p := dynamo.ReducedParams(10)
		p.Mass = 2
		x, v := []float64{1, 2.5}, []float64{0.1, -0.2}
		sys := newLine(p, integrators.NewExplicit(), x, v)
		dt := 1e-3

		r := 1.5
		q := 1 / r
		f := 24 * (2*math.Pow(q, 14) - math.Pow(q, 8)) * (x[0] - x[1])
		forces := []float64{f, -f}

		Expect(sys.Step(dt)).To(Succeed())

		gotX, gotV := column(sys, true), column(sys, false)
		for i := range x {
			wantV := v[i] + forces[i]/p.Mass*dt
			Expect(gotV[i]).To(BeNumerically("~", wantV, 1e-12))
			Expect(gotX[i]).To(BeNumerically("~", x[i]+wantV*dt, 1e-12))
		}
		Expect(sys.StepCount()).To(Equal(1))
		Expect(sys.Time()).To(BeNumerically("~", dt, 1e-18))
	})

	It("wraps particles that leave the box", func() {
		p := dynamo.ReducedParams(10)
		p.Eps = 0
		sys := newLine(p, integrators.NewExplicit(), []float64{9.95, 0.05}, []float64{1, -1})

		Expect(sys.Step(0.1)).To(Succeed())

		got := column(sys, true)
		Expect(got[0]).To(BeNumerically("~", 0.05, 1e-12))
		Expect(got[1]).To(BeNumerically("~", 9.95, 1e-12))
	})

	It("holds free particles at the target temperature", func() {
		p := dynamo.ReducedParams(10)
		p.Eps = 0
		p.Temperature = 2
		sys := newLine(p, integrators.NewExplicit(), []float64{1, 3, 5}, []float64{0.3, -1.2, 0.5})

		for i := 0; i < 5; i++ {
			Expect(sys.Step(0.01)).To(Succeed())
			temp, err := sys.Temperature()
			Expect(err).NotTo(HaveOccurred())
			Expect(temp).To(BeNumerically("~", 2, 1e-9))
		}
	})
})

var _ = Describe("VelocityVerlet", func() {
	It("agrees with the explicit scheme for small steps", func() {
		p := dynamo.ReducedParams(10)
		x, v := []float64{1, 2.5}, []float64{0.05, -0.05}
		explicit := newLine(p, integrators.NewExplicit(), x, v)
		verlet := newLine(p, integrators.NewVelocityVerlet(), x, v)

		for i := 0; i < 100; i++ {
			Expect(explicit.Step(1e-4)).To(Succeed())
			Expect(verlet.Step(1e-4)).To(Succeed())
		}

		a, b := column(explicit, true), column(verlet, true)
		for i := range a {
			Expect(a[i]).To(BeNumerically("~", b[i], 1e-5))
		}
	})

	It("conserves energy better than the explicit scheme", func() {
		p := dynamo.ReducedParams(10)
		x, v := []float64{1, 2.2}, []float64{0.5, -0.5}
		explicit := newLine(p, integrators.NewExplicit(), x, v)
		verlet := newLine(p, integrators.NewVelocityVerlet(), x, v)

		h0, err := verlet.Hamilton()
		Expect(err).NotTo(HaveOccurred())

		worstExplicit, worstVerlet := 0.0, 0.0
		for i := 0; i < 2000; i++ {
			Expect(explicit.Step(1e-3)).To(Succeed())
			Expect(verlet.Step(1e-3)).To(Succeed())

			h, err := explicit.Hamilton()
			Expect(err).NotTo(HaveOccurred())
			worstExplicit = math.Max(worstExplicit, math.Abs(h-h0))

			h, err = verlet.Hamilton()
			Expect(err).NotTo(HaveOccurred())
			worstVerlet = math.Max(worstVerlet, math.Abs(h-h0))
		}

		Expect(worstVerlet).To(BeNumerically("<", worstExplicit))
		Expect(worstVerlet / math.Abs(h0)).To(BeNumerically("<", 1e-3))
	})

	It("moves a particle at rest in the force direction", func() {
		p := dynamo.ReducedParams(10)
		sys := newLine(p, integrators.NewVelocityVerlet(), []float64{1, 2.5}, []float64{0, 0})

		Expect(sys.Step(1e-3)).To(Succeed())

		got := column(sys, true)
		Expect(got[0]).To(BeNumerically(">", 1))
		Expect(got[1]).To(BeNumerically("<", 2.5))
	})
})

var _ = Describe("ByName", func() {
	DescribeTable("resolves scheme names",
		func(name, want string) {
			integ, err := integrators.ByName(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(integ.Name()).To(Equal(want))
		},
		Entry("explicit", "explicit", "explicit"),
		Entry("euler alias", "euler", "explicit"),
		Entry("verlet", "Verlet", "verlet"),
	)

	It("rejects unknown schemes", func() {
		_, err := integrators.ByName("rk4")
		Expect(err).To(MatchError(ContainSubstring("unknown integrator")))
	})
})
