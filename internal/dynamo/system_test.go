package dynamo_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ljsim/internal/compute"
	"github.com/san-kum/ljsim/internal/dynamo"
	"github.com/san-kum/ljsim/internal/integrators"
	"github.com/san-kum/ljsim/internal/physics"
	"github.com/san-kum/ljsim/internal/tensor"
)

type vectors = map[tensor.Axis][]float64

func dimer(be tensor.Backend, integ dynamo.Integrator) *dynamo.System {
	p := dynamo.ReducedParams(10)
	sys, err := dynamo.NewSystem(be, p, physics.PairwiseField{Sigma: 1, Eps: 1}, integ,
		vectors{tensor.X: {0, 2}},
		vectors{tensor.X: {0, 0}})
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(sys.Release)
	return sys
}

// nanField reports a NaN potential once armed.
type nanField struct {
	physics.PairwiseField
	armed bool
}

func (f *nanField) Potential(pos *tensor.AxisTensor) (float64, error) {
	if f.armed {
		return math.NaN(), nil
	}
	return f.PairwiseField.Potential(pos)
}

var _ = Describe("System", func() {
	var dev *compute.GridBackend

	BeforeEach(func() {
		dev = compute.NewGridBackend(compute.LaunchConfig{ThreadsPerBlock: 2, Workers: 2})
		DeferCleanup(dev.Cleanup)
	})

	DescribeTable("keeps a bound dimer's energy within 5% over 1000 Verlet steps",
		func(device bool) {
			be := tensor.Host()
			if device {
				be = tensor.NewDevice(dev)
			}
			sys := dimer(be, integrators.NewVelocityVerlet())

			h0, err := sys.Hamilton()
			Expect(err).NotTo(HaveOccurred())
			Expect(h0).To(BeNumerically("<", 0))

			for i := 0; i < 1000; i++ {
				Expect(sys.Step(1e-4)).To(Succeed())
			}

			h, err := sys.Hamilton()
			Expect(err).NotTo(HaveOccurred())
			Expect(math.Abs((h - h0) / h0)).To(BeNumerically("<", 0.05))
			Expect(sys.StepCount()).To(Equal(1000))
		},
		Entry("host backend", false),
		Entry("device backend", true),
	)

	It("keeps the device buffer count flat across steps", func() {
		sys := dimer(tensor.NewDevice(dev), integrators.NewVelocityVerlet())
		live := dev.LiveBuffers()
		Expect(live).To(Equal(2))

		for i := 0; i < 20; i++ {
			Expect(sys.Step(1e-4)).To(Succeed())
			_, err := sys.Sample()
			Expect(err).NotTo(HaveOccurred())
			Expect(dev.LiveBuffers()).To(Equal(live))
		}

		sys.Release()
		Expect(dev.LiveBuffers()).To(BeZero())
	})

	It("splits the Hamiltonian into kinetic and potential parts", func() {
		p := dynamo.ReducedParams(20)
		p.Mass = 2
		sys, err := dynamo.NewSystem(tensor.Host(), p, physics.PairwiseField{Sigma: 1, Eps: 1},
			integrators.NewExplicit(),
			vectors{tensor.X: {0, 1.5}, tensor.Y: {0, 0}},
			vectors{tensor.X: {1, -1}, tensor.Y: {0.5, 0}})
		Expect(err).NotTo(HaveOccurred())
		defer sys.Release()

		k, err := sys.Kinetic()
		Expect(err).NotTo(HaveOccurred())
		Expect(k).To(BeNumerically("~", 0.5*2*(1+1+0.25), 1e-12))

		u, err := sys.Potential()
		Expect(err).NotTo(HaveOccurred())
		q6 := math.Pow(1/1.5, 6)
		Expect(u).To(BeNumerically("~", 4*(q6*q6-q6), 1e-12))

		h, err := sys.Hamilton()
		Expect(err).NotTo(HaveOccurred())
		Expect(h).To(BeNumerically("~", k+u, 1e-12))

		temp, err := sys.Temperature()
		Expect(err).NotTo(HaveOccurred())
		Expect(temp).To(BeNumerically("~", 2*k/(3*2), 1e-12))
	})

	It("round-trips state through Snapshot and SetState", func() {
		sys := dimer(tensor.Host(), integrators.NewExplicit())
		Expect(sys.SetState(vectors{tensor.X: {1, 3, 5}}, vectors{tensor.X: {0.1, 0.2, 0.3}})).To(Succeed())
		Expect(sys.N()).To(Equal(3))

		snap, err := sys.Snapshot()
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Positions[tensor.X]).To(Equal([]float64{1, 3, 5}))
		Expect(snap.Velocities[tensor.X]).To(Equal([]float64{0.1, 0.2, 0.3}))
	})

	DescribeTable("rejects inconsistent state",
		func(pos, vel vectors, want error) {
			sys := dimer(tensor.Host(), integrators.NewExplicit())
			Expect(sys.SetState(pos, vel)).To(MatchError(want))
			Expect(sys.N()).To(Equal(2))
		},
		Entry("length mismatch", vectors{tensor.X: {1, 2}}, vectors{tensor.X: {1}}, dynamo.ErrDimensionMismatch),
		Entry("missing axis", vectors{tensor.X: {1}, tensor.Y: {1}}, vectors{tensor.X: {1}}, dynamo.ErrDimensionMismatch),
		Entry("extra axis", vectors{tensor.X: {1}}, vectors{tensor.X: {1}, tensor.Y: {1}}, dynamo.ErrDimensionMismatch),
		Entry("no positions", vectors{}, vectors{}, dynamo.ErrDimensionMismatch),
		Entry("NaN", vectors{tensor.X: {math.NaN()}}, vectors{tensor.X: {0}}, dynamo.ErrInvalidState),
	)

	It("rejects invalid parameters", func() {
		p := dynamo.ReducedParams(0)
		_, err := dynamo.NewSystem(tensor.Host(), p, physics.PairwiseField{Sigma: 1, Eps: 1},
			integrators.NewExplicit(), vectors{tensor.X: {0}}, vectors{tensor.X: {0}})
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))
	})

	It("refuses to step after Release", func() {
		sys := dimer(tensor.Host(), integrators.NewExplicit())
		sys.Release()
		Expect(sys.Step(1e-3)).To(MatchError(dynamo.ErrReleased))
		_, err := sys.Hamilton()
		Expect(err).To(MatchError(dynamo.ErrReleased))
	})
})

var _ = Describe("Simulator", func() {
	cfg := func(steps, every int) dynamo.Config {
		c := dynamo.DefaultConfig()
		c.Steps = steps
		c.RecordEvery = every
		return c
	}

	It("records the initial state, every interval and the last step", func() {
		sys := dimer(tensor.Host(), integrators.NewVelocityVerlet())

		result, err := dynamo.New().Run(context.Background(), sys, cfg(10, 3))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.StepsTaken).To(Equal(10))

		steps := make([]int, len(result.Samples))
		for i, s := range result.Samples {
			steps[i] = s.Step
		}
		Expect(steps).To(Equal([]int{0, 3, 6, 9, 10}))
		Expect(result.Integrator).To(Equal("verlet"))
		Expect(result.Backend).To(Equal("host"))
		Expect(result.FinalDrift).To(BeNumerically("<", 1e-6))
	})

	It("feeds metrics and observers", func() {
		sys := dimer(tensor.Host(), integrators.NewVelocityVerlet())
		m := &countMetric{}
		o := &countMetric{}

		sim := dynamo.New()
		sim.AddMetric(m)
		sim.AddObserver(o)
		result, err := sim.Run(context.Background(), sys, cfg(4, 1))
		Expect(err).NotTo(HaveOccurred())

		Expect(m.n).To(Equal(5))
		Expect(o.n).To(Equal(5))
		Expect(result.Metrics).To(HaveKeyWithValue("count", 5.0))
	})

	It("stops on cancellation", func() {
		sys := dimer(tensor.Host(), integrators.NewVelocityVerlet())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := dynamo.New().Run(ctx, sys, cfg(100, 1))
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(result.StepsTaken).To(BeZero())
		Expect(result.Samples).To(HaveLen(1))
	})

	It("reports numerical blow-up as ErrUnstable with step context", func() {
		field := &nanField{PairwiseField: physics.PairwiseField{Sigma: 1, Eps: 1}}
		sys, err := dynamo.NewSystem(tensor.Host(), dynamo.ReducedParams(10), field,
			integrators.NewExplicit(), vectors{tensor.X: {0, 2}}, vectors{tensor.X: {0, 0}})
		Expect(err).NotTo(HaveOccurred())
		defer sys.Release()

		sim := dynamo.New()
		sim.AddObserver(observerFunc(func(s dynamo.Sample) {
			if s.Step == 2 {
				field.armed = true
			}
		}))

		_, err = sim.Run(context.Background(), sys, cfg(10, 1))
		Expect(err).To(MatchError(dynamo.ErrUnstable))

		var simErr *dynamo.SimulationError
		Expect(errors.As(err, &simErr)).To(BeTrue())
		Expect(simErr.Step).To(Equal(3))
	})

	It("rejects invalid run configuration", func() {
		sys := dimer(tensor.Host(), integrators.NewExplicit())
		for _, c := range []dynamo.Config{
			{Dt: 0, Steps: 1, RecordEvery: 1},
			{Dt: 1e-3, Steps: -1, RecordEvery: 1},
			{Dt: 1e-3, Steps: 1, RecordEvery: 0},
		} {
			_, err := dynamo.New().Run(context.Background(), sys, c)
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))
		}
	})

	It("stops a callback run when the callback declines", func() {
		sys := dimer(tensor.Host(), integrators.NewVelocityVerlet())
		seen := 0
		err := dynamo.New().RunWithCallback(context.Background(), sys, cfg(50, 1), func(s dynamo.Sample) bool {
			seen++
			return s.Step < 7
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(Equal(7))
		Expect(sys.StepCount()).To(Equal(7))
	})
})

var _ = Describe("Ensemble", func() {
	It("runs one system per replica with consecutive seeds", func() {
		seeds := make(chan int64, 4)
		build := func(replica int, seed int64) (*dynamo.System, error) {
			seeds <- seed
			gap := 1.5 + 0.1*float64(replica)
			return dynamo.NewSystem(tensor.Host(), dynamo.ReducedParams(10),
				physics.PairwiseField{Sigma: 1, Eps: 1}, integrators.NewVelocityVerlet(),
				vectors{tensor.X: {0, gap}}, vectors{tensor.X: {0, 0}})
		}

		c := dynamo.DefaultConfig()
		c.Steps = 20
		results, err := dynamo.NewEnsemble(dynamo.New(), 4, 100).
			WithWorkers(2).
			WithMetrics(func() []dynamo.Metric { return []dynamo.Metric{&countMetric{}} }).
			Run(context.Background(), build, c)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(4))
		for _, r := range results {
			Expect(r.StepsTaken).To(Equal(20))
			Expect(r.Metrics).To(HaveKeyWithValue("count", 21.0))
		}

		close(seeds)
		var got []int64
		for s := range seeds {
			got = append(got, s)
		}
		Expect(got).To(ConsistOf(int64(100), int64(101), int64(102), int64(103)))
	})

	It("returns the first build failure", func() {
		boom := errors.New("boom")
		build := func(int, int64) (*dynamo.System, error) { return nil, boom }

		_, err := dynamo.NewEnsemble(dynamo.New(), 3, 0).Run(context.Background(), build, dynamo.DefaultConfig())
		Expect(err).To(MatchError(boom))
	})
})

var _ = Describe("energy figures", func() {
	It("computes drift and error of a series", func() {
		Expect(dynamo.FinalDrift([]float64{-2, -2.1, -1.9})).To(BeNumerically("~", 0.05, 1e-12))
		Expect(dynamo.FinalDrift([]float64{0, 1})).To(BeZero())
		Expect(dynamo.EnergyError([]float64{1, 2, 3})).To(BeNumerically("~", 0.5, 1e-12))
		Expect(dynamo.EnergyError(nil)).To(BeZero())
		Expect(dynamo.MaxMeanError(-1.8, -2)).To(BeNumerically("~", -0.1, 1e-12))
		Expect(dynamo.MaxMeanError(1, 0)).To(BeZero())
	})
})

type countMetric struct{ n int }

func (c *countMetric) Name() string           { return "count" }
func (c *countMetric) Observe(dynamo.Sample)  { c.n++ }
func (c *countMetric) OnSample(dynamo.Sample) { c.n++ }
func (c *countMetric) Value() float64         { return float64(c.n) }
func (c *countMetric) Reset()                 { c.n = 0 }

type observerFunc func(dynamo.Sample)

func (f observerFunc) OnSample(s dynamo.Sample) { f(s) }
