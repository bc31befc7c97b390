package experiment

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/ljsim/internal/config"
	"github.com/san-kum/ljsim/internal/dynamo"
	"github.com/san-kum/ljsim/internal/sampling"
	"github.com/san-kum/ljsim/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallGas(backend string) *config.Config {
	cfg := config.GetPreset("gas2d")
	cfg.Backend = backend
	cfg.Particles = 16
	cfg.Params.BoxLength = 12
	cfg.Steps = 20
	cfg.RecordEvery = 5
	cfg.Launch.ThreadsPerBlock = 4
	cfg.Launch.Workers = 2
	return cfg
}

func TestRunDimerPreset(t *testing.T) {
	exp, err := New(config.GetPreset("dimer"), nil)
	require.NoError(t, err)
	defer exp.Close()

	res, err := exp.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1000, res.StepsTaken)
	assert.Len(t, res.Samples, 101)
	assert.Equal(t, "verlet", res.Integrator)
	assert.Less(t, res.FinalDrift, 0.05)
	assert.Contains(t, res.Metrics, "energy_drift")
	assert.Equal(t, 2, exp.System().N())
}

func TestDimerEnergyBoundedAtEveryStep(t *testing.T) {
	for _, name := range NewRegistry().ListBackends() {
		t.Run(name, func(t *testing.T) {
			cfg := config.GetPreset("dimer")
			cfg.Backend = name
			cfg.RecordEvery = 1
			cfg.Launch.ThreadsPerBlock = 2
			cfg.Launch.Workers = 2

			exp, err := New(cfg, nil)
			require.NoError(t, err)
			defer exp.Close()

			res, err := exp.Run(context.Background())
			require.NoError(t, err)
			require.Len(t, res.Samples, 1001)

			h0 := res.Samples[0].Hamilton
			worst := 0.0
			for _, s := range res.Samples {
				worst = math.Max(worst, math.Abs(s.Hamilton-h0)/math.Abs(h0))
			}
			assert.Less(t, worst, 0.05)
			assert.InDelta(t, worst, res.Metrics["energy_drift"], 1e-15)
			assert.LessOrEqual(t, res.FinalDrift, res.Metrics["energy_drift"])
		})
	}
}

func TestRunOnEveryBackend(t *testing.T) {
	for _, name := range NewRegistry().ListBackends() {
		t.Run(name, func(t *testing.T) {
			exp, err := New(smallGas(name), nil)
			require.NoError(t, err)
			defer exp.Close()

			res, err := exp.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []int{0, 5, 10, 15, 20}, steps(res.Samples))
		})
	}
}

func TestBackendsAgree(t *testing.T) {
	host, err := New(smallGas(config.BackendHost), nil)
	require.NoError(t, err)
	defer host.Close()
	dev, err := New(smallGas(config.BackendDevice), nil)
	require.NoError(t, err)
	defer dev.Close()

	a, err := host.Run(context.Background())
	require.NoError(t, err)
	b, err := dev.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, b.Samples, len(a.Samples))
	for i := range a.Samples {
		assert.InEpsilon(t, a.Samples[i].Kinetic, b.Samples[i].Kinetic, 1e-9)
		assert.InDelta(t, a.Samples[i].Potential, b.Samples[i].Potential, 1e-9)
	}
}

func TestBuildSystemIsSeeded(t *testing.T) {
	cfg := smallGas(config.BackendHost)

	a, err := BuildSystem(cfg, tensor.Host(), 7)
	require.NoError(t, err)
	defer a.Release()
	b, err := BuildSystem(cfg, tensor.Host(), 7)
	require.NoError(t, err)
	defer b.Release()
	c, err := BuildSystem(cfg, tensor.Host(), 8)
	require.NoError(t, err)
	defer c.Release()

	sa, err := a.Snapshot()
	require.NoError(t, err)
	sb, err := b.Snapshot()
	require.NoError(t, err)
	sc, err := c.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, sa.Positions, sb.Positions)
	assert.Equal(t, sa.Velocities, sb.Velocities)
	assert.NotEqual(t, sa.Positions, sc.Positions)
}

func TestBuildSystemLatticeOverlap(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Particles = 1000
	cfg.Params.BoxLength = 5

	_, err := BuildSystem(cfg, tensor.Host(), 1)
	assert.ErrorIs(t, err, sampling.ErrOverlap)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Backend = "tpu"
	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)

	cfg = config.DefaultConfig()
	cfg.Integrator = "leapfrog"
	_, err = New(cfg, nil)
	assert.ErrorContains(t, err, "unknown integrator")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"device", "host"}, r.ListBackends())
	assert.Contains(t, r.ListIntegrators(), "verlet")

	_, err := r.GetBackend("tpu", config.DefaultConfig().Launch)
	assert.Error(t, err)

	integ, err := r.GetIntegrator("Explicit")
	require.NoError(t, err)
	assert.Equal(t, "explicit", integ.Name())
	assert.Len(t, r.DefaultMetrics(), 5)
}

func TestEnsemble(t *testing.T) {
	cfg := smallGas(config.BackendDevice)
	exp, err := New(cfg, nil)
	require.NoError(t, err)
	defer exp.Close()

	results, err := exp.Ensemble(context.Background(), 3, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, res := range results {
		assert.Equal(t, cfg.Steps, res.StepsTaken)
		assert.Contains(t, res.Metrics, "temperature")
	}
	assert.NotEqual(t, results[0].Samples[0].Kinetic, results[1].Samples[0].Kinetic)
}

func TestCloseTwice(t *testing.T) {
	exp, err := New(smallGas(config.BackendDevice), nil)
	require.NoError(t, err)
	exp.Close()
	exp.Close()
}

func steps(samples []dynamo.Sample) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = s.Step
	}
	return out
}
