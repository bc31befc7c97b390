package physics

import (
	"math"
	"testing"

	"github.com/san-kum/ljsim/internal/compute"
	"github.com/san-kum/ljsim/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]tensor.Backend {
	t.Helper()
	dev := compute.NewGridBackend(compute.LaunchConfig{ThreadsPerBlock: 4, Workers: 2})
	t.Cleanup(dev.Cleanup)
	return map[string]tensor.Backend{
		"host":   tensor.Host(),
		"device": tensor.NewDevice(dev),
	}
}

func line(t *testing.T, be tensor.Backend, xs ...float64) *tensor.AxisTensor {
	t.Helper()
	pos, err := tensor.FromVectors(be, map[tensor.Axis][]float64{tensor.X: xs})
	require.NoError(t, err)
	t.Cleanup(pos.Release)
	return pos
}

func cloud(t *testing.T, be tensor.Backend) *tensor.AxisTensor {
	t.Helper()
	pos, err := tensor.FromVectors(be, map[tensor.Axis][]float64{
		tensor.X: {0.0, 1.3, 2.1, 0.4, 1.9},
		tensor.Y: {0.2, 0.1, 1.4, 1.6, 3.0},
		tensor.Z: {0.5, 1.2, 0.3, 2.2, 1.1},
	})
	require.NoError(t, err)
	t.Cleanup(pos.Release)
	return pos
}

func TestPairwiseDifferenceAntiSymmetric(t *testing.T) {
	f := PairwiseField{Sigma: 1, Eps: 1}
	for name, be := range backends(t) {
		t.Run(name, func(t *testing.T) {
			diff, err := f.PairwiseDifference(cloud(t, be))
			require.NoError(t, err)
			defer diff.Release()

			parts, err := diff.ToMap()
			require.NoError(t, err)
			for axis, d := range parts {
				n, _ := d.Dims()
				for i := 0; i < n; i++ {
					assert.Zero(t, d.At(i, i), "axis %s", axis)
					for j := 0; j < n; j++ {
						assert.Equal(t, d.At(i, j), -d.At(j, i), "axis %s [%d,%d]", axis, i, j)
					}
				}
			}
		})
	}
}

func TestDistanceSelfSentinel(t *testing.T) {
	f := PairwiseField{Sigma: 1, Eps: 1}
	for name, be := range backends(t) {
		t.Run(name, func(t *testing.T) {
			diff, err := f.PairwiseDifference(cloud(t, be))
			require.NoError(t, err)
			defer diff.Release()

			r, err := f.Distance(diff)
			require.NoError(t, err)
			defer r.Release()

			d, err := r.Dense()
			require.NoError(t, err)
			for i := 0; i < 5; i++ {
				assert.Equal(t, 1.0, d.At(i, i))
			}
			assert.InDelta(t, math.Sqrt(1.3*1.3+0.1*0.1+0.7*0.7), d.At(0, 1), 1e-12)
		})
	}
}

func TestPotentialMinimumAtEquilibrium(t *testing.T) {
	f := PairwiseField{Sigma: 1.5, Eps: 2}
	r0 := f.Equilibrium()

	for name, be := range backends(t) {
		t.Run(name, func(t *testing.T) {
			u0, err := f.Potential(line(t, be, 0, r0))
			require.NoError(t, err)
			assert.InDelta(t, -f.Eps, u0, 1e-12)

			for _, dr := range []float64{-0.05, -0.01, 0.01, 0.05} {
				u, err := f.Potential(line(t, be, 0, r0+dr))
				require.NoError(t, err)
				assert.Greater(t, u, u0, "dr=%v", dr)
			}

			force, err := f.Force(line(t, be, 0, r0))
			require.NoError(t, err)
			defer force.Release()
			fx, err := force.Component(tensor.X)
			require.NoError(t, err)
			assert.InDelta(t, 0, fx.At(0, 0), 1e-12)
			assert.InDelta(t, 0, fx.At(1, 0), 1e-12)
		})
	}
}

func TestPotentialCountsEachPairOnce(t *testing.T) {
	f := PairwiseField{Sigma: 1, Eps: 0.5}
	lj := func(r float64) float64 {
		q6 := math.Pow(1/r, 6)
		return 4 * f.Eps * (q6*q6 - q6)
	}
	want := lj(1.2) + lj(3.0) + lj(1.8)

	got, err := f.Potential(line(t, tensor.Host(), 0, 1.2, 3.0))
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
}

func TestForceIsNegativeGradient(t *testing.T) {
	f := PairwiseField{Sigma: 1, Eps: 1}
	be := tensor.Host()
	h := 1e-6

	for _, r := range []float64{0.95, 1.1, 1.5, 2.5} {
		up, err := f.Potential(line(t, be, 0, r+h))
		require.NoError(t, err)
		down, err := f.Potential(line(t, be, 0, r-h))
		require.NoError(t, err)
		numeric := -(up - down) / (2 * h)

		force, err := f.Force(line(t, be, 0, r))
		require.NoError(t, err)
		fx, err := force.Component(tensor.X)
		require.NoError(t, err)
		force.Release()

		assert.InDelta(t, numeric, fx.At(1, 0), 1e-5*math.Max(1, math.Abs(numeric)), "r=%v", r)
	}
}

func TestNewtonsThirdLaw(t *testing.T) {
	f := PairwiseField{Sigma: 1, Eps: 1}
	for name, be := range backends(t) {
		t.Run(name, func(t *testing.T) {
			force, err := f.Force(cloud(t, be))
			require.NoError(t, err)
			defer force.Release()

			parts, err := force.ToMap()
			require.NoError(t, err)
			for axis, d := range parts {
				total, largest := 0.0, 0.0
				for i := 0; i < 5; i++ {
					total += d.At(i, 0)
					largest = math.Max(largest, math.Abs(d.At(i, 0)))
				}
				assert.InDelta(t, 0, total, 1e-12*math.Max(1, largest), "axis %s", axis)
			}
		})
	}
}

func TestHostAndDeviceFieldsAgree(t *testing.T) {
	f := PairwiseField{Sigma: 1, Eps: 1}
	bs := backends(t)

	uHost, err := f.Potential(cloud(t, bs["host"]))
	require.NoError(t, err)
	uDev, err := f.Potential(cloud(t, bs["device"]))
	require.NoError(t, err)
	assert.InDelta(t, uHost, uDev, 1e-12*math.Max(1, math.Abs(uHost)))

	fHost, err := f.Force(cloud(t, bs["host"]))
	require.NoError(t, err)
	defer fHost.Release()
	fDev, err := f.Force(cloud(t, bs["device"]))
	require.NoError(t, err)
	defer fDev.Release()

	hostMap, err := fHost.ToMap()
	require.NoError(t, err)
	devMap, err := fDev.ToMap()
	require.NoError(t, err)
	for axis := range hostMap {
		assert.InDeltaSlice(t, hostMap[axis].RawMatrix().Data, devMap[axis].RawMatrix().Data, 1e-9, "axis %s", axis)
	}
}

func TestFieldReleasesIntermediates(t *testing.T) {
	dev := compute.NewGridBackend(compute.LaunchConfig{})
	defer dev.Cleanup()
	be := tensor.NewDevice(dev)
	f := PairwiseField{Sigma: 1, Eps: 1}

	pos, err := tensor.FromVectors(be, map[tensor.Axis][]float64{
		tensor.X: {0, 1.1, 2.3},
		tensor.Y: {0, 0.4, 0.1},
	})
	require.NoError(t, err)
	defer pos.Release()
	base := dev.LiveBuffers()

	_, err = f.Potential(pos)
	require.NoError(t, err)
	assert.Equal(t, base, dev.LiveBuffers())

	force, err := f.Force(pos)
	require.NoError(t, err)
	assert.Equal(t, base+2, dev.LiveBuffers())
	force.Release()

	_, err = f.MinSeparation(pos)
	require.NoError(t, err)
	assert.Equal(t, base, dev.LiveBuffers())
}

func TestMinSeparation(t *testing.T) {
	f := PairwiseField{Sigma: 1, Eps: 1}
	for name, be := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := f.MinSeparation(line(t, be, 0, 4, 1.5, 9))
			require.NoError(t, err)
			assert.InDelta(t, 1.5, got, 1e-12)

			single, err := f.MinSeparation(line(t, be, 3))
			require.NoError(t, err)
			assert.True(t, math.IsInf(single, 1))
		})
	}
}

func TestValidate(t *testing.T) {
	_, err := NewPairwiseField(0, 1)
	assert.ErrorIs(t, err, ErrInvalidField)
	_, err = NewPairwiseField(1, -1)
	assert.ErrorIs(t, err, ErrInvalidField)
	_, err = NewPairwiseField(math.NaN(), 1)
	assert.ErrorIs(t, err, ErrInvalidField)

	f, err := NewPairwiseField(1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.122462048309373, f.Equilibrium(), 1e-12)
}
