package analysis

import (
	"math"
	"testing"

	"github.com/san-kum/ljsim/internal/dynamo"
	"github.com/san-kum/ljsim/internal/integrators"
	"github.com/san-kum/ljsim/internal/physics"
	"github.com/san-kum/ljsim/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	s, err := Summarize([]float64{-2, -1, -3, -2})
	require.NoError(t, err)

	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, -2, s.Mean, 1e-12)
	assert.Equal(t, -3.0, s.Min)
	assert.Equal(t, -1.0, s.Max)
	assert.InDelta(t, math.Sqrt(2.0/3.0), s.Std, 1e-12)
	assert.InDelta(t, 0, s.Drift(), 1e-12)
	assert.InDelta(t, -0.5, s.RelativeError(), 1e-12)

	_, err = Summarize(nil)
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestSummarizeSingleValue(t *testing.T) {
	s, err := Summarize([]float64{4})
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Std)
	assert.Equal(t, 0.0, s.RelativeError())
}

func TestAnalyzeMatchesDriver(t *testing.T) {
	samples := []dynamo.Sample{
		{Potential: -1, Kinetic: 0.5, Hamilton: -0.5, Temperature: 0.3},
		{Potential: -1.2, Kinetic: 0.69, Hamilton: -0.51, Temperature: 0.4},
		{Potential: -0.9, Kinetic: 0.41, Hamilton: -0.49, Temperature: 0.2},
	}
	r, err := Analyze(samples)
	require.NoError(t, err)

	h := []float64{-0.5, -0.51, -0.49}
	assert.InDelta(t, dynamo.EnergyError(h), r.Hamilton.RelativeError(), 1e-12)
	assert.InDelta(t, dynamo.FinalDrift(h), r.Hamilton.Drift(), 1e-12)
	assert.InDelta(t, 0.3, r.Temperature.Mean, 1e-12)
	assert.Equal(t, -1.2, r.Potential.Min)

	_, err = Analyze(nil)
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestPowerSpectrumFindsSine(t *testing.T) {
	dt := 0.01
	series := make([]float64, 200)
	for i := range series {
		series[i] = 3 + math.Sin(2*math.Pi*5*float64(i)*dt)
	}

	freqs, power := PowerSpectrum(series, dt)
	require.Len(t, freqs, 101)
	require.Len(t, power, 101)
	assert.InDelta(t, 0, power[0], 1e-9)
	assert.InDelta(t, 0.5, power[10], 1e-9)
	assert.InDelta(t, 5, DominantFrequency(series, dt), 1e-9)
}

func TestPowerSpectrumDegenerate(t *testing.T) {
	f, p := PowerSpectrum([]float64{1}, 0.1)
	assert.Nil(t, f)
	assert.Nil(t, p)
	assert.Equal(t, 0.0, DominantFrequency(nil, 0.1))
}

func dimer(t *testing.T) *dynamo.System {
	t.Helper()
	field, err := physics.NewPairwiseField(1, 1)
	require.NoError(t, err)
	sys, err := dynamo.NewSystem(tensor.Host(), dynamo.ReducedParams(10), field, integrators.NewVelocityVerlet(),
		map[tensor.Axis][]float64{tensor.X: {0, 2}},
		map[tensor.Axis][]float64{tensor.X: {0, 0}})
	require.NoError(t, err)
	t.Cleanup(sys.Release)
	return sys
}

func TestLyapunovExponent(t *testing.T) {
	sys := dimer(t)

	lambda, err := LyapunovExponent(sys, 1e-3, 200, 20, 1e-6)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(lambda))
	assert.False(t, math.IsInf(lambda, 0))
	assert.Equal(t, 200, sys.StepCount())
}

func TestLyapunovRejectsBadParameters(t *testing.T) {
	sys := dimer(t)
	_, err := LyapunovExponent(sys, 1e-3, 0, 10, 1e-6)
	assert.Error(t, err)
	_, err = LyapunovExponent(sys, 1e-3, 10, 10, 0)
	assert.Error(t, err)
}

func TestMinimumImage(t *testing.T) {
	assert.InDelta(t, -1, minimumImage(9, 10), 1e-12)
	assert.InDelta(t, 1, minimumImage(-9, 10), 1e-12)
	assert.InDelta(t, 3, minimumImage(3, 10), 1e-12)
}
