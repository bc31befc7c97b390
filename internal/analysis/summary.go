package analysis

import (
	"errors"
	"math"

	"github.com/san-kum/ljsim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrEmptySeries = errors.New("analysis: empty series")

// Summary describes one recorded series.
type Summary struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Max   float64
	First float64
	Last  float64
}

func Summarize(series []float64) (Summary, error) {
	if len(series) == 0 {
		return Summary{}, ErrEmptySeries
	}
	mean, std := stat.MeanStdDev(series, nil)
	if len(series) == 1 {
		std = 0
	}
	return Summary{
		Count: len(series),
		Mean:  mean,
		Std:   std,
		Min:   floats.Min(series),
		Max:   floats.Max(series),
		First: series[0],
		Last:  series[len(series)-1],
	}, nil
}

// Drift is |Last - First| / |First|, or 0 for a zero first value.
func (s Summary) Drift() float64 {
	if s.First == 0 {
		return 0
	}
	return math.Abs(s.Last-s.First) / math.Abs(s.First)
}

// RelativeError is (Max - Mean) / Mean, the run error reported after
// every simulation.
func (s Summary) RelativeError() float64 {
	return dynamo.MaxMeanError(s.Max, s.Mean)
}

// Report summarizes every energy series of a run.
type Report struct {
	Potential   Summary
	Kinetic     Summary
	Hamilton    Summary
	Temperature Summary
}

func Analyze(samples []dynamo.Sample) (Report, error) {
	if len(samples) == 0 {
		return Report{}, ErrEmptySeries
	}
	u := make([]float64, len(samples))
	k := make([]float64, len(samples))
	h := make([]float64, len(samples))
	t := make([]float64, len(samples))
	for i, s := range samples {
		u[i], k[i], h[i], t[i] = s.Potential, s.Kinetic, s.Hamilton, s.Temperature
	}

	var r Report
	var err error
	if r.Potential, err = Summarize(u); err != nil {
		return r, err
	}
	if r.Kinetic, err = Summarize(k); err != nil {
		return r, err
	}
	if r.Hamilton, err = Summarize(h); err != nil {
		return r, err
	}
	r.Temperature, err = Summarize(t)
	return r, err
}
