package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

// Simulator drives a System through a fixed number of steps and records
// energy samples along the way.
type Simulator struct {
	metrics   []Metric
	observers []Observer
	logger    *slog.Logger
}

func New() *Simulator {
	return &Simulator{
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		logger:    slog.New(slog.DiscardHandler),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// WithLogger sets the logger used for per-run diagnostics.
func (s *Simulator) WithLogger(l *slog.Logger) *Simulator {
	if l != nil {
		s.logger = l
	}
	return s
}

// Run steps sys cfg.Steps times. A sample is recorded before the first
// step, after every cfg.RecordEvery steps and after the last step. On
// cancellation the samples recorded so far are returned with ctx.Err().
func (s *Simulator) Run(ctx context.Context, sys *System, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	result := &Result{
		Samples:    make([]Sample, 0, cfg.Steps/cfg.RecordEvery+2),
		Metrics:    make(map[string]float64),
		Backend:    sys.Backend().Name(),
		Integrator: sys.Integrator().Name(),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	log := s.logger.With("integrator", result.Integrator, "backend", result.Backend, "n", sys.N())
	log.Debug("run started", "steps", cfg.Steps, "dt", cfg.Dt)

	if err := s.record(sys, cfg, result); err != nil {
		return result, err
	}

	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			log.Debug("run canceled", "step", sys.StepCount())
			s.finish(result)
			return result, ctx.Err()
		default:
		}

		if err := sys.Step(cfg.Dt); err != nil {
			return result, &SimulationError{Step: sys.StepCount(), Time: sys.Time(), Wrapped: err}
		}
		result.StepsTaken++

		if (i+1)%cfg.RecordEvery == 0 || i == cfg.Steps-1 {
			if err := s.record(sys, cfg, result); err != nil {
				log.Warn("run stopped", "step", sys.StepCount(), "err", err)
				return result, err
			}
		}
	}

	s.finish(result)
	log.Debug("run finished", "final_drift", result.FinalDrift, "error", result.EnergyError)
	return result, nil
}

// RunWithCallback steps sys until cfg.Steps are taken or callback returns
// false. The callback sees a sample after every step.
func (s *Simulator) RunWithCallback(ctx context.Context, sys *System, cfg Config, callback func(Sample) bool) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := sys.Step(cfg.Dt); err != nil {
			return &SimulationError{Step: sys.StepCount(), Time: sys.Time(), Wrapped: err}
		}
		smp, err := sys.Sample()
		if err != nil {
			return err
		}
		if cfg.ValidateState && !smp.IsValid() {
			return &SimulationError{Step: smp.Step, Time: smp.Time, Wrapped: ErrUnstable}
		}
		if !callback(smp) {
			return nil
		}
	}
	return nil
}

func (s *Simulator) record(sys *System, cfg Config, result *Result) error {
	smp, err := sys.Sample()
	if err != nil {
		return &SimulationError{Step: sys.StepCount(), Time: sys.Time(), Wrapped: err}
	}
	if cfg.ValidateState && !smp.IsValid() {
		return &SimulationError{Step: smp.Step, Time: smp.Time, Wrapped: ErrUnstable}
	}

	result.Samples = append(result.Samples, smp)
	for _, m := range s.metrics {
		m.Observe(smp)
	}
	for _, o := range s.observers {
		o.OnSample(smp)
	}
	return nil
}

func (s *Simulator) finish(result *Result) {
	energies := result.Energies()
	result.FinalDrift = FinalDrift(energies)
	result.EnergyError = EnergyError(energies)
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

// FinalDrift returns |H_last - H_first| / |H_first|, or 0 when H_first is
// zero or fewer than two values are given.
func FinalDrift(h []float64) float64 {
	if len(h) < 2 || h[0] == 0 {
		return 0
	}
	return math.Abs(h[len(h)-1]-h[0]) / math.Abs(h[0])
}

// EnergyError returns (max(H) - mean(H)) / mean(H), the figure of merit
// reported at the end of a run. It is 0 for an empty series or a zero
// mean.
func EnergyError(h []float64) float64 {
	if len(h) == 0 {
		return 0
	}
	sum, largest := 0.0, math.Inf(-1)
	for _, v := range h {
		sum += v
		largest = math.Max(largest, v)
	}
	return MaxMeanError(largest, sum/float64(len(h)))
}

// MaxMeanError is (largest - mean) / mean, or 0 for a zero mean.
func MaxMeanError(largest, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	return (largest - mean) / mean
}

func validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrParameterBounds, cfg.Dt)
	}
	if cfg.Steps < 0 {
		return fmt.Errorf("%w: steps must be non-negative, got %d", ErrParameterBounds, cfg.Steps)
	}
	if cfg.RecordEvery < 1 {
		return fmt.Errorf("%w: record interval must be at least 1, got %d", ErrParameterBounds, cfg.RecordEvery)
	}
	return nil
}
