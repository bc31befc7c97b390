package automation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/san-kum/ljsim/internal/config"
	"github.com/san-kum/ljsim/internal/dynamo"
	"github.com/san-kum/ljsim/internal/experiment"
	"github.com/san-kum/ljsim/internal/storage"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run of a scenario. It starts from a preset, a
// config file or the defaults, in that order of preference, then applies
// the overrides.
type ScenarioStep struct {
	Preset     string             `yaml:"preset"`
	Config     string             `yaml:"config"`
	Integrator string             `yaml:"integrator"`
	Backend    string             `yaml:"backend"`
	Seed       int64              `yaml:"seed"`
	Params     map[string]float64 `yaml:"params"`
	SaveAs     string             `yaml:"save_as"`
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Name   string
	RunID  string
	Result *dynamo.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	return &scenario, nil
}

// Resolve builds the configuration of the step and the name its run is
// stored under.
func (s ScenarioStep) Resolve() (*config.Config, string, error) {
	cfg := config.DefaultConfig()
	name := "custom"

	switch {
	case s.Preset != "":
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s", s.Preset)
		}
		name = s.Preset
	case s.Config != "":
		loaded, err := config.Load(s.Config)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	}

	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Backend != "" {
		cfg.Backend = s.Backend
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	for k, v := range s.Params {
		if err := cfg.Set(k, v); err != nil {
			return nil, "", err
		}
	}
	if s.SaveAs != "" {
		name = s.SaveAs
	}
	return cfg, name, cfg.Validate()
}

// RunScenario executes every step in order and stores each run when st
// is non-nil. Progress lines go to progress, which may be nil.
func RunScenario(ctx context.Context, scenario *Scenario, st *storage.Store, logger *slog.Logger, progress io.Writer) ([]StepResult, error) {
	if progress == nil {
		progress = io.Discard
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, name, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		fmt.Fprintf(progress, "running step %d/%d: %s\n", i+1, len(scenario.Steps), name)

		result, err := runOnce(ctx, cfg, logger)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Name: name, Result: result}
		if st != nil {
			if sr.RunID, err = st.Save(name, cfg, result); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, sr)
	}

	return results, nil
}

func runOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dynamo.Result, error) {
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer exp.Close()
	return exp.Run(ctx)
}

// ParameterSweep runs the base configuration once per value of one
// tunable parameter, spaced evenly over [ParamMin, ParamMax].
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

// SweepResult holds the energy behaviour of one sweep point. EnergyDrift
// is the largest per-sample drift. Err is set when the point could not be
// built or went unstable.
type SweepResult struct {
	ParamValue      float64
	EnergyDrift     float64
	EnergyError     float64
	MinEnergy       float64
	MaxEnergy       float64
	MeanTemperature float64
	Err             error
}

// Values returns the parameter values the sweep visits.
func (s *ParameterSweep) Values() []float64 {
	if s.NumSteps == 1 {
		return []float64{s.ParamMin}
	}
	vals := make([]float64, s.NumSteps)
	step := (s.ParamMax - s.ParamMin) / float64(s.NumSteps-1)
	for i := range vals {
		vals[i] = s.ParamMin + float64(i)*step
	}
	return vals
}

// RunSweep executes the sweep. A failing point is recorded in its result
// and does not stop the sweep; cancellation does.
func RunSweep(ctx context.Context, sweep *ParameterSweep, logger *slog.Logger, progress io.Writer) ([]SweepResult, error) {
	if sweep.Base == nil || sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs a base config and at least one step")
	}
	if err := sweep.Base.Clone().Set(sweep.ParamName, sweep.ParamMin); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = io.Discard
	}

	vals := sweep.Values()
	results := make([]SweepResult, 0, len(vals))
	for i, v := range vals {
		sr := SweepResult{ParamValue: v}
		cfg := sweep.Base.Clone()
		var result *dynamo.Result
		err := cfg.Set(sweep.ParamName, v)
		if err == nil {
			result, err = runOnce(ctx, cfg, logger)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return results, ctxErr
		}
		if err != nil {
			sr.Err = err
		} else {
			sr.EnergyDrift = result.Metrics["energy_drift"]
			sr.EnergyError = result.EnergyError
			sr.MinEnergy, sr.MaxEnergy = energyRange(result.Samples)
			sr.MeanTemperature = result.Metrics["temperature"]
		}
		results = append(results, sr)

		fmt.Fprintf(progress, "sweep %d/%d: %s=%.4g\n", i+1, len(vals), sweep.ParamName, v)
	}

	return results, nil
}

func energyRange(samples []dynamo.Sample) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		lo = math.Min(lo, s.Hamilton)
		hi = math.Max(hi, s.Hamilton)
	}
	return lo, hi
}

// SweepStats counts the points that completed and those that failed
// with an unstable state.
func SweepStats(results []SweepResult) (stable, unstable int) {
	for _, r := range results {
		switch {
		case r.Err == nil:
			stable++
		case errors.Is(r.Err, dynamo.ErrUnstable):
			unstable++
		}
	}
	return stable, unstable
}
