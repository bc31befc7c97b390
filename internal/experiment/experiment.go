package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/ljsim/internal/config"
	"github.com/san-kum/ljsim/internal/dynamo"
	"github.com/san-kum/ljsim/internal/integrators"
	"github.com/san-kum/ljsim/internal/metrics"
	"github.com/san-kum/ljsim/internal/physics"
	"github.com/san-kum/ljsim/internal/sampling"
	"github.com/san-kum/ljsim/internal/tensor"
)

// Experiment owns one configured system, its backend and the simulator
// that drives it.
type Experiment struct {
	cfg       *config.Config
	backend   Backend
	system    *dynamo.System
	simulator *dynamo.Simulator
}

// New validates cfg, opens its backend and builds the initial system.
func New(cfg *config.Config, logger *slog.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg := NewRegistry()
	be, err := reg.GetBackend(cfg.Backend, cfg.Launch)
	if err != nil {
		return nil, err
	}

	sys, err := BuildSystem(cfg, be, cfg.Seed)
	if err != nil {
		be.Cleanup()
		return nil, err
	}

	sim := dynamo.New().WithLogger(logger)
	for _, m := range reg.DefaultMetrics() {
		sim.AddMetric(m)
	}

	return &Experiment{
		cfg:       cfg,
		backend:   be,
		system:    sys,
		simulator: sim,
	}, nil
}

// BuildSystem places the particles described by cfg on be and returns the
// system ready to step. seed overrides cfg.Seed so ensembles can vary it.
func BuildSystem(cfg *config.Config, be tensor.Backend, seed int64) (*dynamo.System, error) {
	axes, err := cfg.Axes()
	if err != nil {
		return nil, err
	}
	integ, err := integrators.ByName(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	p := cfg.Params
	field, err := physics.NewPairwiseField(p.Sigma, p.Eps)
	if err != nil {
		return nil, err
	}

	placer := sampling.New(be, field, seed)

	var pos sampling.Vectors
	switch cfg.Init {
	case config.InitRandom:
		pos, err = placer.Random(cfg.Particles, axes, p.BoxLength)
	case config.InitLattice:
		pos, err = placer.Lattice(cfg.Particles, axes, p.BoxLength)
	case config.InitExplicit:
		pos, err = placer.Explicit(cfg.Positions, p.BoxLength)
	default:
		err = fmt.Errorf("%w: init %q", config.ErrInvalid, cfg.Init)
	}
	if err != nil {
		return nil, fmt.Errorf("place particles: %w", err)
	}

	n := len(pos[axes[0]])
	vel := sampling.Vectors(cfg.Velocities)
	if vel == nil {
		vel, err = placer.Velocities(n, axes, p.Temperature, p.Mass, p.Boltzmann)
		if err != nil {
			return nil, fmt.Errorf("draw velocities: %w", err)
		}
	}

	return dynamo.NewSystem(be, p, field, integ, pos, vel)
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	return e.simulator.Run(ctx, e.system, e.RunConfig())
}

// RunConfig is the driver configuration derived from the experiment config.
func (e *Experiment) RunConfig() dynamo.Config {
	return dynamo.Config{
		Dt:            e.cfg.Dt,
		Steps:         e.cfg.Steps,
		RecordEvery:   e.cfg.RecordEvery,
		Seed:          e.cfg.Seed,
		ValidateState: true,
	}
}

// Ensemble runs replicas replicas of the configured system with seeds
// cfg.Seed, cfg.Seed+1, ... on the experiment's backend.
func (e *Experiment) Ensemble(ctx context.Context, replicas, workers int) ([]*dynamo.Result, error) {
	ens := dynamo.NewEnsemble(e.simulator, replicas, e.cfg.Seed).
		WithWorkers(workers).
		WithMetrics(metrics.Default)
	build := func(_ int, seed int64) (*dynamo.System, error) {
		return BuildSystem(e.cfg, e.backend, seed)
	}
	return ens.Run(ctx, build, e.RunConfig())
}

func (e *Experiment) Config() *config.Config       { return e.cfg }
func (e *Experiment) System() *dynamo.System       { return e.system }
func (e *Experiment) Simulator() *dynamo.Simulator { return e.simulator }
func (e *Experiment) Backend() tensor.Backend      { return e.backend.Backend }

// Close releases the system and the backend. It is safe to call twice.
func (e *Experiment) Close() {
	if e.system != nil {
		e.system.Release()
		e.system = nil
	}
	if e.backend.Cleanup != nil {
		e.backend.Cleanup()
		e.backend.Cleanup = nil
	}
}
