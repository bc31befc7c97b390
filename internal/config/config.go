package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/san-kum/ljsim/internal/compute"
	"github.com/san-kum/ljsim/internal/dynamo"
	"github.com/san-kum/ljsim/internal/tensor"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt          = 1e-3
	DefaultSteps       = 1000
	DefaultRecordEvery = 10
	DefaultParticles   = 64
	DefaultDimensions  = 3
	DefaultBoxLength   = 8.0
)

// Placement methods.
const (
	InitRandom   = "random"
	InitLattice  = "lattice"
	InitExplicit = "explicit"
)

// Backend names.
const (
	BackendHost   = "host"
	BackendDevice = "device"
)

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Integrator  string  `yaml:"integrator"`
	Backend     string  `yaml:"backend"`
	Dimensions  int     `yaml:"dimensions"`
	Particles   int     `yaml:"particles"`
	Init        string  `yaml:"init"`
	Dt          float64 `yaml:"dt"`
	Steps       int     `yaml:"steps"`
	RecordEvery int     `yaml:"record_every"`
	Seed        int64   `yaml:"seed"`

	Params dynamo.Params        `yaml:"params"`
	Launch compute.LaunchConfig `yaml:"launch"`

	// Positions and Velocities are used by the explicit placement method.
	// Velocities may be omitted; they are then drawn from Params.Temperature.
	Positions  map[tensor.Axis][]float64 `yaml:"positions,omitempty"`
	Velocities map[tensor.Axis][]float64 `yaml:"velocities,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Integrator:  "verlet",
		Backend:     BackendHost,
		Dimensions:  DefaultDimensions,
		Particles:   DefaultParticles,
		Init:        InitLattice,
		Dt:          DefaultDt,
		Steps:       DefaultSteps,
		RecordEvery: DefaultRecordEvery,
		Params:      dynamo.ReducedParams(DefaultBoxLength),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Axes returns the axis set selected by Dimensions.
func (c *Config) Axes() ([]tensor.Axis, error) {
	return tensor.AxesFor(c.Dimensions)
}

// Validate checks every field and reports the first problem found.
func (c *Config) Validate() error {
	if c.Integrator == "" {
		return fmt.Errorf("%w: integrator is empty", ErrInvalid)
	}
	if c.Backend != BackendHost && c.Backend != BackendDevice {
		return fmt.Errorf("%w: backend %q (want %s or %s)", ErrInvalid, c.Backend, BackendHost, BackendDevice)
	}
	axes, err := c.Axes()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !(c.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalid, c.Dt)
	}
	if c.Steps < 0 {
		return fmt.Errorf("%w: steps must be non-negative, got %d", ErrInvalid, c.Steps)
	}
	if c.RecordEvery < 1 {
		return fmt.Errorf("%w: record_every must be at least 1, got %d", ErrInvalid, c.RecordEvery)
	}
	if c.Launch.ThreadsPerBlock < 0 || c.Launch.Workers < 0 {
		return fmt.Errorf("%w: launch geometry must be non-negative", ErrInvalid)
	}
	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	switch c.Init {
	case InitRandom, InitLattice:
		if c.Particles < 1 {
			return fmt.Errorf("%w: particles must be positive, got %d", ErrInvalid, c.Particles)
		}
	case InitExplicit:
		return c.validateExplicit(axes)
	default:
		return fmt.Errorf("%w: init %q (want %s, %s or %s)", ErrInvalid, c.Init, InitRandom, InitLattice, InitExplicit)
	}
	return nil
}

func (c *Config) validateExplicit(axes []tensor.Axis) error {
	keys := make([]tensor.Axis, 0, len(c.Positions))
	for a := range c.Positions {
		keys = append(keys, a)
	}
	slices.Sort(keys)
	if !slices.Equal(keys, axes) {
		return fmt.Errorf("%w: explicit positions have axes %v, want %v", ErrInvalid, keys, axes)
	}

	n := len(c.Positions[axes[0]])
	for _, a := range axes {
		if len(c.Positions[a]) != n {
			return fmt.Errorf("%w: axis %s has %d positions, want %d", ErrInvalid, a, len(c.Positions[a]), n)
		}
		if c.Velocities != nil && len(c.Velocities[a]) != n {
			return fmt.Errorf("%w: axis %s has %d velocities, want %d", ErrInvalid, a, len(c.Velocities[a]), n)
		}
	}
	if n == 0 {
		return fmt.Errorf("%w: explicit positions are empty", ErrInvalid)
	}
	if c.Particles != 0 && c.Particles != n {
		return fmt.Errorf("%w: particles is %d but %d positions are given", ErrInvalid, c.Particles, n)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Positions = cloneVectors(c.Positions)
	out.Velocities = cloneVectors(c.Velocities)
	return &out
}

func cloneVectors(m map[tensor.Axis][]float64) map[tensor.Axis][]float64 {
	if m == nil {
		return nil
	}
	out := make(map[tensor.Axis][]float64, len(m))
	for a, v := range m {
		out[a] = slices.Clone(v)
	}
	return out
}

// Tunable names the numeric fields that Set accepts.
var Tunable = []string{"box", "dt", "eps", "particles", "sigma", "steps", "temperature"}

// Set assigns a numeric field by name. It is how sweeps and scenarios
// vary one knob at a time.
func (c *Config) Set(name string, v float64) error {
	switch name {
	case "box":
		c.Params.BoxLength = v
	case "dt":
		c.Dt = v
	case "eps":
		c.Params.Eps = v
	case "particles":
		n, err := count(name, v)
		if err != nil {
			return err
		}
		c.Particles = n
	case "sigma":
		c.Params.Sigma = v
	case "steps":
		n, err := count(name, v)
		if err != nil {
			return err
		}
		c.Steps = n
	case "temperature":
		c.Params.Temperature = v
	default:
		return fmt.Errorf("%w: unknown parameter %q (available: %v)", ErrInvalid, name, Tunable)
	}
	return nil
}

func count(name string, v float64) (int, error) {
	if v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be a whole number, got %g", ErrInvalid, name, v)
	}
	return int(v), nil
}
