package config

import (
	"sort"

	"github.com/san-kum/ljsim/internal/dynamo"
	"github.com/san-kum/ljsim/internal/tensor"
)

// Physical constants of the argon preset, SI units.
const (
	Boltzmann   = 1.38e-23
	ArgonSigma  = 3.4e-10
	ArgonEps    = 119.8 * Boltzmann
	ArgonMass   = 6.69e-26
	ArgonBox    = 1e-7
	ArgonTime   = 1e-10
	ArgonSteps  = 1000
	ArgonN      = 1024
	ArgonKelvin = 300
)

type Preset struct {
	Description string
	Config      *Config
}

var Presets = map[string]Preset{
	"dimer": {
		Description: "two particles at 2 sigma, reduced units, 1-D",
		Config: &Config{
			Integrator: "verlet", Backend: BackendHost, Dimensions: 1, Particles: 2,
			Init: InitExplicit, Dt: 1e-4, Steps: 1000, RecordEvery: 10,
			Params:     dynamo.ReducedParams(10),
			Positions:  map[tensor.Axis][]float64{tensor.X: {0, 2}},
			Velocities: map[tensor.Axis][]float64{tensor.X: {0, 0}},
		},
	},
	"gas2d": {
		Description: "dilute 2-D gas held at T=1, reduced units",
		Config: &Config{
			Integrator: "verlet", Backend: BackendHost, Dimensions: 2, Particles: 100,
			Init: InitRandom, Dt: 1e-3, Steps: 2000, RecordEvery: 20, Seed: 1,
			Params: dynamo.Params{
				Mass: 1, Sigma: 1, Eps: 1, Temperature: 1, BoxLength: 30, Boltzmann: 1,
			},
		},
	},
	"liquid": {
		Description: "dense 3-D lattice start near the triple point, reduced units",
		Config: &Config{
			Integrator: "verlet", Backend: BackendDevice, Dimensions: 3, Particles: 125,
			Init: InitLattice, Dt: 5e-4, Steps: 1000, RecordEvery: 10, Seed: 1,
			Params: dynamo.Params{
				Mass: 1, Sigma: 1, Eps: 1, Temperature: 0.8, BoxLength: 6.5, Boltzmann: 1,
			},
		},
	},
	"argon": {
		Description: "1024 argon atoms at 300 K in a 100 nm box, SI units",
		Config: &Config{
			Integrator: "verlet", Backend: BackendDevice, Dimensions: 3, Particles: ArgonN,
			Init: InitRandom, Dt: ArgonTime / ArgonSteps, Steps: ArgonSteps, RecordEvery: 10, Seed: 1,
			Params: dynamo.Params{
				Mass:        ArgonMass,
				Sigma:       ArgonSigma,
				Eps:         ArgonEps,
				Temperature: ArgonKelvin,
				BoxLength:   ArgonBox,
				Boltzmann:   Boltzmann,
			},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p.Config.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
