package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/ljsim/internal/compute"
	"github.com/san-kum/ljsim/internal/config"
	"github.com/san-kum/ljsim/internal/dynamo"
	"github.com/san-kum/ljsim/internal/integrators"
	"github.com/san-kum/ljsim/internal/metrics"
	"github.com/san-kum/ljsim/internal/tensor"
)

// Backend is a tensor backend together with the function that releases
// the device behind it.
type Backend struct {
	tensor.Backend
	Cleanup func()
}

type Registry struct {
	backends map[string]func(compute.LaunchConfig) Backend
}

func NewRegistry() *Registry {
	r := &Registry{
		backends: make(map[string]func(compute.LaunchConfig) Backend),
	}

	r.backends[config.BackendHost] = func(compute.LaunchConfig) Backend {
		return Backend{Backend: tensor.Host(), Cleanup: func() {}}
	}
	r.backends[config.BackendDevice] = func(launch compute.LaunchConfig) Backend {
		dev := compute.NewGridBackend(launch)
		return Backend{Backend: tensor.NewDevice(dev), Cleanup: dev.Cleanup}
	}

	return r
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	return integrators.ByName(name)
}

// GetBackend opens the named backend. The caller must call Cleanup when
// done with it.
func (r *Registry) GetBackend(name string, launch compute.LaunchConfig) (Backend, error) {
	fn, ok := r.backends[name]
	if !ok {
		return Backend{}, fmt.Errorf("unknown backend: %s", name)
	}
	return fn(launch), nil
}

func (r *Registry) ListIntegrators() []string {
	return integrators.Names()
}

func (r *Registry) ListBackends() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics() []dynamo.Metric {
	return metrics.Default()
}
