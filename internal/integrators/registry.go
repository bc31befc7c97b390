package integrators

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/ljsim/internal/dynamo"
)

var constructors = map[string]func() dynamo.Integrator{
	"explicit": func() dynamo.Integrator { return NewExplicit() },
	"euler":    func() dynamo.Integrator { return NewExplicit() },
	"verlet":   func() dynamo.Integrator { return NewVelocityVerlet() },
}

// ByName returns a fresh integrator for name. Lookup is case-insensitive.
func ByName(name string) (dynamo.Integrator, error) {
	ctor, ok := constructors[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown integrator %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
