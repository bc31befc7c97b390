// Package sampling places particles and draws initial velocities.
package sampling

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/ljsim/internal/physics"
	"github.com/san-kum/ljsim/internal/tensor"
)

// ErrOverlap indicates that no configuration with every pair farther apart
// than the overlap threshold was found.
var ErrOverlap = errors.New("sampling: particles overlap")

const (
	// OverlapFactor scales sigma into the minimum allowed separation.
	OverlapFactor = 1.1

	DefaultMaxAttempts = 1000
)

// Vectors holds one slice of N values per axis.
type Vectors = map[tensor.Axis][]float64

// Initializer draws initial conditions from a seeded source. Overlap checks
// run on the given backend through the pair field.
type Initializer struct {
	Backend     tensor.Backend
	Field       physics.PairwiseField
	MaxAttempts int

	rng *rand.Rand
}

func New(be tensor.Backend, field physics.PairwiseField, seed int64) *Initializer {
	return &Initializer{
		Backend:     be,
		Field:       field,
		MaxAttempts: DefaultMaxAttempts,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// MinSeparation is the distance every pair must exceed.
func (in *Initializer) MinSeparation() float64 {
	return OverlapFactor * in.Field.Sigma
}

// Random draws n positions uniformly in [0, box) on every axis. Particles
// are placed one at a time; a candidate closer than MinSeparation to an
// already placed particle is redrawn, up to MaxAttempts times. The
// finished configuration is checked once more on the backend.
func (in *Initializer) Random(n int, axes []tensor.Axis, box float64) (Vectors, error) {
	if err := checkBox(n, axes, box); err != nil {
		return nil, err
	}

	attempts := in.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	minSep := in.MinSeparation()
	minSep2 := minSep * minSep

	pos := make(Vectors, len(axes))
	for _, a := range axes {
		pos[a] = make([]float64, n)
	}
	candidate := make([]float64, len(axes))

	for i := 0; i < n; i++ {
		placed := false
		for try := 0; try < attempts && !placed; try++ {
			for k := range axes {
				candidate[k] = in.rng.Float64() * box
			}
			placed = true
			for j := 0; j < i && placed; j++ {
				d2 := 0.0
				for k, a := range axes {
					d := candidate[k] - pos[a][j]
					d2 += d * d
				}
				placed = d2 > minSep2
			}
		}
		if !placed {
			return nil, fmt.Errorf("%w: placed %d of %d particles in %d attempts each, need separation > %.3g",
				ErrOverlap, i, n, attempts, minSep)
		}
		for k, a := range axes {
			pos[a][i] = candidate[k]
		}
	}

	sep, err := in.separation(pos)
	if err != nil {
		return nil, err
	}
	if !(sep > minSep) {
		return nil, fmt.Errorf("%w: closest pair %.3g, need > %.3g", ErrOverlap, sep, minSep)
	}
	return pos, nil
}

// Lattice places n particles on a simple cubic (square in 2-D) lattice
// filling the box, with each particle at the centre of its cell.
func (in *Initializer) Lattice(n int, axes []tensor.Axis, box float64) (Vectors, error) {
	if err := checkBox(n, axes, box); err != nil {
		return nil, err
	}

	d := len(axes)
	side := int(math.Ceil(math.Pow(float64(n), 1/float64(d))))
	for pow(side-1, d) >= n && side > 1 {
		side--
	}
	for pow(side, d) < n {
		side++
	}

	spacing := box / float64(side)
	if n > 1 && spacing <= in.MinSeparation() {
		return nil, fmt.Errorf("%w: lattice spacing %.3g, need > %.3g", ErrOverlap, spacing, in.MinSeparation())
	}

	pos := make(Vectors, d)
	for _, a := range axes {
		pos[a] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		idx := i
		for _, a := range axes {
			pos[a][i] = (float64(idx%side) + 0.5) * spacing
			idx /= side
		}
	}
	return pos, nil
}

// Explicit validates caller-supplied positions: every axis must carry the
// same number of values and every value must lie in [0, box).
func (in *Initializer) Explicit(pos Vectors, box float64) (Vectors, error) {
	if len(pos) == 0 {
		return nil, fmt.Errorf("sampling: no positions given")
	}
	n := -1
	out := make(Vectors, len(pos))
	for a, v := range pos {
		if n >= 0 && len(v) != n {
			return nil, fmt.Errorf("sampling: axis %s has %d positions, want %d", a, len(v), n)
		}
		n = len(v)
		for i, x := range v {
			if !(x >= 0 && x < box) {
				return nil, fmt.Errorf("sampling: particle %d axis %s at %g lies outside [0, %g)", i, a, x, box)
			}
		}
		out[a] = append([]float64(nil), v...)
	}
	if n == 0 {
		return nil, fmt.Errorf("sampling: no positions given")
	}
	return out, nil
}

// Velocities draws every component uniformly in [-1, 1) sqrt(k_B T / m).
// A zero temperature gives a system at rest.
func (in *Initializer) Velocities(n int, axes []tensor.Axis, temperature, mass, boltzmann float64) (Vectors, error) {
	if n < 1 || len(axes) == 0 {
		return nil, fmt.Errorf("sampling: need at least one particle and one axis")
	}
	if temperature < 0 || !(mass > 0) || !(boltzmann > 0) {
		return nil, fmt.Errorf("sampling: invalid velocity parameters T=%g m=%g k_B=%g", temperature, mass, boltzmann)
	}

	scale := math.Sqrt(boltzmann * temperature / mass)
	vel := make(Vectors, len(axes))
	for _, a := range axes {
		v := make([]float64, n)
		for i := range v {
			v[i] = (2*in.rng.Float64() - 1) * scale
		}
		vel[a] = v
	}
	return vel, nil
}

func (in *Initializer) separation(pos Vectors) (float64, error) {
	t, err := tensor.FromVectors(in.Backend, pos)
	if err != nil {
		return 0, err
	}
	defer t.Release()
	return in.Field.MinSeparation(t)
}

func checkBox(n int, axes []tensor.Axis, box float64) error {
	if n < 1 {
		return fmt.Errorf("sampling: need at least one particle, got %d", n)
	}
	if len(axes) == 0 {
		return fmt.Errorf("sampling: no axes")
	}
	if !(box > 0) || math.IsInf(box, 0) {
		return fmt.Errorf("sampling: box length must be positive, got %g", box)
	}
	return nil
}

func pow(b, e int) int {
	r := 1
	for i := 0; i < e; i++ {
		r *= b
	}
	return r
}
