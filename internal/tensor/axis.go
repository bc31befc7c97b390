package tensor

import (
	"fmt"
	"slices"
)

// Axis labels one spatial component of a tensor.
type Axis string

const (
	X Axis = "x"
	Y Axis = "y"
	Z Axis = "z"
)

// AxesFor returns the canonical axis set of a d-dimensional system.
func AxesFor(d int) ([]Axis, error) {
	all := []Axis{X, Y, Z}
	if d < 1 || d > len(all) {
		return nil, fmt.Errorf("tensor: unsupported dimension %d", d)
	}
	return all[:d:d], nil
}

func sortedAxes(axes []Axis) []Axis {
	out := slices.Clone(axes)
	slices.Sort(out)
	return out
}

func sameAxes(a, b []Axis) bool {
	return slices.Equal(a, b)
}
