package tui

import "strings"

// Braille cells hold 2x4 dots; dotBits[row][col] is the bit of each dot
// relative to U+2800.
var dotBits = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a character grid drawn with braille dots, giving a
// resolution of (2*Width) x (4*Height) points.
type Canvas struct {
	Width, Height int
	grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		grid:   make([][]rune, h),
	}
	for i := range c.grid {
		c.grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set turns on the dot at (x, y) in dot coordinates. Points outside the
// canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.grid[row][col] |= dotBits[y%4][x%2]
}

// Dot reports whether the dot at (x, y) is set.
func (c *Canvas) Dot(x, y int) bool {
	if x < 0 || y < 0 || x >= 2*c.Width || y >= 4*c.Height {
		return false
	}
	return c.grid[y/4][x/2]&dotBits[y%4][x%2] != 0
}

// Plot sets the dot nearest to the unit-square point (u, v), with v
// growing upwards.
func (c *Canvas) Plot(u, v float64) {
	if !(u >= 0 && u <= 1 && v >= 0 && v <= 1) {
		return
	}
	w, h := 2*c.Width, 4*c.Height
	x := int(u * float64(w-1))
	y := h - 1 - int(v*float64(h-1))
	c.Set(x, y)
}

func (c *Canvas) Clear() {
	for i := range c.grid {
		for j := range c.grid[i] {
			c.grid[i][j] = brailleBlank
		}
	}
}

// Count returns the number of dots that are set.
func (c *Canvas) Count() int {
	n := 0
	for _, row := range c.grid {
		for _, r := range row {
			for bits := r - brailleBlank; bits != 0; bits &= bits - 1 {
				n++
			}
		}
	}
	return n
}

func (c *Canvas) String() string {
	var b strings.Builder
	for i, row := range c.grid {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(row))
	}
	return b.String()
}
