// Package tui renders a running particle system in the terminal with
// bubbletea: a braille projection of the box and a live energy chart.
package tui
