package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/ljsim/internal/dynamo"
	"github.com/san-kum/ljsim/internal/tensor"
)

const (
	canvasWidth     = 40
	canvasHeight    = 20
	historyCapacity = 400
	maxStepsPerTick = 512
)

type TickMsg time.Time

// Model steps a system on every tick and renders the particles projected
// onto one plane of the box next to the energy history.
type Model struct {
	sys        *dynamo.System
	dt         float64
	totalSteps int
	perTick    int
	frameRate  int

	running  bool
	showHelp bool
	plane    int
	err      error

	canvas        *Canvas
	latest        dynamo.Sample
	energyHistory []float64
	tempHistory   []float64
}

// NewModel returns a model that advances sys by perTick steps of dt per
// frame until totalSteps steps are taken. totalSteps <= 0 runs forever.
func NewModel(sys *dynamo.System, dt float64, totalSteps, perTick, frameRate int) Model {
	if perTick < 1 {
		perTick = 1
	}
	if frameRate < 1 {
		frameRate = 30
	}
	m := Model{
		sys:           sys,
		dt:            dt,
		totalSteps:    totalSteps,
		perTick:       perTick,
		frameRate:     frameRate,
		running:       true,
		canvas:        NewCanvas(canvasWidth, canvasHeight),
		energyHistory: make([]float64, 0, historyCapacity),
		tempHistory:   make([]float64, 0, historyCapacity),
	}
	m.record()
	return m
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.frameRate), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "+", "=":
			if m.perTick < maxStepsPerTick {
				m.perTick *= 2
			}
		case "-", "_":
			if m.perTick > 1 {
				m.perTick /= 2
			}
		case "p":
			if n := len(m.sys.Axes()); n > 2 {
				m.plane = (m.plane + 1) % n
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && m.err == nil && !m.Done() {
			m.advance()
		}
		return m, m.tick()
	}
	return m, nil
}

// Done reports whether the requested number of steps has been taken.
func (m Model) Done() bool {
	return m.totalSteps > 0 && m.sys.StepCount() >= m.totalSteps
}

func (m Model) Err() error { return m.err }

func (m *Model) advance() {
	for i := 0; i < m.perTick && !m.Done(); i++ {
		if err := m.sys.Step(m.dt); err != nil {
			m.err = &dynamo.SimulationError{Step: m.sys.StepCount(), Time: m.sys.Time(), Wrapped: err}
			return
		}
	}
	m.record()
}

func (m *Model) record() {
	smp, err := m.sys.Sample()
	if err != nil {
		m.err = err
		return
	}
	if !smp.IsValid() {
		m.err = &dynamo.SimulationError{Step: smp.Step, Time: smp.Time, Wrapped: dynamo.ErrUnstable}
	}
	m.latest = smp
	m.energyHistory = appendBounded(m.energyHistory, smp.Hamilton)
	m.tempHistory = appendBounded(m.tempHistory, smp.Temperature)
}

func appendBounded(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[1:]
	}
	return xs
}

// planeAxes returns the axes drawn horizontally and vertically. A 1-D
// system has no vertical axis.
func (m Model) planeAxes() (h, v tensor.Axis) {
	axes := m.sys.Axes()
	switch len(axes) {
	case 1:
		return axes[0], ""
	case 2:
		return axes[0], axes[1]
	}
	return axes[m.plane%3], axes[(m.plane+1)%3]
}

func (m *Model) draw() {
	m.canvas.Clear()
	snap, err := m.sys.Snapshot()
	if err != nil {
		return
	}
	h, v := m.planeAxes()
	Project(m.canvas, snap, h, v, m.sys.Params().BoxLength)
}

// Project plots every particle of snap onto c with axis h drawn
// horizontally and v vertically. An empty v draws the particles along
// the middle row.
func Project(c *Canvas, snap dynamo.Snapshot, h, v tensor.Axis, box float64) {
	for i, x := range snap.Positions[h] {
		y := 0.5
		if v != "" {
			y = snap.Positions[v][i] / box
		}
		c.Plot(x/box, y)
	}
}

func (m Model) View() string {
	m.draw()

	h, v := m.planeAxes()
	plane := string(h) + string(v)
	canvasView := lipgloss.JoinVertical(lipgloss.Left,
		canvasStyle.Render(m.canvas.String()),
		helpStyle.Render(fmt.Sprintf("plane %s, box %.3g", plane, m.sys.Params().BoxLength)))

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.sys.Integrator().Name())+" · "+m.sys.Backend().Name()) + "\n")

	switch {
	case m.err != nil:
		s.WriteString(statusFailed.Render("FAILED: "+m.err.Error()) + "\n")
	case m.Done():
		s.WriteString(statusPaused.Render("DONE") + "\n")
	case m.running:
		s.WriteString(statusRunning.Render("RUNNING") + "\n")
	default:
		s.WriteString(statusPaused.Render("PAUSED") + "\n")
	}

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(6), asciigraph.Width(36), asciigraph.Caption("H"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Particles", fmt.Sprintf("%d", m.sys.N()))
	row("Step", fmt.Sprintf("%d", m.latest.Step))
	row("Time", fmt.Sprintf("%.4g", m.latest.Time))
	row("Potential", fmt.Sprintf("%.6g", m.latest.Potential))
	row("Kinetic", fmt.Sprintf("%.6g", m.latest.Kinetic))
	row("Hamilton", fmt.Sprintf("%.6g", m.latest.Hamilton))
	row("Temp", fmt.Sprintf("%.4g", m.latest.Temperature))
	row("Drift", fmt.Sprintf("%.3e", dynamo.FinalDrift(m.energyHistory)))
	row("Steps/frame", fmt.Sprintf("%d", m.perTick))
	if m.totalSteps > 0 {
		s.WriteString(ProgressBar(float64(m.latest.Step)/float64(m.totalSteps), 30) + "\n")
	}

	s.WriteString(helpStyle.Render("SP:Pause +/-:Speed P:Plane ?:Help Q:Quit"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + mainView
	}
	return mainView
}

const helpText = `Keys
  space   pause or resume
  + / -   double or halve the steps per frame
  p       cycle the projection plane (3-D)
  ?       toggle this help
  q       quit`
