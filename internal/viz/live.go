package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/ellipsim/internal/collisions"
	"github.com/san-kum/ellipsim/internal/integrators"
	"github.com/san-kum/ellipsim/internal/particle"
	"github.com/san-kum/ellipsim/internal/sim"
)

const (
	canvasWidth     = 80
	canvasHeight    = 24
	historyCapacity = 600

	// World-units of tick per unit of embedding speed.
	velocityTickScale = 0.15
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2).Width(44)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

// Model drives the live view: it owns a system and advances it with
// the same sub-step machinery the batch driver uses, redrawing at the
// frame rate.
type Model struct {
	sys     *particle.System
	initial *particle.System

	stepper    integrators.Stepper
	detector   *collisions.Detector
	controller sim.Controller
	projector  *sim.Projector

	e0, p0 float64

	running      bool
	stepsPerTick int
	step         int
	collisions   int
	fatal        error

	canvas    *Canvas
	proj      Projection
	driftHist []float64
}

func NewModel(sys *particle.System, stepper integrators.Stepper, cfg sim.Config) Model {
	canvas := NewCanvas(canvasWidth, canvasHeight)
	m := Model{
		sys:     sys,
		initial: sys.Clone(),
		stepper: stepper,
		detector: &collisions.Detector{
			Workers: cfg.Workers,
		},
		controller: sim.Controller{
			DtMin:  cfg.DtMin,
			DtMax:  cfg.DtMax,
			Safety: cfg.Safety,
		},
		projector:    sim.NewProjector(cfg.ProjectionTolerance),
		e0:           sys.TotalEnergy(),
		p0:           sys.TotalMomentum(),
		running:      true,
		stepsPerTick: 20,
		canvas:       canvas,
		proj:         NewProjection(canvas, sys.Ellipse),
		driftHist:    make([]float64, 0, historyCapacity),
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "+", "=":
			if m.stepsPerTick < 2000 {
				m.stepsPerTick *= 2
			}
		case "-", "_":
			if m.stepsPerTick > 1 {
				m.stepsPerTick /= 2
			}
		}
	case TickMsg:
		if m.running && m.fatal == nil {
			m.advance()
		}
		m.draw()
		return m, tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

// advance runs a frame's worth of sub-steps.
func (m *Model) advance() {
	for i := 0; i < m.stepsPerTick; i++ {
		dt, err := m.controller.Next(m.sys, m.step)
		if err != nil {
			m.fatal = err
			m.running = false
			return
		}

		for j := range m.sys.Particles {
			p := &m.sys.Particles[j]
			p.Phi, p.PhiDot = m.stepper.Step(m.sys.Ellipse, p.Phi, p.PhiDot, dt)
		}
		pairs := m.detector.Detect(m.sys)
		m.collisions += collisions.Resolve(m.sys, pairs)
		m.sys.Time += dt
		m.step++

		if m.step%1000 == 0 {
			if err := m.projector.Project(m.sys, m.e0, m.p0, m.sys.Time); err != nil {
				m.fatal = err
				m.running = false
				return
			}
		}
	}

	drift := math.Abs(m.sys.TotalEnergy() - m.e0)
	m.driftHist = append(m.driftHist, drift)
	if len(m.driftHist) > historyCapacity {
		m.driftHist = m.driftHist[1:]
	}
}

func (m *Model) reset() {
	m.sys = m.initial.Clone()
	m.step = 0
	m.collisions = 0
	m.fatal = nil
	m.driftHist = m.driftHist[:0]
	m.running = true
}

func (m *Model) draw() {
	m.canvas.Clear()
	m.canvas.DrawEllipse(m.sys.Ellipse, m.proj)
	for i := range m.sys.Particles {
		p := &m.sys.Particles[i]
		x, y := p.Position(m.sys.Ellipse)
		px, py := m.proj.Map(x, y)

		// Velocity tick: a short tangent segment showing each
		// particle's direction and relative speed.
		vx, vy := p.Velocity(m.sys.Ellipse)
		qx, qy := m.proj.Map(x+velocityTickScale*vx, y+velocityTickScale*vy)
		m.canvas.DrawLine(px, py, qx, qy)
		m.canvas.Blob(px, py)
	}
}

func (m Model) View() string {
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render("ELLIPSE GAS") + "\n")
	switch {
	case m.fatal != nil:
		s.WriteString(errorStyle.Render("HALTED: "+m.fatal.Error()) + "\n\n")
	case m.running:
		s.WriteString("RUNNING\n\n")
	default:
		s.WriteString("PAUSED\n\n")
	}

	if len(m.driftHist) > 1 {
		chart := asciigraph.Plot(m.driftHist,
			asciigraph.Height(4), asciigraph.Width(30),
			asciigraph.Caption("|E - E0|"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	e := m.sys.TotalEnergy()
	p := m.sys.TotalMomentum()
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.3fs", m.sys.Time)) + "\n")
	s.WriteString(labelStyle.Render("Particles") + valueStyle.Render(fmt.Sprintf("%d", len(m.sys.Particles))) + "\n")
	s.WriteString(labelStyle.Render("Collisions") + valueStyle.Render(fmt.Sprintf("%d", m.collisions)) + "\n")
	s.WriteString(labelStyle.Render("Energy") + valueStyle.Render(fmt.Sprintf("%.6f (Δ %.2e)", e, e-m.e0)) + "\n")
	s.WriteString(labelStyle.Render("Momentum") + valueStyle.Render(fmt.Sprintf("%.6f (Δ %.2e)", p, p-m.p0)) + "\n")
	s.WriteString(labelStyle.Render("Steps/frame") + valueStyle.Render(fmt.Sprintf("%d", m.stepsPerTick)) + "\n")
	s.WriteString(labelStyle.Render("Integrator") + valueStyle.Render(m.stepper.Name()) + "\n")

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\n+/-:Speed"))

	statsView := statsStyle.Render(s.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
}
