package viz

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/snapshot"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	width           = 60
	height          = 20
	panelWidth      = 46
	historyCapacity = 600
	trailCapacity   = 200
	maxDiscRadius   = 6
	frameRate       = 60
)

// Controller is the part of a simulation runner the live view drives.
type Controller interface {
	SetPaused(paused bool)
	Paused() bool
	Stop()
	Done() <-chan struct{}
	Err() error
}

// Options configure a live view.
type Options struct {
	Name   string
	Params dynamo.Params
	Theme  string
	// GIFPath is where a recording is written when it is stopped
	GIFPath string
}

type TickMsg time.Time

type doneMsg struct{ err error }

// Model is a read-only presenter: every frame it renders the latest
// published snapshot and never touches the engine.
type Model struct {
	ctrl Controller
	pub  *snapshot.Publisher
	opts Options

	theme  Theme
	styles styles
	canvas *Canvas
	camera *Camera

	snap       *snapshot.Snapshot
	lastStep   int64
	trails     map[dynamo.Handle][]r2.Vec
	showTrails bool
	showHelp   bool

	energy   []float64
	e0       float64
	momentum r2.Vec

	rate     float64
	rateAt   time.Time
	rateStep int64

	recorder *Recorder
	notice   string
	finished bool
	err      error
}

func NewModel(ctrl Controller, pub *snapshot.Publisher, opts Options) Model {
	if opts.GIFPath == "" {
		opts.GIFPath = "gravsim.gif"
	}
	theme := GetTheme(opts.Theme)
	return Model{
		ctrl:       ctrl,
		pub:        pub,
		opts:       opts,
		theme:      theme,
		styles:     newStyles(theme),
		canvas:     NewCanvas(width, height),
		camera:     NewCamera(),
		lastStep:   -1,
		trails:     make(map[dynamo.Handle][]r2.Vec),
		showTrails: true,
		energy:     make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), waitDone(m.ctrl))
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func waitDone(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		<-ctrl.Done()
		return doneMsg{err: ctrl.Err()}
	}
}

// Update handles input events and pulls the latest snapshot on every tick.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case TickMsg:
		m.ingest(m.pub.Latest(), time.Time(msg))
		m.draw()
		if m.recorder != nil {
			m.recorder.Capture(m.canvas)
		}
		return m, tick()
	case doneMsg:
		m.finished, m.err = true, msg.err
		m.ingest(m.pub.Latest(), time.Now())
		m.draw()
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.ctrl.Stop()
		m.stopRecording()
		return m, tea.Quit
	case " ":
		if !m.finished {
			m.ctrl.SetPaused(!m.ctrl.Paused())
		}
	case "t":
		m.theme = NextTheme(m.theme.Name)
		m.styles = newStyles(m.theme)
	case "p":
		m.showTrails = !m.showTrails
	case "c":
		clear(m.trails)
	case "f":
		m.camera.Follow = !m.camera.Follow
	case "+", "=":
		m.camera.Zoom(0.8)
	case "-", "_":
		m.camera.Zoom(1.25)
	case "left", "h":
		m.camera.Pan(-0.1, 0)
	case "right", "l":
		m.camera.Pan(0.1, 0)
	case "up", "k":
		m.camera.Pan(0, 0.1)
	case "down", "j":
		m.camera.Pan(0, -0.1)
	case "g":
		if m.recorder != nil {
			m.stopRecording()
		} else {
			m.recorder = NewRecorder(m.theme)
			m.notice = "recording"
		}
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *Model) resize(w, h int) {
	cw := max(w-panelWidth-6, 20)
	ch := max(h-3, 8)
	if cw != m.canvas.Width || ch != m.canvas.Height {
		m.canvas = NewCanvas(cw, ch)
	}
}

// ingest folds a snapshot into the view history. Republishing the same
// step, as happens when the runner faults, only updates the status.
func (m *Model) ingest(snap *snapshot.Snapshot, now time.Time) {
	if snap == nil || snap == m.snap {
		return
	}
	m.snap = snap
	if snap.Step == m.lastStep {
		return
	}
	m.lastStep = snap.Step

	e := metrics.TotalEnergy(snap.All(), m.opts.Params.G, m.opts.Params.Softening)
	if len(m.energy) == 0 {
		m.e0 = e
	}
	m.energy = append(m.energy, e)
	if len(m.energy) > historyCapacity {
		m.energy = m.energy[1:]
	}
	m.momentum = metrics.Momentum(snap.All())

	seen := make(map[dynamo.Handle]bool, len(snap.Bodies))
	for _, b := range snap.Bodies {
		seen[b.ID] = true
		t := append(m.trails[b.ID], b.Pos)
		if len(t) > trailCapacity {
			t = t[1:]
		}
		m.trails[b.ID] = t
	}
	for h := range m.trails {
		if !seen[h] {
			delete(m.trails, h)
		}
	}

	if m.rateAt.IsZero() {
		m.rateAt, m.rateStep = now, snap.Step
	} else if elapsed := now.Sub(m.rateAt); elapsed >= 500*time.Millisecond {
		m.rate = float64(snap.Step-m.rateStep) / elapsed.Seconds()
		m.rateAt, m.rateStep = now, snap.Step
	}
}

// draw renders trails and bodies onto the canvas.
func (m *Model) draw() {
	m.canvas.Clear()
	if m.snap == nil || m.snap.Len() == 0 {
		return
	}
	pw, ph := m.canvas.PixelSize()
	if m.camera.Follow {
		lo, hi := m.snap.Bounds()
		m.camera.Fit(lo, hi, pw, ph)
	}

	if m.showTrails {
		for h, trail := range m.trails {
			for _, p := range trail {
				x, y := m.camera.Project(p, pw, ph)
				m.canvas.Set(x, y, int(h))
			}
		}
	}
	scale := m.camera.Scale(pw)
	for _, b := range m.snap.Bodies {
		x, y := m.camera.Project(b.Pos, pw, ph)
		r := int(math.Min(b.Radius*scale, maxDiscRadius))
		m.canvas.Disc(x, y, r, int(b.ID))
	}
}

func (m *Model) stopRecording() {
	if m.recorder == nil {
		return
	}
	rec := m.recorder
	m.recorder = nil
	if rec.Len() == 0 {
		m.notice = ""
		return
	}
	f, err := os.Create(m.opts.GIFPath)
	if err != nil {
		m.notice = err.Error()
		return
	}
	defer f.Close()
	if err := rec.Encode(f); err != nil {
		m.notice = err.Error()
		return
	}
	m.notice = fmt.Sprintf("saved %d frames to %s", rec.Len(), m.opts.GIFPath)
}

// Status is the label shown in the stats panel.
func (m Model) Status() string {
	switch {
	case m.snap != nil && m.snap.Status == dynamo.Faulted:
		return "FAULTED"
	case m.finished:
		return "STOPPED"
	case m.ctrl.Paused():
		return "PAUSED"
	default:
		return "RUNNING"
	}
}

func (m Model) View() string {
	st := m.styles
	canvasView := st.canvas.Render(m.canvas.Render(st.bodies))

	var s strings.Builder
	name := m.opts.Name
	if name == "" {
		name = "gravsim"
	}
	s.WriteString(st.title.Render(strings.ToUpper(name)) + "\n")

	status := m.Status()
	switch status {
	case "FAULTED":
		s.WriteString(st.faulted.Render(status))
	case "PAUSED", "STOPPED":
		s.WriteString(st.paused.Render(status))
	default:
		s.WriteString(st.running.Render(status))
	}
	if m.recorder != nil {
		s.WriteString("  " + st.faulted.Render(fmt.Sprintf("● REC %d", m.recorder.Len())))
	}
	s.WriteString("\n\n")

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(st.graph.Render(chart) + "\n\n")
	}

	if m.snap != nil {
		s.WriteString(st.row("Step", fmt.Sprintf("%d", m.snap.Step)))
		s.WriteString(st.row("Time", fmt.Sprintf("%.3f", m.snap.Time)))
		s.WriteString(st.row("Bodies", fmt.Sprintf("%d", m.snap.Len())))
	}
	if n := len(m.energy); n > 0 {
		e := m.energy[n-1]
		s.WriteString(st.row("Energy", fmt.Sprintf("%.6g", e)))
		if m.e0 != 0 {
			s.WriteString(st.row("ΔE/E₀", fmt.Sprintf("%+.2e", (e-m.e0)/math.Abs(m.e0))))
		}
		s.WriteString(st.row("|P|", fmt.Sprintf("%.3e", r2.Norm(m.momentum))))
	}
	s.WriteString(st.row("Rate", fmt.Sprintf("%.0f steps/s", m.rate)))
	s.WriteString(st.row("Theme", m.theme.Name))
	camera := "follow"
	if !m.camera.Follow {
		camera = "manual"
	}
	s.WriteString(st.row("Camera", camera))

	if m.err != nil {
		s.WriteString("\n" + st.faulted.Render(m.err.Error()) + "\n")
	}
	if m.notice != "" {
		s.WriteString("\n" + st.value.Render(m.notice) + "\n")
	}

	s.WriteString(st.help.Render(Separator(36)) + "\n")
	s.WriteString(st.keys("spc", "pause", "q", "quit", "?", "help") + "\n")
	s.WriteString(st.keys("+/-", "zoom", "f", "follow", "g", "gif"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.panel.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

const helpText = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  Q        - Quit                     ║
║  +/-      - Zoom in/out              ║
║  Arrows   - Pan (h/j/k/l)            ║
║  F        - Toggle follow camera     ║
║  P        - Toggle trails            ║
║  C        - Clear trails             ║
║  G        - Toggle GIF recording     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`

// Run shows the live view until the user quits. The runner keeps its own
// goroutine; quitting stops it.
func Run(ctrl Controller, pub *snapshot.Publisher, opts Options) error {
	_, err := tea.NewProgram(NewModel(ctrl, pub, opts), tea.WithAltScreen()).Run()
	return err
}
