package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/san-kum/kilosim/internal/metrics"
	"github.com/san-kum/kilosim/internal/sim"
)

const (
	width           = 72
	height          = 24
	historyCapacity = 600
	maxSpeed        = 32
	frameRate       = 30
	gifPath         = "kilosim.gif"
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(46)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Session describes a live run. Build is called on start and on every
// reset and must return a fresh simulator.
type Session struct {
	Title    string
	Arena    dynamo.Box
	Walls    bool
	Dt       float64
	Duration float64
	Build    func() (*sim.Simulator, dynamo.Policy, error)
}

// Model steps a simulator on a timer and draws the arena next to a
// panel of swarm statistics.
type Model struct {
	sess      Session
	sim       *sim.Simulator
	policy    dynamo.Policy
	scene     Scene
	canvas    *Canvas
	running   bool
	done      bool
	speed     int
	history   []dynamo.Snapshot
	playHead  int
	ambient   []float64
	spread    []float64
	recorder  *Recorder
	recording bool
	showHelp  bool
	message   string
}

func NewModel(sess Session) (Model, error) {
	if sess.Build == nil {
		return Model{}, fmt.Errorf("%w: live session needs a builder", dynamo.ErrInvalidConfig)
	}
	if sess.Dt <= 0 {
		return Model{}, fmt.Errorf("%w: dt must be positive, got %g", dynamo.ErrInvalidConfig, sess.Dt)
	}
	m := Model{
		sess:     sess,
		canvas:   NewCanvas(width, height),
		speed:    1,
		recorder: NewRecorder(100 / frameRate),
	}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if !m.done {
				m.running = !m.running
			}
		case "r":
			if err := m.reset(); err != nil {
				m.message = err.Error()
			}
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "+", "=":
			m.speed = min(m.speed*2, maxSpeed)
		case "-", "_":
			m.speed = max(m.speed/2, 1)
		case "t":
			NextTheme()
		case "g":
			m.toggleRecording()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				for i := 0; i < m.speed && m.running; i++ {
					m.step()
				}
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		if m.recording {
			m.draw()
			m.recorder.Capture(m.canvas)
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) reset() error {
	s, policy, err := m.sess.Build()
	if err != nil {
		return err
	}
	if policy == nil {
		policy = noPolicy{}
	}
	for _, mt := range s.Metrics() {
		mt.Reset()
	}

	m.sim, m.policy = s, policy
	m.scene = SceneFrom(s, m.sess.Arena, m.sess.Walls)
	m.history = make([]dynamo.Snapshot, 0, historyCapacity)
	m.ambient = make([]float64, 0, historyCapacity)
	m.spread = make([]float64, 0, historyCapacity)
	m.playHead = -1
	m.running, m.done = true, false
	m.message = ""
	m.push(s.Snapshot())
	return nil
}

// step advances the simulator by one tick.
func (m *Model) step() {
	u := m.policy.Act(m.sim.Observation(), m.sim.Time())
	m.sim.Step(u, m.sess.Dt)

	snap := m.sim.Snapshot()
	for _, mt := range m.sim.Metrics() {
		mt.Observe(&snap)
	}
	if len(m.sim.Objects()) > 0 {
		m.scene = SceneFrom(m.sim, m.sess.Arena, m.sess.Walls)
	}
	m.push(snap)

	if m.sess.Duration > 0 && m.sim.Time() >= m.sess.Duration-1e-9 {
		m.running, m.done = false, true
	}
}

func (m *Model) push(snap dynamo.Snapshot) {
	m.history = appendCapped(m.history, snap)
	m.ambient = appendCapped(m.ambient, metrics.SwarmAmbient(&snap))
	m.spread = appendCapped(m.spread, metrics.SwarmSpread(&snap))
}

func appendCapped[T any](s []T, v T) []T {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

// scrub changes the playback position in history.
func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

func (m *Model) toggleRecording() {
	if !m.recording {
		m.recorder.Reset()
		m.recording = true
		m.message = ""
		return
	}
	m.recording = false
	if err := m.recorder.Save(gifPath); err != nil {
		m.message = "recording: " + err.Error()
		return
	}
	m.message = fmt.Sprintf("saved %d frames to %s", m.recorder.Len(), gifPath)
}

func (m Model) frame() *dynamo.Snapshot {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return &m.history[m.playHead]
	}
	if len(m.history) == 0 {
		return nil
	}
	return &m.history[len(m.history)-1]
}

func (m *Model) draw() {
	m.scene.Draw(m.canvas, m.frame())
}

// Steps reports how many ticks the live simulator has taken.
func (m Model) Steps() int {
	if m.sim == nil {
		return 0
	}
	return m.sim.Steps()
}

func (m Model) status() string {
	switch {
	case m.playHead != -1:
		dt := m.history[m.playHead].Time - m.history[len(m.history)-1].Time
		if m.running {
			return StatusPaused.Render(fmt.Sprintf("REPLAYING (%.1fs)", dt))
		}
		return StatusPaused.Render(fmt.Sprintf("REPLAY PAUSED (%.1fs)", dt))
	case m.done:
		return StatusPaused.Render("DONE")
	case !m.running:
		return StatusPaused.Render("PAUSED")
	case m.recording:
		return StatusRecording.Render("● REC")
	}
	return StatusRunning.Render(fmt.Sprintf("RUNNING x%d", m.speed))
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.Render())
	snap := m.frame()

	var s strings.Builder
	s.WriteString(GradientText(strings.ToUpper(m.sess.Title), CurrentTheme.Primary, CurrentTheme.Secondary) + "\n")
	s.WriteString(m.status() + "\n\n")

	if m.sess.Duration > 0 && snap != nil {
		s.WriteString(ProgressBar(snap.Time/m.sess.Duration, 30) + "\n\n")
	}

	if len(m.ambient) > 1 {
		chart := asciigraph.Plot(m.ambient, asciigraph.Height(5), asciigraph.Width(32), asciigraph.Caption("mean ambient"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	s.WriteString(labelStyle.Render("Spread") + SparklineChart(m.spread, 28) + "\n\n")

	if snap != nil {
		left, right, forward := turnCounts(snap)
		s.WriteString(row("Time", fmt.Sprintf("%.1fs", snap.Time)))
		s.WriteString(row("Step", fmt.Sprintf("%d", snap.Step)))
		s.WriteString(row("Kilobots", fmt.Sprintf("%d (%dL %dR %dF)", len(snap.Kilobots), left, right, forward)))
		s.WriteString(row("Ambient", fmt.Sprintf("%.4f", metrics.SwarmAmbient(snap))))
		if snap.HasTarget {
			s.WriteString(row("Light", fmt.Sprintf("(%.3f, %.3f)", snap.Target[0], snap.Target[1])))
		}
		s.WriteString(row("State", formatVec(snap.Light)))
		s.WriteString(row("Action", formatVec(snap.Action)))
	}

	if ms := m.sim.Metrics(); len(ms) > 0 {
		s.WriteString("\n" + Separator(30) + "\n")
		for _, mt := range ms {
			s.WriteString(row(truncate(mt.Name(), 11), fmt.Sprintf("%.4f", mt.Value())))
		}
	}

	if m.message != "" {
		s.WriteString("\n" + KeyHint.Render(m.message) + "\n")
	}
	s.WriteString(helpStyle.Render("SP:Pause R:Reset Q:Quit\nT:Theme  G:Record ?:Help\n[ ]:Time-Travel +/-:Speed"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpOverlay + "\n\n" + mainView
	}
	return mainView
}

const helpOverlay = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  R        - Rebuild and restart      ║
║  Q        - Quit                     ║
║  + / -    - Double/halve speed       ║
║  [        - Rewind (time travel)     ║
║  ]        - Forward (time travel)    ║
║  G        - Toggle GIF recording     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}

func turnCounts(snap *dynamo.Snapshot) (left, right, forward int) {
	for _, k := range snap.Kilobots {
		switch {
		case k.Left > 0 && k.Right > 0:
			forward++
		case k.Left > 0:
			left++
		case k.Right > 0:
			right++
		}
	}
	return left, right, forward
}

func formatVec(v []float64) string {
	if v == nil {
		return "-"
	}
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.3f", x)
	}
	return truncate("["+strings.Join(parts, " ")+"]", 30)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

type noPolicy struct{}

func (noPolicy) Act(dynamo.State, float64) dynamo.Action { return nil }

// RunLive opens the live view in the alternate screen.
func RunLive(sess Session) error {
	m, err := NewModel(sess)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
