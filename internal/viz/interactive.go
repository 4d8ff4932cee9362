package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/kilosim/internal/config"
	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/san-kum/kilosim/internal/experiment"
	"github.com/san-kum/kilosim/internal/sim"
	"go.uber.org/zap"
)

var (
	title     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	subtitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	cursorSty = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	selected  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	selDesc   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	idle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	idleDesc  = lipgloss.NewStyle().Foreground(lipgloss.Color("#444455"))
	keyName   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

const (
	stateMenu = iota
	stateConfig
	stateSim
)

var paramNames = []string{"kilobots", "seed", "dt", "duration"}

type model struct {
	state, cursor int
	presets       []string
	selected      string
	params        map[string]float64
	paramCursor   int
	editing       bool
	editBuf       string
	err           error
	logger        *zap.Logger
	liveModel     Model
}

// NewInteractiveApp lists the presets, lets the user tune a few run
// parameters and then opens the live view.
func NewInteractiveApp(logger *zap.Logger) *model {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &model{
		state:   stateMenu,
		presets: config.ListPresets(),
		params:  make(map[string]float64),
		logger:  logger,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		if m.state == stateSim {
			newLive, cmd := m.liveModel.Update(msg)
			m.liveModel = newLive.(Model)
			return m, cmd
		}
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSim:
		newLive, cmd := m.liveModel.Update(msg)
		m.liveModel = newLive.(Model)
		return m, cmd
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.presets) == 0 {
			return m, nil
		}
		m.selected = m.presets[m.cursor]
		m.state, m.paramCursor, m.err = stateConfig, 0, nil
		m.loadParams()
	}
	return m, nil
}

func (m model) configKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if m.editing {
		switch msg.String() {
		case "enter":
			var val float64
			if _, err := fmt.Sscanf(m.editBuf, "%f", &val); err == nil {
				m.params[paramNames[m.paramCursor]] = val
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(paramNames)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		m.editing, m.editBuf = true, fmt.Sprintf("%g", m.params[paramNames[m.paramCursor]])
	case "s":
		cmd, err := m.start()
		if err != nil {
			m.err = err
			return m, nil
		}
		return m, cmd
	case "left", "h":
		m.nudge(-1)
	case "right", "l":
		m.nudge(1)
	}
	return m, nil
}

func (m *model) loadParams() {
	cfg := config.GetPreset(m.selected)
	m.params["kilobots"] = float64(cfg.Kilobots.Count)
	m.params["seed"] = float64(cfg.Seed)
	m.params["dt"] = cfg.Dt
	m.params["duration"] = cfg.Duration
}

func (m *model) nudge(dir float64) {
	name := paramNames[m.paramCursor]
	switch name {
	case "dt":
		m.params[name] = max(m.params[name]+dir*0.01, 0.01)
	case "duration":
		m.params[name] = max(m.params[name]+dir*10, 10)
	default:
		m.params[name] = max(m.params[name]+dir, 0)
	}
}

// config applies the edited parameters to a copy of the selected preset.
func (m *model) config() (*config.Config, error) {
	cfg := config.GetPreset(m.selected)
	if cfg == nil {
		return nil, fmt.Errorf("%w: preset %q", dynamo.ErrUnknownVariant, m.selected)
	}
	cfg.Kilobots.Count = int(m.params["kilobots"])
	cfg.Seed = int64(m.params["seed"])
	cfg.Dt = m.params["dt"]
	cfg.Duration = m.params["duration"]
	if cfg.Kilobots.Placement == "poses" {
		cfg.Kilobots.Placement = "grid"
	}
	return cfg, cfg.Validate()
}

func (m *model) start() (tea.Cmd, error) {
	cfg, err := m.config()
	if err != nil {
		return nil, err
	}
	live, err := NewModel(SessionFor(cfg, m.logger))
	if err != nil {
		return nil, err
	}
	m.liveModel = live
	m.state = stateSim
	return m.liveModel.Init(), nil
}

// SessionFor builds a live session that sets up a fresh experiment from
// cfg on every start.
func SessionFor(cfg *config.Config, logger *zap.Logger) Session {
	return Session{
		Title:    cfg.Name,
		Arena:    cfg.ArenaBox(),
		Walls:    cfg.Arena.Walls,
		Dt:       cfg.Dt,
		Duration: cfg.Duration,
		Build: func() (*sim.Simulator, dynamo.Policy, error) {
			exp := experiment.New(cfg.Clone(), experiment.WithLogger(logger))
			if err := exp.Setup(); err != nil {
				return nil, nil, err
			}
			return exp.GetSimulator(), exp.Policy(), nil
		},
	}
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.liveModel.View()
	}
	return ""
}

func describe(name string) string {
	cfg := config.GetPreset(name)
	if cfg == nil {
		return ""
	}
	return fmt.Sprintf("%s light, %s", cfg.Light.Type, cfg.Kilobots.Behavior)
}

func hints(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(keyName.Render(pairs[i]) + idle.Render(" "+pairs[i+1]+"  "))
	}
	return b.String()
}

func (m model) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + title.Render("KILOSIM") + "\n    " + subtitle.Render("kilobot swarm phototaxis") + "\n    " + subtitle.Render("─────────────────────────") + "\n\n")
	for i, name := range m.presets {
		desc := describe(name)
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", cursorSty.Render("▸"), selected.Render(fmt.Sprintf("%-12s", name)), selDesc.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", idle.Render(fmt.Sprintf("  %-12s", name)), idleDesc.Render(desc)))
		}
	}
	b.WriteString("\n    " + hints("j/k", "navigate", "enter", "select", "q", "quit") + "\n")
	return b.String()
}

func (m model) viewConfig() string {
	var b strings.Builder
	b.WriteString("\n\n    " + title.Render(strings.ToUpper(m.selected)) + "\n    " + subtitle.Render(describe(m.selected)) + "\n    " + subtitle.Render("─────────────────────────") + "\n\n")
	for i, name := range paramNames {
		valStr := fmt.Sprintf("%8g", m.params[name])
		if m.editing && i == m.paramCursor {
			valStr = fmt.Sprintf("%8s", m.editBuf+"_")
		}
		if i == m.paramCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", cursorSty.Render("▸"), selected.Render(fmt.Sprintf("%-10s", name)), selDesc.Bold(true).Render(valStr)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n", idle.Render(fmt.Sprintf("  %-10s", name)), idleDesc.Render(valStr)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + lipgloss.NewStyle().Foreground(CurrentTheme.Error).Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + hints("j/k", "select", "h/l", "adjust", "s", "start", "esc", "back") + "\n")
	return b.String()
}

func RunInteractive(logger *zap.Logger) error {
	_, err := tea.NewProgram(NewInteractiveApp(logger), tea.WithAltScreen()).Run()
	return err
}
