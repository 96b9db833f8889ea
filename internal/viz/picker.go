package viz

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/integrators"
)

var (
	pickTitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	pickSub    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	pickCursor = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	pickActive = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	pickValue  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff")).Bold(true)
	pickIdle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	pickKey    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
	pickError  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Bold(true)
)

var presetInfo = map[string]string{
	"binary":   "equal-mass pair",
	"circular": "heavy primary, light companion",
	"figure8":  "three-body choreography",
	"solar":    "star with five planets",
	"disk":     "rotating disk, barnes-hut",
	"collapse": "cold cloud collapse",
}

const (
	stageMenu = iota
	stageConfig
)

// field is one editable setting on the config screen. Numeric fields are
// typed in; choice fields cycle through their options.
type field struct {
	name    string
	num     *float64
	choice  *string
	options []string
}

type picker struct {
	stage, cursor int
	presets       []string

	cfg         *config.Config
	fields      []field
	fieldCursor int
	editing     bool
	editBuf     string
	err         string

	chosen *config.Config
}

func newPicker() picker {
	return picker{presets: config.ListPresets()}
}

func (m picker) Init() tea.Cmd { return nil }

func (m picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.stage == stageMenu {
		return m.menuKey(key)
	}
	return m.configKey(key)
}

func (m picker) menuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
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
		m.cfg = config.GetPreset(m.presets[m.cursor])
		m.fields = fieldsFor(m.cfg)
		m.stage, m.fieldCursor, m.err = stageConfig, 0, ""
	}
	return m, nil
}

func fieldsFor(cfg *config.Config) []field {
	return []field{
		{name: "dt", num: &cfg.Dt},
		{name: "softening", num: &cfg.Softening},
		{name: "duration", num: &cfg.Duration},
		{name: "time_scale", num: &cfg.TimeScale},
		{name: "theta", num: &cfg.Theta},
		{name: "integrator", choice: &cfg.Integrator, options: integrators.Names()},
		{name: "evaluator", choice: &cfg.Evaluator, options: compute.Names()},
	}
}

func (m picker) configKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.fields[m.fieldCursor]
	if m.editing {
		switch msg.String() {
		case "enter":
			v, err := strconv.ParseFloat(m.editBuf, 64)
			if err != nil {
				m.err = fmt.Sprintf("%s: not a number", f.name)
			} else {
				*f.num, m.err = v, ""
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if s := msg.String(); len(s) == 1 && strings.ContainsAny(s, "0123456789.-e") {
				m.editBuf += s
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc":
		m.stage, m.err = stageMenu, ""
	case "up", "k":
		if m.fieldCursor > 0 {
			m.fieldCursor--
		}
	case "down", "j":
		if m.fieldCursor < len(m.fields)-1 {
			m.fieldCursor++
		}
	case "left", "h":
		f.cycle(-1)
	case "right", "l":
		f.cycle(1)
	case "enter", " ":
		if f.num != nil {
			m.editing, m.editBuf = true, strconv.FormatFloat(*f.num, 'g', -1, 64)
		} else {
			f.cycle(1)
		}
	case "s":
		if err := m.cfg.Validate(); err != nil {
			m.err = err.Error()
			return m, nil
		}
		m.chosen = m.cfg
		return m, tea.Quit
	}
	return m, nil
}

func (f field) cycle(dir int) {
	if f.choice == nil || len(f.options) == 0 {
		return
	}
	i := slices.Index(f.options, *f.choice)
	i = (i + dir + len(f.options)) % len(f.options)
	*f.choice = f.options[i]
}

func (f field) value() string {
	if f.num != nil {
		return strconv.FormatFloat(*f.num, 'g', 6, 64)
	}
	return *f.choice
}

func (m picker) View() string {
	if m.stage == stageMenu {
		return m.viewMenu()
	}
	return m.viewConfig()
}

func header(title, sub string) string {
	return "\n\n    " + pickTitle.Render(title) + "\n    " + pickSub.Render(sub) + "\n    " + pickSub.Render(Separator(25)) + "\n\n"
}

func hints(pairs ...string) string {
	var b strings.Builder
	b.WriteString("\n    ")
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(pickKey.Render(pairs[i]) + pickIdle.Render(" "+pairs[i+1]+"  "))
	}
	return b.String() + "\n"
}

func (m picker) viewMenu() string {
	var b strings.Builder
	b.WriteString(header("GRAVSIM", "n-body gravity"))
	for i, name := range m.presets {
		desc := presetInfo[name]
		if i == m.cursor {
			fmt.Fprintf(&b, "    %s %s  %s\n", pickCursor.Render("▸"), pickActive.Render(fmt.Sprintf("%-12s", name)), pickValue.UnsetBold().Render(desc))
		} else {
			fmt.Fprintf(&b, "    %s  %s\n", pickIdle.Render(fmt.Sprintf("  %-12s", name)), pickSub.Render(desc))
		}
	}
	b.WriteString(hints("j/k", "navigate", "enter", "select", "q", "quit"))
	return b.String()
}

func (m picker) viewConfig() string {
	var b strings.Builder
	b.WriteString(header(strings.ToUpper(m.cfg.Name), presetInfo[m.cfg.Name]))
	for i, f := range m.fields {
		val := fmt.Sprintf("%12s", f.value())
		if m.editing && i == m.fieldCursor {
			val = fmt.Sprintf("%12s", m.editBuf+"_")
		}
		if i == m.fieldCursor {
			fmt.Fprintf(&b, "    %s %s %s\n", pickCursor.Render("▸"), pickActive.Render(fmt.Sprintf("%-12s", f.name)), pickValue.Render(val))
		} else {
			fmt.Fprintf(&b, "    %s %s\n", pickIdle.Render(fmt.Sprintf("  %-12s", f.name)), pickSub.Render(val))
		}
	}
	if m.err != "" {
		b.WriteString("\n    " + pickError.Render(m.err) + "\n")
	}
	b.WriteString(hints("j/k", "select", "h/l", "cycle", "enter", "edit", "s", "start", "esc", "back"))
	return b.String()
}

// PickPreset lets the user choose and tune a preset. It returns nil when
// the user quits without starting.
func PickPreset() (*config.Config, error) {
	final, err := tea.NewProgram(newPicker(), tea.WithAltScreen()).Run()
	if err != nil {
		return nil, err
	}
	return final.(picker).chosen, nil
}
