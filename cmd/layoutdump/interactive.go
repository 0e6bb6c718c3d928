package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#87CEEB")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateBrowse modelState = iota
	stateRequest
)

type interactiveModel struct {
	err      error
	s        *session
	status   string
	entries  []entry
	input    textinput.Model
	selected int
	height   int
	state    modelState
}

func newInteractiveModel(s *session) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "class Pair | array Node[]:4 | block 24"
	ti.Prompt = "> "
	ti.Width = 48

	m := &interactiveModel{s: s, input: ti, state: stateBrowse}
	m.refresh()
	return m
}

func (m *interactiveModel) refresh() {
	entries, err := m.s.entries()
	if err != nil {
		m.err = err
		return
	}
	m.entries = entries
	if m.selected >= len(m.entries) {
		m.selected = max(0, len(m.entries)-1)
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.state == stateRequest {
			return m.updateRequest(msg)
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.selected < len(m.entries)-1 {
				m.selected++
			}

		case "home", "g":
			m.selected = 0

		case "end", "G":
			m.selected = max(0, len(m.entries)-1)

		case "n", "/":
			m.state = stateRequest
			m.err = nil
			m.status = ""
			m.input.SetValue("")
			return m, m.input.Focus()
		}
		return m, nil
	}

	if m.state == stateRequest {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) updateRequest(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		m.state = stateBrowse
		m.input.Blur()
		return m, nil

	case "enter":
		m.state = stateBrowse
		m.input.Blur()
		m.submit(m.input.Value())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) submit(line string) {
	r, err := parseRequest(line)
	if err != nil {
		m.err = err
		return
	}

	l, err := m.s.apply(r)
	m.refresh()
	if err != nil {
		m.err = err
		return
	}

	num := m.s.unit.Layouts().LayoutNum(l)
	for i, e := range m.entries {
		if e.num == num {
			m.selected = i
			break
		}
	}
	m.status = fmt.Sprintf("%s -> #%d %s", r, num, l.Name())
}

// listWindow returns the range of entries that fits on screen around the
// selection.
func (m *interactiveModel) listWindow() (int, int) {
	rows := len(m.entries)
	if m.height > 0 {
		rows = max(3, m.height-20)
	}
	if rows >= len(m.entries) {
		return 0, len(m.entries)
	}
	start := min(max(0, m.selected-rows/2), len(m.entries)-rows)
	return start, start + rows
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Layout Table"))
	b.WriteString(" ")
	b.WriteString(m.s.src.label)
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString(helpStyle.Render("No layouts yet."))
		b.WriteString("\n")
	}

	start, end := m.listWindow()
	for i := start; i < end; i++ {
		line := m.entries[i].summary()
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	if m.selected < len(m.entries) {
		e := m.entries[m.selected]
		b.WriteString("\n")
		b.WriteString(nameStyle.Render(e.layout.Name()))
		b.WriteString("\n")
		b.WriteString(detailStyle.Render(strings.Join(e.details(), "\n")))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.s.stats()))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}

	if m.state == stateRequest {
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter request • esc back"))
	} else {
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • n new layout • q quit"))
	}

	return b.String()
}

func runInteractive(s *session) error {
	p := tea.NewProgram(newInteractiveModel(s), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
