// Package tui implements the interactive candidate picker shown when a
// name query matches more than one process.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/w31r4/gowhy/internal/why"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("255"))
	pidStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	faintStyle    = lipgloss.NewStyle().Faint(true)
)

const viewHeight = 10

// model holds the picker state.
type model struct {
	procs     []why.ProcessInfo
	filtered  []why.ProcessInfo
	cursor    int
	offset    int
	textInput textinput.Model
	choice    *why.ProcessInfo
	aborted   bool
}

func initialModel(procs []why.ProcessInfo) model {
	ti := textinput.New()
	ti.Placeholder = "Filter candidates"
	ti.CharLimit = 120
	ti.Width = 30
	ti.Focus()

	return model{
		procs:     procs,
		filtered:  procs,
		textInput: ti,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		case "enter":
			if m.cursor < len(m.filtered) {
				choice := m.filtered[m.cursor]
				m.choice = &choice
			}
			return m, tea.Quit
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			if m.cursor < m.offset {
				m.offset = m.cursor
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
			}
			if m.cursor >= m.offset+viewHeight {
				m.offset = m.cursor - viewHeight + 1
			}
			return m, nil
		}

		m.textInput, cmd = m.textInput.Update(msg)
		m.filtered = m.filterProcs(m.textInput.Value())
		m.cursor = 0
		m.offset = 0
		return m, cmd
	}
	return m, cmd
}

func (m model) filterProcs(query string) []why.ProcessInfo {
	if query == "" {
		return m.procs
	}
	targets := make([]string, len(m.procs))
	for i, p := range m.procs {
		targets[i] = p.Command + " " + p.Cmdline
	}
	matches := fuzzy.Find(query, targets)
	filtered := make([]why.ProcessInfo, 0, len(matches))
	for _, match := range matches {
		filtered = append(filtered, m.procs[match.Index])
	}
	return filtered
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Multiple matches. Which process?"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	end := m.offset + viewHeight
	if end > len(m.filtered) {
		end = len(m.filtered)
	}
	for i := m.offset; i < end; i++ {
		p := m.filtered[i]
		line := fmt.Sprintf("%s %-20s %s",
			pidStyle.Render(fmt.Sprintf("%7d", p.PID)),
			p.Command,
			faintStyle.Render(truncate(p.Cmdline, 60)))
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	if len(m.filtered) == 0 {
		b.WriteString(faintStyle.Render("  no matches") + "\n")
	}

	b.WriteString("\n" + faintStyle.Render("↑/↓ move · enter select · esc cancel"))
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

// Pick runs the picker and returns the chosen process. ok is false when
// the user cancelled.
func Pick(procs []why.ProcessInfo) (why.ProcessInfo, bool, error) {
	final, err := tea.NewProgram(initialModel(procs)).Run()
	if err != nil {
		return why.ProcessInfo{}, false, err
	}
	m, ok := final.(model)
	if !ok || m.aborted || m.choice == nil {
		return why.ProcessInfo{}, false, nil
	}
	return *m.choice, true, nil
}
