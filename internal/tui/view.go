package tui

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/benaskins/sketchrun/internal/lifecycle"
)

func (m Model) View() string {
	if m.width == 0 {
		return "Starting sketchrun..."
	}
	m.syncKeys()

	c := m.controls()
	parts := []string{
		m.renderHeader(),
		m.pane("Sketchbook directory", m.pathInput.View(), m.focus == focusPath, c.Browser),
		m.pane("", m.sketches.View(), m.focus == focusList, c.Browser),
		m.renderButtons(c),
	}
	if len(m.inputs) > 0 {
		parts = append(parts, m.renderControls())
	}
	parts = append(parts,
		lipgloss.JoinHorizontal(lipgloss.Top,
			m.pane("Processing logs", m.procView.View(), false, true),
			m.pane("OSC logs", m.oscView.View(), false, true),
		),
		m.help.ShortHelpView(m.keys.help()),
	)

	return m.theme.App.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) renderHeader() string {
	title := m.theme.Title.Render("Run Processing")
	state := m.stateStyle().Render(m.machine.State().String())
	if m.stopping {
		state = m.theme.StateRunning.Render("stopping")
	}

	sketch := m.theme.Dim.Render("no sketch selected")
	if m.selected != "" {
		sketch = m.theme.Label.Render(filepath.Base(m.selected))
	}
	return strings.Join([]string{title, state, sketch}, "  ")
}

func (m Model) stateStyle() lipgloss.Style {
	switch m.machine.State() {
	case lifecycle.Running:
		return m.theme.StateRunning
	case lifecycle.Success:
		return m.theme.StateSuccess
	case lifecycle.Error:
		return m.theme.StateError
	case lifecycle.Cancelled:
		return m.theme.StateCancelled
	default:
		return m.theme.StateIdle
	}
}

func (m Model) renderButtons(c lifecycle.Controls) string {
	run := m.theme.DisabledButton.Render("Run")
	if c.Launch {
		run = m.theme.RunButton.Render("Run")
	}
	stop := m.theme.DisabledButton.Render("Stop")
	if c.Stop {
		stop = m.theme.StopButton.Render("Stop")
	}

	row := run + " " + stop
	if m.status != "" {
		row += "  " + m.theme.Error.Render(m.status)
	}
	return row
}

func (m Model) renderControls() string {
	cells := make([]string, len(m.inputs))
	for i, in := range m.inputs {
		cells[i] = m.pane("", in.View(), m.focus == focusControls+i, true)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (m Model) pane(title, body string, focused, enabled bool) string {
	style := m.theme.Pane
	if focused && enabled {
		style = m.theme.Active
	}
	if title != "" {
		body = m.theme.Label.Render(title) + "\n" + body
	}
	if !enabled {
		body = m.theme.Dim.Render(body)
	}
	return style.Render(body)
}
