package tui

import "github.com/charmbracelet/lipgloss"

// Flexoki light palette.
const (
	colorBlack  = lipgloss.Color("#100F0F")
	colorPaper  = lipgloss.Color("#FFFCF0")
	colorRed    = lipgloss.Color("#D14D41")
	colorGreen  = lipgloss.Color("#879A39")
	colorBlue   = lipgloss.Color("#4385BE")
	colorMuted  = lipgloss.Color("#B7B5AC")
	colorSubtle = lipgloss.Color("#6F6E69")
)

// Theme holds all styles for the interface.
type Theme struct {
	App    lipgloss.Style
	Title  lipgloss.Style
	Pane   lipgloss.Style
	Active lipgloss.Style
	Label  lipgloss.Style
	Dim    lipgloss.Style
	Help   lipgloss.Style
	Error  lipgloss.Style

	Button         lipgloss.Style
	RunButton      lipgloss.Style
	StopButton     lipgloss.Style
	DisabledButton lipgloss.Style

	StateIdle      lipgloss.Style
	StateRunning   lipgloss.Style
	StateSuccess   lipgloss.Style
	StateError     lipgloss.Style
	StateCancelled lipgloss.Style
}

// FlexokiLight is the default theme.
func FlexokiLight() Theme {
	pane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorMuted).
		Padding(0, 1)
	button := lipgloss.NewStyle().Padding(0, 2).Bold(true)

	return Theme{
		App: lipgloss.NewStyle().
			Foreground(colorBlack).
			Background(colorPaper),
		Title:  lipgloss.NewStyle().Bold(true).Foreground(colorBlack),
		Pane:   pane,
		Active: pane.BorderForeground(colorBlue),
		Label:  lipgloss.NewStyle().Bold(true).Foreground(colorBlue),
		Dim:    lipgloss.NewStyle().Foreground(colorSubtle),
		Help:   lipgloss.NewStyle().Foreground(colorSubtle),
		Error:  lipgloss.NewStyle().Foreground(colorRed),

		Button:         button,
		RunButton:      button.Foreground(colorPaper).Background(colorGreen),
		StopButton:     button.Foreground(colorPaper).Background(colorRed),
		DisabledButton: button.Foreground(colorSubtle).Background(colorMuted),

		StateIdle:      lipgloss.NewStyle().Foreground(colorSubtle),
		StateRunning:   lipgloss.NewStyle().Bold(true).Foreground(colorBlue),
		StateSuccess:   lipgloss.NewStyle().Bold(true).Foreground(colorGreen),
		StateError:     lipgloss.NewStyle().Bold(true).Foreground(colorRed),
		StateCancelled: lipgloss.NewStyle().Foreground(colorRed),
	}
}
