package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Run   key.Binding
	Stop  key.Binding
	Next  key.Binding
	Prev  key.Binding
	Enter key.Binding
	Quit  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Run: key.NewBinding(
			key.WithKeys("ctrl+r", "f5"),
			key.WithHelp("ctrl+r", "run"),
		),
		Stop: key.NewBinding(
			key.WithKeys("ctrl+x", "f6"),
			key.WithHelp("ctrl+x", "stop"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select/send"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("ctrl+q", "quit"),
		),
	}
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Run, k.Stop, k.Next, k.Enter, k.Quit}
}
