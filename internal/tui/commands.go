package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hypebeast/go-osc/osc"

	"github.com/benaskins/sketchrun/internal/sketchbook"
)

// --- Message types ---

type eventMsg struct{ event any }

type queueClosedMsg struct{}

type sketchesMsg struct {
	root     string
	sketches []sketchbook.Sketch
	err      error
}

type stopDoneMsg struct{ err error }

type sentMsg struct {
	msg *osc.Message
	err error
}

type watchEndedMsg struct {
	root string
	err  error
}

// --- Commands ---

// waitForEvent delivers the next driver, bridge or sketchbook event.
func waitForEvent(ch <-chan any) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return queueClosedMsg{}
		}
		return eventMsg{event: ev}
	}
}

func listSketches(root, ext string) tea.Cmd {
	return func() tea.Msg {
		sketches, err := sketchbook.List(root, ext)
		return sketchesMsg{root: root, sketches: sketches, err: err}
	}
}

func stopSketch(sup Supervisor, grace time.Duration) tea.Cmd {
	return func() tea.Msg {
		return stopDoneMsg{err: sup.Stop(context.Background(), grace)}
	}
}

func sendOSC(peer Sender, msg *osc.Message) tea.Cmd {
	return func() tea.Msg {
		return sentMsg{msg: msg, err: peer.SendOSC(msg)}
	}
}

func watchSketchbook(ctx context.Context, watch WatchFunc, root string) tea.Cmd {
	return func() tea.Msg {
		return watchEndedMsg{root: root, err: watch(ctx, root)}
	}
}
