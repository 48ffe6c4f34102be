// Package tui is the interactive front end. Its Update loop is the single
// consumer of driver, bridge and sketchbook events.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hypebeast/go-osc/osc"

	"github.com/benaskins/sketchrun/internal/bridge"
	"github.com/benaskins/sketchrun/internal/controls"
	"github.com/benaskins/sketchrun/internal/driver"
	"github.com/benaskins/sketchrun/internal/lifecycle"
	"github.com/benaskins/sketchrun/internal/logbuf"
	"github.com/benaskins/sketchrun/internal/sketchbook"
)

// Supervisor starts and stops the sketch.
type Supervisor interface {
	Start(ctx context.Context, sketch string) (*driver.Handle, error)
	Stop(ctx context.Context, grace time.Duration) error
}

// Sender delivers outbound OSC messages.
type Sender interface {
	SendOSC(msg *osc.Message) error
}

// WatchFunc watches a sketchbook root until ctx is done.
type WatchFunc func(ctx context.Context, root string) error

// Options configures the model.
type Options struct {
	Supervisor Supervisor
	Events     <-chan any
	Peer       Sender    // nil disables sending control values
	Watch      WatchFunc // nil disables watching
	Sketchbook string
	SketchExt  string
	Sketch     string // preselected sketch directory
	Grace      time.Duration
	LogLines   int
	ListenAddr string
}

const (
	focusPath = iota
	focusList
	focusControls // control i has focus focusControls+i
)

const listHeight = 8

// ShutdownMsg asks the model to stop the sketch and exit, as the quit key does.
type ShutdownMsg struct{}

type sketchItem struct{ sketchbook.Sketch }

func (i sketchItem) Title() string       { return i.Name }
func (i sketchItem) Description() string { return i.Path }
func (i sketchItem) FilterValue() string { return i.Name }

// Model is the bubbletea model.
type Model struct {
	opts  Options
	keys  keyMap
	help  help.Model
	theme Theme

	machine  *lifecycle.Machine
	registry *controls.Registry
	runID    string
	selected string
	stopping bool
	quitting bool

	root      string
	pathInput textinput.Model
	sketches  list.Model
	inputs    []textinput.Model
	focus     int

	procLog  *logbuf.Ring
	oscLog   *logbuf.Ring
	procView viewport.Model
	oscView  viewport.Model

	watchCtx    context.Context
	watchCancel context.CancelFunc

	width  int
	height int
	status string
}

// New creates the model.
func New(opts Options) Model {
	if opts.SketchExt == "" {
		opts.SketchExt = ".pde"
	}
	if opts.LogLines <= 0 {
		opts.LogLines = 1000
	}

	root := sketchbook.ExpandHome(opts.Sketchbook)

	pi := textinput.New()
	pi.Prompt = ""
	pi.SetValue(opts.Sketchbook)
	pi.Focus()

	l := list.New(nil, list.NewDefaultDelegate(), 0, listHeight)
	l.Title = "Select sketch"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)

	m := Model{
		opts:      opts,
		keys:      defaultKeys(),
		help:      help.New(),
		theme:     FlexokiLight(),
		machine:   lifecycle.New(),
		registry:  controls.NewRegistry(),
		root:      root,
		pathInput: pi,
		sketches:  l,
		focus:     focusPath,
		procLog:   logbuf.New(opts.LogLines),
		oscLog:    logbuf.New(opts.LogLines),
		procView:  viewport.New(0, 0),
		oscView:   viewport.New(0, 0),
	}
	m.watchCtx, m.watchCancel = context.WithCancel(context.Background())

	if opts.Sketch != "" {
		m.selectSketch(sketchbook.Sketch{Name: filepath.Base(opts.Sketch), Path: opts.Sketch})
	}
	if opts.ListenAddr != "" {
		m.logOSC("OSC server listening on " + opts.ListenAddr)
	}
	m.syncKeys()
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		waitForEvent(m.opts.Events),
		listSketches(m.root, m.opts.SketchExt),
		textinput.Blink,
	}
	if m.opts.Watch != nil {
		cmds = append(cmds, watchSketchbook(m.watchCtx, m.opts.Watch, m.root))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ShutdownMsg:
		return m.quit()

	case eventMsg:
		m.handleEvent(msg.event)
		m.syncKeys()
		return m, waitForEvent(m.opts.Events)

	case queueClosedMsg:
		return m, nil

	case sketchesMsg:
		cmd := m.setSketches(msg)
		return m, cmd

	case stopDoneMsg:
		m.stopping = false
		if msg.err != nil {
			m.logProcess("Stop failed: " + msg.err.Error())
		}
		m.syncKeys()
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil

	case sentMsg:
		if msg.err != nil {
			m.logOSC(fmt.Sprintf("! %v", msg.err))
		} else {
			m.logOSC(fmt.Sprintf("→ Sent to '%s': %v", msg.msg.Address, msg.msg.Arguments))
		}
		return m, nil

	case watchEndedMsg:
		if msg.err != nil && msg.root == m.root {
			m.status = "watch: " + msg.err.Error()
		}
		return m, nil
	}

	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.syncKeys()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Run):
		return m.run()
	case key.Matches(msg, m.keys.Stop):
		return m.stop()
	case key.Matches(msg, m.keys.Next):
		return m.moveFocus(1)
	case key.Matches(msg, m.keys.Prev):
		return m.moveFocus(-1)
	case key.Matches(msg, m.keys.Enter):
		return m.submit()
	}

	switch msg.Type {
	case tea.KeyPgUp:
		m.procView.SetYOffset(m.procView.YOffset - m.procView.Height)
		return m, nil
	case tea.KeyPgDown:
		m.procView.SetYOffset(m.procView.YOffset + m.procView.Height)
		return m, nil
	}

	return m.updateFocused(msg)
}

// controls returns what the user may do right now.
func (m Model) controls() lifecycle.Controls {
	c := m.machine.Controls(m.selected != "")
	if m.stopping || m.quitting {
		c.Launch = false
		c.Stop = false
	}
	return c
}

func (m *Model) syncKeys() {
	c := m.controls()
	m.keys.Run.SetEnabled(c.Launch)
	m.keys.Stop.SetEnabled(c.Stop)
}

func (m Model) run() (tea.Model, tea.Cmd) {
	if !m.controls().Launch {
		return m, nil
	}

	h, err := m.opts.Supervisor.Start(context.Background(), m.selected)
	if err != nil {
		var spawnErr *driver.SpawnError
		if errors.As(err, &spawnErr) {
			m.machine.Fire(lifecycle.SpawnFailed)
		}
		m.logProcess("Failed to launch: " + err.Error())
		m.syncKeys()
		return m, nil
	}

	m.runID = h.RunID
	m.machine.Fire(lifecycle.Started)
	m.logProcess(fmt.Sprintf("Running %s (pid %d)", h.Sketch, h.PID))
	m.syncKeys()

	if m.focus < focusControls {
		if len(m.inputs) > 0 {
			m.focus = focusControls
		}
		cmd := m.applyFocus()
		return m, cmd
	}
	return m, nil
}

func (m Model) stop() (tea.Model, tea.Cmd) {
	if !m.controls().Stop {
		return m, nil
	}
	m.stopping = true
	m.logProcess("Stopping...")
	m.syncKeys()
	return m, stopSketch(m.opts.Supervisor, m.opts.Grace)
}

// quit stops a running sketch before exiting.
func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, nil
	}
	m.quitting = true
	m.watchCancel()

	if m.machine.State() != lifecycle.Running {
		return m, tea.Quit
	}
	m.logProcess("Stopping sketch before exit...")
	if m.stopping {
		// The pending stopDoneMsg quits.
		return m, nil
	}
	m.stopping = true
	m.syncKeys()
	return m, stopSketch(m.opts.Supervisor, m.opts.Grace)
}

func (m Model) moveFocus(delta int) (tea.Model, tea.Cmd) {
	n := focusControls + len(m.inputs)
	browser := m.controls().Browser
	for range n {
		m.focus = (m.focus + delta + n) % n
		if m.focus < focusControls && !browser {
			continue
		}
		break
	}
	cmd := m.applyFocus()
	return m, cmd
}

func (m *Model) applyFocus() tea.Cmd {
	m.pathInput.Blur()
	for i := range m.inputs {
		m.inputs[i].Blur()
	}

	switch {
	case m.focus == focusPath:
		return m.pathInput.Focus()
	case m.focus == focusList:
		return nil
	default:
		if i := m.focus - focusControls; i < len(m.inputs) {
			return m.inputs[i].Focus()
		}
	}
	return nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	switch {
	case m.focus == focusPath:
		if !m.controls().Browser {
			return m, nil
		}
		value := strings.TrimSpace(m.pathInput.Value())
		if value == "" {
			return m, nil
		}
		m.root = sketchbook.ExpandHome(value)
		m.status = ""
		cmds := []tea.Cmd{listSketches(m.root, m.opts.SketchExt)}
		if m.opts.Watch != nil {
			m.watchCancel()
			m.watchCtx, m.watchCancel = context.WithCancel(context.Background())
			cmds = append(cmds, watchSketchbook(m.watchCtx, m.opts.Watch, m.root))
		}
		return m, tea.Batch(cmds...)

	case m.focus == focusList:
		if !m.controls().Browser {
			return m, nil
		}
		if it, ok := m.sketches.SelectedItem().(sketchItem); ok {
			m.selectSketch(it.Sketch)
		}
		return m, nil

	default:
		return m.sendControl(m.focus - focusControls)
	}
}

func (m Model) sendControl(i int) (tea.Model, tea.Cmd) {
	all := m.registry.All()
	if i < 0 || i >= len(all) {
		return m, nil
	}
	msg, err := all[i].Encode(m.inputs[i].Value())
	if err != nil {
		m.logOSC(fmt.Sprintf("! %v", err))
		return m, nil
	}
	if m.opts.Peer == nil {
		m.logOSC("! no OSC peer configured")
		return m, nil
	}
	return m, sendOSC(m.opts.Peer, msg)
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.focus == focusPath:
		if m.controls().Browser {
			m.pathInput, cmd = m.pathInput.Update(msg)
		}
	case m.focus == focusList:
		if m.controls().Browser {
			m.sketches, cmd = m.sketches.Update(msg)
		}
	default:
		if i := m.focus - focusControls; i < len(m.inputs) {
			m.inputs[i], cmd = m.inputs[i].Update(msg)
		}
	}
	return m, cmd
}

// handleEvent applies one event from the queue. Driver events from an earlier
// run are ignored.
func (m *Model) handleEvent(ev any) {
	switch e := ev.(type) {
	case driver.OutputLine:
		if e.RunID != m.runID {
			return
		}
		m.logProcess(e.Text)

	case driver.Exited:
		if e.RunID != m.runID {
			return
		}
		if lev, ok := lifecycle.FromDriver(e); ok {
			m.machine.Fire(lev)
			m.logProcess("Sketch exited: " + e.Status.String())
		}

	case driver.Finished:
		if e.RunID != m.runID {
			return
		}
		if lev, ok := lifecycle.FromDriver(e); ok {
			m.machine.Fire(lev)
		}
		m.logProcess("Finished.")

	case bridge.RegisterControl:
		m.logOSC(fmt.Sprintf("← Received from '%s': (%q, %q, %q)", bridge.ConfigPath, e.SourcePath, e.TypeTag, e.Name))
		m.registerControl(e)

	case bridge.Unrouted:
		line := fmt.Sprintf("← Received from '%s': %s", e.Message.Path, formatArgs(e.Message.Args))
		if e.Malformed {
			line += " (malformed)"
		}
		m.logOSC(line)

	case bridge.Diagnostic:
		m.logOSC(fmt.Sprintf("! Undecodable datagram from %s: %v", e.From, e.Err))

	case sketchbook.Changed:
		if e.Root == m.root {
			m.setSketches(sketchesMsg{root: e.Root, sketches: e.Sketches, err: e.Err})
		}
	}
}

func (m *Model) registerControl(ev bridge.RegisterControl) {
	c, created := m.registry.Register(ev)
	if created {
		ti := textinput.New()
		ti.Prompt = c.Name + ": "
		ti.Placeholder = c.TypeTag
		ti.CharLimit = 64
		ti.Width = 12
		m.inputs = append(m.inputs, ti)
		return
	}
	for i, ctl := range m.registry.All() {
		if ctl.Name == c.Name {
			m.inputs[i].Placeholder = c.TypeTag
		}
	}
}

func (m *Model) setSketches(msg sketchesMsg) tea.Cmd {
	if msg.root != m.root {
		return nil
	}
	if msg.err != nil {
		m.status = msg.err.Error()
	}
	items := make([]list.Item, len(msg.sketches))
	for i, s := range msg.sketches {
		items[i] = sketchItem{s}
	}
	return m.sketches.SetItems(items)
}

func (m *Model) selectSketch(s sketchbook.Sketch) {
	m.selected = s.Path
	m.sketches.Title = "Selected sketch: " + s.Name
}

func (m *Model) logProcess(line string) {
	m.procLog.Append(line)
	m.procView.SetContent(m.procLog.String())
	m.procView.GotoBottom()
}

func (m *Model) logOSC(line string) {
	m.oscLog.Append(line)
	m.oscView.SetContent(m.oscLog.String())
	m.oscView.GotoBottom()
}

func (m *Model) layout() {
	w := max(m.width-2, 20)
	m.pathInput.Width = w - 6
	m.sketches.SetSize(w-4, listHeight)

	// header, path pane, list pane, buttons, controls, help and pane borders
	used := 1 + 3 + (listHeight + 2) + 1 + 3 + 1 + 4
	logH := max(m.height-used, 3)

	procW := w * 3 / 5
	m.procView.Width = procW - 4
	m.procView.Height = logH
	m.oscView.Width = w - procW - 4
	m.oscView.Height = logH

	m.procView.SetContent(m.procLog.String())
	m.procView.GotoBottom()
	m.oscView.SetContent(m.oscLog.String())
	m.oscView.GotoBottom()
}

// State returns the lifecycle state.
func (m Model) State() lifecycle.State {
	return m.machine.State()
}

func formatArgs(args []bridge.Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
