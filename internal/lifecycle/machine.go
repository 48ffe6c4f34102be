// Package lifecycle tracks the state of the current sketch run and derives
// which user controls are available from it.
//
// The machine is purely event driven and not safe for concurrent use: it is
// owned by the consumer loop, which feeds it driver events in arrival order.
package lifecycle

import "github.com/benaskins/sketchrun/internal/driver"

// State is the supervision state of the current run.
type State int

const (
	Idle State = iota
	Running
	Success
	Error
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Success:
		return "success"
	case Error:
		return "error"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == Success || s == Error || s == Cancelled
}

// Event drives the machine.
type Event int

const (
	Started Event = iota
	ExitedOK
	ExitedErr
	StopCompleted
	SpawnFailed
)

func (e Event) String() string {
	switch e {
	case Started:
		return "started"
	case ExitedOK:
		return "exited(ok)"
	case ExitedErr:
		return "exited(error)"
	case StopCompleted:
		return "stop completed"
	case SpawnFailed:
		return "spawn failed"
	default:
		return "unknown"
	}
}

// Transition records one state change.
type Transition struct {
	From  State
	To    State
	Cause Event
}

// Controls is the availability of the user-facing controls.
type Controls struct {
	Launch  bool
	Stop    bool
	Browser bool
}

// Machine holds the current state.
type Machine struct {
	state State
}

// New returns a machine in Idle.
func New() *Machine {
	return &Machine{state: Idle}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Fire applies ev and returns the transitions taken, oldest first. Events that
// do not apply in the current state are ignored and yield no transitions.
// A spawn failure passes through Running on its way to Error.
func (m *Machine) Fire(ev Event) []Transition {
	switch ev {
	case Started:
		if m.state == Running {
			return nil
		}
		return []Transition{m.move(Running, ev)}

	case ExitedOK:
		if m.state != Running {
			return nil
		}
		return []Transition{m.move(Success, ev)}

	case ExitedErr:
		if m.state != Running {
			return nil
		}
		return []Transition{m.move(Error, ev)}

	case StopCompleted:
		if m.state != Running {
			return nil
		}
		return []Transition{m.move(Cancelled, ev)}

	case SpawnFailed:
		if m.state == Running {
			return nil
		}
		return []Transition{m.move(Running, ev), m.move(Error, ev)}
	}
	return nil
}

func (m *Machine) move(to State, ev Event) Transition {
	t := Transition{From: m.state, To: to, Cause: ev}
	m.state = to
	return t
}

// Controls derives control availability. Launch additionally needs a selected sketch.
func (m *Machine) Controls(sketchSelected bool) Controls {
	if m.state == Running {
		return Controls{Launch: false, Stop: true, Browser: false}
	}
	return Controls{Launch: sketchSelected, Stop: false, Browser: true}
}

// FromDriver maps a driver event to a machine event. An Exited event for a run
// ended by Stop maps to nothing; the Finished event that follows it does.
func FromDriver(ev any) (Event, bool) {
	switch e := ev.(type) {
	case driver.Exited:
		if e.Status.Stopped {
			return 0, false
		}
		if e.Status.Success() {
			return ExitedOK, true
		}
		return ExitedErr, true
	case driver.Finished:
		return StopCompleted, true
	}
	return 0, false
}
