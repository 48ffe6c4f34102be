package driver

import (
	"errors"
	"fmt"
	"time"
)

// State represents the lifecycle state of the supervised sketch process.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateFailed   State = "failed"
)

// ErrAlreadyRunning is returned by Start while a run is active.
var ErrAlreadyRunning = errors.New("sketch already running")

// ErrNotStarted is returned by Wait before the first Start.
var ErrNotStarted = errors.New("sketch not started")

// SpawnError reports that the runner executable could not be launched.
type SpawnError struct {
	Runner string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("launching %s: %v", e.Runner, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Handle identifies one running sketch process.
type Handle struct {
	RunID     string
	PID       int
	Pgid      int
	Sketch    string
	StartedAt time.Time
}

// ExitStatus is the final status of a run.
type ExitStatus struct {
	Code    int    `json:"code"`
	Signal  string `json:"signal,omitempty"`
	Stopped bool   `json:"stopped"` // a Stop call terminated the run
	Err     string `json:"error,omitempty"`
}

// Success reports whether the process exited on its own with code 0.
func (s ExitStatus) Success() bool {
	return s.Code == 0 && s.Signal == "" && s.Err == ""
}

func (s ExitStatus) String() string {
	switch {
	case s.Signal != "":
		return "killed by " + s.Signal
	case s.Err != "" && s.Code < 0:
		return s.Err
	default:
		return fmt.Sprintf("exit code %d", s.Code)
	}
}

// ProcessInfo holds runtime information about the supervised process.
type ProcessInfo struct {
	RunID     string
	PID       int
	State     State
	StartedAt time.Time
	Last      *ExitStatus
}

// OutputLine is one line of sketch output, delivered in production order.
type OutputLine struct {
	RunID string
	Text  string
}

// Exited is emitted once per run after the last OutputLine.
type Exited struct {
	RunID  string
	Status ExitStatus
}

// Finished is emitted once when a Stop call completes.
type Finished struct {
	RunID  string
	Forced bool // SIGKILL was needed
}

// Sink receives driver events. Emit is called from driver goroutines and must not block.
type Sink interface {
	Emit(event any)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(event any)

func (f SinkFunc) Emit(event any) { f(event) }
