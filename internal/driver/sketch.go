package driver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

const (
	// DefaultGracePeriod is how long Stop waits for SIGTERM to take effect.
	DefaultGracePeriod = 5 * time.Second

	// defaultWaitDelay bounds how long a killed run may keep its output open.
	// Only a process that left the group can still hold it after SIGKILL.
	defaultWaitDelay = 2 * time.Second

	// groupPollInterval is how often a lingering process group is checked.
	groupPollInterval = 50 * time.Millisecond

	sketchPlaceholder = "{sketch}"
)

// SketchDriver supervises one Processing runner at a time.
type SketchDriver struct {
	runner    string
	args      []string
	env       []string
	grace     time.Duration
	waitDelay time.Duration
	sink      Sink
	logger    *slog.Logger

	// kill sends sig to pid; a negative pid addresses a process group.
	kill func(pid int, sig syscall.Signal) error

	mu            sync.Mutex
	cmd           *exec.Cmd
	handle        *Handle
	state         State
	last          *ExitStatus
	run           *run
	stopRequested bool
	stopDone      chan struct{}
}

// run is one launch attempt. status is written before done is closed.
type run struct {
	out    *os.File
	done   chan struct{}
	status ExitStatus
}

// SketchConfig holds configuration for the sketch runner.
type SketchConfig struct {
	Runner      string
	Args        []string // {sketch} is replaced with the sketch directory
	Env         []string // appended to the inherited environment
	GracePeriod time.Duration
	WaitDelay   time.Duration
}

// NewSketch creates a driver that reports output and lifecycle events to sink.
func NewSketch(cfg SketchConfig, sink Sink) *SketchDriver {
	grace := cfg.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	waitDelay := cfg.WaitDelay
	if waitDelay <= 0 {
		waitDelay = defaultWaitDelay
	}
	if sink == nil {
		sink = SinkFunc(func(any) {})
	}

	return &SketchDriver{
		runner:    cfg.Runner,
		args:      append([]string(nil), cfg.Args...),
		env:       append([]string(nil), cfg.Env...),
		grace:     grace,
		waitDelay: waitDelay,
		sink:      sink,
		logger:    slog.With("component", "driver"),
		kill:      unix.Kill,
		state:     StateStopped,
	}
}

// Start launches the runner for the sketch in a new session, so the runner and
// the JVM it forks share one process group. It returns once the process exists;
// output and exit are reported to the sink.
func (d *SketchDriver) Start(ctx context.Context, sketch string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.handle != nil {
		return nil, ErrAlreadyRunning
	}

	cmd := exec.Command(d.runner, expandArgs(d.args, sketch)...)
	if len(d.env) > 0 {
		cmd.Env = append(os.Environ(), d.env...)
	}

	// Both streams share one pipe so lines keep their relative order. The
	// stream closes only once every process holding the write end is gone.
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, d.spawnFailed(sketch, err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	// Setsid makes the runner a session and group leader, so -pgid reaches
	// the JVM it spawns as well.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	d.state = StateStarting

	err = cmd.Start()
	pw.Close()
	if err != nil {
		pr.Close()
		return nil, d.spawnFailed(sketch, err)
	}

	pid := cmd.Process.Pid
	pgid, err := unix.Getpgid(pid)
	if err != nil {
		pgid = pid
	}

	h := &Handle{
		RunID:     uuid.NewString(),
		PID:       pid,
		Pgid:      pgid,
		Sketch:    sketch,
		StartedAt: time.Now(),
	}

	d.cmd = cmd
	d.handle = h
	d.state = StateRunning
	d.stopRequested = false
	r := &run{out: pr, done: make(chan struct{})}
	d.run = r

	linesDone := make(chan struct{})
	go d.readLines(h.RunID, pr, linesDone)
	go d.reap(cmd, *h, r, linesDone)

	d.logger.Info("sketch started", "sketch", sketch, "pid", pid, "pgid", pgid, "run_id", h.RunID)

	out := *h
	return &out, nil
}

// spawnFailed records a launch that never produced a process. Called with d.mu held.
func (d *SketchDriver) spawnFailed(sketch string, err error) error {
	status := ExitStatus{Code: -1, Err: err.Error()}
	done := make(chan struct{})
	close(done)

	d.state = StateFailed
	d.last = &status
	d.run = &run{done: done, status: status}
	d.logger.Error("failed to launch sketch", "runner", d.runner, "sketch", sketch, "error", err)
	return &SpawnError{Runner: d.runner, Err: err}
}

func (d *SketchDriver) readLines(runID string, r io.ReadCloser, done chan<- struct{}) {
	defer close(done)
	defer r.Close()

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			d.sink.Emit(OutputLine{RunID: runID, Text: strings.TrimRight(line, "\r\n")})
		}
		if err != nil {
			return
		}
	}
}

// reap waits for the runner and for its output to close, then reports the
// exit. The run stays active until then, so a JVM still writing after the
// runner has gone keeps streaming and can still be stopped.
func (d *SketchDriver) reap(cmd *exec.Cmd, h Handle, r *run, linesDone <-chan struct{}) {
	status := exitStatus(cmd, cmd.Wait())
	d.logger.Debug("runner exited", "run_id", h.RunID, "status", status.String())

	<-linesDone

	d.mu.Lock()
	stopping := d.stopRequested
	d.mu.Unlock()
	if !stopping {
		d.sweepGroup(h)
	}

	d.mu.Lock()
	status.Stopped = d.stopRequested
	switch {
	case status.Stopped, status.Success():
		d.state = StateStopped
	default:
		d.state = StateFailed
	}
	d.last = &status
	r.status = status
	if !d.stopRequested {
		// A Stop in flight clears the handle itself once it completes.
		d.handle = nil
		d.cmd = nil
	}
	d.mu.Unlock()

	d.logger.Info("sketch exited", "run_id", h.RunID, "status", status.String(), "stopped", status.Stopped)
	d.sink.Emit(Exited{RunID: h.RunID, Status: status})
	close(r.done)
}

// sweepGroup terminates whatever is left of the run's process group after the
// runner exited on its own and the output closed: SIGTERM, then SIGKILL once
// the grace period has passed.
func (d *SketchDriver) sweepGroup(h Handle) {
	if !d.groupAlive(h) {
		return
	}
	d.logger.Warn("process group outlived runner, terminating it", "run_id", h.RunID, "pgid", h.Pgid)
	d.signal(h, unix.SIGTERM)
	if d.awaitGroupExit(h, d.grace) {
		return
	}
	d.signal(h, unix.SIGKILL)
	if !d.awaitGroupExit(h, d.waitDelay) {
		d.logger.Warn("process group still present after SIGKILL", "run_id", h.RunID, "pgid", h.Pgid)
	}
}

func (d *SketchDriver) groupAlive(h Handle) bool {
	if h.Pgid <= 1 || h.Pgid == unix.Getpgrp() {
		return false
	}
	return d.kill(-h.Pgid, 0) == nil
}

// awaitGroupExit polls until the group has no members or timeout passes. A
// Stop arriving meanwhile takes over the teardown.
func (d *SketchDriver) awaitGroupExit(h Handle, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for d.groupAlive(h) {
		d.mu.Lock()
		stopping := d.stopRequested
		d.mu.Unlock()
		if stopping {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(groupPollInterval)
	}
	return true
}

// awaitKilled waits for a run that has been sent SIGKILL. If something outside
// the group still holds the output open, the stream is closed from this side.
func (d *SketchDriver) awaitKilled(h Handle, r *run) {
	select {
	case <-r.done:
		return
	case <-time.After(d.waitDelay):
	}
	d.logger.Warn("output still open after SIGKILL, closing it", "run_id", h.RunID, "pgid", h.Pgid)
	r.out.Close()
	<-r.done
}

// Stop sends SIGTERM to the process group, waits up to grace, then sends SIGKILL
// and waits for exit unconditionally. It is a no-op when nothing is running, and
// a Stop that overlaps another waits for it without signaling again.
func (d *SketchDriver) Stop(ctx context.Context, grace time.Duration) error {
	if grace <= 0 {
		grace = d.grace
	}

	d.mu.Lock()
	if d.handle == nil {
		d.mu.Unlock()
		d.logger.Debug("stop: nothing running")
		return nil
	}
	if d.stopDone != nil {
		wait := d.stopDone
		d.mu.Unlock()
		select {
		case <-wait:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	h := *d.handle
	r := d.run
	stopDone := make(chan struct{})
	d.stopDone = stopDone
	d.stopRequested = true
	d.state = StateStopping
	d.mu.Unlock()

	d.logger.Info("stopping sketch", "run_id", h.RunID, "pgid", h.Pgid, "grace", grace)
	d.signal(h, unix.SIGTERM)

	var err error
	forced := false

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-r.done:
	case <-timer.C:
		d.logger.Warn("grace period exceeded, killing process group", "run_id", h.RunID, "pgid", h.Pgid)
		forced = true
		d.signal(h, unix.SIGKILL)
		d.awaitKilled(h, r)
	case <-ctx.Done():
		forced = true
		d.signal(h, unix.SIGKILL)
		d.awaitKilled(h, r)
		err = ctx.Err()
	}

	d.mu.Lock()
	if d.handle != nil && d.handle.RunID == h.RunID {
		d.handle = nil
		d.cmd = nil
	}
	d.stopDone = nil
	d.mu.Unlock()
	close(stopDone)

	d.sink.Emit(Finished{RunID: h.RunID, Forced: forced})
	return err
}

// signal delivers sig to the run's process group. ESRCH means the group is
// already gone, which is the expected outcome of a race with a natural exit.
func (d *SketchDriver) signal(h Handle, sig syscall.Signal) {
	target := -h.Pgid
	if h.Pgid <= 1 || h.Pgid == unix.Getpgrp() {
		// Never signal our own group.
		target = h.PID
	}

	if err := d.kill(target, sig); err != nil {
		if errors.Is(err, unix.ESRCH) {
			d.logger.Debug("process group already gone", "pgid", h.Pgid, "signal", unix.SignalName(sig))
			return
		}
		d.logger.Warn("failed to signal process group", "pgid", h.Pgid, "signal", unix.SignalName(sig), "error", err)
	}
}

// Wait blocks until the current or most recent run exits, or ctx is done. A
// launch that failed counts as a run that exited immediately.
func (d *SketchDriver) Wait(ctx context.Context) (ExitStatus, error) {
	d.mu.Lock()
	r := d.run
	d.mu.Unlock()

	if r == nil {
		return ExitStatus{}, ErrNotStarted
	}

	select {
	case <-r.done:
		return r.status, nil
	case <-ctx.Done():
		return ExitStatus{}, ctx.Err()
	}
}

// Active returns the handle of the running sketch, if any.
func (d *SketchDriver) Active() (Handle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handle == nil {
		return Handle{}, false
	}
	return *d.handle, true
}

// Info returns a snapshot of the driver state.
func (d *SketchDriver) Info() ProcessInfo {
	d.mu.Lock()
	defer d.mu.Unlock()

	info := ProcessInfo{State: d.state}
	if d.handle != nil {
		info.RunID = d.handle.RunID
		info.PID = d.handle.PID
		info.StartedAt = d.handle.StartedAt
	}
	if d.last != nil {
		last := *d.last
		info.Last = &last
	}
	return info
}

func expandArgs(tmpl []string, sketch string) []string {
	args := make([]string, len(tmpl))
	for i, a := range tmpl {
		args[i] = strings.ReplaceAll(a, sketchPlaceholder, sketch)
	}
	return args
}

func exitStatus(cmd *exec.Cmd, err error) ExitStatus {
	ps := cmd.ProcessState
	if ps == nil {
		msg := "unknown exit"
		if err != nil {
			msg = err.Error()
		}
		return ExitStatus{Code: -1, Err: msg}
	}

	st := ExitStatus{Code: ps.ExitCode()}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		st.Signal = unix.SignalName(ws.Signal())
		if st.Signal == "" {
			st.Signal = ws.Signal().String()
		}
	}
	return st
}
