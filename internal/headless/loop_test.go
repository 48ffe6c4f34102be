package headless

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benaskins/sketchrun/internal/bridge"
	"github.com/benaskins/sketchrun/internal/driver"
	"github.com/benaskins/sketchrun/internal/inject"
	"github.com/benaskins/sketchrun/internal/lifecycle"
)

func newShellLoop(t *testing.T, script string) (*Loop, *inject.Queue[any]) {
	t.Helper()
	q := inject.New[any]()
	t.Cleanup(q.Close)

	d := driver.NewSketch(driver.SketchConfig{
		Runner:      "sh",
		Args:        []string{"-c", script},
		GracePeriod: 2 * time.Second,
	}, driver.SinkFunc(func(ev any) { q.Push(ev) }))

	return New(d, q.C(), 2*time.Second), q
}

func runWithTimeout(t *testing.T, ctx context.Context, l *Loop) (lifecycle.State, error) {
	t.Helper()
	type result struct {
		state lifecycle.State
		err   error
	}
	res := make(chan result, 1)
	go func() {
		s, err := l.Run(ctx, "/sketches/wave")
		res <- result{s, err}
	}()
	select {
	case r := <-res:
		return r.state, r.err
	case <-time.After(10 * time.Second):
		t.Fatal("loop did not finish")
		return 0, nil
	}
}

func checkRun(t *testing.T, state lifecycle.State, err error, want lifecycle.State) {
	t.Helper()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if state != want {
		t.Errorf("expected %v, got %v", want, state)
	}
}

func TestRunSuccess(t *testing.T) {
	l, _ := newShellLoop(t, "echo hello; exit 0")
	state, err := runWithTimeout(t, context.Background(), l)
	checkRun(t, state, err, lifecycle.Success)
}

func TestRunFailure(t *testing.T) {
	l, _ := newShellLoop(t, "echo boom >&2; exit 3")
	state, err := runWithTimeout(t, context.Background(), l)
	checkRun(t, state, err, lifecycle.Error)
}

func TestRunCancelledStopsSketch(t *testing.T) {
	l, _ := newShellLoop(t, "echo ready; sleep 30")
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	state, err := runWithTimeout(t, ctx, l)
	checkRun(t, state, err, lifecycle.Cancelled)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancel took %v", elapsed)
	}
}

func TestRunSpawnFailure(t *testing.T) {
	q := inject.New[any]()
	defer q.Close()
	d := driver.NewSketch(driver.SketchConfig{Runner: "/nonexistent/processing-java"}, driver.SinkFunc(func(ev any) { q.Push(ev) }))

	state, err := New(d, q.C(), time.Second).Run(context.Background(), "/sketches/wave")
	var spawnErr *driver.SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("expected *driver.SpawnError, got %v", err)
	}
	if state != lifecycle.Error {
		t.Errorf("expected Error, got %v", state)
	}
}

type scriptedSupervisor struct {
	events chan any
	script []any
}

func (s *scriptedSupervisor) Start(context.Context, string) (*driver.Handle, error) {
	for _, ev := range s.script {
		s.events <- ev
	}
	return &driver.Handle{RunID: "run-1"}, nil
}

func (s *scriptedSupervisor) Stop(context.Context, time.Duration) error { return nil }

func TestRunRecordsControlsAndIgnoresStaleEvents(t *testing.T) {
	events := make(chan any, 16)
	sup := &scriptedSupervisor{events: events, script: []any{
		bridge.RegisterControl{SourcePath: "/wave/freq", TypeTag: "f", Name: "frequency"},
		bridge.Unrouted{Message: bridge.Message{Path: "/wave/amp", Args: []bridge.Arg{bridge.Float(0.5)}}},
		bridge.Diagnostic{From: "127.0.0.1:1", Err: errors.New("bad")},
		driver.Exited{RunID: "old-run", Status: driver.ExitStatus{Code: 1}},
		driver.OutputLine{RunID: "run-1", Text: "frame 1"},
		driver.Exited{RunID: "run-1", Status: driver.ExitStatus{Code: 0}},
	}}

	l := New(sup, events, time.Second)
	state, err := l.Run(context.Background(), "/sketches/wave")
	checkRun(t, state, err, lifecycle.Success)

	ctrls := l.Controls()
	if len(ctrls) != 1 || ctrls[0].Name != "frequency" {
		t.Errorf("expected the frequency control, got %+v", ctrls)
	}
}

func TestRunQueueClosed(t *testing.T) {
	events := make(chan any)
	close(events)
	sup := &scriptedSupervisor{}

	state, err := New(sup, events, time.Second).Run(context.Background(), "/sketches/wave")
	if err == nil {
		t.Error("expected error when the event queue closes mid-run")
	}
	if state != lifecycle.Running {
		t.Errorf("expected Running, got %v", state)
	}
}
