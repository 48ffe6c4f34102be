// Package headless runs one sketch without a terminal UI, logging output and
// control traffic through slog.
package headless

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benaskins/sketchrun/internal/bridge"
	"github.com/benaskins/sketchrun/internal/controls"
	"github.com/benaskins/sketchrun/internal/driver"
	"github.com/benaskins/sketchrun/internal/lifecycle"
)

// Supervisor starts and stops the sketch.
type Supervisor interface {
	Start(ctx context.Context, sketch string) (*driver.Handle, error)
	Stop(ctx context.Context, grace time.Duration) error
}

// Loop consumes driver and bridge events for a single run.
type Loop struct {
	sup      Supervisor
	events   <-chan any
	grace    time.Duration
	machine  *lifecycle.Machine
	registry *controls.Registry
	logger   *slog.Logger
	runID    string
}

// New creates a loop reading events.
func New(sup Supervisor, events <-chan any, grace time.Duration) *Loop {
	return &Loop{
		sup:      sup,
		events:   events,
		grace:    grace,
		machine:  lifecycle.New(),
		registry: controls.NewRegistry(),
		logger:   slog.With("component", "headless"),
	}
}

// Run starts sketch and consumes events until the run ends. When ctx is
// cancelled the sketch is stopped and Run returns once the stop completes.
func (l *Loop) Run(ctx context.Context, sketch string) (lifecycle.State, error) {
	h, err := l.sup.Start(ctx, sketch)
	if err != nil {
		var spawnErr *driver.SpawnError
		if errors.As(err, &spawnErr) {
			l.fire(lifecycle.SpawnFailed)
		}
		return l.machine.State(), fmt.Errorf("starting sketch: %w", err)
	}
	l.runID = h.RunID
	l.fire(lifecycle.Started)

	stopping := false
	stopErr := make(chan error, 1)
	done := ctx.Done()

	for {
		select {
		case <-done:
			done = nil
			if !stopping {
				stopping = true
				l.logger.Info("stopping sketch", "reason", ctx.Err())
				go func() { stopErr <- l.sup.Stop(context.Background(), l.grace) }()
			}

		case err := <-stopErr:
			if err != nil {
				l.logger.Warn("stop failed", "error", err)
			}

		case ev, ok := <-l.events:
			if !ok {
				return l.machine.State(), errors.New("event queue closed")
			}
			l.handle(ev)
			if l.machine.State().Terminal() {
				return l.machine.State(), nil
			}
		}
	}
}

func (l *Loop) handle(ev any) {
	switch e := ev.(type) {
	case driver.OutputLine:
		if e.RunID == l.runID {
			l.logger.Info(e.Text, "stream", "sketch")
		}

	case driver.Exited:
		if e.RunID != l.runID {
			return
		}
		l.logger.Info("sketch exited", "status", e.Status.String())
		if lev, ok := lifecycle.FromDriver(e); ok {
			l.fire(lev)
		}

	case driver.Finished:
		if e.RunID != l.runID {
			return
		}
		l.logger.Info("finished", "forced", e.Forced)
		if lev, ok := lifecycle.FromDriver(e); ok {
			l.fire(lev)
		}

	case bridge.RegisterControl:
		c, created := l.registry.Register(e)
		l.logger.Info("control registered", "name", c.Name, "path", c.SourcePath, "type", c.TypeTag, "new", created)

	case bridge.Unrouted:
		l.logger.Info("osc message", "path", e.Message.Path, "types", e.Message.TypeTags(), "message", e.Message.String(), "malformed", e.Malformed)

	case bridge.Diagnostic:
		l.logger.Debug("undecodable datagram", "from", e.From, "error", e.Err)
	}
}

func (l *Loop) fire(ev lifecycle.Event) {
	for _, t := range l.machine.Fire(ev) {
		l.logger.Info("state changed", "from", t.From.String(), "to", t.To.String(), "cause", t.Cause.String())
	}
}

// Controls returns the controls registered during the run.
func (l *Loop) Controls() []controls.Control {
	return l.registry.All()
}
