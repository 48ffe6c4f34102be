package lifecycle

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/benaskins/sketchrun/internal/driver"
)

func TestMachineTransitions(t *testing.T) {
	tests := []struct {
		name   string
		events []Event
		want   State
	}{
		{"initial", nil, Idle},
		{"start", []Event{Started}, Running},
		{"clean exit", []Event{Started, ExitedOK}, Success},
		{"failed exit", []Event{Started, ExitedErr}, Error},
		{"stopped", []Event{Started, StopCompleted}, Cancelled},
		{"restart after success", []Event{Started, ExitedOK, Started}, Running},
		{"restart after cancel", []Event{Started, StopCompleted, Started}, Running},
		{"exit while idle ignored", []Event{ExitedOK}, Idle},
		{"stop while idle ignored", []Event{StopCompleted}, Idle},
		{"spawn failure", []Event{SpawnFailed}, Error},
		{"spawn failure while running ignored", []Event{Started, SpawnFailed}, Running},
		{"late exit after cancel ignored", []Event{Started, StopCompleted, ExitedErr}, Cancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			for _, ev := range tt.events {
				m.Fire(ev)
			}
			if got := m.State(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMachineSpawnFailurePassesThroughRunning(t *testing.T) {
	m := New()
	got := m.Fire(SpawnFailed)

	want := []Transition{
		{From: Idle, To: Running, Cause: SpawnFailed},
		{From: Running, To: Error, Cause: SpawnFailed},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d transitions, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMachineControls(t *testing.T) {
	m := New()
	check := func(selected bool, want Controls) {
		t.Helper()
		if got := m.Controls(selected); got != want {
			t.Errorf("%v (selected=%v): expected %+v, got %+v", m.State(), selected, want, got)
		}
	}

	check(false, Controls{Launch: false, Stop: false, Browser: true})
	check(true, Controls{Launch: true, Stop: false, Browser: true})

	m.Fire(Started)
	check(true, Controls{Launch: false, Stop: true, Browser: false})

	m.Fire(StopCompleted)
	check(true, Controls{Launch: true, Stop: false, Browser: true})
}

func TestMachineNeverLeavesIdleForTerminal(t *testing.T) {
	events := []Event{Started, ExitedOK, ExitedErr, StopCompleted, SpawnFailed}

	rapid.Check(t, func(t *rapid.T) {
		seq := rapid.SliceOf(rapid.SampledFrom(events)).Draw(t, "events")

		m := New()
		for _, ev := range seq {
			before := m.State()
			for _, tr := range m.Fire(ev) {
				if tr.To.Terminal() && tr.From != Running {
					t.Fatalf("%v -> %v on %v skipped Running", tr.From, tr.To, ev)
				}
				if tr.From == tr.To {
					t.Fatalf("self transition %v on %v", tr.From, ev)
				}
			}
			if m.State() == Idle && before != Idle {
				t.Fatalf("machine returned to Idle from %v", before)
			}

			c := m.Controls(true)
			if (m.State() == Running) != c.Stop {
				t.Fatalf("stop control %v in state %v", c.Stop, m.State())
			}
			if c.Launch == c.Stop || c.Browser == c.Stop {
				t.Fatalf("inconsistent controls %+v in state %v", c, m.State())
			}
		}
	})
}

func TestFromDriver(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   Event
		mapped bool
	}{
		{"clean exit", driver.Exited{Status: driver.ExitStatus{Code: 0}}, ExitedOK, true},
		{"failed exit", driver.Exited{Status: driver.ExitStatus{Code: 1}}, ExitedErr, true},
		{"crash", driver.Exited{Status: driver.ExitStatus{Code: -1, Signal: "SIGSEGV"}}, ExitedErr, true},
		{"stopped exit waits for Finished", driver.Exited{Status: driver.ExitStatus{Code: -1, Signal: "SIGTERM", Stopped: true}}, 0, false},
		{"finished", driver.Finished{Forced: true}, StopCompleted, true},
		{"output", driver.OutputLine{Text: "hello"}, 0, false},
	}
	for _, tt := range tests {
		ev, ok := FromDriver(tt.in)
		if ok != tt.mapped {
			t.Errorf("%s: mapped = %v, want %v", tt.name, ok, tt.mapped)
			continue
		}
		if ok && ev != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, ev)
		}
	}
}
