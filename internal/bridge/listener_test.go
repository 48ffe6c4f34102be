package bridge

import (
	"context"
	"errors"
	"net"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

func startListener(t *testing.T) (*Listener, <-chan Event) {
	t.Helper()

	events := make(chan Event, 64)
	l, err := Listen(context.Background(), "127.0.0.1:0", NewRouter(), func(ev Event) { events <- ev })
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l, events
}

func next(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func nextUnrouted(t *testing.T, events <-chan Event) Unrouted {
	t.Helper()
	ev := next(t, events)
	u, ok := ev.(Unrouted)
	if !ok {
		t.Fatalf("expected Unrouted, got %#v", ev)
	}
	return u
}

func port(t *testing.T, l *Listener) int {
	t.Helper()
	return l.Addr().(*net.UDPAddr).Port
}

func TestListenerRegisterControl(t *testing.T) {
	l, events := startListener(t)

	client := osc.NewClient("127.0.0.1", port(t, l))
	if err := client.Send(osc.NewMessage(ConfigPath, "/wave/freq", "f", "frequency")); err != nil {
		t.Fatal(err)
	}

	want := RegisterControl{SourcePath: "/wave/freq", TypeTag: "f", Name: "frequency"}
	if ev := next(t, events); ev != want {
		t.Errorf("expected %+v, got %#v", want, ev)
	}
}

func TestListenerGarbageThenValid(t *testing.T) {
	l, events := startListener(t)

	conn, err := net.Dial("udp", l.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("not osc at all")); err != nil {
		t.Fatal(err)
	}
	ev := next(t, events)
	diag, ok := ev.(Diagnostic)
	if !ok {
		t.Fatalf("expected Diagnostic, got %#v", ev)
	}
	if diag.Err == nil {
		t.Error("expected diagnostic error")
	}

	data, err := osc.NewMessage("/wave/amp", float32(0.5)).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Write(data); err != nil {
		t.Fatal(err)
	}

	u := nextUnrouted(t, events)
	want := Message{Path: "/wave/amp", Args: []Arg{Float(0.5)}}
	if !reflect.DeepEqual(u.Message, want) {
		t.Errorf("expected %v, got %v", want, u.Message)
	}
}

func TestListenerPreservesReceiptOrder(t *testing.T) {
	l, events := startListener(t)
	client := osc.NewClient("127.0.0.1", port(t, l))

	for i := int32(0); i < 20; i++ {
		if err := client.Send(osc.NewMessage("/seq", i)); err != nil {
			t.Fatal(err)
		}
	}
	for i := int32(0); i < 20; i++ {
		u := nextUnrouted(t, events)
		if want := []Arg{Int(i)}; !reflect.DeepEqual(u.Message.Args, want) {
			t.Fatalf("message %d: got %v", i, u.Message.Args)
		}
	}
}

func TestListenerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l, err := Listen(ctx, "127.0.0.1:0", NewRouter(), func(Event) {})
	if err != nil {
		t.Fatal(err)
	}

	cancel()
	select {
	case <-l.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("listener did not stop")
	}
	if err := l.Close(); err != nil {
		t.Errorf("close after cancel: %v", err)
	}
}

func TestListenerCloseIdempotent(t *testing.T) {
	l, err := Listen(context.Background(), "127.0.0.1:0", NewRouter(), func(Event) {})
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("first close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

func TestListenBindError(t *testing.T) {
	l, _ := startListener(t)
	if _, err := Listen(context.Background(), l.Addr().String(), NewRouter(), func(Event) {}); err == nil {
		t.Error("expected error binding a port in use")
	}
}

// failingConn is a PacketConn whose reads fail until it is closed.
type failingConn struct {
	net.PacketConn
	reads  atomic.Int64
	closed atomic.Bool
}

func (c *failingConn) ReadFrom([]byte) (int, net.Addr, error) {
	if c.closed.Load() {
		return 0, nil, net.ErrClosed
	}
	c.reads.Add(1)
	return 0, nil, errors.New("connection refused")
}

func (c *failingConn) Close() error {
	c.closed.Store(true)
	return nil
}

func TestListenerBacksOffOnReadErrors(t *testing.T) {
	conn := &failingConn{}
	var diagnostics atomic.Int64
	l := newListener(conn, NewRouter(), func(ev Event) {
		if _, ok := ev.(Diagnostic); ok {
			diagnostics.Add(1)
		}
	})
	go l.run()

	time.Sleep(300 * time.Millisecond)

	start := time.Now()
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("close waited %v for the retry delay", elapsed)
	}

	reads := conn.reads.Load()
	if reads == 0 {
		t.Fatal("expected the listener to read")
	}
	if reads > 50 {
		t.Errorf("expected backoff between failing reads, got %d reads in 300ms", reads)
	}
	if got := diagnostics.Load(); got != reads {
		t.Errorf("expected one diagnostic per failed read, got %d for %d reads", got, reads)
	}
}

func TestPeerSend(t *testing.T) {
	l, events := startListener(t)

	p, err := NewPeer(l.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Send(Message{Path: "/wave/freq", Args: []Arg{Float(220), String("saw")}}); err != nil {
		t.Fatalf("send: %v", err)
	}

	u := nextUnrouted(t, events)
	if u.Message.Path != "/wave/freq" {
		t.Errorf("path = %q", u.Message.Path)
	}
	if tags := u.Message.TypeTags(); tags != "fs" {
		t.Errorf("type tags = %q", tags)
	}
}

func TestNewPeerInvalid(t *testing.T) {
	if _, err := NewPeer("no-port"); err == nil {
		t.Error("expected error for address without port")
	}
}
