package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// maxDatagram is the largest UDP payload.
const maxDatagram = 65535

// Listener reads OSC datagrams on a background goroutine and pushes one event
// per message. It never touches consumer state.
type Listener struct {
	conn    net.PacketConn
	router  *Router
	push    func(Event)
	logger  *slog.Logger
	limiter *rate.Limiter
	retry   backoff.BackOff

	closeOnce sync.Once
	closing   chan struct{}
	done      chan struct{}
}

// Listen binds addr (for example ":9000") and starts receiving. Every decoded
// message is dispatched through router and handed to push in receipt order.
// The listener closes when ctx is done or Close is called.
func Listen(ctx context.Context, addr string, router *Router, push func(Event)) (*Listener, error) {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen osc %s: %w", addr, err)
	}

	l := newListener(conn, router, push)
	go l.run()
	go func() {
		select {
		case <-ctx.Done():
			l.Close()
		case <-l.done:
		}
	}()

	l.logger.Info("osc listener started", "addr", conn.LocalAddr().String())
	return l, nil
}

func newListener(conn net.PacketConn, router *Router, push func(Event)) *Listener {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 5 * time.Millisecond
	retry.MaxInterval = time.Second
	retry.MaxElapsedTime = 0

	return &Listener{
		conn:    conn,
		router:  router,
		push:    push,
		logger:  slog.With("component", "bridge"),
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		retry:   retry,
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Done is closed once the receive goroutine has returned.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Close stops the listener and waits for the receive goroutine.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closing)
		err = l.conn.Close()
	})
	<-l.done
	return err
}

func (l *Listener) run() {
	defer close(l.done)

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := l.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				l.logger.Debug("osc listener stopped")
				return
			}
			l.diagnose("", fmt.Errorf("read: %w", err))
			// Socket errors tend to repeat; back off instead of spinning.
			select {
			case <-time.After(l.retry.NextBackOff()):
			case <-l.closing:
				return
			}
			continue
		}
		l.retry.Reset()

		msgs, err := Decode(buf[:n])
		if err != nil {
			l.diagnose(from.String(), err)
			continue
		}
		for _, m := range msgs {
			l.push(l.router.Dispatch(m))
		}
	}
}

func (l *Listener) diagnose(from string, err error) {
	if l.limiter.Allow() {
		l.logger.Warn("undecodable datagram", "from", from, "error", err)
	}
	l.push(Diagnostic{From: from, Err: err})
}
