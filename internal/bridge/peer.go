package bridge

import (
	"fmt"

	"github.com/hypebeast/go-osc/osc"

	"github.com/benaskins/sketchrun/internal/config"
)

// Peer sends OSC messages to a fixed host:port.
type Peer struct {
	addr   string
	client *osc.Client
}

// NewPeer returns a peer for addr in host:port form.
func NewPeer(addr string) (*Peer, error) {
	host, port, err := config.SplitPeer(addr)
	if err != nil {
		return nil, err
	}
	return &Peer{addr: addr, client: osc.NewClient(host, port)}, nil
}

// Addr returns the peer address.
func (p *Peer) Addr() string {
	return p.addr
}

// Send encodes and sends one message.
func (p *Peer) Send(m Message) error {
	return p.SendOSC(m.OSC())
}

// SendOSC sends an already built message.
func (p *Peer) SendOSC(msg *osc.Message) error {
	if err := p.client.Send(msg); err != nil {
		return fmt.Errorf("send %s to %s: %w", msg.Address, p.addr, err)
	}
	return nil
}
