package bridge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hypebeast/go-osc/osc"
)

// Message is one decoded control message.
type Message struct {
	Path string
	Args []Arg
}

// TypeTags returns the OSC type signature of the arguments, without the
// leading comma.
func (m Message) TypeTags() string {
	var b strings.Builder
	for _, a := range m.Args {
		b.WriteByte(a.Tag())
	}
	return b.String()
}

func (m Message) String() string {
	if len(m.Args) == 0 {
		return m.Path
	}
	parts := make([]string, len(m.Args))
	for i, a := range m.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s ,%s %s", m.Path, m.TypeTags(), strings.Join(parts, " "))
}

// OSC converts m to an encodable message.
func (m Message) OSC() *osc.Message {
	msg := osc.NewMessage(m.Path)
	for _, a := range m.Args {
		msg.Append(a.value())
	}
	return msg
}

var errNotOSC = errors.New("not an OSC packet")

// Decode parses one datagram. Bundles are flattened depth first: a bundle's
// messages come before its nested bundles.
func Decode(data []byte) ([]Message, error) {
	if len(data) == 0 {
		return nil, errNotOSC
	}
	p, err := osc.ParsePacket(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse packet: %w", err)
	}

	var out []Message
	if err := flatten(p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(p osc.Packet, out *[]Message) error {
	switch pk := p.(type) {
	case *osc.Message:
		m, err := fromOSCMessage(pk)
		if err != nil {
			return err
		}
		*out = append(*out, m)
	case *osc.Bundle:
		for _, msg := range pk.Messages {
			if err := flatten(msg, out); err != nil {
				return err
			}
		}
		for _, b := range pk.Bundles {
			if err := flatten(b, out); err != nil {
				return err
			}
		}
	default:
		return errNotOSC
	}
	return nil
}

func fromOSCMessage(msg *osc.Message) (Message, error) {
	if msg == nil || !strings.HasPrefix(msg.Address, "/") {
		return Message{}, errNotOSC
	}
	m := Message{Path: msg.Address, Args: make([]Arg, 0, len(msg.Arguments))}
	for _, v := range msg.Arguments {
		a, err := FromOSC(v)
		if err != nil {
			return Message{}, fmt.Errorf("%s: %w", msg.Address, err)
		}
		m.Args = append(m.Args, a)
	}
	return m, nil
}
