// Package controls keeps the user controls registered over OSC.
package controls

import (
	"fmt"

	"github.com/hypebeast/go-osc/osc"

	"github.com/benaskins/sketchrun/internal/bridge"
)

// Control is one value the user can send back to the sketch.
type Control struct {
	Name       string
	SourcePath string
	TypeTag    string
}

// Registry holds controls in first-registration order. Not safe for
// concurrent use; the consumer loop owns it.
type Registry struct {
	order  []string
	byName map[string]*Control
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Control)}
}

// Register adds a control, or replaces the path and type tag of an existing
// control with the same name. created is false for a replacement.
func (r *Registry) Register(ev bridge.RegisterControl) (Control, bool) {
	if c, ok := r.byName[ev.Name]; ok {
		c.SourcePath = ev.SourcePath
		c.TypeTag = ev.TypeTag
		return *c, false
	}

	c := &Control{Name: ev.Name, SourcePath: ev.SourcePath, TypeTag: ev.TypeTag}
	r.byName[ev.Name] = c
	r.order = append(r.order, ev.Name)
	return *c, true
}

// Get returns the named control.
func (r *Registry) Get(name string) (Control, bool) {
	c, ok := r.byName[name]
	if !ok {
		return Control{}, false
	}
	return *c, true
}

// All returns the controls in first-registration order.
func (r *Registry) All() []Control {
	out := make([]Control, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.byName[name])
	}
	return out
}

// Len returns the number of controls.
func (r *Registry) Len() int {
	return len(r.order)
}

// Encode builds the outbound message carrying text as the control's value.
func (r *Registry) Encode(name, text string) (*osc.Message, error) {
	c, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown control %q", name)
	}
	return c.Encode(text)
}

// Encode builds the outbound message for c. Unknown type tags send text as a
// string.
func (c Control) Encode(text string) (*osc.Message, error) {
	tag := byte('s')
	if len(c.TypeTag) == 1 {
		tag = c.TypeTag[0]
	}

	var arg bridge.Arg
	var err error
	switch tag {
	case 'f', 'd', 'i', 'h', 'T', 'F':
		arg, err = bridge.ParseArg(tag, text)
	default:
		arg = bridge.String(text)
	}
	if err != nil {
		return nil, fmt.Errorf("control %s: %w", c.Name, err)
	}

	return bridge.Message{Path: c.SourcePath, Args: []bridge.Arg{arg}}.OSC(), nil
}
