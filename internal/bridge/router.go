// Package bridge receives OSC control messages over UDP and turns them into
// typed events for the consumer loop.
package bridge

import (
	"log/slog"
	"sync"
)

// ConfigPath registers a control: source path, type tag, display name.
const ConfigPath = "/osc/config"

// Event is produced by the router or the listener.
type Event interface {
	bridgeEvent()
}

// RegisterControl asks the consumer to create a control for SourcePath.
type RegisterControl struct {
	SourcePath string
	TypeTag    string
	Name       string
}

// Unrouted is a message no route handled. Malformed is set when the path was
// registered but the arguments did not match its signature.
type Unrouted struct {
	Message   Message
	Malformed bool
}

// Diagnostic reports a datagram that could not be decoded.
type Diagnostic struct {
	From string
	Err  error
}

func (RegisterControl) bridgeEvent() {}
func (Unrouted) bridgeEvent()        {}
func (Diagnostic) bridgeEvent()      {}

// Route decodes messages whose type tags equal Signature exactly.
type Route struct {
	Signature string
	Decode    func(Message) Event
}

// Router dispatches messages by path.
type Router struct {
	mu     sync.RWMutex
	routes map[string]Route
	logger *slog.Logger
}

// NewRouter returns a router with the /osc/config route installed.
func NewRouter() *Router {
	r := &Router{
		routes: make(map[string]Route),
		logger: slog.With("component", "bridge"),
	}
	r.Handle(ConfigPath, Route{Signature: "sss", Decode: decodeRegisterControl})
	return r
}

// Handle installs or replaces the route for path.
func (r *Router) Handle(path string, route Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[path] = route
}

// Dispatch returns the event for m. It never returns nil: anything a route
// does not accept goes to the fallback as Unrouted.
func (r *Router) Dispatch(m Message) Event {
	r.mu.RLock()
	route, ok := r.routes[m.Path]
	r.mu.RUnlock()

	if !ok {
		return Unrouted{Message: m}
	}
	if got := m.TypeTags(); got != route.Signature {
		r.logger.Warn("malformed control message", "path", m.Path, "want", route.Signature, "got", got)
		return Unrouted{Message: m, Malformed: true}
	}
	if ev := route.Decode(m); ev != nil {
		return ev
	}
	return Unrouted{Message: m}
}

func decodeRegisterControl(m Message) Event {
	return RegisterControl{
		SourcePath: string(m.Args[0].(String)),
		TypeTag:    string(m.Args[1].(String)),
		Name:       string(m.Args[2].(String)),
	}
}
