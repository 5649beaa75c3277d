package glyph

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Target is the receiver of an action: a class for static actions or a
// handle for instance actions.
type Target interface {
	// wireTarget is the token naming the receiver in a command.
	wireTarget() string
	// class is the server class the action dispatches against.
	class() string
}

// ClassTarget dispatches static actions against a server class, e.g.
// "pw::Connector".
type ClassTarget string

// Class makes a class target. Bare names get the "pw::" prefix, so
// Class("Connector") and Class("pw::Connector") are the same target.
func Class(name string) ClassTarget {
	if !strings.Contains(name, "::") {
		name = "pw::" + name
	}
	return ClassTarget(name)
}

// Nested returns the target for a class published under this one.
func (c ClassTarget) Nested(name string) ClassTarget {
	return ClassTarget(string(c) + "::" + name)
}

func (c ClassTarget) wireTarget() string { return string(c) }
func (c ClassTarget) class() string      { return string(c) }

// Object binds a target to the client that dispatches its actions.
type Object struct {
	client *Client
	target Target
}

// Class returns an object for static actions on a server class.
func (c *Client) Class(name string) *Object {
	return &Object{client: c, target: Class(name)}
}

// Object returns an object for instance actions on a handle.
func (c *Client) Object(h Handle) *Object {
	return &Object{client: c, target: h}
}

// Handle returns the handle behind an instance object, or the zero
// handle for a class object.
func (o *Object) Handle() Handle {
	if h, ok := o.target.(Handle); ok {
		return h
	}
	return Handle{}
}

// Action starts building a call to the named action.
func (o *Object) Action(name string) *Call {
	return &Call{obj: o, action: name}
}

// Create invokes the class's implicit create action with the given
// positional arguments.
func (o *Object) Create(ctx context.Context, args ...any) (any, error) {
	call := &Call{obj: o}
	for _, a := range args {
		call.Arg(a)
	}
	return call.Invoke(ctx)
}

// Call accumulates the arguments of one action invocation. Positional
// arguments always precede flags in the emitted command, whatever order
// the builder methods are called in.
type Call struct {
	obj    *Object
	action string
	args   []any
	kwargs []Keyword
}

// Arg appends a positional argument. Sequences keep their nesting.
func (c *Call) Arg(v any) *Call {
	c.args = append(c.args, v)
	return c
}

// Args appends several positional arguments.
func (c *Call) Args(vs ...any) *Call {
	c.args = append(c.args, vs...)
	return c
}

// Flag appends a flag argument. False omits the flag, true emits it
// bare, anything else emits the flag followed by one value token. A
// trailing underscore on the name selects splice encoding, see Keyword.
func (c *Call) Flag(name string, v any) *Call {
	c.kwargs = append(c.kwargs, Keyword{Name: name, Value: v})
	return c
}

// FlagEach appends a flag whose items are spliced one token apiece
// rather than nested as a single list.
func (c *Call) FlagEach(name string, items ...any) *Call {
	return c.Flag(name+"_", items)
}

// Var appends a variable reference the action writes into. The slot is
// read back and decoded into v.Value when Invoke returns.
func (c *Call) Var(v *Var) *Call {
	return c.Arg(v)
}

// Invoke encodes the call, runs the round trip, decodes the primary
// result, and reads back any variable references. It blocks until the
// server finishes: no partial or streaming results exist.
func (c *Call) Invoke(ctx context.Context) (any, error) {
	cmd, vars, err := Encode(c.obj.target, c.action, c.args, c.kwargs)
	if err != nil {
		return nil, err
	}
	return c.obj.client.invoke(ctx, cmd, vars)
}

// API is the set of class names the connected server publishes. It lets
// callers validate a class before building calls against it.
type API struct {
	client *Client
	names  map[string]struct{}
}

// API queries the server for its published command classes.
func (c *Client) API(ctx context.Context) (*API, error) {
	raw, err := c.Eval(ctx, "pw::Application getAllCommandNames")
	if err != nil {
		return nil, err
	}
	names, err := parseNameList(raw)
	if err != nil {
		return nil, &ProtocolError{Message: "parsing command name list", Err: err}
	}
	return &API{client: c, names: names}, nil
}

// Class returns an object for the named class, failing when the server
// does not publish it. Bare names get the "pw::" prefix.
func (a *API) Class(name string) (*Object, error) {
	target := Class(name)
	if _, ok := a.names[string(target)]; !ok {
		return nil, fmt.Errorf("server does not publish class %q", string(target))
	}
	return &Object{client: a.client, target: target}, nil
}

// Names returns the published class names, sorted.
func (a *API) Names() []string {
	out := make([]string, 0, len(a.names))
	for n := range a.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
