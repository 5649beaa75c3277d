package glyph

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// createAction is the implicit action when a class target is invoked
// without an action name.
const createAction = "create"

// Keyword is a flag argument to an action. A Name with a trailing
// underscore selects splice encoding: the underscore is stripped, the
// flag is always emitted, and a sequence value is appended one token per
// element instead of as a single nested list.
type Keyword struct {
	Name  string
	Value any
}

// Command is an encoded action ready to be sent. Positional tokens come
// before flag tokens.
type Command struct {
	Target     string
	Action     string
	Positional []any
	Flags      []any
}

// Wire returns the JSON-serializable token list the server dispatches.
func (c Command) Wire() []any {
	tokens := make([]any, 0, 2+len(c.Positional)+len(c.Flags))
	tokens = append(tokens, c.Target, c.Action)
	tokens = append(tokens, c.Positional...)
	tokens = append(tokens, c.Flags...)
	return tokens
}

// Text returns the command as sent, for error reporting.
func (c Command) Text() string {
	b, err := json.Marshal(c.Wire())
	if err != nil {
		return fmt.Sprintf("%v", c.Wire())
	}
	return string(b)
}

// Encode builds the command for an action. Positional arguments keep
// their call order and their nesting; sequence-typed positionals become
// nested lists, never flattened. Keyword arguments become flag tokens
// after all positionals:
//
//	foo:  [a, b]            => -foo {a b}
//	foo_: [a, b]            => -foo a b
//	foo:  [[a, b], [c, d]]  => -foo {{a b} {c d}}
//	foo_: [[a, b], [c, d]]  => -foo {a b} {c d}
//	foo:  true              => -foo
//	foo_: true              => -foo true
//	foo:  false             => (omitted)
//	foo_: false             => -foo false
//
// Var arguments are replaced by their server-side names; the returned
// slice lists them in encounter order for read-back after the call.
func Encode(target Target, action string, args []any, kwargs []Keyword) (Command, []*Var, error) {
	if action == "" {
		if _, ok := target.(ClassTarget); !ok {
			return Command{}, nil, fmt.Errorf("action name is required for instance target %s", target.wireTarget())
		}
		action = createAction
	}

	cmd := Command{Target: target.wireTarget(), Action: action}
	var vars []*Var

	for _, arg := range args {
		tok, err := encodeValue(arg, &vars)
		if err != nil {
			return Command{}, nil, err
		}
		cmd.Positional = append(cmd.Positional, tok)
	}

	for _, kw := range kwargs {
		name := kw.Name
		splice := strings.HasSuffix(name, "_")
		if splice {
			name = strings.TrimSuffix(name, "_")
		}
		if name == "" {
			return Command{}, nil, fmt.Errorf("keyword argument has an empty name")
		}

		b, isBool := kw.Value.(bool)
		if !splice && isBool && !b {
			continue
		}

		tok, err := encodeValue(kw.Value, &vars)
		if err != nil {
			return Command{}, nil, err
		}

		cmd.Flags = append(cmd.Flags, "-"+name)
		switch {
		case splice:
			if seq, ok := tok.([]any); ok {
				cmd.Flags = append(cmd.Flags, seq...)
			} else {
				cmd.Flags = append(cmd.Flags, tok)
			}
		case !isBool:
			cmd.Flags = append(cmd.Flags, tok)
		}
	}

	return cmd, vars, nil
}

// encodeValue converts a native argument to its wire token. Vars are
// swapped for their server-side names and collected for read-back.
func encodeValue(v any, vars *[]*Var) (any, error) {
	switch arg := v.(type) {
	case nil:
		return "", nil
	case *Var:
		*vars = append(*vars, arg)
		return arg.Name(), nil
	case Handle:
		return arg.ID, nil
	case *Handle:
		return arg.ID, nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return arg, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			tok, err := encodeValue(rv.Index(i).Interface(), vars)
			if err != nil {
				return nil, err
			}
			out[i] = tok
		}
		return out, nil
	}
	return nil, fmt.Errorf("argument type %T cannot be encoded", v)
}
