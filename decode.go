package glyph

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/meshfabric/glyph-go/tcl"
)

// decodeValue converts a decoded JSON wire value into its native form:
// object descriptors and object names become Handles, numeric text
// becomes numbers, lists recurse with nesting preserved, and empty text
// becomes nil.
func decodeValue(reg *Registry, v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool, int, int64, float64:
		return val, nil
	case string:
		return decodeAtom(reg, val), nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			dec, err := decodeValue(reg, elem)
			if err != nil {
				return nil, err
			}
			out[i] = dec
		}
		return out, nil
	case map[string]any:
		return handleFromDescriptor(reg, val)
	default:
		return nil, &ProtocolError{Message: fmt.Sprintf("unexpected wire value of type %T", v)}
	}
}

// handleFromDescriptor wraps a server object descriptor in a Handle and
// teaches the registry its category.
func handleFromDescriptor(reg *Registry, m map[string]any) (Handle, error) {
	id, category, err := validateDescriptor(m)
	if err != nil {
		return Handle{}, &ProtocolError{Message: "bad object descriptor", Err: err}
	}
	h := Handle{ID: id, Category: category}
	if reg != nil {
		if prefix := classPrefix(id); prefix != "" {
			reg.Learn(prefix, CategoryInfo{Category: category})
		}
	}
	return h, nil
}

// decodeAtom converts a single text token: object names become Handles,
// integer and then float parses are attempted, empty text is nil, and
// anything else stays text.
func decodeAtom(reg *Registry, s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if IsObjectName(s) {
		return newHandle(reg, s)
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// decodeParsed applies atom decoding to a parsed Tcl value, recursing
// into lists.
func decodeParsed(reg *Registry, v any) (any, error) {
	switch val := v.(type) {
	case string:
		return decodeAtom(reg, val), nil
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			dec, err := decodeParsed(reg, elem)
			if err != nil {
				return nil, err
			}
			out[i] = dec
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected parsed value of type %T", v)
	}
}

// evaluator is the script surface variable read-back runs against.
type evaluator interface {
	Eval(ctx context.Context, script string) (string, error)
}

// readVar queries a variable slot after the action that wrote it, and
// decodes the contents into v.Value. A slot holding a Tcl array decodes
// to a map whose values are lists; any other slot decodes to a list,
// scalars included. A slot that was never written decodes to nil.
func readVar(ctx context.Context, ev evaluator, reg *Registry, v *Var) error {
	exists, err := evalBool(ctx, ev, fmt.Sprintf("info exists %s", v.Name()))
	if err != nil {
		return err
	}
	if !exists {
		v.Value = nil
		return nil
	}

	isArray, err := evalBool(ctx, ev, fmt.Sprintf("array exists %s", v.Name()))
	if err != nil {
		return err
	}

	var raw string
	if isArray {
		raw, err = ev.Eval(ctx, fmt.Sprintf("array get %s", v.Name()))
	} else {
		raw, err = ev.Eval(ctx, fmt.Sprintf("lrange $%s 0 end", v.Name()))
	}
	if err != nil {
		return err
	}

	parsed, err := tcl.Parse(raw)
	if err != nil {
		return &ProtocolError{Message: fmt.Sprintf("parsing variable %s", v.Name()), Err: err}
	}

	if isArray {
		m, err := arrayToMap(reg, parsed)
		if err != nil {
			return err
		}
		v.Value = m
		return nil
	}

	decoded, err := decodeParsed(reg, parsed)
	if err != nil {
		return err
	}
	if list, ok := decoded.([]any); ok {
		v.Value = list
	} else {
		v.Value = []any{decoded}
	}
	return nil
}

// arrayToMap converts the key/value pairs of "array get" output into a
// map. Every value is forced to a list so callers see one shape.
func arrayToMap(reg *Registry, parsed any) (map[string]any, error) {
	pairs, ok := parsed.([]any)
	if !ok {
		// A one-element list unwraps during parsing; a Tcl array dump
		// always has an even token count, so a bare token is corrupt.
		return nil, fmt.Errorf("variable holds a malformed array dump")
	}
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("variable array dump has %d tokens, expected an even count", len(pairs))
	}
	out := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("variable array key is not a plain token")
		}
		value, err := decodeParsed(reg, pairs[i+1])
		if err != nil {
			return nil, err
		}
		if list, ok := value.([]any); ok {
			out[key] = list
		} else {
			out[key] = []any{value}
		}
	}
	return out, nil
}

// unsetVars clears temporary variable slots in one round trip.
func unsetVars(ctx context.Context, ev evaluator, vars []*Var) error {
	var stmts []string
	for _, v := range vars {
		if !v.temp {
			continue
		}
		stmts = append(stmts, fmt.Sprintf("if [info exists %s] { unset %s }", v.Name(), v.Name()))
	}
	if len(stmts) == 0 {
		return nil
	}
	_, err := ev.Eval(ctx, strings.Join(stmts, "; "))
	return err
}

// evalBool runs a script whose result is a Tcl 0/1.
func evalBool(ctx context.Context, ev evaluator, script string) (bool, error) {
	out, err := ev.Eval(ctx, script)
	if err != nil {
		return false, err
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(out))
	if convErr != nil {
		return false, &ProtocolError{Message: fmt.Sprintf("expected 0/1 from %q, got %q", script, out)}
	}
	return n != 0, nil
}

// parseNameList splits the server's published command name list.
func parseNameList(raw string) (map[string]struct{}, error) {
	parsed, err := tcl.Parse(raw)
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{})
	var add func(v any) error
	add = func(v any) error {
		switch val := v.(type) {
		case string:
			names[val] = struct{}{}
			return nil
		case []any:
			for _, elem := range val {
				if err := add(elem); err != nil {
					return err
				}
			}
			return nil
		default:
			return fmt.Errorf("unexpected name token of type %T", v)
		}
	}
	if err := add(parsed); err != nil {
		return nil, err
	}
	return names, nil
}
