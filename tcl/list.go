// Package tcl parses and quotes Tcl list syntax.
//
// The Glyph server speaks Tcl: variable read-back and several escape-hatch
// queries return brace-nested Tcl lists rather than JSON. This package turns
// those into nested Go values (strings and []any, nested to arbitrary depth)
// and provides the quoting helpers needed to embed words in eval scripts.
package tcl

import (
	"fmt"
	"strings"
)

// Parse converts a Tcl list (or a single value) into a Go value. Elements
// stay strings; braced sublists become []any, nested to the same depth as
// the input. A list with a single element unwraps to that element.
//
//	{ { 0 0 1 } { 0 1 0 } }  =>  [["0" "0" "1"] ["0" "1" "0"]]
//	0.0 1.0 ::pw::Surface_1  =>  ["0.0" "1.0" "::pw::Surface_1"]
func Parse(s string) (any, error) {
	stack := [][]any{{}}
	var element strings.Builder
	escape := false

	flush := func() {
		if element.Len() > 0 {
			stack[len(stack)-1] = append(stack[len(stack)-1], element.String())
			element.Reset()
		}
	}

	for _, ch := range s {
		switch {
		case escape:
			switch ch {
			case '\\', '{', '}', '[', ']', '$':
				element.WriteRune(ch)
			default:
				return nil, fmt.Errorf("invalid escape character %q", ch)
			}
			escape = false
		case ch == '\\':
			escape = true
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			flush()
		case ch == '{':
			flush()
			stack = append(stack, []any{})
		case ch == '}':
			if len(stack) < 2 {
				return nil, fmt.Errorf("close bracket without opening bracket")
			}
			flush()
			closed := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			stack[len(stack)-1] = append(stack[len(stack)-1], closed)
		default:
			element.WriteRune(ch)
		}
	}
	if escape {
		return nil, fmt.Errorf("trailing escape character")
	}
	flush()
	if len(stack) != 1 {
		return nil, fmt.Errorf("mismatched brackets")
	}
	out := stack[0]
	if len(out) == 1 {
		return out[0], nil
	}
	return out, nil
}

// Quote escapes a word so it survives as a single token inside an eval
// script. Words with no special characters pass through unchanged.
func Quote(word string) string {
	if word == "" {
		return "{}"
	}
	if !strings.ContainsAny(word, " \t\r\n{}[]$\"\\;") {
		return word
	}
	var b strings.Builder
	for _, ch := range word {
		switch ch {
		case ' ', '\t', '{', '}', '[', ']', '$', '"', '\\', ';':
			b.WriteByte('\\')
			b.WriteRune(ch)
		case '\r':
			b.WriteString(`\r`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}
