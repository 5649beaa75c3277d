package glyph

import (
	"strings"

	"github.com/google/uuid"
)

// Var is a named server-side slot an action writes an auxiliary result
// into. Create one, pass it as an argument, and after the call completes
// Value holds the slot's decoded contents. Slots are not destroyed
// explicitly; temporaries are unset after read-back and anything else
// lives until the server session ends.
type Var struct {
	name string
	// Value is the decoded slot contents, populated after the call that
	// wrote the slot returns. A slot that was never written decodes to
	// nil. Array-valued slots decode to map[string]any with list values.
	Value any
	// temp marks auto-named vars for unset after read-back.
	temp bool
}

// NewVar creates a variable reference with a fresh collision-free name.
func NewVar() *Var {
	name := "_tmp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	return &Var{name: name, temp: true}
}

// NamedVar creates a variable reference bound to a caller-chosen server
// variable name. Named slots are left in place after read-back.
func NamedVar(name string) *Var {
	return &Var{name: name}
}

// Name returns the server-side variable name.
func (v *Var) Name() string {
	return v.name
}
