package glyph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeConnectorSplit(t *testing.T) {
	con := Handle{ID: "::pw::Connector_1", Category: "pw::Connector"}
	cmd, vars, err := Encode(con, "split", []any{[]any{0.5}}, []Keyword{{Name: "I", Value: 10}})
	require.NoError(t, err)
	assert.Empty(t, vars)
	assert.Equal(t,
		[]any{"::pw::Connector_1", "split", []any{0.5}, "-I", 10},
		cmd.Wire())
}

func TestEncodePositionalsPrecedeFlags(t *testing.T) {
	cmd, _, err := Encode(Class("Application"), "export",
		[]any{"file.pw", []any{1, 2}},
		[]Keyword{{Name: "precision", Value: "Double"}, {Name: "strict", Value: true}})
	require.NoError(t, err)
	assert.Equal(t,
		[]any{"pw::Application", "export", "file.pw", []any{1, 2}, "-precision", "Double", "-strict"},
		cmd.Wire())
}

func TestEncodeBooleanFlags(t *testing.T) {
	// foo=true  => -foo          foo=false  => omitted
	// foo_=true => -foo true     foo_=false => -foo false
	cmd, _, err := Encode(Class("Grid"), "check", nil, []Keyword{
		{Name: "a", Value: true},
		{Name: "b", Value: false},
		{Name: "c_", Value: true},
		{Name: "d_", Value: false},
	})
	require.NoError(t, err)
	assert.Equal(t,
		[]any{"pw::Grid", "check", "-a", "-c", true, "-d", false},
		cmd.Wire())
}

func TestEncodeSpliceFlags(t *testing.T) {
	// arg=[s1 s2]  => -arg {s1 s2}
	// arg_=[s1 s2] => -arg s1 s2
	nested, _, err := Encode(Class("Grid"), "order", nil, []Keyword{
		{Name: "ents", Value: []any{"s1", "s2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"pw::Grid", "order", "-ents", []any{"s1", "s2"}}, nested.Wire())

	spliced, _, err := Encode(Class("Grid"), "order", nil, []Keyword{
		{Name: "ents_", Value: []any{"s1", "s2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"pw::Grid", "order", "-ents", "s1", "s2"}, spliced.Wire())

	deep, _, err := Encode(Class("Grid"), "order", nil, []Keyword{
		{Name: "pts_", Value: [][]any{{"a", "b"}, {"c", "d"}}},
	})
	require.NoError(t, err)
	assert.Equal(t,
		[]any{"pw::Grid", "order", "-pts", []any{"a", "b"}, []any{"c", "d"}},
		deep.Wire())
}

func TestEncodeNestedPositionalKeepsStructure(t *testing.T) {
	cmd, _, err := Encode(Class("Connector"), "setPosition",
		[]any{[][]float64{{0, 0, 1}, {0, 1, 0}}}, nil)
	require.NoError(t, err)
	assert.Equal(t,
		[]any{"pw::Connector", "setPosition", []any{[]any{0.0, 0.0, 1.0}, []any{0.0, 1.0, 0.0}}},
		cmd.Wire())
}

func TestEncodeImplicitCreate(t *testing.T) {
	cmd, _, err := Encode(Class("Connector"), "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"pw::Connector", "create"}, cmd.Wire())

	_, _, err = Encode(Handle{ID: "::pw::Connector_1"}, "", nil, nil)
	assert.Error(t, err, "instance targets have no implicit action")
}

func TestEncodeHandleAndVarTokens(t *testing.T) {
	h := Handle{ID: "::pw::Domain_3", Category: "pw::Domain"}
	v := NewVar()
	cmd, vars, err := Encode(Class("Display"), "selectEntities", []any{v}, []Keyword{
		{Name: "selectionmask", Value: h},
	})
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Same(t, v, vars[0])
	assert.Equal(t,
		[]any{"pw::Display", "selectEntities", v.Name(), "-selectionmask", "::pw::Domain_3"},
		cmd.Wire())
}

func TestEncodeVarInsideSequence(t *testing.T) {
	v := NamedVar("myslot")
	cmd, vars, err := Encode(Class("Display"), "probe", []any{[]any{v, "x"}}, nil)
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, "myslot", vars[0].Name())
	assert.Equal(t, []any{"pw::Display", "probe", []any{"myslot", "x"}}, cmd.Wire())
}

func TestEncodeRejectsUnsupportedTypes(t *testing.T) {
	_, _, err := Encode(Class("Grid"), "check", []any{map[string]int{"a": 1}}, nil)
	assert.Error(t, err)

	_, _, err = Encode(Class("Grid"), "check", nil, []Keyword{{Name: "", Value: 1}})
	assert.Error(t, err)
}

func TestCommandText(t *testing.T) {
	cmd, _, err := Encode(Class("Application"), "save", []any{"grid.pw"}, nil)
	require.NoError(t, err)
	assert.Equal(t, `["pw::Application","save","grid.pw"]`, cmd.Text())
}

func TestVarNamesAreUnique(t *testing.T) {
	a, b := NewVar(), NewVar()
	assert.NotEqual(t, a.Name(), b.Name())
	assert.NotContains(t, a.Name(), "-")
}
