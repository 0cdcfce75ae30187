package lsp

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/coffeeidx/internal/definition"
	"github.com/alucardeht/coffeeidx/internal/parser"
)

func outline(t *testing.T, src string) []definition.Definition {
	t.Helper()
	o := parser.ExtractSource("f1.coffee", src)
	require.NoError(t, o.Validate())
	return o.Definitions
}

func TestDocumentSymbols_Nesting(t *testing.T) {
	defs := outline(t, "class Foo\n  constructor: (@name) ->\n  bar: (x) -> x + 1\nadd = (a) -> a\n")

	syms := DocumentSymbols(defs)
	require.Len(t, syms, 2)

	foo := syms[0]
	assert.Equal(t, "Foo", foo.Name)
	assert.Equal(t, SymbolKindClass, foo.Kind)
	assert.Equal(t, Range{Start: Position{0, 6}, End: Position{0, 9}}, foo.Range)

	var kinds []string
	for _, c := range foo.Children {
		kinds = append(kinds, c.Name+":"+c.Kind.String())
	}
	assert.ElementsMatch(t, []string{"constructor:constructor", "name:field", "bar:method"}, kinds)

	add := syms[1]
	assert.Equal(t, SymbolKindFunction, add.Kind)
	require.Len(t, add.Children, 1)
	assert.Equal(t, "a", add.Children[0].Name)
	assert.Equal(t, SymbolKindVariable, add.Children[0].Kind)
}

func TestDocumentSymbols_OrphansStayOnTop(t *testing.T) {
	syms := DocumentSymbols([]definition.Definition{
		{ID: "M4", Name: "bar", Kind: definition.Method, Scope: definition.ClassMember, ParentID: "C0",
			Position: definition.Position{Start: 4, End: 7, Line: 2, Column: 3}},
	})
	require.Len(t, syms, 1)
	assert.Equal(t, "bar", syms[0].Name)
	assert.Equal(t, Range{Start: Position{1, 2}, End: Position{1, 5}}, syms[0].Range)
}

func TestSymbolInformations(t *testing.T) {
	defs := outline(t, "class Foo\n  bar: -> 1\n")
	infos := SymbolInformations(defs, func(file string) string { return "file:///p/" + file }, nil)

	require.Len(t, infos, 2)
	assert.Equal(t, "", infos[0].ContainerName)
	assert.Equal(t, "Foo", infos[1].ContainerName)
	assert.Equal(t, "file:///p/f1.coffee", infos[1].Location.URI)
	assert.Equal(t, SymbolKindMethod, infos[1].Kind)
}

func TestFileURI_RoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	path := filepath.Join("/", "tmp", "my project", "a.coffee")
	uri := FileURI(path)
	assert.Equal(t, "file:///tmp/my%20project/a.coffee", uri)

	back, err := PathFromURI(uri)
	require.NoError(t, err)
	assert.Equal(t, path, back)

	_, err = PathFromURI("https://example.com/a.coffee")
	assert.ErrorIs(t, err, ErrNotFileURI)
}
