// Package lsp maps index definitions onto Language Server Protocol symbols so
// the index can serve editors directly.
package lsp

import (
	"errors"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/alucardeht/coffeeidx/internal/definition"
)

var ErrNotFileURI = errors.New("not a file URI")

// KindOf picks the closest LSP symbol kind for d.
func KindOf(d definition.Definition) SymbolKind {
	switch d.Kind {
	case definition.Class:
		return SymbolKindClass
	case definition.Method:
		if d.Scope == definition.Root {
			return SymbolKindFunction
		}
		if d.Name == "constructor" {
			return SymbolKindConstructor
		}
		return SymbolKindMethod
	case definition.Field:
		if d.Scope == definition.ClassMember {
			return SymbolKindField
		}
		return SymbolKindVariable
	default:
		return SymbolKindVariable
	}
}

// RangeOf is the range of d's name token.
func RangeOf(d definition.Definition) Range {
	line := d.Position.Line - 1
	char := d.Position.Column - 1
	if line < 0 {
		line = 0
	}
	if char < 0 {
		char = 0
	}
	return Range{
		Start: Position{Line: line, Character: char},
		End:   Position{Line: line, Character: char + d.Position.End - d.Position.Start},
	}
}

// DocumentSymbols nests the definitions of one file under their parents.
// Definitions whose parent is not in defs stay at the top level.
func DocumentSymbols(defs []definition.Definition) []DocumentSymbol {
	present := make(map[string]bool, len(defs))
	children := make(map[string][]definition.Definition)
	for _, d := range defs {
		present[d.ID] = true
	}
	var top []definition.Definition
	for _, d := range defs {
		if d.HasParent() && present[d.ParentID] {
			children[d.ParentID] = append(children[d.ParentID], d)
			continue
		}
		top = append(top, d)
	}

	var build func(ds []definition.Definition) []DocumentSymbol
	build = func(ds []definition.Definition) []DocumentSymbol {
		out := make([]DocumentSymbol, 0, len(ds))
		for _, d := range ds {
			r := RangeOf(d)
			out = append(out, DocumentSymbol{
				Name:           d.Name,
				Detail:         d.Scope.String() + " " + d.Kind.String(),
				Kind:           KindOf(d),
				Range:          r,
				SelectionRange: r,
				Children:       build(children[d.ID]),
			})
		}
		return out
	}
	return build(top)
}

// SymbolInformations flattens defs for workspace/symbol. uriOf maps a file
// handle to a document URI; containerOf names the parent of a definition and
// may be nil, in which case parents are looked up among defs only.
func SymbolInformations(defs []definition.Definition, uriOf func(file string) string, containerOf func(definition.Definition) string) []SymbolInformation {
	if containerOf == nil {
		type ref struct{ file, id string }
		names := make(map[ref]string, len(defs))
		for _, d := range defs {
			names[ref{d.File, d.ID}] = d.Name
		}
		containerOf = func(d definition.Definition) string {
			return names[ref{d.File, d.ParentID}]
		}
	}

	out := make([]SymbolInformation, 0, len(defs))
	for _, d := range defs {
		out = append(out, SymbolInformation{
			Name:          d.Name,
			Kind:          KindOf(d),
			Location:      Location{URI: uriOf(d.File), Range: RangeOf(d)},
			ContainerName: containerOf(d),
		})
	}
	return out
}

// FileURI turns an absolute path into a file:// URI.
func FileURI(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

// PathFromURI is the inverse of FileURI.
func PathFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", ErrNotFileURI
	}
	p := u.Path
	if runtime.GOOS == "windows" {
		p = strings.TrimPrefix(p, "/")
	}
	return filepath.FromSlash(p), nil
}
