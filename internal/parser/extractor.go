// Package parser extracts class, method, field and parameter definitions from a
// CoffeeScript token stream. Extraction is best effort: malformed declarations
// are skipped and the rest of the file is still extracted.
package parser

import (
	"iter"
	"strings"

	"github.com/alucardeht/coffeeidx/internal/definition"
	"github.com/alucardeht/coffeeidx/internal/lexer"
	"github.com/alucardeht/coffeeidx/internal/logger"
)

var log = logger.ForComponent("parser")

type frameKind int

const (
	frameClass frameKind = iota
	frameFunc
	// frameOpaque covers lines that continue an expression, such as the body
	// of a multi-line object literal. Nothing nested in it is a declaration.
	frameOpaque
)

type frame struct {
	kind   frameKind
	indent int
	def    definition.Definition

	// instanceFields holds the field names already declared in the class
	// body, so implied @name fields are recorded once.
	instanceFields map[string]struct{}
}

type extractor struct {
	out     *definition.Outline
	stack   []*frame
	skipped int
}

// ExtractSource tokenizes src with the default categorizer and extracts it.
func ExtractSource(file, src string) *definition.Outline {
	return Extract(file, lexer.New(src).Tokens())
}

// Extract builds the outline of one file from its tokens.
func Extract(file string, tokens iter.Seq[lexer.Token]) *definition.Outline {
	x := &extractor{out: definition.NewOutline(file)}

	for _, ln := range foldLines(tokens) {
		x.popTo(ln.indent)
		x.line(ln)
	}

	if x.skipped > 0 {
		log.Debug("skipped malformed declarations", "file", file, "count", x.skipped)
	}
	return x.out
}

func (x *extractor) popTo(indent int) {
	for len(x.stack) > 0 && indent <= x.stack[len(x.stack)-1].indent {
		x.stack = x.stack[:len(x.stack)-1]
	}
}

func (x *extractor) top() *frame {
	if len(x.stack) == 0 {
		return nil
	}
	return x.stack[len(x.stack)-1]
}

func (x *extractor) push(kind frameKind, indent int, def definition.Definition) {
	f := &frame{kind: kind, indent: indent, def: def}
	if kind == frameClass {
		f.instanceFields = make(map[string]struct{})
	}
	x.stack = append(x.stack, f)
}

// enclosingClass finds the class whose method body we are in, looking through
// nested function frames only.
func (x *extractor) enclosingClass() *frame {
	for i := len(x.stack) - 1; i >= 0; i-- {
		switch x.stack[i].kind {
		case frameFunc:
			continue
		case frameClass:
			return x.stack[i]
		default:
			return nil
		}
	}
	return nil
}

func (x *extractor) line(ln logicalLine) {
	top := x.top()
	if top != nil && top.kind == frameOpaque {
		return
	}
	if x.classDecl(ln) {
		return
	}

	switch {
	case top == nil:
		x.rootLine(ln)
	case top.kind == frameClass:
		x.classBodyLine(ln, top)
	case top.kind == frameFunc:
		x.funcBodyLine(ln)
	}
}

func (x *extractor) add(t tok, kind definition.Kind, scope definition.Scope, parent string) definition.Definition {
	return x.out.Add(definition.Definition{
		ID:       definition.NewID(kind, t.Start),
		Name:     nameOf(t),
		Kind:     kind,
		Scope:    scope,
		ParentID: parent,
		Position: definition.Position{
			Start:  t.Start,
			End:    t.End,
			Line:   t.line,
			Column: t.col,
		},
	})
}

// classDecl handles `class Name`, `class A.B.Name`, `class @Name`,
// `Name = class`, and `exports.Name = class Name`.
func (x *extractor) classDecl(ln logicalLine) bool {
	toks := ln.toks
	var target tok
	classAt := -1

	switch {
	case toks[0].is(lexer.TypeClass):
		classAt = 0
	default:
		eq := indexTop(toks, lexer.TypeAssign)
		if eq < 1 || eq+1 >= len(toks) || !toks[eq+1].is(lexer.TypeClass) {
			return false
		}
		if eq == 1 && toks[0].is(lexer.TypeIdentifier) {
			target = toks[0]
		}
		classAt = eq + 1
	}

	if ln.hasError() {
		x.skipped++
		x.push(frameOpaque, ln.indent, definition.Definition{})
		return true
	}

	nameTok, ok := className(toks[classAt+1:])
	if !ok {
		nameTok, ok = target, target.Type != ""
	}
	if !ok {
		// anonymous class: its members belong to nothing we can name
		x.push(frameOpaque, ln.indent, definition.Definition{})
		return true
	}

	cls := x.add(nameTok, definition.Class, definition.Root, "")
	x.push(frameClass, ln.indent, cls)
	return true
}

// className reads the optional name after `class`, taking the last segment
// of a dotted name.
func className(toks []tok) (tok, bool) {
	i := 0
	if i < len(toks) && toks[i].is(lexer.TypeAt) {
		i++
	}
	if i >= len(toks) || !toks[i].is(lexer.TypeIdentifier) {
		return tok{}, false
	}
	name := toks[i]
	for i+2 < len(toks) && toks[i+1].is(lexer.TypeDot) && toks[i+2].is(lexer.TypeIdentifier) {
		i += 2
		name = toks[i]
	}
	return name, true
}

var assignOps = []string{lexer.TypeAssign, lexer.TypeExistAssign, lexer.TypeOrAssign, lexer.TypeAndAssign}

func (x *extractor) rootLine(ln logicalLine) {
	toks := ln.toks
	eq := indexTop(toks, assignOps...)
	if eq < 1 {
		x.anonymousBlock(ln)
		return
	}

	target, rhs := toks[:eq], toks[eq+1:]
	simple := len(target) == 1 && target[0].is(lexer.TypeIdentifier)
	if !simple && !target[0].is(lexer.TypeLBrace, lexer.TypeLBracket) {
		x.anonymousBlock(ln)
		return
	}

	if fn, ok := parseFunc(rhs); ok && simple && toks[eq].is(lexer.TypeAssign) {
		if hasError(toks[:eq+1+fn.arrow+1]) {
			x.skip(ln)
			return
		}
		method := x.add(target[0], definition.Method, definition.Root, "")
		x.params(fn, method, nil)
		x.push(frameFunc, ln.indent, method)
		return
	}

	if ln.hasError() {
		x.skip(ln)
		return
	}
	for _, b := range bindings(target) {
		x.add(b.name, definition.Field, definition.Root, "")
	}
	x.push(frameOpaque, ln.indent, definition.Definition{})
}

func (x *extractor) classBodyLine(ln logicalLine, cls *frame) {
	toks := ln.toks
	colon := memberColon(toks)
	if colon < 0 {
		x.anonymousBlock(ln)
		if x.top() == cls {
			x.push(frameOpaque, ln.indent, definition.Definition{})
		}
		return
	}

	nameTok := toks[colon-1]
	rhs := toks[colon+1:]

	if fn, ok := parseFunc(rhs); ok {
		if hasError(toks[:colon+1+fn.arrow+1]) {
			x.skip(ln)
			return
		}
		method := x.add(nameTok, definition.Method, definition.ClassMember, cls.def.ID)
		x.params(fn, method, cls)
		x.push(frameFunc, ln.indent, method)
		return
	}

	if ln.hasError() {
		x.skip(ln)
		return
	}
	x.bodyField(cls, nameTok)
	x.push(frameOpaque, ln.indent, definition.Definition{})
}

// memberColon matches `name:`, `'name':`, `@name:` and `this.name:` at the start
// of a class body line and returns the colon index, or -1.
func memberColon(toks []tok) int {
	switch {
	case len(toks) >= 2 && toks[0].is(lexer.TypeIdentifier, lexer.TypeString) && toks[1].is(lexer.TypeColon):
		return 1
	case len(toks) >= 3 && toks[0].is(lexer.TypeAt) && toks[1].is(lexer.TypeIdentifier) && toks[2].is(lexer.TypeColon):
		return 2
	case len(toks) >= 4 && toks[0].is(lexer.TypeThis) && toks[1].is(lexer.TypeDot) &&
		toks[2].is(lexer.TypeIdentifier) && toks[3].is(lexer.TypeColon):
		return 3
	}
	return -1
}

func (x *extractor) funcBodyLine(ln logicalLine) {
	toks := ln.toks

	var nameTok tok
	eq := -1
	switch {
	case len(toks) >= 3 && toks[0].is(lexer.TypeAt) && toks[1].is(lexer.TypeIdentifier) && toks[2].is(assignOps...):
		nameTok, eq = toks[1], 2
	case len(toks) >= 4 && toks[0].is(lexer.TypeThis) && toks[1].is(lexer.TypeDot) &&
		toks[2].is(lexer.TypeIdentifier) && toks[3].is(assignOps...):
		nameTok, eq = toks[2], 3
	}

	if eq > 0 && !ln.hasError() {
		if cls := x.enclosingClass(); cls != nil {
			x.instanceField(cls, nameTok)
		}
	}
	x.anonymousBlock(ln)
}

// anonymousBlock opens a function frame for lines like `describe 'x', ->` whose
// body follows on deeper lines; declarations in it are local and not indexed.
func (x *extractor) anonymousBlock(ln logicalLine) {
	if ln.endsWithArrow() {
		x.push(frameFunc, ln.indent, definition.Definition{})
	}
}

func (x *extractor) skip(ln logicalLine) {
	x.skipped++
	x.push(frameOpaque, ln.indent, definition.Definition{})
}

func nameOf(t tok) string {
	if t.Type == lexer.TypeString {
		return unquote(t.Text)
	}
	return t.Text
}

func unquote(s string) string {
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}
