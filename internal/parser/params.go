package parser

import (
	"github.com/alucardeht/coffeeidx/internal/definition"
	"github.com/alucardeht/coffeeidx/internal/lexer"
)

// funcHead is the head of a function literal: its parameter tokens (without the
// parentheses) and the index of the arrow in the right-hand side it came from.
type funcHead struct {
	params []tok
	arrow  int
}

// parseFunc recognizes `-> ...`, `=> ...` and `(params) -> ...`.
func parseFunc(rhs []tok) (funcHead, bool) {
	if len(rhs) == 0 {
		return funcHead{}, false
	}
	if rhs[0].is(lexer.TypeArrow, lexer.TypeFatArrow) {
		return funcHead{arrow: 0}, true
	}
	if !rhs[0].is(lexer.TypeLParen) {
		return funcHead{}, false
	}
	end := matching(rhs, 0)
	if end < 0 || end+1 >= len(rhs) || !rhs[end+1].is(lexer.TypeArrow, lexer.TypeFatArrow) {
		return funcHead{}, false
	}
	return funcHead{params: rhs[1:end], arrow: end + 1}, true
}

// binding is a name introduced by a parameter or destructuring pattern.
// self marks @name and this.name forms, which also assign an instance field.
type binding struct {
	name tok
	self bool
}

// bindings returns the names bound by one pattern: a plain name, @name,
// this.name, a splat, a default value, or nested object and array patterns.
func bindings(toks []tok) []binding {
	if len(toks) > 0 && toks[0].is(lexer.TypeEllipsis) {
		toks = toks[1:]
	}
	if len(toks) > 0 && toks[len(toks)-1].is(lexer.TypeEllipsis) {
		toks = toks[:len(toks)-1]
	}
	if eq := indexTop(toks, lexer.TypeAssign); eq >= 0 {
		toks = toks[:eq]
	}
	if len(toks) == 0 {
		return nil
	}

	switch {
	case len(toks) == 1 && toks[0].is(lexer.TypeIdentifier):
		return []binding{{name: toks[0]}}
	case len(toks) == 2 && toks[0].is(lexer.TypeAt) && toks[1].is(lexer.TypeIdentifier):
		return []binding{{name: toks[1], self: true}}
	case len(toks) == 3 && toks[0].is(lexer.TypeThis) && toks[1].is(lexer.TypeDot) && toks[2].is(lexer.TypeIdentifier):
		return []binding{{name: toks[2], self: true}}
	case toks[0].is(lexer.TypeLBrace, lexer.TypeLBracket):
		end := matching(toks, 0)
		if end != len(toks)-1 {
			return nil
		}
		object := toks[0].is(lexer.TypeLBrace)
		var out []binding
		for _, elem := range splitTop(toks[1:end]) {
			if object {
				if colon := indexTop(elem, lexer.TypeColon); colon >= 0 {
					elem = elem[colon+1:]
				}
			}
			out = append(out, bindings(elem)...)
		}
		return out
	}
	return nil
}

// params adds the parameters of fn to method. Inside a class, @name
// parameters also declare an instance field.
func (x *extractor) params(fn funcHead, method definition.Definition, cls *frame) {
	for _, group := range splitTop(fn.params) {
		for _, b := range bindings(group) {
			x.add(b.name, definition.Parameter, definition.Local, method.ID)
			if b.self && cls != nil {
				x.instanceField(cls, b.name)
			}
		}
	}
}

// bodyField records an explicit `name: value` declaration. Redeclarations
// are kept.
func (x *extractor) bodyField(cls *frame, name tok) {
	cls.instanceFields[nameOf(name)] = struct{}{}
	x.add(name, definition.Field, definition.ClassMember, cls.def.ID)
}

// instanceField records a field implied by an @name assignment or
// constructor parameter, once per class.
func (x *extractor) instanceField(cls *frame, name tok) {
	key := nameOf(name)
	if _, seen := cls.instanceFields[key]; seen {
		return
	}
	cls.instanceFields[key] = struct{}{}
	x.add(name, definition.Field, definition.ClassMember, cls.def.ID)
}
