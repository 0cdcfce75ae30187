// Package lexer turns CoffeeScript source into a gap-free stream of categorized tokens.
package lexer

import (
	"sort"
	"strings"
)

// Category is the stable, highlighting-level classification of a token.
type Category string

const (
	CategoryKeyword    Category = "keyword"
	CategoryIdentifier Category = "identifier"
	CategoryNumber     Category = "number"
	CategoryString     Category = "string"
	CategoryRegex      Category = "regex"
	CategoryComment    Category = "comment"
	CategoryOperator   Category = "operator"
	CategorySeparator  Category = "separator"
	CategoryWhitespace Category = "whitespace"
	CategoryNewline    Category = "newline"
	CategoryError      Category = "error"
)

// Class is the raw lexical shape of a scanned span before categorization.
type Class int

const (
	ClassWhitespace Class = iota
	ClassNewline
	ClassComment
	ClassWord
	ClassNumber
	ClassString
	ClassJS
	ClassRegex
	ClassPunct
	ClassInvalid
)

// Token type names produced by the CoffeeScript categorizer that the extractor relies on.
const (
	TypeIdentifier   = "IDENTIFIER"
	TypeClass        = "CLASS"
	TypeExtends      = "EXTENDS"
	TypeThis         = "THIS"
	TypeAt           = "AT"
	TypeArrow        = "ARROW"
	TypeFatArrow     = "FAT_ARROW"
	TypeAssign       = "ASSIGN"
	TypeExistAssign  = "EXISTENTIAL_ASSIGN"
	TypeOrAssign     = "OR_ASSIGN"
	TypeAndAssign    = "AND_ASSIGN"
	TypeColon        = "COLON"
	TypeDot          = "DOT"
	TypeComma        = "COMMA"
	TypeEllipsis     = "ELLIPSIS"
	TypeLParen       = "LPAREN"
	TypeRParen       = "RPAREN"
	TypeLBracket     = "LBRACKET"
	TypeRBracket     = "RBRACKET"
	TypeLBrace       = "LBRACE"
	TypeRBrace       = "RBRACE"
	TypeString       = "STRING"
	TypeJS           = "JS"
	TypeRegex        = "REGEX"
	TypeNumber       = "NUMBER"
	TypeComment      = "COMMENT"
	TypeBlockComment = "BLOCK_COMMENT"
	TypeWhitespace   = "WHITESPACE"
	TypeNewline      = "NEWLINE"
	TypeError        = "ERROR"
)

// TokenType is what a Categorizer assigns to a span: a type name, its category,
// and the canonical text for types whose surface text never varies.
type TokenType struct {
	Name     string
	Category Category
	Fixed    string
}

// Categorizer maps a raw span to its token type. It is the grammar boundary:
// the scanner finds spans, the categorizer names them.
type Categorizer func(class Class, text string) TokenType

type Token struct {
	Type     string
	Category Category
	Text     string
	Start    int
	End      int

	fixed string
}

// FixedText is the canonical text of the token's type, or "" when the type has
// variable text (identifiers, literals, comments).
func (t Token) FixedText() string {
	return t.fixed
}

func (t Token) IsError() bool {
	return t.Category == CategoryError
}

// IsTrivia reports tokens that carry no syntax: whitespace and comments.
func (t Token) IsTrivia() bool {
	return t.Category == CategoryWhitespace || t.Category == CategoryComment
}

var keywords = map[string]struct{}{
	"and": {}, "as": {}, "await": {}, "break": {}, "by": {}, "catch": {}, "class": {},
	"continue": {}, "debugger": {}, "default": {}, "delete": {}, "do": {}, "else": {},
	"export": {}, "extends": {}, "false": {}, "finally": {}, "for": {}, "from": {},
	"if": {}, "import": {}, "in": {}, "instanceof": {}, "is": {}, "isnt": {}, "loop": {},
	"new": {}, "no": {}, "not": {}, "null": {}, "of": {}, "off": {}, "on": {}, "or": {},
	"own": {}, "return": {}, "super": {}, "switch": {}, "then": {}, "this": {}, "throw": {},
	"true": {}, "try": {}, "typeof": {}, "undefined": {}, "unless": {}, "until": {},
	"when": {}, "while": {}, "yes": {}, "yield": {},
}

var punctuation = map[string]string{
	"->": TypeArrow, "=>": TypeFatArrow, "...": TypeEllipsis, "..": "RANGE",
	"::": "PROTOTYPE", "?.": "SOAK", "?=": TypeExistAssign, "||=": TypeOrAssign,
	"&&=": TypeAndAssign, "**=": "POW_ASSIGN", "//=": "FLOORDIV_ASSIGN", "%%=": "MOD_ASSIGN",
	">>>=": "URSHIFT_ASSIGN", "<<=": "LSHIFT_ASSIGN", ">>=": "RSHIFT_ASSIGN",
	"+=": "PLUS_ASSIGN", "-=": "MINUS_ASSIGN", "*=": "MUL_ASSIGN", "/=": "DIV_ASSIGN",
	"%=": "REM_ASSIGN", "&=": "BITAND_ASSIGN", "|=": "BITOR_ASSIGN", "^=": "BITXOR_ASSIGN",
	">>>": "URSHIFT", "**": "POW", "//": "FLOORDIV", "%%": "MOD", "==": "EQ", "!=": "NE",
	"<=": "LE", ">=": "GE", "&&": "AND_OP", "||": "OR_OP", "++": "INCR", "--": "DECR",
	"<<": "LSHIFT", ">>": "RSHIFT", "=": TypeAssign, "+": "PLUS", "-": "MINUS", "*": "STAR",
	"/": "SLASH", "%": "PERCENT", "<": "LT", ">": "GT", "!": "BANG", "?": "QUESTION",
	"&": "BITAND", "|": "BITOR", "^": "BITXOR", "~": "TILDE", ".": TypeDot, ":": TypeColon,
	";": "SEMICOLON", "@": TypeAt, "\\": "BACKSLASH",
	"(": TypeLParen, ")": TypeRParen, "[": TypeLBracket, "]": TypeRBracket,
	"{": TypeLBrace, "}": TypeRBrace, ",": TypeComma,
}

// punctByLength lists punctuation longest first for maximal munch.
var punctByLength = func() []string {
	out := make([]string, 0, len(punctuation))
	for p := range punctuation {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

// CoffeeScript is the default categorizer.
func CoffeeScript(class Class, text string) TokenType {
	switch class {
	case ClassWhitespace:
		return TokenType{Name: TypeWhitespace, Category: CategoryWhitespace}
	case ClassNewline:
		return TokenType{Name: TypeNewline, Category: CategoryNewline}
	case ClassComment:
		if strings.HasPrefix(text, "###") {
			return TokenType{Name: TypeBlockComment, Category: CategoryComment}
		}
		return TokenType{Name: TypeComment, Category: CategoryComment}
	case ClassWord:
		if _, ok := keywords[text]; ok {
			return TokenType{Name: strings.ToUpper(text), Category: CategoryKeyword, Fixed: text}
		}
		return TokenType{Name: TypeIdentifier, Category: CategoryIdentifier}
	case ClassNumber:
		return TokenType{Name: TypeNumber, Category: CategoryNumber}
	case ClassString:
		return TokenType{Name: TypeString, Category: CategoryString}
	case ClassJS:
		return TokenType{Name: TypeJS, Category: CategoryString}
	case ClassRegex:
		return TokenType{Name: TypeRegex, Category: CategoryRegex}
	case ClassPunct:
		name, ok := punctuation[text]
		if !ok {
			return TokenType{Name: TypeError, Category: CategoryError}
		}
		switch text {
		case "(", ")", "[", "]", "{", "}", ",":
			return TokenType{Name: name, Category: CategorySeparator, Fixed: text}
		}
		return TokenType{Name: name, Category: CategoryOperator, Fixed: text}
	default:
		return TokenType{Name: TypeError, Category: CategoryError}
	}
}
