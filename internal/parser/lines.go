package parser

import (
	"iter"
	"strings"

	"github.com/alucardeht/coffeeidx/internal/lexer"
)

// tok is a significant token with its resolved line and column.
type tok struct {
	lexer.Token
	line, col int
}

func (t tok) is(types ...string) bool {
	for _, typ := range types {
		if t.Type == typ {
			return true
		}
	}
	return false
}

// logicalLine is one statement line: newlines inside brackets are folded in,
// trivia is dropped, and indent is the width of the leading whitespace.
type logicalLine struct {
	indent int
	toks   []tok
}

func (l logicalLine) hasError() bool {
	return hasError(l.toks)
}

func (l logicalLine) endsWithArrow() bool {
	return len(l.toks) > 0 && l.toks[len(l.toks)-1].is(lexer.TypeArrow, lexer.TypeFatArrow)
}

func hasError(toks []tok) bool {
	for _, t := range toks {
		if t.IsError() {
			return true
		}
	}
	return false
}

func foldLines(tokens iter.Seq[lexer.Token]) []logicalLine {
	var (
		lines     []logicalLine
		cur       logicalLine
		depth     int
		freshLine = true
		lineNo    = 1
		lineStart = 0
	)

	flush := func() {
		if len(cur.toks) > 0 {
			lines = append(lines, cur)
		}
		cur = logicalLine{}
	}

	for t := range tokens {
		switch t.Category {
		case lexer.CategoryNewline:
			if depth == 0 {
				flush()
				freshLine = true
			}
		case lexer.CategoryWhitespace:
			if freshLine && len(cur.toks) == 0 {
				cur.indent = len(t.Text)
			}
			freshLine = false
		case lexer.CategoryComment:
			freshLine = false
		default:
			freshLine = false
			switch t.Type {
			case lexer.TypeLParen, lexer.TypeLBracket, lexer.TypeLBrace:
				depth++
			case lexer.TypeRParen, lexer.TypeRBracket, lexer.TypeRBrace:
				if depth > 0 {
					depth--
				}
			}
			cur.toks = append(cur.toks, tok{Token: t, line: lineNo, col: t.Start - lineStart + 1})
		}

		if n := strings.Count(t.Text, "\n"); n > 0 {
			lineNo += n
			lineStart = t.Start + strings.LastIndexByte(t.Text, '\n') + 1
		} else if t.Category == lexer.CategoryNewline {
			// lone \r
			lineNo++
			lineStart = t.End
		}
	}
	flush()
	return lines
}

// matching returns the index of the bracket closing toks[open], or -1.
func matching(toks []tok, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i].Type {
		case lexer.TypeLParen, lexer.TypeLBracket, lexer.TypeLBrace:
			depth++
		case lexer.TypeRParen, lexer.TypeRBracket, lexer.TypeRBrace:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTop splits toks on commas outside brackets.
func splitTop(toks []tok) [][]tok {
	var (
		out   [][]tok
		start int
		depth int
	)
	for i, t := range toks {
		switch t.Type {
		case lexer.TypeLParen, lexer.TypeLBracket, lexer.TypeLBrace:
			depth++
		case lexer.TypeRParen, lexer.TypeRBracket, lexer.TypeRBrace:
			depth--
		case lexer.TypeComma:
			if depth == 0 {
				out = append(out, toks[start:i])
				start = i + 1
			}
		}
	}
	if start < len(toks) {
		out = append(out, toks[start:])
	}
	return out
}

// indexTop returns the first index of a token of one of types outside brackets.
func indexTop(toks []tok, types ...string) int {
	depth := 0
	for i, t := range toks {
		switch t.Type {
		case lexer.TypeLParen, lexer.TypeLBracket, lexer.TypeLBrace:
			depth++
		case lexer.TypeRParen, lexer.TypeRBracket, lexer.TypeRBrace:
			depth--
		default:
			if depth == 0 && t.is(types...) {
				return i
			}
		}
	}
	return -1
}
