package lexer

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// Chroma tokenizes src with chroma's CoffeeScript lexer and maps the result onto
// this package's categories. Spans are re-anchored on src, so the output covers
// the input exactly like Tokens does.
func Chroma(src string) ([]Token, error) {
	lx := lexers.Get("coffeescript")
	if lx == nil {
		lx = lexers.Fallback
	}

	it, err := chroma.Coalesce(lx).Tokenise(&chroma.TokeniseOptions{State: "root"}, src)
	if err != nil {
		return nil, fmt.Errorf("chroma tokenise: %w", err)
	}

	var out []Token
	pos := 0
	for t := it(); t != chroma.EOF; t = it() {
		if pos >= len(src) {
			break
		}
		n := len(t.Value)
		if n == 0 {
			continue
		}
		if pos+n > len(src) {
			n = len(src) - pos
		}
		out = append(out, chromaToken(t.Type, src[pos:pos+n], pos))
		pos += n
	}
	if pos < len(src) {
		out = append(out, chromaToken(chroma.Text, src[pos:], pos))
	}
	return out, nil
}

func chromaToken(tt chroma.TokenType, text string, start int) Token {
	tok := Token{
		Type:  tt.String(),
		Text:  text,
		Start: start,
		End:   start + len(text),
	}

	switch {
	case tt == chroma.Error:
		tok.Category = CategoryError
	case tt.InCategory(chroma.Comment):
		tok.Category = CategoryComment
	case tt.InCategory(chroma.Keyword):
		tok.Category = CategoryKeyword
		tok.fixed = text
	case tt == chroma.LiteralStringRegex:
		tok.Category = CategoryRegex
	case tt.InSubCategory(chroma.LiteralString):
		tok.Category = CategoryString
	case tt.InSubCategory(chroma.LiteralNumber):
		tok.Category = CategoryNumber
	case tt.InCategory(chroma.Operator):
		tok.Category = CategoryOperator
		tok.fixed = text
	case tt.InCategory(chroma.Punctuation):
		tok.Category = CategorySeparator
		tok.fixed = text
	case tt.InCategory(chroma.Name):
		tok.Category = CategoryIdentifier
	case strings.Trim(text, "\r\n") == "":
		tok.Category = CategoryNewline
	case strings.TrimSpace(text) == "":
		tok.Category = CategoryWhitespace
	default:
		tok.Category = CategoryIdentifier
	}
	return tok
}
