package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChroma_CoversSource(t *testing.T) {
	for name, src := range samples {
		t.Run(name, func(t *testing.T) {
			toks, err := Chroma(src)
			require.NoError(t, err)

			var b strings.Builder
			pos := 0
			for _, tok := range toks {
				assert.Equal(t, pos, tok.Start)
				b.WriteString(tok.Text)
				pos = tok.End
			}
			assert.Equal(t, src, b.String())
		})
	}
}

func TestChroma_CategorizesKeywords(t *testing.T) {
	toks, err := Chroma("class Foo\n  bar: (x) -> x + 1\n")
	require.NoError(t, err)

	var sawKeyword bool
	for _, tok := range toks {
		if tok.Category == CategoryKeyword {
			sawKeyword = true
			assert.Equal(t, tok.Text, tok.FixedText())
		}
	}
	assert.True(t, sawKeyword)
}
