package lexer

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Option func(*Lexer)

// WithCategorizer replaces the CoffeeScript categorizer.
func WithCategorizer(c Categorizer) Option {
	return func(l *Lexer) {
		if c != nil {
			l.categorize = c
		}
	}
}

type Lexer struct {
	src        string
	categorize Categorizer
}

func New(src string, opts ...Option) *Lexer {
	l := &Lexer{src: src, categorize: CoffeeScript}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Tokens returns a lazy sequence over the whole source. Every iteration starts
// again from the first byte.
func (l *Lexer) Tokens() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		s := &scanner{src: l.src, categorize: l.categorize, regexOK: true}
		for s.pos < len(s.src) {
			if !yield(s.next()) {
				return
			}
		}
	}
}

func All(src string, opts ...Option) []Token {
	var out []Token
	for tok := range New(src, opts...).Tokens() {
		out = append(out, tok)
	}
	return out
}

type scanner struct {
	src        string
	pos        int
	categorize Categorizer

	// regexOK is true where a value cannot precede, so "/" opens a regex.
	regexOK bool
	// spaced records that the last token was whitespace, for "f /re/" calls.
	spaced  bool
	lastTok Token
}

func (s *scanner) emit(class Class, end int) Token {
	text := s.src[s.pos:end]
	tt := s.categorize(class, text)
	tok := Token{
		Type:     tt.Name,
		Category: tt.Category,
		Text:     text,
		Start:    s.pos,
		End:      end,
		fixed:    tt.Fixed,
	}
	s.pos = end

	switch tok.Category {
	case CategoryWhitespace:
		s.spaced = true
		return tok
	case CategoryComment:
		return tok
	case CategoryNewline:
		s.regexOK = true
		s.spaced = false
		return tok
	}
	s.regexOK = !valueLike(tok)
	s.spaced = false
	s.lastTok = tok
	return tok
}

func valueLike(tok Token) bool {
	switch tok.Category {
	case CategoryIdentifier, CategoryNumber, CategoryString, CategoryRegex:
		return true
	}
	switch tok.Type {
	case TypeRParen, TypeRBracket, TypeRBrace, TypeThis, "SUPER", "TRUE", "FALSE",
		"NULL", "UNDEFINED", "YES", "NO", "ON", "OFF", "INCR", "DECR":
		return true
	}
	return false
}

func (s *scanner) next() Token {
	c := s.src[s.pos]

	switch {
	case c == '\n':
		return s.emit(ClassNewline, s.pos+1)
	case c == '\r':
		if s.pos+1 < len(s.src) && s.src[s.pos+1] == '\n' {
			return s.emit(ClassNewline, s.pos+2)
		}
		return s.emit(ClassNewline, s.pos+1)
	case c == ' ' || c == '\t' || c == '\f' || c == '\v':
		end := s.pos + 1
		for end < len(s.src) && strings.IndexByte(" \t\f\v", s.src[end]) >= 0 {
			end++
		}
		return s.emit(ClassWhitespace, end)
	case c == '#':
		return s.comment()
	case c == '"' || c == '\'':
		return s.quoted(c, ClassString)
	case c == '`':
		return s.quoted(c, ClassJS)
	case isDigit(c):
		return s.emit(ClassNumber, s.number())
	case c == '/' && s.regexAllowed():
		if tok, ok := s.regex(); ok {
			return tok
		}
	}

	r, size := utf8.DecodeRuneInString(s.src[s.pos:])
	if isIdentStart(r) {
		end := s.pos + size
		for end < len(s.src) {
			r, n := utf8.DecodeRuneInString(s.src[end:])
			if !isIdentPart(r) {
				break
			}
			end += n
		}
		return s.emit(ClassWord, end)
	}

	for _, p := range punctByLength {
		if strings.HasPrefix(s.src[s.pos:], p) {
			return s.emit(ClassPunct, s.pos+len(p))
		}
	}

	return s.emit(ClassInvalid, s.pos+size)
}

func (s *scanner) regexAllowed() bool {
	if s.regexOK {
		return true
	}
	// An implicit call such as `split /,/` is a regex argument.
	if s.spaced && s.lastTok.Category == CategoryIdentifier && s.pos+1 < len(s.src) {
		next := s.src[s.pos+1]
		return next != ' ' && next != '=' && next != '\t'
	}
	return false
}

// lineEnd is the offset of the newline ending the line that contains pos.
func (s *scanner) lineEnd(pos int) int {
	if i := strings.IndexAny(s.src[pos:], "\r\n"); i >= 0 {
		return pos + i
	}
	return len(s.src)
}

// fail emits an ERROR token for the rest of the current line, leaving the
// newline for the next token so scanning resumes on the following line.
func (s *scanner) fail() Token {
	end := s.lineEnd(s.pos)
	if end == s.pos {
		end = s.pos + 1
	}
	return s.emit(ClassInvalid, end)
}

func (s *scanner) comment() Token {
	if strings.HasPrefix(s.src[s.pos:], "###") && !strings.HasPrefix(s.src[s.pos:], "####") {
		closeAt := strings.Index(s.src[s.pos+3:], "###")
		if closeAt < 0 {
			return s.fail()
		}
		return s.emit(ClassComment, s.pos+3+closeAt+3)
	}
	return s.emit(ClassComment, s.lineEnd(s.pos))
}

func (s *scanner) quoted(q byte, class Class) Token {
	delim := string(q)
	if strings.HasPrefix(s.src[s.pos:], strings.Repeat(delim, 3)) {
		delim = strings.Repeat(delim, 3)
	}
	end := scanString(s.src, s.pos+len(delim), delim, q == '"')
	if end < 0 {
		return s.fail()
	}
	return s.emit(class, end)
}

// scanString returns the offset just past the closing delimiter, or -1.
func scanString(src string, i int, delim string, interp bool) int {
	for i < len(src) {
		switch {
		case src[i] == '\\':
			i += 2
		case strings.HasPrefix(src[i:], delim):
			return i + len(delim)
		case interp && strings.HasPrefix(src[i:], "#{"):
			end := scanInterpolation(src, i+2)
			if end < 0 {
				return -1
			}
			i = end
		default:
			i++
		}
	}
	return -1
}

func scanInterpolation(src string, i int) int {
	depth := 1
	for i < len(src) {
		switch c := src[i]; c {
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
			if depth == 0 {
				return i
			}
		case '"', '\'':
			delim := string(c)
			if strings.HasPrefix(src[i:], strings.Repeat(delim, 3)) {
				delim = strings.Repeat(delim, 3)
			}
			end := scanString(src, i+len(delim), delim, c == '"')
			if end < 0 {
				return -1
			}
			i = end
		default:
			i++
		}
	}
	return -1
}

func (s *scanner) number() int {
	src, i := s.src, s.pos
	if src[i] == '0' && i+1 < len(src) {
		var digits func(byte) bool
		switch src[i+1] {
		case 'x', 'X':
			digits = isHex
		case 'b', 'B':
			digits = func(c byte) bool { return c == '0' || c == '1' }
		case 'o', 'O':
			digits = func(c byte) bool { return c >= '0' && c <= '7' }
		}
		if digits != nil {
			i += 2
			for i < len(src) && (digits(src[i]) || src[i] == '_') {
				i++
			}
			return i
		}
	}

	for i < len(src) && (isDigit(src[i]) || src[i] == '_') {
		i++
	}
	// "1..2" is a range, not a fraction.
	if i+1 < len(src) && src[i] == '.' && isDigit(src[i+1]) {
		i++
		for i < len(src) && (isDigit(src[i]) || src[i] == '_') {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(src[j]) {
			i = j
			for i < len(src) && isDigit(src[i]) {
				i++
			}
		}
	}
	return i
}

// regex scans /re/flags or ///heregex///flags. A single-line regex with no
// closing slash is not a regex; the caller falls back to the "/" operator.
func (s *scanner) regex() (Token, bool) {
	src := s.src
	if strings.HasPrefix(src[s.pos:], "///") {
		closeAt := strings.Index(src[s.pos+3:], "///")
		if closeAt < 0 {
			return s.fail(), true
		}
		return s.emit(ClassRegex, regexFlags(src, s.pos+3+closeAt+3)), true
	}

	inClass := false
	for i := s.pos + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '\n', '\r':
			return Token{}, false
		case '/':
			if inClass {
				continue
			}
			if i == s.pos+1 {
				return Token{}, false
			}
			return s.emit(ClassRegex, regexFlags(src, i+1)), true
		}
	}
	return Token{}, false
}

func regexFlags(src string, i int) int {
	for i < len(src) && strings.IndexByte("gimsuy", src[i]) >= 0 {
		i++
	}
	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
