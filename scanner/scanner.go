// Package scanner tokenizes the Python subset understood by layerize.
//
// Besides ordinary tokens it produces the layout tokens NEWLINE, INDENT and
// DEDENT, so the parser never has to look at whitespace. Newlines inside
// brackets and after a backslash continuation are not significant, and
// comment-only or blank lines produce no tokens at all.
package scanner

import (
	"fmt"
	gotoken "go/token"
	"strings"
	"unicode"
	"unicode/utf8"

	mscanner "modernc.org/scanner"
	"modernc.org/token"
)

const tabSize = 8

// Scanner produces tokens from source text. Errors do not stop scanning;
// they are collected and reported by Err.
type Scanner struct {
	src  string
	file *token.File
	off  int

	indents     []int
	pending     []Token
	depth       int  // bracket nesting depth
	atLineStart bool // next token starts a logical line
	last        Kind // kind of the last token returned
	done        bool

	errs mscanner.ErrList
}

// New creates a Scanner for src. The name is used in token positions.
func New(name, src string) *Scanner {
	f := token.NewFile(name, len(src))
	f.SetLinesForContent([]byte(src))
	return &Scanner{
		src:         src,
		file:        f,
		indents:     []int{0},
		atLineStart: true,
		last:        NEWLINE,
	}
}

// Tokenize scans all of src and returns its tokens, ending with EOF.
func Tokenize(name, src string) ([]Token, error) {
	s := New(name, src)
	var toks []Token
	for {
		t := s.Next()
		toks = append(toks, t)
		if t.Kind == EOF {
			break
		}
	}
	return toks, s.Err()
}

// Err returns the errors found so far as a modernc.org/scanner.ErrList,
// or nil if there were none.
func (s *Scanner) Err() error {
	if len(s.errs) == 0 {
		return nil
	}
	return s.errs
}

// Position returns the source position for a byte offset.
func (s *Scanner) Position(off int) token.Position {
	return s.file.PositionFor(s.file.Pos(off), false)
}

func (s *Scanner) errorf(off int, format string, args ...any) {
	s.errs = append(s.errs, mscanner.ErrWithPosition{
		Pos: gotoken.Position(s.Position(off)),
		Err: fmt.Errorf(format, args...),
	})
}

func (s *Scanner) emit(kind Kind, text string, off int) Token {
	s.last = kind
	return Token{Kind: kind, Text: text, Pos: s.Position(off)}
}

// Next returns the next token. After EOF it keeps returning EOF.
func (s *Scanner) Next() Token {
	if len(s.pending) > 0 {
		t := s.pending[0]
		s.pending = s.pending[1:]
		s.last = t.Kind
		return t
	}
	if s.done {
		return s.emit(EOF, "", len(s.src))
	}

	if s.atLineStart && s.depth == 0 {
		if t, ok := s.lineStart(); ok {
			return t
		}
	}

	for {
		s.skipSpace()
		if s.off >= len(s.src) {
			return s.finish()
		}
		ch := s.src[s.off]
		switch {
		case ch == '#':
			s.skipComment()
			continue
		case ch == '\\' && s.peekNewline(s.off+1):
			s.off++
			s.consumeNewline()
			continue
		case ch == '\n' || ch == '\r':
			start := s.off
			s.consumeNewline()
			if s.depth > 0 {
				continue
			}
			s.atLineStart = true
			return s.emit(NEWLINE, "", start)
		}
		return s.scanToken()
	}
}

// lineStart measures the indentation of the next non-blank line and queues
// INDENT or DEDENT tokens. It reports false when no layout token is due.
func (s *Scanner) lineStart() (Token, bool) {
	for {
		start := s.off
		col := 0
	measure:
		for s.off < len(s.src) {
			switch s.src[s.off] {
			case ' ':
				col++
			case '\t':
				col = (col/tabSize + 1) * tabSize
			case '\f':
				col = 0
			default:
				break measure
			}
			s.off++
		}
		if s.off >= len(s.src) {
			s.atLineStart = false
			return Token{}, false
		}
		switch s.src[s.off] {
		case '#':
			s.skipComment()
			s.consumeNewline()
			continue
		case '\n', '\r':
			s.consumeNewline()
			continue
		}
		s.atLineStart = false

		top := s.indents[len(s.indents)-1]
		switch {
		case col > top:
			s.indents = append(s.indents, col)
			return s.emit(INDENT, "", start), true
		case col < top:
			for len(s.indents) > 1 && s.indents[len(s.indents)-1] > col {
				s.indents = s.indents[:len(s.indents)-1]
				s.pending = append(s.pending, Token{Kind: DEDENT, Pos: s.Position(s.off)})
			}
			if s.indents[len(s.indents)-1] != col {
				s.errorf(s.off, "unindent does not match any outer indentation level")
			}
			t := s.pending[0]
			s.pending = s.pending[1:]
			s.last = t.Kind
			return t, true
		}
		return Token{}, false
	}
}

// finish emits the trailing NEWLINE, one DEDENT per open block and EOF.
func (s *Scanner) finish() Token {
	end := len(s.src)
	if s.depth > 0 {
		s.errorf(end, "unexpected EOF: unclosed bracket")
		s.depth = 0
	}
	if s.last != NEWLINE && s.last != INDENT && s.last != DEDENT {
		s.pending = append(s.pending, Token{Kind: NEWLINE, Pos: s.Position(end)})
	}
	for len(s.indents) > 1 {
		s.indents = s.indents[:len(s.indents)-1]
		s.pending = append(s.pending, Token{Kind: DEDENT, Pos: s.Position(end)})
	}
	s.pending = append(s.pending, Token{Kind: EOF, Pos: s.Position(end)})
	s.done = true
	return s.Next()
}

func (s *Scanner) skipSpace() {
	for s.off < len(s.src) {
		switch s.src[s.off] {
		case ' ', '\t', '\f':
			s.off++
		default:
			return
		}
	}
}

func (s *Scanner) skipComment() {
	for s.off < len(s.src) && s.src[s.off] != '\n' && s.src[s.off] != '\r' {
		s.off++
	}
}

func (s *Scanner) peekNewline(off int) bool {
	return off < len(s.src) && (s.src[off] == '\n' || s.src[off] == '\r')
}

func (s *Scanner) consumeNewline() {
	if s.off < len(s.src) && s.src[s.off] == '\r' {
		s.off++
	}
	if s.off < len(s.src) && s.src[s.off] == '\n' {
		s.off++
	}
}

func (s *Scanner) scanToken() Token {
	start := s.off
	ch := s.src[s.off]

	switch {
	case ch == '"' || ch == '\'':
		return s.scanString(start)
	case isDigit(ch) || (ch == '.' && s.off+1 < len(s.src) && isDigit(s.src[s.off+1])):
		return s.scanNumber(start)
	case isIdentStart(s.src[s.off:]):
		for s.off < len(s.src) && isIdentPart(s.src[s.off:]) {
			_, size := utf8.DecodeRuneInString(s.src[s.off:])
			s.off += size
		}
		word := s.src[start:s.off]
		if isStringPrefix(word) && s.off < len(s.src) && (s.src[s.off] == '"' || s.src[s.off] == '\'') {
			return s.scanString(start)
		}
		return s.emit(NAME, word, start)
	}

	for _, op := range operators {
		if strings.HasPrefix(s.src[s.off:], op) {
			s.off += len(op)
			return s.emit(OP, op, start)
		}
	}
	if strings.IndexByte(singleOps, ch) >= 0 {
		s.off++
		if IsOpenBracket(ch) {
			s.depth++
		} else if IsCloseBracket(ch) && s.depth > 0 {
			s.depth--
		}
		return s.emit(OP, string(ch), start)
	}

	r, size := utf8.DecodeRuneInString(s.src[s.off:])
	s.errorf(start, "unexpected character %q", r)
	s.off += size
	return s.Next()
}

// scanString scans a string literal starting at start (which may point at
// a prefix such as r or b). The token text keeps prefix and quotes.
func (s *Scanner) scanString(start int) Token {
	q := s.src[s.off]
	triple := strings.HasPrefix(s.src[s.off:], strings.Repeat(string(q), 3))
	if triple {
		s.off += 3
	} else {
		s.off++
	}
	for s.off < len(s.src) {
		ch := s.src[s.off]
		switch {
		case ch == '\\':
			s.off += 2
			continue
		case triple && strings.HasPrefix(s.src[s.off:], strings.Repeat(string(q), 3)):
			s.off += 3
			return s.emit(STRING, s.src[start:s.off], start)
		case !triple && ch == q:
			s.off++
			return s.emit(STRING, s.src[start:s.off], start)
		case !triple && (ch == '\n' || ch == '\r'):
			s.errorf(start, "unterminated string literal")
			return s.emit(STRING, s.src[start:s.off], start)
		}
		s.off++
	}
	if s.off > len(s.src) {
		s.off = len(s.src)
	}
	s.errorf(start, "unterminated string literal")
	return s.emit(STRING, s.src[start:s.off], start)
}

// scanNumber accepts integer, float, imaginary and prefixed (0x, 0o, 0b)
// literals, with underscores and signed exponents.
func (s *Scanner) scanNumber(start int) Token {
	dot, letter := false, false
	for s.off < len(s.src) {
		ch := s.src[s.off]
		switch {
		case ch == '.' && !dot && !letter:
			// any later dot starts an attribute access: 1.5.hex()
			dot = true
			s.off++
		case isLetter(ch):
			letter = true
			s.off++
		case isDigit(ch) || ch == '_':
			s.off++
		case (ch == '+' || ch == '-') && s.off > start && (s.src[s.off-1] == 'e' || s.src[s.off-1] == 'E') && !isHex(s.src[start:s.off]):
			s.off++
		default:
			return s.emit(NUMBER, s.src[start:s.off], start)
		}
	}
	return s.emit(NUMBER, s.src[start:s.off], start)
}

// IsOpenBracket reports whether ch is an opening bracket/paren/brace.
func IsOpenBracket(ch byte) bool {
	return ch == '(' || ch == '[' || ch == '{'
}

// IsCloseBracket reports whether ch is a closing bracket/paren/brace.
func IsCloseBracket(ch byte) bool {
	return ch == ')' || ch == ']' || ch == '}'
}

// IsIdentifier reports whether s is a valid, non-keyword identifier.
func IsIdentifier(s string) bool {
	if s == "" || IsKeyword(s) || !isIdentStart(s) {
		return false
	}
	for i := 0; i < len(s); {
		if !isIdentPart(s[i:]) {
			return false
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return true
}

func isDigit(ch byte) bool  { return '0' <= ch && ch <= '9' }
func isLetter(ch byte) bool { return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' }

func isHex(lit string) bool {
	return len(lit) > 1 && lit[0] == '0' && (lit[1] == 'x' || lit[1] == 'X')
}

func isIdentStart(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isStringPrefix(word string) bool {
	switch strings.ToLower(word) {
	case "r", "b", "f", "u", "rb", "br", "fr", "rf":
		return true
	}
	return false
}
