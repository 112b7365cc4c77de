package parser

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNewline
	tokSemi
	tokIdent
	tokInt    // Stoichiometric multiplier
	tokNumber // Rate or concentration value
	tokKind   // Concentration kind keyword
	tokPlus
	tokArrow    // ->
	tokRevArrow // <=>
	tokAt
	tokLBrack
	tokRBrack
	tokComma
	tokEquals
)

var tokenNames = map[tokenKind]string{
	tokEOF:      "end of input",
	tokNewline:  "end of line",
	tokSemi:     "';'",
	tokIdent:    "identifier",
	tokInt:      "multiplier",
	tokNumber:   "number",
	tokKind:     "concentration kind",
	tokPlus:     "'+'",
	tokArrow:    "'->'",
	tokRevArrow: "'<=>'",
	tokAt:       "'@'",
	tokLBrack:   "'['",
	tokRBrack:   "']'",
	tokComma:    "','",
	tokEquals:   "'='",
}

func (k tokenKind) String() string {
	if s, ok := tokenNames[k]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// scanMode selects how the next token is read. Digits are a multiplier at
// the top level and a number inside brackets or after a concentration kind.
type scanMode int

const (
	modeTop scanMode = iota
	modeBracket
	modeKind
	modeValue
)

type token struct {
	kind tokenKind
	text string
	off  int
	line int
	col  int
}

func (t token) describe() string {
	switch t.kind {
	case tokIdent, tokInt, tokNumber, tokKind:
		return fmt.Sprintf("%s %q", t.kind, t.text)
	default:
		return t.kind.String()
	}
}

type scanner struct {
	src       string
	off       int
	line      int
	lineStart int
}

func newScanner(src string) *scanner {
	return &scanner{src: src, line: 1}
}

// concentration kinds are matched by prefix in this order
var kindKeywords = []string{"initial", "i", "constant", "c"}

func (s *scanner) next(mode scanMode) (token, error) {
	s.skip(mode == modeBracket)

	start := s.mark()
	if s.off >= len(s.src) {
		return start, nil
	}

	c := s.src[s.off]
	switch {
	case c == '\n':
		s.off++
		s.line++
		s.lineStart = s.off
		start.kind, start.text = tokNewline, "\n"
		return start, nil

	case mode == modeKind:
		rest := s.src[s.off:]
		for _, kw := range kindKeywords {
			if strings.HasPrefix(rest, kw) {
				s.off += len(kw)
				start.kind, start.text = tokKind, kw
				return start, nil
			}
		}
		return start, s.errorf(start, "expected concentration kind (initial, i, constant, c)")

	case isDigit(c):
		if mode == modeTop {
			text := s.digits()
			start.kind, start.text = tokInt, text
			return start, nil
		}
		text, err := s.number(start)
		if err != nil {
			return start, err
		}
		start.kind, start.text = tokNumber, text
		return start, nil

	case isLetter(c):
		i := s.off + 1
		for i < len(s.src) && (isLetter(s.src[i]) || isDigit(s.src[i]) || s.src[i] == '_') {
			i++
		}
		start.kind, start.text = tokIdent, s.src[s.off:i]
		s.off = i
		return start, nil
	}

	rest := s.src[s.off:]
	for _, p := range []struct {
		lit  string
		kind tokenKind
	}{
		{"<=>", tokRevArrow},
		{"->", tokArrow},
		{";", tokSemi},
		{"+", tokPlus},
		{"@", tokAt},
		{"[", tokLBrack},
		{"]", tokRBrack},
		{",", tokComma},
		{"=", tokEquals},
	} {
		if strings.HasPrefix(rest, p.lit) {
			s.off += len(p.lit)
			start.kind, start.text = p.kind, p.lit
			return start, nil
		}
	}

	return start, s.errorf(start, "unexpected character %q", rest[:1])
}

// skip consumes blanks and comments. Line ends are only skipped when
// newlines is set; a comment never consumes its terminating line end.
func (s *scanner) skip(newlines bool) {
	for s.off < len(s.src) {
		switch c := s.src[s.off]; {
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			s.off++
		case c == '#':
			for s.off < len(s.src) && s.src[s.off] != '\n' {
				s.off++
			}
		case c == '\n' && newlines:
			s.off++
			s.line++
			s.lineStart = s.off
		default:
			return
		}
	}
}

func (s *scanner) mark() token {
	return token{off: s.off, line: s.line, col: s.off - s.lineStart + 1}
}

func (s *scanner) digits() string {
	i := s.off
	for i < len(s.src) && isDigit(s.src[i]) {
		i++
	}
	text := s.src[s.off:i]
	s.off = i
	return text
}

// number reads digits ['.' digits] [('e'|'E') ['+'|'-'] digits]
func (s *scanner) number(start token) (string, error) {
	begin := s.off
	s.digits()

	if s.off < len(s.src) && s.src[s.off] == '.' {
		s.off++
		if s.off >= len(s.src) || !isDigit(s.src[s.off]) {
			return "", s.errorf(s.mark(), "expected digits after decimal point")
		}
		s.digits()
	}

	if s.off < len(s.src) && (s.src[s.off] == 'e' || s.src[s.off] == 'E') {
		s.off++
		if s.off < len(s.src) && (s.src[s.off] == '+' || s.src[s.off] == '-') {
			s.off++
		}
		if s.off >= len(s.src) || !isDigit(s.src[s.off]) {
			return "", s.errorf(s.mark(), "expected exponent digits")
		}
		s.digits()
	}

	return s.src[begin:s.off], nil
}

// lineText returns the physical line containing offset off
func (s *scanner) lineText(off int) string {
	begin := strings.LastIndexByte(s.src[:off], '\n') + 1
	end := strings.IndexByte(s.src[off:], '\n')
	if end < 0 {
		return strings.TrimRight(s.src[begin:], "\r")
	}
	return strings.TrimRight(s.src[begin:off+end], "\r")
}

func (s *scanner) errorf(at token, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Line:   at.line,
		Column: at.col,
		Text:   s.lineText(at.off),
		Msg:    fmt.Sprintf(format, args...),
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
