package expr

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrSyntax is returned by Parse for text that Format cannot have produced
var ErrSyntax = errors.New("expr: syntax error")

// Resolver tells Parse what a name refers to. ok is false for unknown names.
type Resolver func(name string) (kind VarKind, ok bool)

// Parse reads an expression in the notation written by Format with a nil
// Namer: numbers, names, '+', '-', '*' and parentheses.
func Parse(s string, resolve Resolver) (Expr, error) {
	p := &exprParser{src: s, resolve: resolve}
	e, err := p.sum()
	if err != nil {
		return nil, err
	}
	p.blank()
	if p.off < len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.off:p.off+1])
	}
	return e, nil
}

type exprParser struct {
	src     string
	off     int
	resolve Resolver
}

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d in %q: %s", ErrSyntax, p.off, p.src, fmt.Sprintf(format, args...))
}

func (p *exprParser) blank() {
	for p.off < len(p.src) && p.src[p.off] == ' ' {
		p.off++
	}
}

// peek returns the next non-blank byte, or 0 at the end
func (p *exprParser) peek() byte {
	p.blank()
	if p.off < len(p.src) {
		return p.src[p.off]
	}
	return 0
}

// sum := ["-"] product { ("+" | "-") product }
func (p *exprParser) sum() (Expr, error) {
	var terms []Expr
	neg := false
	if p.peek() == '-' {
		p.off++
		neg = true
	}
	for {
		t, err := p.product()
		if err != nil {
			return nil, err
		}
		if neg {
			t = Neg{X: t}
		}
		terms = append(terms, t)

		switch p.peek() {
		case '+':
			neg = false
		case '-':
			neg = true
		default:
			if len(terms) == 1 {
				return terms[0], nil
			}
			return Sum{Terms: terms}, nil
		}
		p.off++
	}
}

// product := factor { "*" factor }
func (p *exprParser) product() (Expr, error) {
	var factors []Expr
	for {
		f, err := p.factor()
		if err != nil {
			return nil, err
		}
		factors = append(factors, f)
		if p.peek() != '*' {
			break
		}
		p.off++
	}
	if len(factors) == 1 {
		return factors[0], nil
	}
	return Product{Factors: factors}, nil
}

// factor := number | name | "(" sum ")"
func (p *exprParser) factor() (Expr, error) {
	c := p.peek()
	switch {
	case c == '(':
		p.off++
		e, err := p.sum()
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, p.errorf("expected ')'")
		}
		p.off++
		return e, nil

	case isDigit(c) || c == '.':
		return p.number()

	case isNameStart(c):
		start := p.off
		for p.off < len(p.src) && (isNameStart(p.src[p.off]) || isDigit(p.src[p.off])) {
			p.off++
		}
		name := p.src[start:p.off]
		kind, ok := p.resolve(name)
		if !ok {
			p.off = start
			return nil, p.errorf("unknown name %q", name)
		}
		return Var{Name: name, Kind: kind}, nil

	case c == 0:
		return nil, p.errorf("unexpected end of expression")
	}
	return nil, p.errorf("unexpected %q", string(c))
}

func (p *exprParser) number() (Expr, error) {
	start := p.off
	for p.off < len(p.src) && (isDigit(p.src[p.off]) || p.src[p.off] == '.') {
		p.off++
	}
	if p.off < len(p.src) && (p.src[p.off] == 'e' || p.src[p.off] == 'E') {
		p.off++
		if p.off < len(p.src) && (p.src[p.off] == '+' || p.src[p.off] == '-') {
			p.off++
		}
		for p.off < len(p.src) && isDigit(p.src[p.off]) {
			p.off++
		}
	}
	v, err := strconv.ParseFloat(p.src[start:p.off], 64)
	if err != nil {
		p.off = start
		return nil, p.errorf("invalid number")
	}
	return Const{Value: v}, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
