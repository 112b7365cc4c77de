package expr

import (
	"strconv"
	"strings"
)

// Namer renders a variable reference. A nil Namer prints the bare name.
type Namer func(Var) string

const (
	precSum = iota
	precProduct
	precUnary
)

// Format renders e as an infix expression that is also valid Go source,
// given that the Namer produces valid operands. Subtraction is written as
// "a - b" and a minus sign is never doubled.
func Format(e Expr, name Namer) string {
	if name == nil {
		name = func(v Var) string { return v.Name }
	}
	var b strings.Builder
	format(&b, e, name, precSum)
	return b.String()
}

func format(b *strings.Builder, e Expr, name Namer, prec int) {
	switch n := e.(type) {
	case Const:
		s := strconv.FormatFloat(n.Value, 'g', -1, 64)
		if n.Value < 0 && prec > precSum {
			b.WriteString("(" + s + ")")
		} else {
			b.WriteString(s)
		}

	case Var:
		b.WriteString(name(n))

	case Neg:
		if prec > precSum {
			b.WriteByte('(')
		}
		b.WriteByte('-')
		format(b, n.X, name, precProduct)
		if prec > precSum {
			b.WriteByte(')')
		}

	case Sum:
		if len(n.Terms) == 0 {
			b.WriteString("0")
			return
		}
		if prec > precSum {
			b.WriteByte('(')
		}
		for i, t := range n.Terms {
			neg, isNeg := t.(Neg)
			switch {
			case i == 0:
				format(b, t, name, precSum)
			case isNeg:
				b.WriteString(" - ")
				format(b, neg.X, name, precProduct)
			default:
				b.WriteString(" + ")
				format(b, t, name, precProduct)
			}
		}
		if prec > precSum {
			b.WriteByte(')')
		}

	case Product:
		if len(n.Factors) == 0 {
			b.WriteString("1")
			return
		}
		if prec > precProduct {
			b.WriteByte('(')
		}
		for i, f := range n.Factors {
			if i > 0 {
				b.WriteByte('*')
			}
			format(b, f, name, precUnary)
		}
		if prec > precProduct {
			b.WriteByte(')')
		}
	}
}
