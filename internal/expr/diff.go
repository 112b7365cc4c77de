package expr

// Diff returns the partial derivative of e with respect to v using the sum
// and product rules. The result is not simplified; pass it through
// Normalize for a compact form.
func Diff(e Expr, v Var) Expr {
	switch n := e.(type) {
	case Const:
		return Zero
	case Var:
		if n == v {
			return C(1)
		}
		return Zero
	case Neg:
		d := Diff(n.X, v)
		if IsZero(d) {
			return Zero
		}
		return Negate(d)
	case Sum:
		var terms []Expr
		for _, t := range n.Terms {
			if d := Diff(t, v); !IsZero(d) {
				terms = append(terms, d)
			}
		}
		return sumOf(terms)
	case Product:
		var terms []Expr
		for i, f := range n.Factors {
			d := Diff(f, v)
			if IsZero(d) {
				continue
			}
			factors := make([]Expr, len(n.Factors))
			copy(factors, n.Factors)
			factors[i] = d
			terms = append(terms, Mul(factors...))
		}
		return sumOf(terms)
	default:
		return Zero
	}
}

func sumOf(terms []Expr) Expr {
	switch len(terms) {
	case 0:
		return Zero
	case 1:
		return terms[0]
	default:
		return Add(terms...)
	}
}
