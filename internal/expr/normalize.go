package expr

import (
	"sort"
	"strings"
)

// monomial is coef * vars; vars are sorted with parameters first
type monomial struct {
	coef float64
	vars []Var
}

func (m monomial) key() string {
	var b strings.Builder
	for _, v := range m.vars {
		if v.Kind == ParamVar {
			b.WriteString("p:")
		} else {
			b.WriteString("s:")
		}
		b.WriteString(v.Name)
		b.WriteByte(0)
	}
	return b.String()
}

func varLess(a, b Var) bool {
	if a.Kind != b.Kind {
		return a.Kind == ParamVar
	}
	return a.Name < b.Name
}

// Normalize expands e into a sum of monomials. Like monomials are combined
// into the position of their first appearance and zero coefficients are
// dropped. Within a monomial the coefficient comes first, then parameters,
// then species, each group ordered by name.
func Normalize(e Expr) Expr {
	monos := expand(e)

	var order []string
	combined := make(map[string]*monomial)
	for _, m := range monos {
		sort.SliceStable(m.vars, func(i, j int) bool { return varLess(m.vars[i], m.vars[j]) })
		k := m.key()
		if c, ok := combined[k]; ok {
			c.coef += m.coef
			continue
		}
		mm := m
		combined[k] = &mm
		order = append(order, k)
	}

	var terms []Expr
	for _, k := range order {
		if m := combined[k]; m.coef != 0 {
			terms = append(terms, m.expr())
		}
	}
	return sumOf(terms)
}

func (m monomial) expr() Expr {
	neg := m.coef < 0
	coef := m.coef
	if neg {
		coef = -coef
	}

	var factors []Expr
	if coef != 1 || len(m.vars) == 0 {
		factors = append(factors, C(coef))
	}
	for _, v := range m.vars {
		factors = append(factors, v)
	}

	var out Expr
	if len(factors) == 1 {
		out = factors[0]
	} else {
		out = Mul(factors...)
	}
	if neg {
		return Negate(out)
	}
	return out
}

func expand(e Expr) []monomial {
	switch n := e.(type) {
	case Const:
		return []monomial{{coef: n.Value}}
	case Var:
		return []monomial{{coef: 1, vars: []Var{n}}}
	case Neg:
		ms := expand(n.X)
		for i := range ms {
			ms[i].coef = -ms[i].coef
		}
		return ms
	case Sum:
		var out []monomial
		for _, t := range n.Terms {
			out = append(out, expand(t)...)
		}
		return out
	case Product:
		acc := []monomial{{coef: 1}}
		for _, f := range n.Factors {
			fm := expand(f)
			next := make([]monomial, 0, len(acc)*len(fm))
			for _, a := range acc {
				for _, b := range fm {
					vars := make([]Var, 0, len(a.vars)+len(b.vars))
					vars = append(vars, a.vars...)
					vars = append(vars, b.vars...)
					next = append(next, monomial{coef: a.coef * b.coef, vars: vars})
				}
			}
			acc = next
		}
		return acc
	default:
		return nil
	}
}
