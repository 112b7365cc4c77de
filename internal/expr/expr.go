// Package expr is a small expression tree for polynomial rate laws.
//
// Five node types cover everything a mass-action ODE needs: constants,
// variables, sums, products and negation. Variables are opaque names tagged
// as species or parameters, so names such as sin or cos carry no meaning.
package expr

// VarKind separates state variables from rate parameters
type VarKind int

const (
	SpeciesVar VarKind = iota
	ParamVar
)

// Expr is a node of the expression tree
type Expr interface {
	String() string
	isExpr()
}

// Const is a numeric literal
type Const struct {
	Value float64
}

// Var is a species concentration or a rate parameter
type Var struct {
	Name string
	Kind VarKind
}

// Sum adds its terms; an empty sum is zero
type Sum struct {
	Terms []Expr
}

// Product multiplies its factors; an empty product is one
type Product struct {
	Factors []Expr
}

// Neg negates its operand
type Neg struct {
	X Expr
}

func (Const) isExpr()   {}
func (Var) isExpr()     {}
func (Sum) isExpr()     {}
func (Product) isExpr() {}
func (Neg) isExpr()     {}

func (c Const) String() string   { return Format(c, nil) }
func (v Var) String() string     { return v.Name }
func (s Sum) String() string     { return Format(s, nil) }
func (p Product) String() string { return Format(p, nil) }
func (n Neg) String() string     { return Format(n, nil) }

// C returns a constant
func C(v float64) Const { return Const{Value: v} }

// S returns a species variable
func S(name string) Var { return Var{Name: name, Kind: SpeciesVar} }

// P returns a parameter variable
func P(name string) Var { return Var{Name: name, Kind: ParamVar} }

// Zero is the constant 0
var Zero Expr = Const{}

// Add builds a sum
func Add(terms ...Expr) Expr { return Sum{Terms: terms} }

// Mul builds a product
func Mul(factors ...Expr) Expr { return Product{Factors: factors} }

// Negate builds a negation
func Negate(x Expr) Expr { return Neg{X: x} }

// IsZero reports whether e is the literal zero
func IsZero(e Expr) bool {
	c, ok := e.(Const)
	return ok && c.Value == 0
}

// Variables returns the distinct variables of e in order of first
// appearance
func Variables(e Expr) []Var {
	var out []Var
	seen := make(map[Var]bool)
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case Var:
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		case Sum:
			for _, t := range n.Terms {
				walk(t)
			}
		case Product:
			for _, f := range n.Factors {
				walk(f)
			}
		case Neg:
			walk(n.X)
		}
	}
	walk(e)
	return out
}
