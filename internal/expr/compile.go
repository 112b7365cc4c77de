package expr

import (
	"errors"
	"fmt"
)

// ErrUnbound is returned when a variable has no slot in the layout
var ErrUnbound = errors.New("expr: unbound variable")

// Layout assigns each variable a position: species index into the state
// vector, parameters index into the parameter vector.
type Layout struct {
	Species map[string]int
	Params  map[string]int
}

// Func evaluates a compiled expression
type Func func(y, k []float64) float64

// Compile turns e into a closure over positional state and parameter
// vectors
func Compile(e Expr, layout Layout) (Func, error) {
	switch n := e.(type) {
	case Const:
		v := n.Value
		return func(_, _ []float64) float64 { return v }, nil

	case Var:
		slots := layout.Species
		if n.Kind == ParamVar {
			slots = layout.Params
		}
		i, ok := slots[n.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnbound, n.Name)
		}
		if n.Kind == ParamVar {
			return func(_, k []float64) float64 { return k[i] }, nil
		}
		return func(y, _ []float64) float64 { return y[i] }, nil

	case Neg:
		f, err := Compile(n.X, layout)
		if err != nil {
			return nil, err
		}
		return func(y, k []float64) float64 { return -f(y, k) }, nil

	case Sum:
		fs, err := compileAll(n.Terms, layout)
		if err != nil {
			return nil, err
		}
		return func(y, k []float64) float64 {
			var s float64
			for _, f := range fs {
				s += f(y, k)
			}
			return s
		}, nil

	case Product:
		fs, err := compileAll(n.Factors, layout)
		if err != nil {
			return nil, err
		}
		return func(y, k []float64) float64 {
			p := 1.0
			for _, f := range fs {
				p *= f(y, k)
			}
			return p
		}, nil

	default:
		return nil, fmt.Errorf("expr: cannot compile %T", e)
	}
}

func compileAll(es []Expr, layout Layout) ([]Func, error) {
	fs := make([]Func, len(es))
	for i, e := range es {
		f, err := Compile(e, layout)
		if err != nil {
			return nil, err
		}
		fs[i] = f
	}
	return fs, nil
}
