package ode

import (
	"sort"

	"go.uber.org/zap"

	"crnsim/internal/domain"
	"crnsim/internal/expr"
	"crnsim/internal/graph"
)

// Options configures Assemble
type Options struct {
	// Order fixes the variable order. Empty means the lexicographic sort of
	// all species with at least one term ("10" sorts before "2").
	Order []string

	// Constant marks variables whose derivative is forced to zero
	Constant []bool

	// Concentrations are initial values aligned with the variable order
	Concentrations []float64

	Jacobian  bool
	RateNames bool

	Logger *zap.Logger
}

// Assemble builds the symbolic ODE system of a reaction graph. Each
// variable's derivative is the normalized sum of its mass-action terms;
// constant variables get the zero expression. With Jacobian set every entry
// is differentiated on its own.
func Assemble(g *graph.Graph, opts Options) (*System, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	terms, dict, err := g.Terms(opts.RateNames)
	if err != nil {
		return nil, err
	}

	n := terms.Len()
	if len(opts.Order) > 0 {
		n = len(opts.Order)
	}
	if opts.Concentrations != nil && len(opts.Concentrations) != n {
		return nil, &ConfigError{Err: ErrConcentrationLength, Got: len(opts.Concentrations), Want: n}
	}
	if opts.Constant != nil && len(opts.Constant) != n {
		return nil, &ConfigError{Err: ErrConstLength, Got: len(opts.Constant), Want: n}
	}

	vars, err := variableOrder(terms, opts.Order)
	if err != nil {
		return nil, err
	}

	sys := &System{
		Variables: vars,
		ODEs:      make([]expr.Expr, len(vars)),
		RateNames: dict.Names(),
		Rates:     dict.Values(),
	}
	if opts.Constant != nil {
		sys.Constant = append([]bool(nil), opts.Constant...)
	}
	if opts.Concentrations != nil {
		sys.Concentrations = append([]float64(nil), opts.Concentrations...)
	}

	for i, v := range vars {
		ts, ok := terms.Get(v)
		if !ok {
			return nil, &ConfigError{Err: ErrMissingTerms, Name: v}
		}
		if sys.IsConstant(i) {
			sys.ODEs[i] = expr.Zero
			continue
		}
		sys.ODEs[i] = expr.Normalize(sumTerms(ts))
	}

	if opts.Jacobian {
		log.Debug("computing jacobian", zap.Int("variables", len(vars)))
		sys.Jacobian = make([]expr.Expr, 0, len(vars)*len(vars))
		for _, f := range sys.ODEs {
			for _, x := range vars {
				sys.Jacobian = append(sys.Jacobian, expr.Normalize(expr.Diff(f, expr.S(x))))
			}
		}
	}

	return sys, nil
}

func variableOrder(terms *graph.TermSet, order []string) ([]string, error) {
	if len(order) == 0 {
		vars := terms.Species()
		sort.Strings(vars)
		return vars, nil
	}

	if len(order) != terms.Len() {
		return nil, &ConfigError{Err: ErrOrderLength, Got: len(order), Want: terms.Len()}
	}
	seen := make(map[string]bool, len(order))
	for _, v := range order {
		if seen[v] {
			return nil, &ConfigError{Err: ErrDuplicateVariable, Name: v}
		}
		seen[v] = true
	}
	return append([]string(nil), order...), nil
}

func sumTerms(ts []graph.Term) expr.Expr {
	out := make([]expr.Expr, len(ts))
	for i, t := range ts {
		factors := make([]expr.Expr, 0, len(t.Factors)+1)
		factors = append(factors, rateExpr(t.Rate))
		for _, f := range t.Factors {
			factors = append(factors, expr.S(f))
		}
		var e expr.Expr = expr.Mul(factors...)
		if t.Sign < 0 {
			e = expr.Negate(e)
		}
		out[i] = e
	}
	return expr.Add(out...)
}

func rateExpr(r domain.Rate) expr.Expr {
	if r.Kind == domain.RateNamed {
		return expr.P(r.Name)
	}
	return expr.C(r.Value)
}
