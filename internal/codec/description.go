package codec

import (
	"errors"
	"fmt"

	"crnsim/internal/expr"
	"crnsim/internal/ode"
)

// ErrInvalidDescription is returned when a description cannot be turned
// back into an ODE system
var ErrInvalidDescription = errors.New("codec: invalid model description")

// Description is the readable, serializable form of an ODE system
type Description struct {
	Name      string      `json:"name" yaml:"name"`
	Variables []string    `json:"variables" yaml:"variables"`
	ODEs      []string    `json:"odes" yaml:"odes"`
	Jacobian  []string    `json:"jacobian,omitempty" yaml:"jacobian,omitempty"`
	Rates     []RateEntry `json:"rates,omitempty" yaml:"rates,omitempty"`
	Defaults  []float64   `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Constant  []bool      `json:"constant,omitempty" yaml:"constant,omitempty"`
}

// RateEntry is one rate parameter; Value is nil when no rate was given
type RateEntry struct {
	Name  string   `json:"name" yaml:"name"`
	Value *float64 `json:"value" yaml:"value"`
}

// Describe converts sys into a Description
func Describe(name string, sys *ode.System) *Description {
	d := &Description{
		Name:      name,
		Variables: append([]string(nil), sys.Variables...),
		ODEs:      make([]string, len(sys.ODEs)),
	}
	for i, e := range sys.ODEs {
		d.ODEs[i] = e.String()
	}
	if sys.HasJacobian() {
		d.Jacobian = make([]string, len(sys.Jacobian))
		for i, e := range sys.Jacobian {
			d.Jacobian[i] = e.String()
		}
	}
	for _, n := range sys.RateNames {
		entry := RateEntry{Name: n}
		if v, ok := sys.Rates[n]; ok {
			v := v
			entry.Value = &v
		}
		d.Rates = append(d.Rates, entry)
	}
	if sys.Concentrations != nil {
		d.Defaults = append([]float64(nil), sys.Concentrations...)
	}
	if sys.Constant != nil {
		d.Constant = append([]bool(nil), sys.Constant...)
	}
	return d
}

// RateValues returns the rate table with unresolved entries left out
func (d *Description) RateValues() map[string]float64 {
	out := make(map[string]float64, len(d.Rates))
	for _, r := range d.Rates {
		if r.Value != nil {
			out[r.Name] = *r.Value
		}
	}
	return out
}

// System rebuilds the ODE system a description was made from. Names in the
// equations must be listed variables or rate parameters.
func (d *Description) System() (*ode.System, error) {
	n := len(d.Variables)
	if n == 0 {
		return nil, fmt.Errorf("%w: no variables", ErrInvalidDescription)
	}
	if len(d.ODEs) != n {
		return nil, fmt.Errorf("%w: %d variables but %d odes", ErrInvalidDescription, n, len(d.ODEs))
	}
	if len(d.Jacobian) != 0 && len(d.Jacobian) != n*n {
		return nil, fmt.Errorf("%w: jacobian has %d entries, want %d", ErrInvalidDescription, len(d.Jacobian), n*n)
	}
	if len(d.Defaults) != 0 && len(d.Defaults) != n {
		return nil, fmt.Errorf("%w: %d defaults for %d variables", ErrInvalidDescription, len(d.Defaults), n)
	}
	if len(d.Constant) != 0 && len(d.Constant) != n {
		return nil, fmt.Errorf("%w: %d constant flags for %d variables", ErrInvalidDescription, len(d.Constant), n)
	}

	kinds := make(map[string]expr.VarKind, n+len(d.Rates))
	for _, v := range d.Variables {
		if _, dup := kinds[v]; dup {
			return nil, fmt.Errorf("%w: variable %s listed twice", ErrInvalidDescription, v)
		}
		kinds[v] = expr.SpeciesVar
	}
	sys := &ode.System{
		Variables: append([]string(nil), d.Variables...),
		Rates:     d.RateValues(),
	}
	for _, r := range d.Rates {
		if _, dup := kinds[r.Name]; dup {
			return nil, fmt.Errorf("%w: rate %s clashes with another name", ErrInvalidDescription, r.Name)
		}
		kinds[r.Name] = expr.ParamVar
		sys.RateNames = append(sys.RateNames, r.Name)
	}
	resolve := func(name string) (expr.VarKind, bool) {
		k, ok := kinds[name]
		return k, ok
	}

	var err error
	if sys.ODEs, err = parseAll(d.ODEs, resolve); err != nil {
		return nil, err
	}
	if len(d.Jacobian) > 0 {
		if sys.Jacobian, err = parseAll(d.Jacobian, resolve); err != nil {
			return nil, err
		}
	}
	if len(d.Defaults) > 0 {
		sys.Concentrations = append([]float64(nil), d.Defaults...)
	}
	if len(d.Constant) > 0 {
		sys.Constant = append([]bool(nil), d.Constant...)
	}
	return sys, nil
}

func parseAll(src []string, resolve expr.Resolver) ([]expr.Expr, error) {
	out := make([]expr.Expr, len(src))
	for i, s := range src {
		e, err := expr.Parse(s, resolve)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDescription, err)
		}
		out[i] = e
	}
	return out, nil
}
