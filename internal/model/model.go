// Package model turns an assembled ODE system into callable numeric
// functions with a fixed positional calling convention.
package model

import (
	"errors"
	"fmt"

	"crnsim/internal/expr"
	"crnsim/internal/ode"
	"crnsim/internal/solver"
)

var (
	ErrUnknownVariable = errors.New("model: unknown variable")
	ErrMissingRate     = errors.New("model: no value for rate parameter")
	ErrNoJacobian      = errors.New("model: jacobian was not assembled")
	ErrStateLength     = errors.New("model: state vector length mismatch")
)

// Model evaluates the right-hand side and Jacobian of an ODE system.
// State vectors follow Variables(); rate overrides are keyed by parameter
// name and replace the embedded rate table as a whole.
type Model struct {
	name      string
	variables []string
	params    []string
	rates     map[string]float64
	defaults  []float64
	constant  []bool

	rhs []expr.Func
	jac []expr.Func
}

// New compiles sys into a model
func New(name string, sys *ode.System) (*Model, error) {
	layout := expr.Layout{
		Species: make(map[string]int, len(sys.Variables)),
		Params:  make(map[string]int, len(sys.RateNames)),
	}
	for i, v := range sys.Variables {
		layout.Species[v] = i
	}
	for i, p := range sys.RateNames {
		layout.Params[p] = i
	}

	m := &Model{
		name:      name,
		variables: append([]string(nil), sys.Variables...),
		params:    append([]string(nil), sys.RateNames...),
		rates:     make(map[string]float64, len(sys.Rates)),
		constant:  make([]bool, len(sys.Variables)),
		defaults:  make([]float64, len(sys.Variables)),
	}
	for k, v := range sys.Rates {
		m.rates[k] = v
	}
	copy(m.constant, sys.Constant)
	copy(m.defaults, sys.Concentrations)

	var err error
	if m.rhs, err = compile(sys.ODEs, layout); err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	if sys.HasJacobian() {
		if m.jac, err = compile(sys.Jacobian, layout); err != nil {
			return nil, fmt.Errorf("compile %s jacobian: %w", name, err)
		}
	}
	return m, nil
}

func compile(es []expr.Expr, layout expr.Layout) ([]expr.Func, error) {
	fs := make([]expr.Func, len(es))
	for i, e := range es {
		f, err := expr.Compile(e, layout)
		if err != nil {
			return nil, err
		}
		fs[i] = f
	}
	return fs, nil
}

func (m *Model) Name() string { return m.name }

// Variables returns the variable order
func (m *Model) Variables() []string {
	return append([]string(nil), m.variables...)
}

// DefaultConcentrations returns the pre-seeded initial values
func (m *Model) DefaultConcentrations() []float64 {
	return append([]float64(nil), m.defaults...)
}

// ConstantFlags returns the held-constant flag of each variable
func (m *Model) ConstantFlags() []bool {
	return append([]bool(nil), m.constant...)
}

// Rates returns a copy of the embedded rate table
func (m *Model) Rates() map[string]float64 {
	out := make(map[string]float64, len(m.rates))
	for k, v := range m.rates {
		out[k] = v
	}
	return out
}

// HasJacobian reports whether Jacobian can be called
func (m *Model) HasJacobian() bool {
	return m.jac != nil
}

// Index returns the position of a variable
func (m *Model) Index(name string) (int, error) {
	for i, v := range m.variables {
		if v == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownVariable, name)
}

// paramVector resolves the parameter values; an empty override falls back
// to the embedded rates
func (m *Model) paramVector(rates map[string]float64) ([]float64, error) {
	if len(rates) == 0 {
		rates = m.rates
	}
	k := make([]float64, len(m.params))
	for i, p := range m.params {
		v, ok := rates[p]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingRate, p)
		}
		k[i] = v
	}
	return k, nil
}

// Derivatives returns dy/dt at (y, t)
func (m *Model) Derivatives(y []float64, t float64, rates map[string]float64) ([]float64, error) {
	if len(y) != len(m.variables) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrStateLength, len(y), len(m.variables))
	}
	k, err := m.paramVector(rates)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(m.rhs))
	for i, f := range m.rhs {
		out[i] = f(y, k)
	}
	return out, nil
}

// Jacobian returns the row-major Jacobian at (y, t)
func (m *Model) Jacobian(y []float64, t float64, rates map[string]float64) ([]float64, error) {
	if m.jac == nil {
		return nil, ErrNoJacobian
	}
	if len(y) != len(m.variables) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrStateLength, len(y), len(m.variables))
	}
	k, err := m.paramVector(rates)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(m.jac))
	for i, f := range m.jac {
		out[i] = f(y, k)
	}
	return out, nil
}

// RHS binds the rates once and returns a solver right-hand side
func (m *Model) RHS(rates map[string]float64) (solver.Func, error) {
	k, err := m.paramVector(rates)
	if err != nil {
		return nil, err
	}
	fs := m.rhs
	return func(_ float64, y, dydt []float64) {
		for i, f := range fs {
			dydt[i] = f(y, k)
		}
	}, nil
}
