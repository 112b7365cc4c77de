// Package loader runs emitted Go-source models through the yaegi
// interpreter, so a model file written by an earlier compile can be
// simulated without rebuilding the binary.
package loader

import (
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"strconv"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"crnsim/internal/solver"
)

var (
	ErrForbiddenImport = errors.New("loader: import not allowed in model source")
	ErrMissingSymbol   = errors.New("loader: model symbol missing or mistyped")
	ErrModelCall       = errors.New("loader: model function failed")
)

// allowedImports are the packages a model file may use
var allowedImports = map[string]bool{
	"math": true,
}

// OdeFunc is the calling convention of Odesystem and Jacobian
type OdeFunc = func(p0 []float64, t0 float64, r map[string]float64) []float64

// Model is a model loaded from Go source
type Model struct {
	name     string
	svars    []string
	rates    map[string]float64
	defaults []float64
	constant []bool

	ode OdeFunc
	jac OdeFunc
}

// LoadFile loads the model source stored at path
func LoadFile(path string) (*Model, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	m, err := Load(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Load interprets model source and binds its exported symbols
func Load(src string) (*Model, error) {
	pkg, err := inspect(src)
	if err != nil {
		return nil, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib: %w", err)
	}
	if _, err := i.Eval(src); err != nil {
		return nil, fmt.Errorf("model evaluation failed: %w", err)
	}

	m := &Model{name: pkg}

	if err := lookup(i, pkg, "Svars", &m.svars); err != nil {
		return nil, err
	}
	if err := lookup(i, pkg, "Rates", &m.rates); err != nil {
		return nil, err
	}
	if err := lookup(i, pkg, "Odesystem", &m.ode); err != nil {
		return nil, err
	}

	// Defaults, Const and Jacobian are optional
	if err := lookup(i, pkg, "Defaults", &m.defaults); err != nil {
		m.defaults = nil
	}
	if err := lookup(i, pkg, "Const", &m.constant); err != nil {
		m.constant = nil
	}
	if err := lookup(i, pkg, "Jacobian", &m.jac); err != nil {
		m.jac = nil
	}

	if m.defaults == nil {
		m.defaults = make([]float64, len(m.svars))
	}
	if m.constant == nil {
		m.constant = make([]bool, len(m.svars))
	}
	if len(m.defaults) != len(m.svars) || len(m.constant) != len(m.svars) {
		return nil, fmt.Errorf("%w: Defaults and Const must match Svars (%d)", ErrMissingSymbol, len(m.svars))
	}
	return m, nil
}

// inspect returns the package name and rejects imports outside the allowed set
func inspect(src string) (string, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "model.go", src, parser.ImportsOnly)
	if err != nil {
		return "", fmt.Errorf("failed to parse model source: %w", err)
	}
	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil || !allowedImports[path] {
			return "", fmt.Errorf("%w: %s", ErrForbiddenImport, imp.Path.Value)
		}
	}
	return f.Name.Name, nil
}

func lookup[T any](i *interp.Interpreter, pkg, name string, dst *T) error {
	v, err := i.Eval(pkg + "." + name)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMissingSymbol, name, err)
	}
	if !v.IsValid() || !v.CanInterface() {
		return fmt.Errorf("%w: %s", ErrMissingSymbol, name)
	}
	got, ok := v.Interface().(T)
	if !ok {
		return fmt.Errorf("%w: %s has type %s", ErrMissingSymbol, name, v.Type())
	}
	*dst = got
	return nil
}

func (m *Model) Name() string { return m.name }

// Variables returns Svars
func (m *Model) Variables() []string {
	return append([]string(nil), m.svars...)
}

// DefaultConcentrations returns Defaults
func (m *Model) DefaultConcentrations() []float64 {
	return append([]float64(nil), m.defaults...)
}

// ConstantFlags returns Const
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

// HasJacobian reports whether the source declares Jacobian
func (m *Model) HasJacobian() bool {
	return m.jac != nil
}

// Derivatives calls Odesystem, converting a panic in interpreted code into
// an error
func (m *Model) Derivatives(y []float64, t float64, rates map[string]float64) ([]float64, error) {
	return call(m.ode, y, t, rates, len(m.svars))
}

// Jacobian calls the model's Jacobian function
func (m *Model) Jacobian(y []float64, t float64, rates map[string]float64) ([]float64, error) {
	if m.jac == nil {
		return nil, fmt.Errorf("%w: Jacobian not declared", ErrMissingSymbol)
	}
	return call(m.jac, y, t, rates, len(m.svars)*len(m.svars))
}

func call(f OdeFunc, y []float64, t float64, rates map[string]float64, want int) (out []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrModelCall, r)
		}
	}()
	out = f(y, t, rates)
	if len(out) != want {
		return nil, fmt.Errorf("%w: returned %d values, want %d", ErrModelCall, len(out), want)
	}
	return out, nil
}

// RHS validates one call at the default concentrations and returns a solver
// right-hand side bound to rates
func (m *Model) RHS(rates map[string]float64) (solver.Func, error) {
	if _, err := m.Derivatives(m.DefaultConcentrations(), 0, rates); err != nil {
		return nil, err
	}
	f := m.ode
	return func(t float64, y, dydt []float64) {
		copy(dydt, f(y, t, rates))
	}, nil
}
