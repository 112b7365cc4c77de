// Package simulate drives a numeric model through the solver: it resolves
// initial concentrations, builds the output time grid, integrates, and
// writes trajectories.
package simulate

import (
	"context"
	"errors"
	"fmt"

	"crnsim/internal/solver"
)

var (
	ErrBadAssignment  = errors.New("simulate: expected <name|index>=<value>")
	ErrIndexRange     = errors.New("simulate: species index out of range")
	ErrNoEndTime      = errors.New("simulate: end time must be non-zero")
	ErrLogZeroStart   = errors.New("simulate: t0 cannot be 0 on a logarithmic grid")
	ErrNoGrid         = errors.New("simulate: need a linear or logarithmic point count")
	ErrDuplicateLabel = errors.New("simulate: label given twice")
	ErrUnknownLabel   = errors.New("simulate: label is not a species")
)

// Model is a numeric ODE model with a positional calling convention.
// Both compiled and loaded models satisfy it.
type Model interface {
	Name() string
	Variables() []string
	DefaultConcentrations() []float64
	ConstantFlags() []bool
	Rates() map[string]float64
	Derivatives(y []float64, t float64, rates map[string]float64) ([]float64, error)
	RHS(rates map[string]float64) (solver.Func, error)
}

// Options holds the integration driver settings
type Options struct {
	P0     []string // "<name|index>=<value>" assignments
	T0     float64
	T8     float64
	TLin   int
	TLog   int
	Solver solver.Options
	Rates  map[string]float64 // Replaces the model's rate table when non-empty
}

// DefaultOptions mirrors the command-line defaults
func DefaultOptions() Options {
	return Options{
		T0:     0,
		T8:     100,
		TLin:   500,
		Solver: solver.DefaultOptions(),
	}
}

// TimeGrid builds the output times. A logarithmic count takes precedence
// over a linear one.
func TimeGrid(opts Options) ([]float64, error) {
	if opts.T8 == 0 {
		return nil, ErrNoEndTime
	}
	switch {
	case opts.TLog > 0:
		if opts.T0 == 0 {
			return nil, ErrLogZeroStart
		}
		return solver.Logspace(opts.T0, opts.T8, opts.TLog)
	case opts.TLin > 0:
		return solver.Linspace(opts.T0, opts.T8, opts.TLin)
	default:
		return nil, ErrNoGrid
	}
}

// Result is a finished simulation
type Result struct {
	Variables  []string
	Initial    []float64
	Trajectory *solver.Trajectory
}

// Run integrates m from y0 over the time grid built from opts
func Run(ctx context.Context, m Model, y0 []float64, opts Options) (*Result, error) {
	vars := m.Variables()
	if len(y0) != len(vars) {
		return nil, fmt.Errorf("initial vector has %d values for %d species", len(y0), len(vars))
	}

	times, err := TimeGrid(opts)
	if err != nil {
		return nil, err
	}

	f, err := m.RHS(opts.Rates)
	if err != nil {
		return nil, err
	}

	tr, err := solver.Integrate(ctx, f, y0, times, opts.Solver)
	if err != nil {
		return nil, fmt.Errorf("simulate %s: %w", m.Name(), err)
	}

	return &Result{
		Variables:  vars,
		Initial:    append([]float64(nil), y0...),
		Trajectory: tr,
	}, nil
}
