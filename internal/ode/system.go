package ode

import (
	"fmt"

	"crnsim/internal/expr"
)

// System is an assembled ODE system. Variables is the single source of
// truth for positions: ODEs[i] is the derivative of Variables[i], and
// Jacobian[i*n+j] is the partial derivative of ODEs[i] by Variables[j].
type System struct {
	Variables []string
	ODEs      []expr.Expr
	Jacobian  []expr.Expr

	// RateNames lists minted rate parameters in minting order; Rates holds
	// the value of each one that had a literal rate.
	RateNames []string
	Rates     map[string]float64

	Constant       []bool
	Concentrations []float64
}

// Len returns the number of variables
func (s *System) Len() int {
	return len(s.Variables)
}

// Index returns the position of a variable
func (s *System) Index(name string) (int, bool) {
	for i, v := range s.Variables {
		if v == name {
			return i, true
		}
	}
	return 0, false
}

// HasJacobian reports whether the Jacobian was computed
func (s *System) HasJacobian() bool {
	return s.Jacobian != nil
}

// IsConstant reports whether variable i is held constant
func (s *System) IsConstant(i int) bool {
	return i < len(s.Constant) && s.Constant[i]
}

// Equations renders each ODE as "d[X]/dt = ..."
func (s *System) Equations() []string {
	out := make([]string, len(s.ODEs))
	for i, e := range s.ODEs {
		out[i] = fmt.Sprintf("d[%s]/dt = %s", s.Variables[i], e)
	}
	return out
}
