package ode

import (
	"errors"
	"fmt"
)

var (
	ErrConcentrationLength = errors.New("ode: concentration vector does not match variable order")
	ErrOrderLength         = errors.New("ode: variable order does not match species with ODE terms")
	ErrMissingTerms        = errors.New("ode: variable has no ODE terms")
	ErrConstLength         = errors.New("ode: constant flags do not match variable order")
	ErrDuplicateVariable   = errors.New("ode: variable listed twice")
)

// ConfigError is a configuration inconsistency detected during assembly
type ConfigError struct {
	Err  error
	Got  int
	Want int
	Name string // Offending variable, when there is one
}

func (e *ConfigError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Name)
	}
	return fmt.Sprintf("%v: got %d, want %d", e.Err, e.Got, e.Want)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
