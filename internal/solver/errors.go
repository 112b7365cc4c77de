package solver

import (
	"errors"
	"fmt"
)

var (
	ErrStepTooSmall = errors.New("solver: step size underflow")
	ErrMaxSteps     = errors.New("solver: too many steps between output points")
	ErrNonFinite    = errors.New("solver: non-finite state")
	ErrTimeGrid     = errors.New("solver: time grid must be strictly increasing")
)

// IntegrationError reports where integration stopped
type IntegrationError struct {
	Step int
	Time float64
	Err  error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("integration failed at step %d, t=%g: %v", e.Step, e.Time, e.Err)
}

func (e *IntegrationError) Unwrap() error {
	return e.Err
}
