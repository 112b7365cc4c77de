// Package solver integrates ODE systems with an adaptive explicit
// Runge-Kutta method.
//
// Integrate advances a Dormand-Prince 5(4) pair with embedded error control
// and lands exactly on every requested output time, so the returned
// trajectory holds one state per grid point.
package solver

import (
	"context"
	"fmt"
	"math"
)

// Func evaluates the right-hand side dy/dt = f(t, y) into dydt
type Func func(t float64, y, dydt []float64)

// Options controls step size selection
type Options struct {
	AbsTol      float64
	RelTol      float64
	MaxSteps    int     // Step attempts per output interval
	InitialStep float64 // 0 selects it automatically
}

// DefaultOptions returns the tolerances used when none are configured
func DefaultOptions() Options {
	return Options{
		AbsTol:   1.49012e-8,
		RelTol:   1.49012e-8,
		MaxSteps: 10000,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.AbsTol <= 0 {
		o.AbsTol = d.AbsTol
	}
	if o.RelTol <= 0 {
		o.RelTol = d.RelTol
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = d.MaxSteps
	}
	return o
}

// Trajectory holds the state at each output time
type Trajectory struct {
	Times  []float64
	Values [][]float64
}

// Len returns the number of samples
func (tr *Trajectory) Len() int {
	return len(tr.Times)
}

// Last returns the final time and state
func (tr *Trajectory) Last() (float64, []float64) {
	n := len(tr.Times) - 1
	return tr.Times[n], tr.Values[n]
}

// Dormand-Prince 5(4) tableau
const (
	c2, c3, c4, c5 = 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9

	a21 = 1.0 / 5

	a31 = 3.0 / 40
	a32 = 9.0 / 40

	a41 = 44.0 / 45
	a42 = -56.0 / 15
	a43 = 32.0 / 9

	a51 = 19372.0 / 6561
	a52 = -25360.0 / 2187
	a53 = 64448.0 / 6561
	a54 = -212.0 / 729

	a61 = 9017.0 / 3168
	a62 = -355.0 / 33
	a63 = 46732.0 / 5247
	a64 = 49.0 / 176
	a65 = -5103.0 / 18656

	b1 = 35.0 / 384
	b3 = 500.0 / 1113
	b4 = 125.0 / 192
	b5 = -2187.0 / 6784
	b6 = 11.0 / 84

	e1 = 71.0 / 57600
	e3 = -71.0 / 16695
	e4 = 71.0 / 1920
	e5 = -17253.0 / 339200
	e6 = 22.0 / 525
	e7 = -1.0 / 40
)

const (
	safety    = 0.9
	minFactor = 0.2
	maxFactor = 5.0
)

type stepper struct {
	f    Func
	opts Options
	n    int

	k1, k2, k3, k4, k5, k6, k7 []float64
	tmp, ynew, errv             []float64
}

func newStepper(f Func, n int, opts Options) *stepper {
	s := &stepper{f: f, opts: opts, n: n}
	for _, p := range []*[]float64{&s.k1, &s.k2, &s.k3, &s.k4, &s.k5, &s.k6, &s.k7, &s.tmp, &s.ynew, &s.errv} {
		*p = make([]float64, n)
	}
	return s
}

// Integrate solves the system from y0 at times[0] and records the state at
// every entry of times
func Integrate(ctx context.Context, f Func, y0 []float64, times []float64, opts Options) (*Trajectory, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrTimeGrid)
	}
	for i := 1; i < len(times); i++ {
		if !(times[i] > times[i-1]) {
			return nil, fmt.Errorf("%w: times[%d]=%g follows %g", ErrTimeGrid, i, times[i], times[i-1])
		}
	}
	opts = opts.withDefaults()

	n := len(y0)
	y := append([]float64(nil), y0...)
	tr := &Trajectory{
		Times:  make([]float64, 0, len(times)),
		Values: make([][]float64, 0, len(times)),
	}
	tr.Times = append(tr.Times, times[0])
	tr.Values = append(tr.Values, append([]float64(nil), y...))
	if len(times) == 1 || n == 0 {
		for _, t := range times[1:] {
			tr.Times = append(tr.Times, t)
			tr.Values = append(tr.Values, append([]float64(nil), y...))
		}
		return tr, nil
	}

	s := newStepper(f, n, opts)
	t := times[0]
	s.f(t, y, s.k1)
	if !finite(s.k1) {
		return nil, &IntegrationError{Step: 0, Time: t, Err: ErrNonFinite}
	}

	h := opts.InitialStep
	if h <= 0 {
		h = s.initialStep(t, y, times[len(times)-1]-t)
	}

	step := 0
	for _, target := range times[1:] {
		taken := 0
		for t < target {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if taken >= opts.MaxSteps {
				return nil, &IntegrationError{Step: step, Time: t, Err: ErrMaxSteps}
			}
			if h < 16*epsilon*math.Abs(t) || h == 0 {
				return nil, &IntegrationError{Step: step, Time: t, Err: ErrStepTooSmall}
			}

			last := false
			hs := h
			if t+hs >= target {
				hs = target - t
				last = true
			}

			taken++
			errNorm := s.try(t, y, hs)
			if math.IsNaN(errNorm) || math.IsInf(errNorm, 0) {
				// shrink until the stages stay finite
				h = hs * minFactor
				continue
			}

			if errNorm <= 1 {
				if last {
					t = target
				} else {
					t += hs
				}
				copy(y, s.ynew)
				copy(s.k1, s.k7)
				step++

				factor := maxFactor
				if errNorm > 0 {
					factor = math.Min(maxFactor, math.Max(minFactor, safety*math.Pow(errNorm, -0.2)))
				}
				// a clipped final step must not shrink the next proposal
				if last && hs < h {
					h = math.Max(h, hs*factor)
				} else {
					h = hs * factor
				}
				if !finite(y) {
					return nil, &IntegrationError{Step: step, Time: t, Err: ErrNonFinite}
				}
				continue
			}

			h = hs * math.Max(minFactor, safety*math.Pow(errNorm, -0.2))
		}

		tr.Times = append(tr.Times, target)
		tr.Values = append(tr.Values, append([]float64(nil), y...))
	}

	return tr, nil
}

const epsilon = 2.220446049250313e-16

// try computes one step of size h from (t, y) with k1 = f(t, y) already in
// place. On return ynew holds the 5th-order solution, k7 = f(t+h, ynew),
// and the scaled RMS error norm is returned.
func (s *stepper) try(t float64, y []float64, h float64) float64 {
	n := s.n
	for i := 0; i < n; i++ {
		s.tmp[i] = y[i] + h*a21*s.k1[i]
	}
	s.f(t+c2*h, s.tmp, s.k2)

	for i := 0; i < n; i++ {
		s.tmp[i] = y[i] + h*(a31*s.k1[i]+a32*s.k2[i])
	}
	s.f(t+c3*h, s.tmp, s.k3)

	for i := 0; i < n; i++ {
		s.tmp[i] = y[i] + h*(a41*s.k1[i]+a42*s.k2[i]+a43*s.k3[i])
	}
	s.f(t+c4*h, s.tmp, s.k4)

	for i := 0; i < n; i++ {
		s.tmp[i] = y[i] + h*(a51*s.k1[i]+a52*s.k2[i]+a53*s.k3[i]+a54*s.k4[i])
	}
	s.f(t+c5*h, s.tmp, s.k5)

	for i := 0; i < n; i++ {
		s.tmp[i] = y[i] + h*(a61*s.k1[i]+a62*s.k2[i]+a63*s.k3[i]+a64*s.k4[i]+a65*s.k5[i])
	}
	s.f(t+h, s.tmp, s.k6)

	for i := 0; i < n; i++ {
		s.ynew[i] = y[i] + h*(b1*s.k1[i]+b3*s.k3[i]+b4*s.k4[i]+b5*s.k5[i]+b6*s.k6[i])
	}
	s.f(t+h, s.ynew, s.k7)

	var sum float64
	for i := 0; i < n; i++ {
		s.errv[i] = h * (e1*s.k1[i] + e3*s.k3[i] + e4*s.k4[i] + e5*s.k5[i] + e6*s.k6[i] + e7*s.k7[i])
		sc := s.opts.AbsTol + s.opts.RelTol*math.Max(math.Abs(y[i]), math.Abs(s.ynew[i]))
		r := s.errv[i] / sc
		sum += r * r
	}
	return math.Sqrt(sum / float64(n))
}

// initialStep follows the starting step heuristic of Hairer, Norsett and
// Wanner (Solving ODEs I, II.4)
func (s *stepper) initialStep(t float64, y []float64, span float64) float64 {
	n := s.n
	sc := make([]float64, n)
	for i := range sc {
		sc[i] = s.opts.AbsTol + s.opts.RelTol*math.Abs(y[i])
	}

	d0 := rms(y, sc)
	d1 := rms(s.k1, sc)

	h0 := 0.01 * d0 / d1
	if d0 < 1e-5 || d1 < 1e-5 {
		h0 = 1e-6
	}
	h0 = math.Min(h0, span)

	for i := 0; i < n; i++ {
		s.tmp[i] = y[i] + h0*s.k1[i]
	}
	s.f(t+h0, s.tmp, s.k2)
	for i := 0; i < n; i++ {
		s.errv[i] = s.k2[i] - s.k1[i]
	}
	d2 := rms(s.errv, sc) / h0

	var h1 float64
	if dm := math.Max(d1, d2); dm <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/dm, 1.0/5)
	}

	return math.Min(math.Min(100*h0, h1), span)
}

func rms(v, sc []float64) float64 {
	var sum float64
	for i := range v {
		r := v[i] / sc[i]
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(v)))
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
