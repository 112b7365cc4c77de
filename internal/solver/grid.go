package solver

import (
	"fmt"
	"math"
)

// Linspace returns n evenly spaced points from a to b inclusive
func Linspace(a, b float64, n int) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: need at least one point, got %d", ErrTimeGrid, n)
	}
	if n == 1 {
		return []float64{a}, nil
	}
	out := make([]float64, n)
	step := (b - a) / float64(n-1)
	for i := range out {
		out[i] = a + float64(i)*step
	}
	out[n-1] = b
	return out, nil
}

// Logspace returns n points from a to b inclusive, evenly spaced on a
// logarithmic scale. Both bounds must be positive.
func Logspace(a, b float64, n int) ([]float64, error) {
	if a <= 0 || b <= 0 {
		return nil, fmt.Errorf("%w: logarithmic grid needs positive bounds, got %g and %g", ErrTimeGrid, a, b)
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: need at least one point, got %d", ErrTimeGrid, n)
	}
	if n == 1 {
		return []float64{a}, nil
	}
	la, lb := math.Log10(a), math.Log10(b)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Pow(10, la+(lb-la)*float64(i)/float64(n-1))
	}
	out[0], out[n-1] = a, b
	return out, nil
}
