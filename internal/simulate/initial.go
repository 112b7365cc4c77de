package simulate

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAssignment splits "key=value"
func ParseAssignment(term string) (string, float64, error) {
	key, val, ok := strings.Cut(term, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", 0, fmt.Errorf("%w: %q", ErrBadAssignment, term)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrBadAssignment, term)
	}
	return key, v, nil
}

// ResolveIndex maps a species name, or failing that a 1-based position, to
// a 0-based index
func ResolveIndex(vars []string, key string) (int, error) {
	for i, v := range vars {
		if v == key {
			return i, nil
		}
	}
	n, err := strconv.Atoi(key)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is neither a species nor an index", ErrIndexRange, key)
	}
	if n < 1 || n > len(vars) {
		return 0, fmt.Errorf("%w: %d not in 1..%d", ErrIndexRange, n, len(vars))
	}
	return n - 1, nil
}

// InitialConcentrations starts from the model defaults and applies each
// assignment in order
func InitialConcentrations(m Model, p0 []string) ([]float64, error) {
	vars := m.Variables()
	y0 := m.DefaultConcentrations()
	if len(y0) != len(vars) {
		y0 = make([]float64, len(vars))
	}
	for _, term := range p0 {
		key, v, err := ParseAssignment(term)
		if err != nil {
			return nil, err
		}
		i, err := ResolveIndex(vars, key)
		if err != nil {
			return nil, err
		}
		y0[i] = v
	}
	return y0, nil
}

// AllZero reports whether every entry of y is zero
func AllZero(y []float64) bool {
	for _, v := range y {
		if v != 0 {
			return false
		}
	}
	return true
}
