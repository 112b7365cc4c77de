package simulate

import (
	"fmt"
	"sort"
	"strings"

	"crnsim/internal/domain"
)

// Ordering is a variable order with the matching initial values and
// constant flags
type Ordering struct {
	Variables      []string
	Concentrations []float64
	Constant       []bool
}

// Order puts the labels first, in the given order, then the remaining
// species of the network in natural order
func Order(net *domain.Network, labels []string) (*Ordering, error) {
	o := &Ordering{}
	seen := make(map[string]bool)

	add := func(s string) {
		c := net.Concentration(s)
		o.Variables = append(o.Variables, s)
		o.Concentrations = append(o.Concentrations, c.Value)
		o.Constant = append(o.Constant, c.IsConstant())
		seen[s] = true
	}

	for _, s := range labels {
		if seen[s] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLabel, s)
		}
		if _, ok := net.Species[s]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLabel, s)
		}
		add(s)
	}

	rest := net.SpeciesNames()
	sort.SliceStable(rest, func(i, j int) bool { return NaturalLess(rest[i], rest[j]) })
	for _, s := range rest {
		if !seen[s] {
			add(s)
		}
	}
	return o, nil
}

// HasConstant reports whether any variable is held constant
func (o *Ordering) HasConstant() bool {
	for _, c := range o.Constant {
		if c {
			return true
		}
	}
	return false
}

// NaturalLess orders strings the way people read them: runs of digits
// compare by numeric value and everything else case-insensitively, so X2
// sorts before X10.
func NaturalLess(a, b string) bool {
	ca, cb := chunks(a), chunks(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		x, y := ca[i], cb[i]
		if i%2 == 1 {
			if c := compareDigits(x, y); c != 0 {
				return c < 0
			}
			continue
		}
		x, y = strings.ToLower(x), strings.ToLower(y)
		if x != y {
			return x < y
		}
	}
	return len(ca) < len(cb)
}

// chunks splits s into alternating text and digit runs, always starting
// with a (possibly empty) text run
func chunks(s string) []string {
	out := []string{""}
	digit := false
	for i := 0; i < len(s); i++ {
		d := s[i] >= '0' && s[i] <= '9'
		if d != digit {
			out = append(out, "")
			digit = d
		}
		out[len(out)-1] += s[i : i+1]
	}
	return out
}

func compareDigits(x, y string) int {
	x = strings.TrimLeft(x, "0")
	y = strings.TrimLeft(y, "0")
	if len(x) != len(y) {
		if len(x) < len(y) {
			return -1
		}
		return 1
	}
	return strings.Compare(x, y)
}
