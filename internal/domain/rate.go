package domain

import (
	"strconv"
)

// RateKind discriminates the variants of Rate
type RateKind int

const (
	RateUnresolved RateKind = iota // No rate given in the source
	RateNumeric                    // Literal rate constant
	RateNamed                      // Parameter bound through a rate dictionary
)

// Rate is a reaction rate: a numeric literal, an unresolved placeholder, or a
// named parameter. The zero value is the unresolved placeholder.
type Rate struct {
	Kind  RateKind
	Value float64
	Name  string
}

// NumericRate returns a literal rate
func NumericRate(v float64) Rate {
	return Rate{Kind: RateNumeric, Value: v}
}

// UnresolvedRate returns the placeholder used when no rate was written
func UnresolvedRate() Rate {
	return Rate{Kind: RateUnresolved}
}

// NamedRate returns a late-bound rate parameter
func NamedRate(name string) Rate {
	return Rate{Kind: RateNamed, Name: name}
}

// IsResolved reports whether the rate is anything but the placeholder
func (r Rate) IsResolved() bool {
	return r.Kind != RateUnresolved
}

// Or replaces the placeholder with a numeric default
func (r Rate) Or(def float64) Rate {
	if r.Kind == RateUnresolved {
		return NumericRate(def)
	}
	return r
}

func (r Rate) String() string {
	switch r.Kind {
	case RateNumeric:
		return strconv.FormatFloat(r.Value, 'g', -1, 64)
	case RateNamed:
		return r.Name
	default:
		return "none"
	}
}
