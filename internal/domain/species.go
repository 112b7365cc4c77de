package domain

// ConcentrationKind tells whether a species evolves or is clamped
type ConcentrationKind string

const (
	ConcentrationInitial  ConcentrationKind = "initial"  // Starting value, evolves with the ODEs
	ConcentrationConstant ConcentrationKind = "constant" // Held at its value for the whole run
)

// ParseConcentrationKind accepts the long and the one-letter spelling
func ParseConcentrationKind(s string) (ConcentrationKind, bool) {
	switch s {
	case "initial", "i":
		return ConcentrationInitial, true
	case "constant", "c":
		return ConcentrationConstant, true
	default:
		return "", false
	}
}

// Concentration is the concentration specification of one species
type Concentration struct {
	Kind  ConcentrationKind `json:"kind" yaml:"kind"`
	Value float64           `json:"value" yaml:"value"`
}

// DefaultConcentration is assigned to species without an explicit statement
func DefaultConcentration() Concentration {
	return Concentration{Kind: ConcentrationInitial, Value: 0}
}

// IsConstant reports whether the species is clamped
func (c Concentration) IsConstant() bool {
	return c.Kind == ConcentrationConstant
}
