package config

// Precision names a set of solver tolerances
type Precision string

const (
	PrecisionCoarse   Precision = "coarse"   // quick looks at large networks
	PrecisionBalanced Precision = "balanced" // same tolerances as the solver defaults
	PrecisionFine     Precision = "fine"     // reference trajectories
)

// ParsePrecision converts a string to Precision, defaulting to PrecisionBalanced
func ParsePrecision(s string) Precision {
	switch s {
	case "coarse":
		return PrecisionCoarse
	case "fine":
		return PrecisionFine
	default:
		return PrecisionBalanced
	}
}

// SolverProfile is the full set of solver settings
type SolverProfile struct {
	AbsTol      float64 `yaml:"atol"`
	RelTol      float64 `yaml:"rtol"`
	MaxSteps    int     `yaml:"max_steps"`
	InitialStep float64 `yaml:"initial_step"`
}

// PrecisionProfiles maps precisions to their solver profiles
var PrecisionProfiles = map[Precision]SolverProfile{
	PrecisionCoarse: {
		AbsTol:   1e-6,
		RelTol:   1e-4,
		MaxSteps: 5000,
	},
	PrecisionBalanced: {
		AbsTol:   1.49012e-8,
		RelTol:   1.49012e-8,
		MaxSteps: 10000,
	},
	PrecisionFine: {
		AbsTol:   1e-12,
		RelTol:   1e-10,
		MaxSteps: 100000,
	},
}

// Profile returns the solver profile for a precision
func (p Precision) Profile() SolverProfile {
	if profile, ok := PrecisionProfiles[p]; ok {
		return profile
	}
	return PrecisionProfiles[PrecisionBalanced]
}
