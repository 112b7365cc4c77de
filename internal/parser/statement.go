package parser

import "crnsim/internal/domain"

// StatementKind tags a raw statement
type StatementKind string

const (
	StatementConcentration StatementKind = "concentration"
	StatementIrreversible  StatementKind = "irreversible"
	StatementReversible    StatementKind = "reversible"
)

// Term is one entry of a species list, e.g. 2A
type Term struct {
	Multiplier int
	Species    string
}

// Statement is a parsed statement before post-processing.
// Reaction statements fill Reactants, Products and Rates; Rates is empty
// when no rate clause was written. Concentration statements fill Species
// and Concentration.
type Statement struct {
	Kind          StatementKind
	Reactants     []Term
	Products      []Term
	Rates         []domain.Rate
	Species       string
	Concentration domain.Concentration
	Line          int
}

func expand(terms []Term) []string {
	var out []string
	for _, t := range terms {
		for i := 0; i < t.Multiplier; i++ {
			out = append(out, t.Species)
		}
	}
	return out
}
