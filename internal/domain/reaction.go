package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Reaction is an ordered triple of reactants, products, and rates.
// Reactants and Products are flat multisets: stoichiometric multiplicity is
// expressed by repeating the species name.
type Reaction struct {
	Reactants []string `json:"reactants"`
	Products  []string `json:"products"`
	Rates     []Rate   `json:"-"`
}

// NewReaction creates an irreversible reaction with a single rate
func NewReaction(reactants, products []string, rate Rate) Reaction {
	return Reaction{
		Reactants: append([]string(nil), reactants...),
		Products:  append([]string(nil), products...),
		Rates:     []Rate{rate},
	}
}

// NewReversibleReaction creates a reaction with forward and backward rates
func NewReversibleReaction(reactants, products []string, forward, backward Rate) Reaction {
	return Reaction{
		Reactants: append([]string(nil), reactants...),
		Products:  append([]string(nil), products...),
		Rates:     []Rate{forward, backward},
	}
}

// IsReversible is implied by the rate count
func (r Reaction) IsReversible() bool {
	return len(r.Rates) == 2
}

// Species returns every species of the reaction once, reactants first
func (r Reaction) Species() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range append(append([]string(nil), r.Reactants...), r.Products...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Split returns the irreversible legs of the reaction. A reversible reaction
// yields the forward leg followed by the backward leg with reactants and
// products swapped. Unresolved rates are replaced by defaultRate.
func (r Reaction) Split(defaultRate float64) ([]Reaction, error) {
	switch len(r.Rates) {
	case 0:
		return []Reaction{NewReaction(r.Reactants, r.Products, NumericRate(defaultRate))}, nil
	case 1:
		return []Reaction{NewReaction(r.Reactants, r.Products, r.Rates[0].Or(defaultRate))}, nil
	case 2:
		return []Reaction{
			NewReaction(r.Reactants, r.Products, r.Rates[0].Or(defaultRate)),
			NewReaction(r.Products, r.Reactants, r.Rates[1].Or(defaultRate)),
		}, nil
	default:
		return nil, fmt.Errorf("%w: got %d", ErrRateArity, len(r.Rates))
	}
}

// String renders the reaction in CRN notation, e.g. "2A + B -> C [k = 1]"
func (r Reaction) String() string {
	arrow := "->"
	if r.IsReversible() {
		arrow = "<=>"
	}

	var b strings.Builder
	b.WriteString(formatSide(r.Reactants))
	if len(r.Reactants) > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(arrow)
	if len(r.Products) > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(formatSide(r.Products))

	switch {
	case len(r.Rates) == 1 && r.Rates[0].IsResolved():
		fmt.Fprintf(&b, " [k = %s]", r.Rates[0])
	case len(r.Rates) == 2 && r.Rates[0].IsResolved() && r.Rates[1].IsResolved():
		fmt.Fprintf(&b, " [kf = %s, kr = %s]", r.Rates[0], r.Rates[1])
	}
	return b.String()
}

// formatSide collapses repeated species into multipliers, keeping the order
// of first appearance
func formatSide(species []string) string {
	counts := make(map[string]int)
	var order []string
	for _, s := range species {
		if counts[s] == 0 {
			order = append(order, s)
		}
		counts[s]++
	}

	parts := make([]string, 0, len(order))
	for _, s := range order {
		if n := counts[s]; n > 1 {
			parts = append(parts, strconv.Itoa(n)+s)
		} else {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " + ")
}
