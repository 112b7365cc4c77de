package graph

import (
	"fmt"
	"strconv"
	"strings"

	"crnsim/internal/domain"
)

// Term is one signed mass-action contribution: Sign * Rate * product of
// Factors. Factors repeat a species once per stoichiometric occurrence.
type Term struct {
	Sign    int
	Rate    domain.Rate
	Factors []string
}

func (t Term) String() string {
	sign := "+"
	if t.Sign < 0 {
		sign = "-"
	}
	return sign + strings.Join(append([]string{t.Rate.String()}, t.Factors...), "*")
}

// TermSet maps species to their accumulated terms. Species without any term
// are absent.
type TermSet struct {
	terms map[string][]Term
	order []string
}

func newTermSet() *TermSet {
	return &TermSet{terms: make(map[string][]Term)}
}

func (ts *TermSet) add(species string, t Term) {
	if _, ok := ts.terms[species]; !ok {
		ts.order = append(ts.order, species)
	}
	ts.terms[species] = append(ts.terms[species], t)
}

// Get returns the terms of a species
func (ts *TermSet) Get(species string) ([]Term, bool) {
	t, ok := ts.terms[species]
	return t, ok
}

// Species returns the species with at least one term, in order of their
// first term
func (ts *TermSet) Species() []string {
	return append([]string(nil), ts.order...)
}

// Len returns the number of species with at least one term
func (ts *TermSet) Len() int {
	return len(ts.order)
}

// RateDict maps synthetic rate names to the rates they stand for. Names are
// kept in minting order.
type RateDict struct {
	names []string
	rates map[string]domain.Rate
}

// NewRateDict creates an empty rate dictionary
func NewRateDict() *RateDict {
	return &RateDict{rates: make(map[string]domain.Rate)}
}

// Mint records rate under the next free name k0, k1, ... and returns the name
func (d *RateDict) Mint(rate domain.Rate) string {
	name := "k" + strconv.Itoa(len(d.names))
	d.names = append(d.names, name)
	d.rates[name] = rate
	return name
}

// Names returns the minted names in order
func (d *RateDict) Names() []string {
	return append([]string(nil), d.names...)
}

// Rate returns the rate recorded for name
func (d *RateDict) Rate(name string) (domain.Rate, bool) {
	r, ok := d.rates[name]
	return r, ok
}

// Len returns the number of minted names
func (d *RateDict) Len() int {
	return len(d.names)
}

// Values returns the numeric value of every name whose rate is a literal.
// Unresolved entries are left out and must be supplied by the caller.
func (d *RateDict) Values() map[string]float64 {
	out := make(map[string]float64, len(d.names))
	for _, name := range d.names {
		if r := d.rates[name]; r.Kind == domain.RateNumeric {
			out[name] = r.Value
		}
	}
	return out
}

// Terms derives the mass-action terms of every species.
//
// Reaction nodes are visited in creation order. With named set, each node's
// rate is replaced by a freshly minted parameter k{n} recorded in the
// returned dictionary; otherwise the node's own rate is used and must be
// resolved. For each node the reactant multiset is rebuilt from the
// multiplicity of its incoming edges. Every reactant occurrence receives a
// negative term and every product occurrence a positive term, both carrying
// the reactant multiset as factors.
func (g *Graph) Terms(named bool) (*TermSet, *RateDict, error) {
	ts := newTermSet()
	dict := NewRateDict()

	for idx, n := range g.nodes {
		if n.Kind != ReactionNode {
			continue
		}

		rate := n.Rate
		if named {
			rate = domain.NamedRate(dict.Mint(n.Rate))
		} else if !rate.IsResolved() {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnresolvedRate, n.Name)
		}

		reactants := g.expand(g.in[idx], func(p int) int { return g.mult[edgeKey{p, idx}] })
		products := g.expand(g.out[idx], func(s int) int { return g.mult[edgeKey{idx, s}] })

		for _, s := range reactants {
			ts.add(s, Term{Sign: -1, Rate: rate, Factors: append([]string(nil), reactants...)})
		}
		for _, s := range products {
			ts.add(s, Term{Sign: 1, Rate: rate, Factors: append([]string(nil), reactants...)})
		}
	}

	return ts, dict, nil
}

// expand replicates each neighbour by its edge multiplicity
func (g *Graph) expand(neighbours []int, count func(int) int) []string {
	var out []string
	for _, nb := range neighbours {
		for i := count(nb); i > 0; i-- {
			out = append(out, g.nodes[nb].Name)
		}
	}
	return out
}
