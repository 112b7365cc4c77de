package graph

import (
	"fmt"

	"crnsim/internal/domain"
)

type edgeKey struct {
	from, to int
}

// Graph is a bipartite multigraph of species nodes and reaction nodes.
// Edges run reactant -> reaction -> product, one parallel edge per
// stoichiometric occurrence. Nodes and neighbour lists keep insertion order,
// so every query is deterministic.
//
// Reaction ids come from a counter owned by the graph; two graphs never
// share id state. Species and reaction nodes are indexed separately, so a
// species named like a reaction node stays a distinct node. Name queries
// resolve reaction names (RXN:<id>) first.
type Graph struct {
	nodes     []Node
	species   map[string]int
	reactions map[string]int
	out       [][]int
	in        [][]int
	mult      map[edgeKey]int

	nextID int
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		species:   make(map[string]int),
		reactions: make(map[string]int),
		mult:      make(map[edgeKey]int),
	}
}

// FromReactions builds a graph from irreversible reactions, in order
func FromReactions(reactions []domain.Reaction) (*Graph, error) {
	g := New()
	if err := g.AddReactions(reactions); err != nil {
		return nil, err
	}
	return g, nil
}

// AddReactions applies AddReaction to each reaction in order
func (g *Graph) AddReactions(reactions []domain.Reaction) error {
	for i, r := range reactions {
		if _, err := g.AddReaction(r); err != nil {
			return fmt.Errorf("reaction %d (%s): %w", i, r, err)
		}
	}
	return nil
}

// AddReaction appends one irreversible reaction and returns the id of its
// new reaction node. A one-element rate list is unwrapped to its scalar; an
// empty list means the rate is unresolved.
func (g *Graph) AddReaction(r domain.Reaction) (int, error) {
	var rate domain.Rate
	switch len(r.Rates) {
	case 0:
		rate = domain.UnresolvedRate()
	case 1:
		rate = r.Rates[0]
	case 2:
		return 0, ErrReversible
	default:
		return 0, fmt.Errorf("%w: got %d", domain.ErrRateArity, len(r.Rates))
	}
	return g.Add(r.Reactants, r.Products, rate), nil
}

// Add appends a reaction node with a scalar rate. Species nodes are created
// on first reference; the reaction node is always new, even for a reaction
// that is textually identical to an earlier one.
func (g *Graph) Add(reactants, products []string, rate domain.Rate) int {
	id := g.nextID
	g.nextID++

	rxn := g.addNode(reactionNode(id, rate))
	for _, s := range reactants {
		g.addEdge(g.speciesIndex(s), rxn)
	}
	for _, s := range products {
		g.addEdge(rxn, g.speciesIndex(s))
	}
	return id
}

func (g *Graph) addNode(n Node) int {
	idx := len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	if n.Kind == ReactionNode {
		g.reactions[n.Name] = idx
	} else {
		g.species[n.Name] = idx
	}
	return idx
}

func (g *Graph) speciesIndex(name string) int {
	if idx, ok := g.species[name]; ok {
		return idx
	}
	return g.addNode(speciesNode(name))
}

func (g *Graph) lookup(name string) (int, bool) {
	if idx, ok := g.reactions[name]; ok {
		return idx, true
	}
	idx, ok := g.species[name]
	return idx, ok
}

func (g *Graph) addEdge(from, to int) {
	key := edgeKey{from, to}
	if g.mult[key] == 0 {
		g.out[from] = append(g.out[from], to)
		g.in[to] = append(g.in[to], from)
	}
	g.mult[key]++
}

// Lookup returns the node with the given name
func (g *Graph) Lookup(name string) (Node, bool) {
	idx, ok := g.lookup(name)
	if !ok {
		return Node{}, false
	}
	return g.nodes[idx], true
}

// Len returns the number of nodes of both kinds
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Species returns all species nodes
func (g *Graph) Species() []string {
	return g.speciesWhere(func(int) bool { return true })
}

// Reactants returns species consumed by at least one reaction
func (g *Graph) Reactants() []string {
	return g.speciesWhere(func(i int) bool { return len(g.out[i]) > 0 })
}

// Products returns species produced by at least one reaction
func (g *Graph) Products() []string {
	return g.speciesWhere(func(i int) bool { return len(g.in[i]) > 0 })
}

func (g *Graph) speciesWhere(keep func(int) bool) []string {
	var names []string
	for i, n := range g.nodes {
		if n.Kind == SpeciesNode && keep(i) {
			names = append(names, n.Name)
		}
	}
	return names
}

// Reactions returns the reaction nodes in creation order
func (g *Graph) Reactions() []Node {
	var out []Node
	for _, n := range g.nodes {
		if n.Kind == ReactionNode {
			out = append(out, n)
		}
	}
	return out
}

// Successors returns the distinct targets of edges leaving name
func (g *Graph) Successors(name string) ([]string, error) {
	idx, ok := g.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	return g.names(g.out[idx]), nil
}

// Predecessors returns the distinct sources of edges entering name
func (g *Graph) Predecessors(name string) ([]string, error) {
	idx, ok := g.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	return g.names(g.in[idx]), nil
}

func (g *Graph) names(idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = g.nodes[j].Name
	}
	return out
}

// NumberOfEdges returns the number of parallel edges from one node to
// another. Unknown nodes have no edges.
func (g *Graph) NumberOfEdges(from, to string) int {
	f, ok := g.lookup(from)
	if !ok {
		return 0
	}
	t, ok := g.lookup(to)
	if !ok {
		return 0
	}
	return g.mult[edgeKey{f, t}]
}
