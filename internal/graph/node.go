package graph

import (
	"strconv"

	"crnsim/internal/domain"
)

// NodeKind tags the two disjoint node sets of the bipartite graph
type NodeKind int

const (
	SpeciesNode NodeKind = iota
	ReactionNode
)

func (k NodeKind) String() string {
	if k == ReactionNode {
		return "reaction"
	}
	return "species"
}

// ReactionPrefix starts the name of every reaction node
const ReactionPrefix = "RXN:"

// Node is either a species (identified by name) or an anonymous reaction
// carrying an id and a rate. Rate and ID are meaningful for reaction nodes
// only.
type Node struct {
	Kind NodeKind
	Name string
	ID   int
	Rate domain.Rate
}

// ReactionName returns the node name of reaction id
func ReactionName(id int) string {
	return ReactionPrefix + strconv.Itoa(id)
}

func speciesNode(name string) Node {
	return Node{Kind: SpeciesNode, Name: name}
}

func reactionNode(id int, rate domain.Rate) Node {
	return Node{Kind: ReactionNode, Name: ReactionName(id), ID: id, Rate: rate}
}

// IsReaction reports whether the node is a reaction node
func (n Node) IsReaction() bool {
	return n.Kind == ReactionNode
}
