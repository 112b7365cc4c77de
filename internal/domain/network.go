package domain

// Network is a parsed reaction network: reactions in source order plus the
// concentration specification of every species mentioned anywhere.
type Network struct {
	Reactions []Reaction
	Species   map[string]Concentration

	order []string
}

// NewNetwork creates an empty network
func NewNetwork() *Network {
	return &Network{
		Reactions: make([]Reaction, 0),
		Species:   make(map[string]Concentration),
	}
}

// AddReaction appends a reaction and registers its species with the default
// concentration unless they already carry a specification. Duplicates are
// kept: identical reactions contribute additive rate-law terms.
func (n *Network) AddReaction(r Reaction) {
	n.Reactions = append(n.Reactions, r)
	for _, s := range r.Species() {
		if _, ok := n.Species[s]; !ok {
			n.register(s, DefaultConcentration())
		}
	}
}

// SetConcentration records an explicit concentration statement, overriding
// any earlier default or statement for the same species
func (n *Network) SetConcentration(species string, c Concentration) {
	n.register(species, c)
}

func (n *Network) register(species string, c Concentration) {
	if _, ok := n.Species[species]; !ok {
		n.order = append(n.order, species)
	}
	n.Species[species] = c
}

// SpeciesNames returns species in order of first mention
func (n *Network) SpeciesNames() []string {
	return append([]string(nil), n.order...)
}

// Concentration returns the specification of a species, falling back to the
// default for unknown names
func (n *Network) Concentration(species string) Concentration {
	if c, ok := n.Species[species]; ok {
		return c
	}
	return DefaultConcentration()
}

// Irreversible splits every reaction into irreversible legs, in order
func (n *Network) Irreversible(defaultRate float64) ([]Reaction, error) {
	out := make([]Reaction, 0, len(n.Reactions))
	for _, r := range n.Reactions {
		legs, err := r.Split(defaultRate)
		if err != nil {
			return nil, err
		}
		out = append(out, legs...)
	}
	return out, nil
}
