// Package domain defines the core types of a formal chemical reaction network.
//
// This package contains the value objects shared by every stage of the
// CRN-to-ODE pipeline: species and their concentration specifications,
// reaction rates, reactions, and the parsed network that ties them together.
//
// # Core Types
//
// Concentration describes how a species enters a simulation: either with an
// initial value that evolves over time, or held constant.
//
// Rate is a closed sum type with three variants: a numeric literal, an
// unresolved placeholder (no rate was written), and a named parameter that is
// bound late through a rate dictionary.
//
// Reaction is a pair of species multisets (reactants, products) plus one rate
// (irreversible) or two rates (reversible: forward, backward). Multisets are
// flat name sequences, so 2A is stored as two occurrences of A.
//
// Network is the parsed form of a CRN document: reactions in source order and
// the concentration specification of every species that was mentioned.
//
// # Records
//
// ModelRecord and Run are the persisted forms of a compiled model and of a
// simulation run.
//
// # Design Principles
//
// - Species are referenced by name everywhere, never by pointer
// - No parsing, storage, or numeric code in this package
// - Reactions are treated as immutable once a network is finalized
package domain
