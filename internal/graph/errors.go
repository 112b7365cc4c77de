package graph

import "errors"

var (
	// ErrReversible is returned when a reaction with two rates is added
	// directly; reversible reactions must be split first.
	ErrReversible = errors.New("graph: reversible reaction must be split into irreversible legs")

	// ErrUnresolvedRate is returned when literal rates are requested for a
	// reaction that has none.
	ErrUnresolvedRate = errors.New("graph: reaction has no rate")

	ErrUnknownNode = errors.New("graph: unknown node")
)
