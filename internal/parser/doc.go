// Package parser reads the CRN text format.
//
// A document is a sequence of statements separated by ';' or by line ends.
// Three statement forms exist:
//
//	A + 2B -> C [k = 0.5]          irreversible reaction
//	A <=> C [kf = 1, kr = 2]       reversible reaction
//	A @ initial 10                 concentration statement
//
// Rate clauses are optional. A bracket holding bare numbers ([0.5] or
// [1, 2]) is accepted as an abbreviation of the keyed form. '#' starts a
// comment that runs to the end of the physical line.
//
// Parsing happens in two stages. ParseStatements returns the tagged raw
// statements with multipliers intact; PostProcess expands multipliers,
// fills missing rates with the unresolved placeholder, and registers
// species concentrations into a domain.Network. Parse runs both.
package parser
