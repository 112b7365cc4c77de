package parser

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"crnsim/internal/domain"
)

type parser struct {
	sc  *scanner
	tok token
}

// ParseStatements parses a CRN document into raw statements. Empty
// statements (blank lines, stray or trailing ';') are skipped.
func ParseStatements(src string) ([]Statement, error) {
	p := &parser{sc: newScanner(src)}
	if err := p.advance(modeTop); err != nil {
		return nil, err
	}

	var stmts []Statement
	for {
		for p.tok.kind == tokSemi || p.tok.kind == tokNewline {
			if err := p.advance(modeTop); err != nil {
				return nil, err
			}
		}
		if p.tok.kind == tokEOF {
			return stmts, nil
		}

		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)

		switch p.tok.kind {
		case tokSemi, tokNewline, tokEOF:
		default:
			return nil, p.unexpected("';' or end of line")
		}
	}
}

// PostProcess turns raw statements into a network. Multipliers are expanded
// into repeated species, missing rates become unresolved placeholders, and
// every species named in a reaction is registered with the default
// concentration unless a concentration statement already covers it. A later
// concentration statement overrides an earlier one.
func PostProcess(stmts []Statement) (*domain.Network, error) {
	net := domain.NewNetwork()
	for _, st := range stmts {
		switch st.Kind {
		case StatementConcentration:
			net.SetConcentration(st.Species, st.Concentration)

		case StatementIrreversible, StatementReversible:
			arity := 1
			if st.Kind == StatementReversible {
				arity = 2
			}

			rates := st.Rates
			switch len(rates) {
			case 0:
				rates = make([]domain.Rate, arity)
			case arity:
				rates = append([]domain.Rate(nil), rates...)
			default:
				return nil, fmt.Errorf("line %d: %s reaction with %d rates: %w",
					st.Line, st.Kind, len(rates), domain.ErrRateArity)
			}

			net.AddReaction(domain.Reaction{
				Reactants: expand(st.Reactants),
				Products:  expand(st.Products),
				Rates:     rates,
			})

		default:
			return nil, fmt.Errorf("line %d: unknown statement kind %q", st.Line, st.Kind)
		}
	}
	return net, nil
}

// ParseString parses and post-processes a CRN document
func ParseString(src string) (*domain.Network, error) {
	stmts, err := ParseStatements(src)
	if err != nil {
		return nil, err
	}
	return PostProcess(stmts)
}

// Parse reads a whole CRN document from r
func Parse(r io.Reader) (*domain.Network, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CRN: %w", err)
	}
	return ParseString(string(data))
}

// ParseFile parses the CRN document stored at path
func ParseFile(path string) (*domain.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CRN file: %w", err)
	}
	return ParseString(string(data))
}

func (p *parser) advance(mode scanMode) error {
	tok, err := p.sc.next(mode)
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) unexpected(want string) error {
	return p.sc.errorf(p.tok, "expected %s, found %s", want, p.tok.describe())
}

func (p *parser) statement() (Statement, error) {
	st := Statement{Line: p.tok.line}

	lhs, err := p.speciesList()
	if err != nil {
		return st, err
	}

	switch p.tok.kind {
	case tokAt:
		return p.concentration(st, lhs)
	case tokArrow:
		st.Kind = StatementIrreversible
	case tokRevArrow:
		st.Kind = StatementReversible
	default:
		if len(lhs) == 0 {
			return st, p.unexpected("species, '->' or '<=>'")
		}
		return st, p.unexpected("'+', '->', '<=>' or '@'")
	}
	st.Reactants = lhs

	if err := p.advance(modeTop); err != nil {
		return st, err
	}
	if st.Products, err = p.speciesList(); err != nil {
		return st, err
	}

	if p.tok.kind == tokLBrack {
		if st.Rates, err = p.rateClause(st.Kind); err != nil {
			return st, err
		}
	}
	return st, nil
}

// speciesList reads an optional '+'-joined list of terms. A line end after
// '+' continues the list.
func (p *parser) speciesList() ([]Term, error) {
	var terms []Term
	if p.tok.kind != tokIdent && p.tok.kind != tokInt {
		return terms, nil
	}

	for {
		term := Term{Multiplier: 1}
		if p.tok.kind == tokInt {
			n, err := strconv.Atoi(p.tok.text)
			if err != nil || n < 1 {
				return nil, p.sc.errorf(p.tok, "multiplier must be a positive integer, found %q", p.tok.text)
			}
			term.Multiplier = n
			if err := p.advance(modeTop); err != nil {
				return nil, err
			}
		}
		if p.tok.kind != tokIdent {
			return nil, p.unexpected("species name")
		}
		term.Species = p.tok.text
		terms = append(terms, term)

		if err := p.advance(modeTop); err != nil {
			return nil, err
		}
		if p.tok.kind != tokPlus {
			return terms, nil
		}

		// continuation lines are allowed after '+'
		if err := p.advance(modeTop); err != nil {
			return nil, err
		}
		for p.tok.kind == tokNewline {
			if err := p.advance(modeTop); err != nil {
				return nil, err
			}
		}
	}
}

func (p *parser) concentration(st Statement, lhs []Term) (Statement, error) {
	at := p.tok
	if len(lhs) != 1 || lhs[0].Multiplier != 1 {
		return st, p.sc.errorf(at, "concentration statement takes a single species name without multiplier")
	}

	if err := p.advance(modeKind); err != nil {
		return st, err
	}
	kind, ok := domain.ParseConcentrationKind(p.tok.text)
	if p.tok.kind != tokKind || !ok {
		return st, p.unexpected("concentration kind")
	}

	if err := p.advance(modeValue); err != nil {
		return st, err
	}
	if p.tok.kind != tokNumber {
		return st, p.unexpected("concentration value")
	}
	v, err := strconv.ParseFloat(p.tok.text, 64)
	if err != nil {
		return st, p.sc.errorf(p.tok, "invalid number %q", p.tok.text)
	}

	st.Kind = StatementConcentration
	st.Species = lhs[0].Species
	st.Concentration = domain.Concentration{Kind: kind, Value: v}

	if err := p.advance(modeTop); err != nil {
		return st, err
	}
	return st, nil
}

type rateItem struct {
	key   string
	value float64
}

// rateClause reads '[' item {',' item} ']' where item is [key '='] number,
// then checks the items against the reaction kind
func (p *parser) rateClause(kind StatementKind) ([]domain.Rate, error) {
	open := p.tok
	if err := p.advance(modeBracket); err != nil {
		return nil, err
	}

	var items []rateItem
	for {
		var item rateItem
		if p.tok.kind == tokIdent {
			item.key = p.tok.text
			if err := p.advance(modeBracket); err != nil {
				return nil, err
			}
			if p.tok.kind != tokEquals {
				return nil, p.unexpected("'='")
			}
			if err := p.advance(modeBracket); err != nil {
				return nil, err
			}
		}
		if p.tok.kind != tokNumber {
			return nil, p.unexpected("rate constant")
		}
		v, err := strconv.ParseFloat(p.tok.text, 64)
		if err != nil {
			return nil, p.sc.errorf(p.tok, "invalid number %q", p.tok.text)
		}
		item.value = v
		items = append(items, item)

		if err := p.advance(modeBracket); err != nil {
			return nil, err
		}
		if p.tok.kind == tokComma {
			if err := p.advance(modeBracket); err != nil {
				return nil, err
			}
			continue
		}
		if p.tok.kind != tokRBrack {
			return nil, p.unexpected("',' or ']'")
		}
		break
	}

	if err := p.checkRates(open, kind, items); err != nil {
		return nil, err
	}
	if err := p.advance(modeTop); err != nil {
		return nil, err
	}

	rates := make([]domain.Rate, len(items))
	for i, it := range items {
		rates[i] = domain.NumericRate(it.value)
	}
	return rates, nil
}

func (p *parser) checkRates(open token, kind StatementKind, items []rateItem) error {
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.key
	}

	switch kind {
	case StatementIrreversible:
		if len(items) != 1 {
			return p.sc.errorf(open, "irreversible reaction takes one rate, found %d", len(items))
		}
		if keys[0] != "" && keys[0] != "k" {
			return p.sc.errorf(open, "irreversible rate must be written as k = <number>, found %q", keys[0])
		}
	case StatementReversible:
		if len(items) != 2 {
			return p.sc.errorf(open, "reversible reaction takes a forward and a backward rate, found %d", len(items))
		}
		bare := keys[0] == "" && keys[1] == ""
		keyed := keys[0] == "kf" && keys[1] == "kr"
		if !bare && !keyed {
			return p.sc.errorf(open, "reversible rates must be written as kf = <number>, kr = <number>")
		}
	}
	return nil
}
