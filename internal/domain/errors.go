package domain

import "errors"

var (
	// ErrRateArity indicates a reaction with neither one nor two rates.
	ErrRateArity = errors.New("domain: reaction must carry one or two rates")
)
