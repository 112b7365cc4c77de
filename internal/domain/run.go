package domain

import "time"

// ModelRecord is the persisted description of a compiled ODE model
type ModelRecord struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	SourceHash string             `json:"source_hash"`
	Variables  []string           `json:"variables"`
	ODEs       []string           `json:"odes"`
	Rates      map[string]float64 `json:"rates,omitempty"`
	Jacobian   bool               `json:"jacobian"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Run is one simulation of a model on a time grid
type Run struct {
	ID        string         `json:"id"`
	ModelID   string         `json:"model_id"`
	Variables []string       `json:"variables"`
	Initial   []float64      `json:"initial"`
	Options   map[string]any `json:"options,omitempty"`
	Times     []float64      `json:"times,omitempty"`
	Values    [][]float64    `json:"values,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NumSamples returns the number of recorded time points
func (r *Run) NumSamples() int {
	return len(r.Times)
}

// Final returns the last recorded state, or nil for an empty run
func (r *Run) Final() []float64 {
	if len(r.Values) == 0 {
		return nil
	}
	return r.Values[len(r.Values)-1]
}

// RunSummary is the listing view of a stored run
type RunSummary struct {
	ID        string    `json:"id"`
	ModelID   string    `json:"model_id"`
	ModelName string    `json:"model_name"`
	Samples   int       `json:"samples"`
	CreatedAt time.Time `json:"created_at"`
}
