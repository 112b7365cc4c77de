package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"crnsim/internal/domain"
)

// ============================================================================
// Time Helpers
// ============================================================================

// timeLayout is RFC 3339 with a fixed-width fraction, so stored timestamps
// sort correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals v to nullable JSON text.
// nil and empty maps or slices are stored as NULL.
func marshalToNull(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		if rv.Len() == 0 {
			return sql.NullString{}, nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Row Scanners
// ============================================================================
//
// Column order must match between the *Columns constants and scanArgs().

// modelRow holds all columns from a model query for scanning
type modelRow struct {
	ID            string
	Name          string
	SourceHash    string
	VariablesJSON string
	ODEsJSON      string
	RatesJSON     sql.NullString
	Jacobian      int64
	CreatedAt     string
}

// modelColumns is the SELECT column list for model queries
const modelColumns = `id, name, source_hash, variables, odes, rates, jacobian, created_at`

// scanArgs returns pointers to all fields in modelColumns order
func (r *modelRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,
		&r.Name,
		&r.SourceHash,
		&r.VariablesJSON,
		&r.ODEsJSON,
		&r.RatesJSON,
		&r.Jacobian,
		&r.CreatedAt,
	}
}

// toDomain converts the scanned row to a domain.ModelRecord
func (r *modelRow) toDomain() (*domain.ModelRecord, error) {
	m := &domain.ModelRecord{
		ID:         r.ID,
		Name:       r.Name,
		SourceHash: r.SourceHash,
		Jacobian:   r.Jacobian != 0,
	}

	var err error
	if m.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(r.VariablesJSON), &m.Variables); err != nil {
		return nil, fmt.Errorf("unmarshal variables: %w", err)
	}
	if err := json.Unmarshal([]byte(r.ODEsJSON), &m.ODEs); err != nil {
		return nil, fmt.Errorf("unmarshal odes: %w", err)
	}
	if err := unmarshalJSONField(r.RatesJSON, &m.Rates); err != nil {
		return nil, fmt.Errorf("unmarshal rates: %w", err)
	}
	return m, nil
}

// runRow holds all columns from a run query for scanning
type runRow struct {
	ID            string
	ModelID       string
	VariablesJSON string
	InitialJSON   string
	OptionsJSON   sql.NullString
	CreatedAt     string
}

// runColumns is the SELECT column list for run queries
const runColumns = `id, model_id, variables, initial, options, created_at`

// scanArgs returns pointers to all fields in runColumns order
func (r *runRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,
		&r.ModelID,
		&r.VariablesJSON,
		&r.InitialJSON,
		&r.OptionsJSON,
		&r.CreatedAt,
	}
}

// toDomain converts the scanned row to a domain.Run without samples
func (r *runRow) toDomain() (*domain.Run, error) {
	run := &domain.Run{
		ID:      r.ID,
		ModelID: r.ModelID,
	}

	var err error
	if run.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(r.VariablesJSON), &run.Variables); err != nil {
		return nil, fmt.Errorf("unmarshal variables: %w", err)
	}
	if err := json.Unmarshal([]byte(r.InitialJSON), &run.Initial); err != nil {
		return nil, fmt.Errorf("unmarshal initial: %w", err)
	}
	if err := unmarshalJSONField(r.OptionsJSON, &run.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	return run, nil
}
