package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"crnsim/internal/domain"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// New opens (and migrates) the SQLite database at dbPath.
// ":memory:" gives a private in-memory database.
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps in-memory databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure database: %w", err)
		}
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS models (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		source_hash TEXT NOT NULL,
		variables JSON NOT NULL,
		odes JSON NOT NULL,
		rates JSON,
		jacobian INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		model_id TEXT NOT NULL,
		variables JSON NOT NULL,
		initial JSON NOT NULL,
		options JSON,
		created_at TEXT NOT NULL,
		FOREIGN KEY (model_id) REFERENCES models(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS samples (
		run_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		time REAL NOT NULL,
		state JSON NOT NULL,
		PRIMARY KEY (run_id, idx),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_models_hash ON models(source_hash);
	CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model_id);
	`

	_, err := r.db.Exec(schema)
	return err
}

// SaveModel inserts a model record, assigning ID and CreatedAt when unset
func (r *Repository) SaveModel(ctx context.Context, m *domain.ModelRecord) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	variables, err := json.Marshal(m.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}
	odes, err := json.Marshal(m.ODEs)
	if err != nil {
		return fmt.Errorf("failed to marshal odes: %w", err)
	}
	rates, err := marshalToNull(m.Rates)
	if err != nil {
		return fmt.Errorf("failed to marshal rates: %w", err)
	}

	jacobian := 0
	if m.Jacobian {
		jacobian = 1
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO models (id, name, source_hash, variables, odes, rates, jacobian, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Name, m.SourceHash, string(variables), string(odes), rates, jacobian, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert model %s: %w", m.ID, err)
	}
	return nil
}

// GetModel retrieves a model record by ID
func (r *Repository) GetModel(ctx context.Context, id string) (*domain.ModelRecord, error) {
	return r.queryModel(ctx, `SELECT `+modelColumns+` FROM models WHERE id = ?`, id)
}

// FindModelByHash returns the newest model compiled from the given source hash
func (r *Repository) FindModelByHash(ctx context.Context, hash string) (*domain.ModelRecord, error) {
	return r.queryModel(ctx, `
		SELECT `+modelColumns+` FROM models
		WHERE source_hash = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, hash)
}

func (r *Repository) queryModel(ctx context.Context, query string, arg string) (*domain.ModelRecord, error) {
	var row modelRow
	err := r.db.QueryRowContext(ctx, query, arg).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query model: %w", err)
	}
	return row.toDomain()
}

// ListModels returns all model records, newest first
func (r *Repository) ListModels(ctx context.Context) ([]domain.ModelRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+modelColumns+` FROM models ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}
	defer rows.Close()

	var models []domain.ModelRecord
	for rows.Next() {
		var row modelRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		m, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		models = append(models, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating models: %w", err)
	}
	return models, nil
}

// SaveRun inserts a run and all its samples in one transaction
func (r *Repository) SaveRun(ctx context.Context, run *domain.Run) error {
	if len(run.Times) != len(run.Values) {
		return fmt.Errorf("run has %d times but %d states", len(run.Times), len(run.Values))
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	variables, err := json.Marshal(run.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}
	initial, err := json.Marshal(run.Initial)
	if err != nil {
		return fmt.Errorf("failed to marshal initial state: %w", err)
	}
	options, err := marshalToNull(run.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, model_id, variables, initial, options, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.ModelID, string(variables), string(initial), options, formatTime(run.CreatedAt)); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (run_id, idx, time, state) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare sample statement: %w", err)
	}
	defer stmt.Close()

	for i, t := range run.Times {
		state, err := json.Marshal(run.Values[i])
		if err != nil {
			return fmt.Errorf("failed to marshal sample %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, t, string(state)); err != nil {
			return fmt.Errorf("failed to insert sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetRun retrieves a run with all its samples
func (r *Repository) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	var row runRow
	err := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	run, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT time, state FROM samples WHERE run_id = ? ORDER BY idx
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t     float64
			state string
		)
		if err := rows.Scan(&t, &state); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		var values []float64
		if err := json.Unmarshal([]byte(state), &values); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sample: %w", err)
		}
		run.Times = append(run.Times, t)
		run.Values = append(run.Values, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating samples: %w", err)
	}
	return run, nil
}

// ListRuns returns run summaries, newest first. An empty modelID lists all runs.
func (r *Repository) ListRuns(ctx context.Context, modelID string) ([]domain.RunSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.model_id, m.name,
			(SELECT COUNT(*) FROM samples s WHERE s.run_id = r.id),
			r.created_at
		FROM runs r
		JOIN models m ON m.id = r.model_id
		WHERE ? = '' OR r.model_id = ?
		ORDER BY r.created_at DESC, r.id
	`, modelID, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunSummary
	for rows.Next() {
		var (
			s       domain.RunSummary
			created string
		)
		if err := rows.Scan(&s.ID, &s.ModelID, &s.ModelName, &s.Samples, &created); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if s.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		runs = append(runs, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and its samples
func (r *Repository) DeleteRun(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM samples WHERE run_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete samples: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
