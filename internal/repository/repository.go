package repository

import (
	"context"

	"crnsim/internal/domain"
)

// Repository defines the interface for model and run persistence.
// Getters return (nil, nil) when the record does not exist.
type Repository interface {
	// Models
	SaveModel(ctx context.Context, m *domain.ModelRecord) error
	GetModel(ctx context.Context, id string) (*domain.ModelRecord, error)
	FindModelByHash(ctx context.Context, hash string) (*domain.ModelRecord, error)
	ListModels(ctx context.Context) ([]domain.ModelRecord, error)

	// Runs
	SaveRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	ListRuns(ctx context.Context, modelID string) ([]domain.RunSummary, error)
	DeleteRun(ctx context.Context, id string) error

	// Close releases resources
	Close() error
}
