package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"crnsim/internal/domain"
	"crnsim/internal/logging"
	"crnsim/internal/repository"
	"crnsim/internal/simulate"
)

// SimulationService integrates models and records the runs
type SimulationService struct {
	repo     repository.Repository
	eventBus *EventBus
	logger   *zap.Logger
}

// NewSimulationService creates a new simulation service. A nil repo
// disables recording.
func NewSimulationService(repo repository.Repository, eventBus *EventBus, logger *zap.Logger) *SimulationService {
	return &SimulationService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logging.OrNop(logger),
	}
}

// Simulate integrates m from y0. When rec is non-nil and a repository is
// configured, the model and the trajectory are stored and the run returned.
func (s *SimulationService) Simulate(ctx context.Context, m simulate.Model, rec *domain.ModelRecord, y0 []float64, opts simulate.Options) (*simulate.Result, *domain.Run, error) {
	start := time.Now()
	res, err := simulate.Run(ctx, m, y0, opts)
	if err != nil {
		s.eventBus.Publish(Event{Type: EventFailed, Model: m.Name(), Payload: err.Error()})
		return nil, nil, err
	}
	s.eventBus.Publish(Event{Type: EventSimulated, Model: m.Name(), Payload: res.Trajectory.Len()})
	s.logger.Info("simulation finished",
		zap.String("model", m.Name()),
		zap.Int("samples", res.Trajectory.Len()),
		zap.Duration("elapsed", time.Since(start)))

	if s.repo == nil || rec == nil {
		return res, nil, nil
	}

	run, err := s.record(ctx, rec, res, opts)
	if err != nil {
		return res, nil, fmt.Errorf("record run: %w", err)
	}
	return res, run, nil
}

func (s *SimulationService) record(ctx context.Context, rec *domain.ModelRecord, res *simulate.Result, opts simulate.Options) (*domain.Run, error) {
	stored, err := s.repo.FindModelByHash(ctx, rec.SourceHash)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		if err := s.repo.SaveModel(ctx, rec); err != nil {
			return nil, err
		}
		stored = rec
	}

	run := &domain.Run{
		ModelID:   stored.ID,
		Variables: res.Variables,
		Initial:   res.Initial,
		Options:   runOptions(opts),
		Times:     res.Trajectory.Times,
		Values:    res.Trajectory.Values,
	}
	if err := s.repo.SaveRun(ctx, run); err != nil {
		return nil, err
	}

	s.eventBus.Publish(Event{Type: EventRecorded, Model: stored.Name, Payload: run.ID})
	s.logger.Debug("run recorded", zap.String("run", run.ID), zap.String("model_id", stored.ID))
	return run, nil
}

// Runs lists recorded runs, all of them when modelID is empty
func (s *SimulationService) Runs(ctx context.Context, modelID string) ([]domain.RunSummary, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("no run database configured")
	}
	return s.repo.ListRuns(ctx, modelID)
}

// GetRun returns a recorded run with its samples
func (s *SimulationService) GetRun(ctx context.Context, id string) (*domain.Run, *domain.ModelRecord, error) {
	if s.repo == nil {
		return nil, nil, fmt.Errorf("no run database configured")
	}
	run, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if run == nil {
		return nil, nil, fmt.Errorf("run %s not found", id)
	}
	m, err := s.repo.GetModel(ctx, run.ModelID)
	if err != nil {
		return nil, nil, err
	}
	return run, m, nil
}

func runOptions(opts simulate.Options) map[string]any {
	out := map[string]any{
		"t0":        opts.T0,
		"t8":        opts.T8,
		"atol":      opts.Solver.AbsTol,
		"rtol":      opts.Solver.RelTol,
		"max_steps": opts.Solver.MaxSteps,
	}
	if opts.TLog > 0 {
		out["t_log"] = opts.TLog
	} else {
		out["t_lin"] = opts.TLin
	}
	if len(opts.P0) > 0 {
		out["p0"] = opts.P0
	}
	if len(opts.Rates) > 0 {
		out["rates"] = opts.Rates
	}
	return out
}

// ModelRecordFor describes a model that was not compiled in this process,
// such as one loaded from an emitted source file
func ModelRecordFor(m simulate.Model, sourceHash string) *domain.ModelRecord {
	rec := &domain.ModelRecord{
		Name:       m.Name(),
		SourceHash: sourceHash,
		Variables:  m.Variables(),
		Rates:      m.Rates(),
	}
	if j, ok := m.(interface{ HasJacobian() bool }); ok {
		rec.Jacobian = j.HasJacobian()
	}
	return rec
}
