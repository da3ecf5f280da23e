package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/andrescamacho/facsim-go/internal/domain/shared"
	"github.com/andrescamacho/facsim-go/internal/domain/simulation"
)

// GormRunRepository implements simulation.RunRepository using GORM
type GormRunRepository struct {
	db    *gorm.DB
	clock shared.Clock
}

// NewGormRunRepository creates a new GORM run repository.
// If clock is nil, recovered runs use RealClock.
func NewGormRunRepository(db *gorm.DB, clock shared.Clock) *GormRunRepository {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &GormRunRepository{db: db, clock: clock}
}

// Add inserts a new run
func (r *GormRunRepository) Add(ctx context.Context, run *simulation.Run) error {
	if err := r.db.WithContext(ctx).Create(runToModel(run)).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Update writes the current state of a run
func (r *GormRunRepository) Update(ctx context.Context, run *simulation.Run) error {
	model := runToModel(run)
	result := r.db.WithContext(ctx).
		Model(&SimulationRunModel{}).
		Where("id = ?", run.ID()).
		Updates(map[string]interface{}{
			"current_step": model.CurrentStep,
			"status":       model.Status,
			"last_error":   model.LastError,
			"updated_at":   model.UpdatedAt,
			"started_at":   model.StartedAt,
			"stopped_at":   model.StoppedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("run not found: %s", run.ID())
	}
	return nil
}

// FindByID retrieves a run by ID
func (r *GormRunRepository) FindByID(ctx context.Context, id string) (*simulation.Run, error) {
	var model SimulationRunModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("run not found: %s", id)
		}
		return nil, fmt.Errorf("failed to find run: %w", result.Error)
	}
	return r.modelToRun(&model), nil
}

// ListRecent returns the most recently created runs first
func (r *GormRunRepository) ListRecent(ctx context.Context, limit int) ([]*simulation.Run, error) {
	var models []SimulationRunModel
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]*simulation.Run, 0, len(models))
	for i := range models {
		runs = append(runs, r.modelToRun(&models[i]))
	}
	return runs, nil
}

func runToModel(run *simulation.Run) *SimulationRunModel {
	model := &SimulationRunModel{
		ID:          run.ID(),
		Scenario:    run.Scenario(),
		Duration:    run.Duration(),
		CurrentStep: run.CurrentStep(),
		Status:      string(run.Status()),
		CreatedAt:   run.CreatedAt(),
		UpdatedAt:   run.UpdatedAt(),
		StartedAt:   run.StartedAt(),
		StoppedAt:   run.StoppedAt(),
	}
	if err := run.LastError(); err != nil {
		model.LastError = err.Error()
	}
	return model
}

func (r *GormRunRepository) modelToRun(model *SimulationRunModel) *simulation.Run {
	var lastErr error
	if model.LastError != "" {
		lastErr = errors.New(model.LastError)
	}
	return simulation.RecoverRun(
		model.ID,
		model.Scenario,
		model.Duration,
		model.CurrentStep,
		simulation.RunStatus(model.Status),
		model.CreatedAt,
		model.UpdatedAt,
		model.StartedAt,
		model.StoppedAt,
		lastErr,
		r.clock,
	)
}
