package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/andrescamacho/facsim-go/internal/domain/facility"
)

// snapshotLevels is the JSON payload stored in FacilitySnapshotModel.Levels
type snapshotLevels struct {
	Reserves []facility.CommodityLevel `json:"reserves,omitempty"`
	Stocks   []facility.CommodityLevel `json:"stocks,omitempty"`
}

// GormSnapshotRepository records facility snapshots per run and step
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a new snapshot repository
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

// Record persists one snapshot
func (r *GormSnapshotRepository) Record(ctx context.Context, runID string, snap facility.Snapshot) error {
	levels, err := json.Marshal(snapshotLevels{Reserves: snap.Reserves, Stocks: snap.Stocks})
	if err != nil {
		return fmt.Errorf("failed to serialize levels: %w", err)
	}

	model := &FacilitySnapshotModel{
		RunID:            runID,
		Step:             snap.Time,
		FacilityID:       snap.FacilityID,
		Variant:          string(snap.Variant),
		Phase:            snap.Phase,
		PhaseDescription: snap.PhaseDescription,
		DeployedAt:       snap.DeployedAt,
		ReservesQty:      snap.ReservesQty,
		ReservesLots:     snap.ReservesLots,
		ProcessingQty:    snap.ProcessingQty,
		ProcessingLots:   snap.ProcessingLots,
		StocksQty:        snap.StocksQty,
		StocksLots:       snap.StocksLots,
		ResidueQty:       snap.ResidueQty,
		Levels:           string(levels),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// ListByRun returns the snapshots of a run in step order, then insertion order
func (r *GormSnapshotRepository) ListByRun(ctx context.Context, runID string) ([]facility.Snapshot, error) {
	var models []FacilitySnapshotModel
	result := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("step ASC").
		Order("id ASC").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", result.Error)
	}

	snaps := make([]facility.Snapshot, 0, len(models))
	for _, model := range models {
		snap := facility.Snapshot{
			FacilityID:       model.FacilityID,
			Variant:          facility.Variant(model.Variant),
			Time:             model.Step,
			Phase:            model.Phase,
			PhaseDescription: model.PhaseDescription,
			DeployedAt:       model.DeployedAt,
			ReservesQty:      model.ReservesQty,
			ReservesLots:     model.ReservesLots,
			ProcessingQty:    model.ProcessingQty,
			ProcessingLots:   model.ProcessingLots,
			StocksQty:        model.StocksQty,
			StocksLots:       model.StocksLots,
			ResidueQty:       model.ResidueQty,
		}
		if model.Levels != "" {
			var levels snapshotLevels
			if err := json.Unmarshal([]byte(model.Levels), &levels); err != nil {
				return nil, fmt.Errorf("failed to parse levels of snapshot %d: %w", model.ID, err)
			}
			snap.Reserves = levels.Reserves
			snap.Stocks = levels.Stocks
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}
