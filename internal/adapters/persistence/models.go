package persistence

import (
	"time"
)

// SimulationRunModel represents the simulation_runs table
type SimulationRunModel struct {
	ID          string     `gorm:"column:id;primaryKey;not null"`
	Scenario    string     `gorm:"column:scenario;not null;index"`
	Duration    int        `gorm:"column:duration;not null"`
	CurrentStep int        `gorm:"column:current_step;not null;default:-1"`
	Status      string     `gorm:"column:status;not null"`
	LastError   string     `gorm:"column:last_error;type:text"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null"`
	StartedAt   *time.Time `gorm:"column:started_at"`
	StoppedAt   *time.Time `gorm:"column:stopped_at"`
}

func (SimulationRunModel) TableName() string {
	return "simulation_runs"
}

// FacilitySnapshotModel represents the facility_snapshots table
type FacilitySnapshotModel struct {
	ID               int                 `gorm:"column:id;primaryKey;autoIncrement"`
	RunID            string              `gorm:"column:run_id;not null;index:idx_snapshot_run_step"`
	Run              *SimulationRunModel `gorm:"foreignKey:RunID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Step             int                 `gorm:"column:step;not null;index:idx_snapshot_run_step"`
	FacilityID       string              `gorm:"column:facility_id;not null"`
	Variant          string              `gorm:"column:variant;not null"`
	Phase            string              `gorm:"column:phase;not null"`
	PhaseDescription string              `gorm:"column:phase_description"`
	DeployedAt       int                 `gorm:"column:deployed_at"`
	ReservesQty      float64             `gorm:"column:reserves_qty;not null;default:0"`
	ReservesLots     int                 `gorm:"column:reserves_lots;not null;default:0"`
	ProcessingQty    float64             `gorm:"column:processing_qty;not null;default:0"`
	ProcessingLots   int                 `gorm:"column:processing_lots;not null;default:0"`
	StocksQty        float64             `gorm:"column:stocks_qty;not null;default:0"`
	StocksLots       int                 `gorm:"column:stocks_lots;not null;default:0"`
	ResidueQty       float64             `gorm:"column:residue_qty;not null;default:0"`
	Levels           string              `gorm:"column:levels;type:text"` // JSON of per-commodity reserves and stocks
}

func (FacilitySnapshotModel) TableName() string {
	return "facility_snapshots"
}

// FacilityLogModel represents the facility_logs table
type FacilityLogModel struct {
	ID        int                 `gorm:"column:id;primaryKey;autoIncrement"`
	RunID     string              `gorm:"column:run_id;not null;index"`
	Run       *SimulationRunModel `gorm:"foreignKey:RunID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Timestamp time.Time           `gorm:"column:timestamp;not null"`
	Level     string              `gorm:"column:level;not null;default:'INFO'"`
	Message   string              `gorm:"column:message;type:text;not null"`
	Metadata  string              `gorm:"column:metadata;type:text"` // JSON as text
}

func (FacilityLogModel) TableName() string {
	return "facility_logs"
}
