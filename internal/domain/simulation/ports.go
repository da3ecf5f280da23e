package simulation

import (
	"context"

	"github.com/andrescamacho/facsim-go/internal/domain/facility"
)

// RunRepository persists run lifecycle records
type RunRepository interface {
	Add(ctx context.Context, run *Run) error
	Update(ctx context.Context, run *Run) error
	FindByID(ctx context.Context, id string) (*Run, error)
	ListRecent(ctx context.Context, limit int) ([]*Run, error)
}

// SnapshotRecorder receives one snapshot per facility per step
type SnapshotRecorder interface {
	Record(ctx context.Context, runID string, snap facility.Snapshot) error
}

// SnapshotReader lists recorded snapshots of a run in step order
type SnapshotReader interface {
	ListByRun(ctx context.Context, runID string) ([]facility.Snapshot, error)
}
