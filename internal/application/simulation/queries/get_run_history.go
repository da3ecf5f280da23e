package queries

import (
	"context"
	"fmt"

	"github.com/andrescamacho/facsim-go/internal/application/common"
	"github.com/andrescamacho/facsim-go/internal/domain/facility"
	"github.com/andrescamacho/facsim-go/internal/domain/simulation"
)

// GetRunHistoryQuery loads a run and its recorded snapshots
type GetRunHistoryQuery struct {
	RunID    string
	Facility string // optional filter
}

// GetRunHistoryResponse represents the result of the query
type GetRunHistoryResponse struct {
	Run       *simulation.Run
	Snapshots []facility.Snapshot
}

// GetRunHistoryHandler handles the GetRunHistory query
type GetRunHistoryHandler struct {
	runRepo   simulation.RunRepository
	snapshots simulation.SnapshotReader
}

func NewGetRunHistoryHandler(runRepo simulation.RunRepository, snapshots simulation.SnapshotReader) *GetRunHistoryHandler {
	return &GetRunHistoryHandler{runRepo: runRepo, snapshots: snapshots}
}

// Handle executes the GetRunHistory query
func (h *GetRunHistoryHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	query, ok := request.(*GetRunHistoryQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetRunHistoryQuery")
	}

	run, err := h.runRepo.FindByID(ctx, query.RunID)
	if err != nil {
		return nil, err
	}

	snaps, err := h.snapshots.ListByRun(ctx, query.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}
	if query.Facility != "" {
		filtered := snaps[:0]
		for _, s := range snaps {
			if s.FacilityID == query.Facility {
				filtered = append(filtered, s)
			}
		}
		snaps = filtered
	}

	return &GetRunHistoryResponse{Run: run, Snapshots: snaps}, nil
}
