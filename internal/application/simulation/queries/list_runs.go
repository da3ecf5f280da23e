package queries

import (
	"context"
	"fmt"

	"github.com/andrescamacho/facsim-go/internal/application/common"
	"github.com/andrescamacho/facsim-go/internal/domain/simulation"
)

// ListRunsQuery lists the most recent runs
type ListRunsQuery struct {
	Limit int
}

// ListRunsResponse represents the result of the query
type ListRunsResponse struct {
	Runs []*simulation.Run
}

// ListRunsHandler handles the ListRuns query
type ListRunsHandler struct {
	runRepo simulation.RunRepository
}

func NewListRunsHandler(runRepo simulation.RunRepository) *ListRunsHandler {
	return &ListRunsHandler{runRepo: runRepo}
}

// Handle executes the ListRuns query
func (h *ListRunsHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	query, ok := request.(*ListRunsQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *ListRunsQuery")
	}

	runs, err := h.runRepo.ListRecent(ctx, query.Limit)
	if err != nil {
		return nil, err
	}
	return &ListRunsResponse{Runs: runs}, nil
}
