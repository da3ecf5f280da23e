package queries_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/facsim-go/internal/adapters/persistence"
	"github.com/andrescamacho/facsim-go/internal/application/simulation/queries"
	"github.com/andrescamacho/facsim-go/internal/domain/facility"
	"github.com/andrescamacho/facsim-go/internal/domain/simulation"
	"github.com/andrescamacho/facsim-go/test/helpers"
)

func TestGetRunHistoryHandler_FiltersByFacility(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	runs := persistence.NewGormRunRepository(db, nil)
	snapshots := persistence.NewGormSnapshotRepository(db)
	run, err := simulation.NewRun("s", 2, nil)
	require.NoError(t, err)
	require.NoError(t, runs.Add(context.Background(), run))
	for _, id := range []string{"a", "b", "a"} {
		require.NoError(t, snapshots.Record(context.Background(), run.ID(), facility.Snapshot{FacilityID: id, Variant: facility.VariantConverter, Phase: "WAITING"}))
	}
	handler := queries.NewGetRunHistoryHandler(runs, snapshots)

	// Act
	resp, err := handler.Handle(context.Background(), &queries.GetRunHistoryQuery{RunID: run.ID(), Facility: "a"})

	// Assert
	require.NoError(t, err)
	history := resp.(*queries.GetRunHistoryResponse)
	assert.Equal(t, run.ID(), history.Run.ID())
	require.Len(t, history.Snapshots, 2)
	for _, snap := range history.Snapshots {
		assert.Equal(t, "a", snap.FacilityID)
	}
}

func TestGetRunHistoryHandler_UnknownRun(t *testing.T) {
	db := helpers.NewTestDB(t)
	handler := queries.NewGetRunHistoryHandler(persistence.NewGormRunRepository(db, nil), persistence.NewGormSnapshotRepository(db))

	_, err := handler.Handle(context.Background(), &queries.GetRunHistoryQuery{RunID: "missing"})

	assert.Error(t, err)
}

func TestListRunsHandler_ReturnsRuns(t *testing.T) {
	db := helpers.NewTestDB(t)
	runs := persistence.NewGormRunRepository(db, nil)
	run, err := simulation.NewRun("s", 1, nil)
	require.NoError(t, err)
	require.NoError(t, runs.Add(context.Background(), run))
	handler := queries.NewListRunsHandler(runs)

	resp, err := handler.Handle(context.Background(), &queries.ListRunsQuery{Limit: 10})

	require.NoError(t, err)
	listed := resp.(*queries.ListRunsResponse)
	require.Len(t, listed.Runs, 1)
	assert.Equal(t, run.ID(), listed.Runs[0].ID())
}
