package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/facsim-go/internal/adapters/persistence"
	"github.com/andrescamacho/facsim-go/internal/domain/facility"
	"github.com/andrescamacho/facsim-go/internal/domain/simulation"
	"github.com/andrescamacho/facsim-go/test/helpers"
)

func TestSnapshotRepository_RecordAndListByRun(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	runs := persistence.NewGormRunRepository(db, nil)
	repo := persistence.NewGormSnapshotRepository(db)
	run, err := simulation.NewRun("s", 2, nil)
	require.NoError(t, err)
	require.NoError(t, runs.Add(context.Background(), run))

	later := facility.Snapshot{FacilityID: "conv", Variant: facility.VariantConverter, Time: 1, Phase: "PROCESS", StocksQty: 4, StocksLots: 1,
		Stocks: []facility.CommodityLevel{{Commodity: "leu", Quantity: 4, Lots: 1}}}
	first := facility.Snapshot{FacilityID: "conv", Variant: facility.VariantConverter, Time: 0, Phase: "WAITING", ProcessingQty: 4, ProcessingLots: 1}
	other := facility.Snapshot{FacilityID: "sep", Variant: facility.VariantSeparation, Time: 0, Phase: "INITIAL", ResidueQty: 0.5,
		Reserves: []facility.CommodityLevel{{Commodity: "spent", Quantity: 2, Lots: 2}}}

	// Act
	require.NoError(t, repo.Record(context.Background(), run.ID(), later))
	require.NoError(t, repo.Record(context.Background(), run.ID(), first))
	require.NoError(t, repo.Record(context.Background(), run.ID(), other))
	snaps, err := repo.ListByRun(context.Background(), run.ID())

	// Assert
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, first.FacilityID, snaps[0].FacilityID)
	assert.Equal(t, 0, snaps[0].Time)
	assert.Equal(t, "sep", snaps[1].FacilityID, "same step keeps insertion order")
	assert.Equal(t, other.Reserves, snaps[1].Reserves)
	assert.InDelta(t, 0.5, snaps[1].ResidueQty, 1e-12)
	assert.Equal(t, later, snaps[2])
}

func TestSnapshotRepository_ListByUnknownRunIsEmpty(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormSnapshotRepository(db)

	snaps, err := repo.ListByRun(context.Background(), "nope")

	require.NoError(t, err)
	assert.Empty(t, snaps)
}
