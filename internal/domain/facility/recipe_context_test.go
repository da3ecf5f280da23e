package facility_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/facsim-go/internal/domain/facility"
	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

func newContext(t *testing.T) *facility.RecipeContext {
	t.Helper()
	crctx := facility.NewRecipeContext()
	require.NoError(t, crctx.AddInCommod("natu", "nat_u", "leu", "leu"))
	require.NoError(t, crctx.AddInCommod("repu", "leu", "leu", "leu"))
	return crctx
}

func lotOf(t *testing.T, qty float64) *material.Lot {
	t.Helper()
	lot, err := material.NewLot(qty, material.MustComposition(map[material.Nuclide]float64{u235: 1}), "")
	require.NoError(t, err)
	return lot
}

func TestRecipeContext_Registration(t *testing.T) {
	crctx := newContext(t)

	assert.Equal(t, []string{"natu", "repu"}, crctx.InCommods())
	assert.Equal(t, []string{"leu"}, crctx.OutCommods(), "shared output registered once")
	out, err := crctx.OutCommod("natu")
	require.NoError(t, err)
	assert.Equal(t, "leu", out)

	err = crctx.AddInCommod("natu", "leu", "leu", "leu")
	var cErr *shared.ConfigError
	assert.True(t, errors.As(err, &cErr), "duplicate input commodity")

	err = crctx.AddOutCommod("leu", "heu")
	assert.True(t, errors.As(err, &cErr), "conflicting output recipe")
}

func TestRecipeContext_KeepsRegistrationOrder(t *testing.T) {
	crctx := facility.NewRecipeContext()
	require.NoError(t, crctx.AddInCommod("zeta", "nat_u", "zeta_out", "leu"))
	require.NoError(t, crctx.AddInCommod("alpha", "nat_u", "alpha_out", "leu"))
	require.NoError(t, crctx.AddInCommod("mid", "nat_u", "zeta_out", "leu"))

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, crctx.InCommods())
	assert.Equal(t, []string{"zeta_out", "alpha_out"}, crctx.OutCommods())
}

func TestRecipeContext_SetInRecipe(t *testing.T) {
	crctx := newContext(t)

	require.NoError(t, crctx.SetInRecipe("natu", "heu"))
	name, err := crctx.InRecipe("natu")

	require.NoError(t, err)
	assert.Equal(t, "heu", name)
	assert.Error(t, crctx.SetInRecipe("mox", "heu"))
}

func TestRecipeContext_TracksFragmentsThroughAncestry(t *testing.T) {
	// Arrange
	crctx := newContext(t)
	lot := lotOf(t, 10)
	require.NoError(t, crctx.AddRsrc("natu", lot))

	// Act
	fragment, err := lot.Extract(4)
	require.NoError(t, err)

	// Assert
	commod, err := crctx.Commod(fragment)
	require.NoError(t, err)
	assert.Equal(t, "natu", commod)

	require.NoError(t, crctx.RemoveRsrc(fragment))
	assert.Equal(t, 1, crctx.TrackedCount(), "remainder stays tracked")

	require.NoError(t, crctx.UpdateRsrc("leu", fragment))
	commod, _ = crctx.Commod(fragment)
	assert.Equal(t, "leu", commod)
	commod, _ = crctx.Commod(lot)
	assert.Equal(t, "natu", commod)
	assert.Equal(t, 2, crctx.TrackedCount())
}

func TestRecipeContext_UntrackedLots(t *testing.T) {
	crctx := newContext(t)
	stranger := lotOf(t, 1)

	_, err := crctx.Commod(stranger)
	assert.Error(t, err)
	assert.Error(t, crctx.UpdateRsrc("leu", stranger))
	assert.Error(t, crctx.RemoveRsrc(stranger))

	var uErr *shared.UnregisteredCommodityError
	err = crctx.AddRsrc("mox", stranger)
	require.True(t, errors.As(err, &uErr))
	assert.Equal(t, "mox", uErr.Commodity)
}

func TestScheduler_PromotesAndMatures(t *testing.T) {
	// Arrange
	scheduler, err := facility.NewScheduler(3)
	require.NoError(t, err)
	stages := facility.NewStageBuffers()
	stages.Reserves.Get("natu").Push(lotOf(t, 2))
	stages.Reserves.Get("natu").Push(lotOf(t, 5))

	// Act
	promoted := scheduler.BeginProcessing(stages, 4)

	// Assert
	assert.InDelta(t, 7.0, promoted, shared.Epsilon)
	assert.True(t, stages.Reserves.Empty())
	batch, ok := stages.ProcessingAt(4)
	require.True(t, ok)
	lots := batch.Get("natu").Lots()
	require.Len(t, lots, 2)
	assert.InDelta(t, 2.0, lots[0].Quantity(), shared.Epsilon, "FIFO order kept")
	assert.Equal(t, 1, scheduler.ReadyTimestamp(4))
	assert.Empty(t, stages.MaturedTimes(scheduler.ReadyTimestamp(6)))
	assert.Equal(t, []int{4}, stages.MaturedTimes(scheduler.ReadyTimestamp(7)))
}

func TestNewScheduler_RejectsNegativeProcessTime(t *testing.T) {
	_, err := facility.NewScheduler(-1)

	var cErr *shared.ConfigError
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, "process_time", cErr.Field)
}

func TestSchedule_DueOncePerTime(t *testing.T) {
	schedule, err := facility.NewSchedule([]facility.ScheduledChange{
		{Time: 5, Kind: facility.ChangeRecipe, InCommod: "natu", Recipe: "heu"},
		{Time: 2, Kind: facility.ChangePreference, InCommod: "natu", Preference: 0.5},
		{Time: 5, Kind: facility.ChangePreference, InCommod: "repu", Preference: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 5}, schedule.Pending())
	assert.Empty(t, schedule.Due(3))
	due := schedule.Due(5)
	require.Len(t, due, 2)
	assert.Equal(t, facility.ChangeRecipe, due[0].Kind)
	assert.Empty(t, schedule.Due(5), "changes apply once")
	assert.Equal(t, []int{2}, schedule.Pending())
}

func TestSchedule_RejectsMalformedChanges(t *testing.T) {
	cases := map[string]facility.ScheduledChange{
		"negative time":  {Time: -1, Kind: facility.ChangeRecipe, InCommod: "natu", Recipe: "heu"},
		"missing recipe": {Time: 1, Kind: facility.ChangeRecipe, InCommod: "natu"},
		"no sources":     {Time: 1, Kind: facility.ChangeSourcePrefs, Nuclide: u235},
		"unknown kind":   {Time: 1, Kind: "capacity"},
	}
	for name, change := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := facility.NewSchedule([]facility.ScheduledChange{change})
			assert.Error(t, err)
		})
	}
}

func TestProductionProfile(t *testing.T) {
	profile := facility.NewProductionProfile()

	require.NoError(t, profile.AddCommodity("leu", facility.ProductionEntry{Capacity: 50, Cost: 2}))
	require.NoError(t, profile.AddCommodity("heu", facility.ProductionEntry{Capacity: 5}))

	assert.True(t, profile.ProducesCommodity("leu"))
	assert.False(t, profile.ProducesCommodity("mox"))
	assert.Equal(t, 50.0, profile.ProductionCapacity("leu"))
	assert.Equal(t, 2.0, profile.ProductionCost("leu"))
	assert.Equal(t, []string{"leu", "heu"}, profile.Commodities())
	assert.Error(t, profile.AddCommodity("pu", facility.ProductionEntry{Capacity: -1}))
}
