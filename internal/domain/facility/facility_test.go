package facility_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/facsim-go/internal/domain/facility"
	"github.com/andrescamacho/facsim-go/internal/domain/market"
	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

func TestConverter_ResidenceTimeAndRecipeSwap(t *testing.T) {
	// Arrange
	f := build(t, converterDef())
	deliver(t, f, "natu", "nat_u", 10)

	// Act + Assert
	step(t, f, 0)
	assert.Equal(t, facility.PhaseWaiting, f.Phase())
	assert.InDelta(t, 10.0, f.Stages().ProcessingQuantity(), shared.Epsilon)

	step(t, f, 1)
	assert.Equal(t, facility.PhaseProcess, f.Phase())
	assert.Equal(t, 0.0, f.Stages().Stocks.Quantity(), "not ready before the process time has elapsed")

	step(t, f, 2)
	assert.Equal(t, 0, f.Stages().ProcessingCount())
	stocks, ok := f.Stages().Stocks.Lookup("leu")
	require.True(t, ok)
	assert.InDelta(t, 10.0, stocks.Quantity(), shared.Epsilon)

	lot, _ := stocks.PeekBack()
	leu, _ := testRecipes(t).Composition("leu")
	assert.True(t, lot.Composition().Equal(leu))
	assert.Equal(t, "leu", lot.Commodity())
	commod, err := f.RecipeContext().Commod(lot)
	require.NoError(t, err)
	assert.Equal(t, "leu", commod)
	assert.Equal(t, facility.PhaseProcess, f.Phase(), "converters stay in PROCESS by default")
}

func TestConverter_ZeroProcessTimePassesThroughInOneTock(t *testing.T) {
	def := converterDef()
	def.ProcessTime = 0
	f := build(t, def)
	deliver(t, f, "natu", "nat_u", 4)

	step(t, f, 0)

	assert.InDelta(t, 4.0, f.Stages().Stocks.QuantityOf("leu"), shared.Epsilon)
	assert.Equal(t, 0, f.Stages().ProcessingCount())
}

func TestConverter_ParkWhenIdle(t *testing.T) {
	def := converterDef()
	def.ProcessTime = 1
	park := true
	def.ParkWhenIdle = &park
	f := build(t, def)
	deliver(t, f, "natu", "nat_u", 4)

	step(t, f, 0)
	require.NoError(t, f.Tick(context.Background(), 1))
	assert.Equal(t, facility.PhaseProcess, f.Phase())
	require.NoError(t, f.Tock(context.Background(), 1))

	assert.Equal(t, facility.PhaseWaiting, f.Phase(), "parks once processing has drained")
	assert.InDelta(t, 4.0, f.Stages().Stocks.QuantityOf("leu"), shared.Epsilon)
}

func TestFacility_GreedyDrainEmptiesReadyBatch(t *testing.T) {
	def := converterDef()
	def.ProcessTime = 1
	f := build(t, def)
	deliver(t, f, "natu", "nat_u", 3)
	deliver(t, f, "natu", "nat_u", 4)
	step(t, f, 0)
	deliver(t, f, "natu", "nat_u", 5)

	step(t, f, 1)

	_, ok := f.Stages().ProcessingAt(0)
	assert.False(t, ok, "ready batch fully drained")
	assert.InDelta(t, 7.0, f.Stages().Stocks.QuantityOf("leu"), shared.Epsilon)
	assert.InDelta(t, 5.0, f.Stages().ProcessingQuantity(), shared.Epsilon)
}

func TestFacility_ConservesMaterialAcrossStages(t *testing.T) {
	f := build(t, converterDef())
	total := 0.0
	for now := 0; now < 6; now++ {
		qty := float64(now + 1)
		deliver(t, f, "natu", "nat_u", qty)
		total += qty

		step(t, f, now)

		assert.InDelta(t, total, f.Stages().TotalQuantity(), shared.Epsilon)
	}
}

func TestFacility_AcceptTradesBlendsPerCommodity(t *testing.T) {
	f := build(t, converterDef())
	deliverBoth := func() {
		comp, _ := testRecipes(t).Composition("nat_u")
		heu, _ := testRecipes(t).Composition("heu")
		var responses []market.TradeResponse
		for _, in := range []struct {
			qty  float64
			comp material.Composition
		}{{3, comp}, {1, heu}} {
			target, _ := material.NewLot(in.qty, in.comp, "natu")
			req, _ := market.NewRequest("conv", "natu", target, 1)
			trade, _ := market.NewTrade(req, nil, in.qty)
			lot, _ := material.NewLot(in.qty, in.comp, "natu")
			responses = append(responses, market.TradeResponse{Trade: trade, Lot: lot})
		}
		require.NoError(t, f.AcceptTrades(context.Background(), responses))
	}

	deliverBoth()

	reserves := f.Stages().Reserves.Get("natu")
	require.Equal(t, 1, reserves.Count())
	lot, _ := reserves.PeekBack()
	assert.InDelta(t, 4.0, lot.Quantity(), shared.Epsilon)
	expectedU235 := (3*0.00711 + 1*0.9) / 4
	assert.InDelta(t, expectedU235, lot.Composition().Fraction(u235), 1e-9)
}

func TestFacility_AcceptTradesUnregisteredCommodity(t *testing.T) {
	f := build(t, converterDef())
	comp, _ := testRecipes(t).Composition("u235")
	target, _ := material.NewLot(1, comp, "mox")
	req, _ := market.NewRequest("conv", "mox", target, 1)
	trade, _ := market.NewTrade(req, nil, 1)
	lot, _ := material.NewLot(1, comp, "mox")

	err := f.AcceptTrades(context.Background(), []market.TradeResponse{{Trade: trade, Lot: lot}})

	var cErr *shared.UnregisteredCommodityError
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, "mox", cErr.Commodity)
}

func TestFacility_RequestsSizedToOpenCapacity(t *testing.T) {
	// Arrange
	def := converterDef()
	def.Commodities = append(def.Commodities, facility.CommodityPair{In: "repu", InRecipe: "leu", Out: "leu", OutRecipe: "leu"})
	def.CommodityPrefs = map[string]float64{"repu": 0.5}
	f := build(t, def)
	deliver(t, f, "natu", "nat_u", 50)

	// Act
	portfolios, err := f.Requests(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, portfolios, 1)
	p := portfolios[0]
	require.Len(t, p.Requests, 2)
	assert.Equal(t, "natu", p.Requests[0].Commodity())
	assert.Equal(t, "repu", p.Requests[1].Commodity())
	for _, req := range p.Requests {
		assert.InDelta(t, 150.0, req.Quantity(), shared.Epsilon)
	}
	assert.Equal(t, 1.0, p.Requests[0].Preference())
	assert.Equal(t, 0.5, p.Requests[1].Preference())
	natU, _ := testRecipes(t).Composition("nat_u")
	assert.True(t, p.Requests[0].Target().Composition().Equal(natU))
	require.Len(t, p.Constraints, 1)
	assert.InDelta(t, 150.0, p.Constraints[0].Capacity, shared.Epsilon)
}

func TestFacility_RequestsFollowRegistrationOrder(t *testing.T) {
	def := converterDef()
	def.Commodities = []facility.CommodityPair{
		{In: "zeta", InRecipe: "nat_u", Out: "leu", OutRecipe: "leu"},
		{In: "alpha", InRecipe: "heu", Out: "leu", OutRecipe: "leu"},
	}
	f := build(t, def)

	portfolios, err := f.Requests(context.Background())

	require.NoError(t, err)
	require.Len(t, portfolios, 1)
	require.Len(t, portfolios[0].Requests, 2)
	assert.Equal(t, "zeta", portfolios[0].Requests[0].Commodity())
	assert.Equal(t, "alpha", portfolios[0].Requests[1].Commodity())
}

func TestFacility_StartsInInitialPhase(t *testing.T) {
	f, err := facility.New(converterDef(), testRecipes(t))
	require.NoError(t, err)
	assert.Equal(t, facility.PhaseInitial, f.Phase())

	require.NoError(t, f.Deploy(0))
	assert.Equal(t, facility.PhaseInitial, f.Phase(), "phase changes on the first tick")

	step(t, f, 0)
	assert.NotEqual(t, facility.PhaseInitial, f.Phase())
}

func TestFacility_NoRequestsWhenFull(t *testing.T) {
	f := build(t, converterDef())
	deliver(t, f, "natu", "nat_u", 200)

	portfolios, err := f.Requests(context.Background())

	require.NoError(t, err)
	assert.Empty(t, portfolios)
}

func TestFacility_InventoryPolicyReservesOnly(t *testing.T) {
	def := converterDef()
	def.InventoryPolicy = facility.InventoryReserves
	f := build(t, def)
	deliver(t, f, "natu", "nat_u", 50)
	step(t, f, 0)

	assert.InDelta(t, 200.0, f.OrderSize(), shared.Epsilon, "processing does not count against capacity")
}

func stockedConverter(t *testing.T) *facility.Facility {
	t.Helper()
	def := converterDef()
	def.Initial = []facility.InitialLot{
		{Stage: facility.StageStocks, Commodity: "leu", Recipe: "leu", Quantity: 4},
		{Stage: facility.StageStocks, Commodity: "leu", Recipe: "heu", Quantity: 6},
	}
	return build(t, def)
}

func requestsFor(t *testing.T, commod string, quantities ...float64) *market.CommodityRequests {
	t.Helper()
	index := market.NewCommodityRequests()
	comp, _ := testRecipes(t).Composition("leu")
	for _, q := range quantities {
		target, err := material.NewLot(q, comp, commod)
		require.NoError(t, err)
		req, err := market.NewRequest("reactor", commod, target, 1)
		require.NoError(t, err)
		index.Add(req)
	}
	return index
}

func TestFacility_BidsCappedByStockAndRequest(t *testing.T) {
	f := stockedConverter(t)

	portfolios, err := f.Bids(context.Background(), requestsFor(t, "leu", 25, 3))

	require.NoError(t, err)
	require.Len(t, portfolios, 1)
	p := portfolios[0]
	assert.Equal(t, "leu", p.Commodity)
	require.Len(t, p.Bids, 2)
	assert.InDelta(t, 10.0, p.Bids[0].Quantity(), shared.Epsilon)
	assert.InDelta(t, 3.0, p.Bids[1].Quantity(), shared.Epsilon)
	heu, _ := testRecipes(t).Composition("heu")
	assert.True(t, p.Bids[0].Offer().Composition().Equal(heu), "offer shaped like the most recently stocked lot")
	require.Len(t, p.Constraints, 1)
	assert.InDelta(t, 10.0, p.Constraints[0].Capacity, shared.Epsilon)
}

func TestFacility_NoBidsWithoutMatchingRequests(t *testing.T) {
	f := stockedConverter(t)

	portfolios, err := f.Bids(context.Background(), requestsFor(t, "mox", 5))

	require.NoError(t, err)
	assert.Empty(t, portfolios)
}

func TestFacility_FulfillTradesPopsExactly(t *testing.T) {
	// Arrange
	f := stockedConverter(t)
	index := requestsFor(t, "leu", 7)
	trade, err := market.NewTrade(index.For("leu")[0], nil, 7)
	require.NoError(t, err)

	// Act
	responses, err := f.FulfillTrades(context.Background(), []market.Trade{trade})

	// Assert
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.InDelta(t, 7.0, responses[0].Lot.Quantity(), shared.Epsilon)
	stocks := f.Stages().Stocks.Get("leu")
	require.Equal(t, 1, stocks.Count())
	assert.InDelta(t, 3.0, stocks.Quantity(), shared.Epsilon)
	remaining := stocks.Lots()[0]
	commod, err := f.RecipeContext().Commod(remaining)
	require.NoError(t, err)
	assert.Equal(t, "leu", commod, "remainder stays tracked")
	assert.InDelta(t, 7.0, f.LastStep().Shipped, shared.Epsilon)
}

func TestFacility_FulfillTradesInsufficientStock(t *testing.T) {
	f := stockedConverter(t)
	trade, _ := market.NewTrade(requestsFor(t, "leu", 12).For("leu")[0], nil, 12)

	_, err := f.FulfillTrades(context.Background(), []market.Trade{trade})

	var qErr *shared.InsufficientQuantityError
	assert.True(t, errors.As(err, &qErr))
	assert.InDelta(t, 10.0, f.Stages().Stocks.Quantity(), shared.Epsilon)
}

func TestFacility_EndOfLifeFlushesProcessing(t *testing.T) {
	def := converterDef()
	def.ProcessTime = 5
	def.Lifetime = 3
	f := build(t, def)
	deliver(t, f, "natu", "nat_u", 8)
	step(t, f, 0)
	step(t, f, 1)
	step(t, f, 2)

	require.NoError(t, f.Tick(context.Background(), 3))

	assert.Equal(t, facility.PhaseDecommissioned, f.Phase())
	assert.Equal(t, 0, f.Stages().ProcessingCount())
	assert.InDelta(t, 8.0, f.Stages().Stocks.QuantityOf("leu"), shared.Epsilon)
	assert.True(t, f.LastStep().Decommissioned)

	portfolios, err := f.Requests(context.Background())
	require.NoError(t, err)
	assert.Empty(t, portfolios, "no requests once decommissioned")
	require.NoError(t, f.Tock(context.Background(), 3))
}

func TestFacility_ScheduledRecipeChange(t *testing.T) {
	def := converterDef()
	def.Changes = []facility.ScheduledChange{
		{Time: 1, Kind: facility.ChangeRecipe, InCommod: "natu", Recipe: "heu"},
		{Time: 1, Kind: facility.ChangePreference, InCommod: "natu", Preference: 3},
	}
	f := build(t, def)
	step(t, f, 0)

	require.NoError(t, f.Tick(context.Background(), 1))
	portfolios, err := f.Requests(context.Background())

	require.NoError(t, err)
	req := portfolios[0].Requests[0]
	heu, _ := testRecipes(t).Composition("heu")
	assert.True(t, req.Target().Composition().Equal(heu))
	assert.Equal(t, 3.0, req.Preference())
	assert.Len(t, f.LastStep().AppliedChanges, 2)
}

func TestNew_UnknownRecipe(t *testing.T) {
	def := converterDef()
	def.Commodities[0].OutRecipe = "mox"

	_, err := facility.New(def, testRecipes(t))

	var rErr *shared.UnknownRecipeError
	require.True(t, errors.As(err, &rErr))
	assert.Equal(t, "mox", rErr.Recipe)
}

func TestNew_RejectsMalformedDefinition(t *testing.T) {
	def := converterDef()
	def.Commodities[0].Out = ""

	_, err := facility.New(def, testRecipes(t))

	var cErr *shared.ConfigError
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, "commodities", cErr.Field)
}

func TestVariant_Describe(t *testing.T) {
	assert.Equal(t, "processing batch(es)", facility.VariantConverter.Describe(facility.PhaseProcess))
	assert.Equal(t, "waiting for stocks", facility.VariantFuelFab.Describe(facility.PhaseWaiting))
	assert.Equal(t, "initialization", facility.VariantSeparation.Describe(facility.PhaseInitial))
}
