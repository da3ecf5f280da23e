package facility_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/facsim-go/internal/domain/facility"
	"github.com/andrescamacho/facsim-go/internal/domain/market"
	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/recipe"
)

const (
	u235  material.Nuclide = 92235
	u238  material.Nuclide = 92238
	pu239 material.Nuclide = 94239
	cs137 material.Nuclide = 55137
)

func testRecipes(t *testing.T) *recipe.Registry {
	t.Helper()
	reg := recipe.NewRegistry()
	add := func(name string, masses map[material.Nuclide]float64) {
		require.NoError(t, reg.Add(name, material.MustComposition(masses)))
	}
	add("nat_u", map[material.Nuclide]float64{u235: 0.711, u238: 99.289})
	add("leu", map[material.Nuclide]float64{u235: 4, u238: 96})
	add("heu", map[material.Nuclide]float64{u235: 90, u238: 10})
	add("u235", map[material.Nuclide]float64{u235: 1})
	add("u238", map[material.Nuclide]float64{u238: 1})
	add("goal", map[material.Nuclide]float64{u235: 1, u238: 2})
	add("spent", map[material.Nuclide]float64{u235: 1, u238: 4, pu239: 3, cs137: 2})
	return reg
}

func converterDef() facility.Definition {
	return facility.Definition{
		ID:          "conv",
		Variant:     facility.VariantConverter,
		ProcessTime: 2,
		Capacity:    200,
		Commodities: []facility.CommodityPair{
			{In: "natu", InRecipe: "nat_u", Out: "leu", OutRecipe: "leu"},
		},
	}
}

func fuelFabDef() facility.Definition {
	return facility.Definition{
		ID:          "fab",
		Variant:     facility.VariantFuelFab,
		ProcessTime: 0,
		Capacity:    math.Inf(1),
		Commodities: []facility.CommodityPair{
			{In: "u235src", InRecipe: "u235"},
			{In: "u238src", InRecipe: "u238"},
			{In: "depu", InRecipe: "u238"},
		},
		OutCommodity: "fuel",
		OutRecipe:    "goal",
		SourcePrefs: map[material.Nuclide][]string{
			u235: {"u235src"},
			u238: {"u238src", "depu"},
		},
		Initial: []facility.InitialLot{
			{Stage: facility.StageReserves, Commodity: "u235src", Recipe: "u235", Quantity: 2.5},
			{Stage: facility.StageReserves, Commodity: "u238src", Recipe: "u238", Quantity: 1.5},
			{Stage: facility.StageReserves, Commodity: "depu", Recipe: "u238", Quantity: 5.5},
		},
	}
}

func separationsDef() facility.Definition {
	return facility.Definition{
		ID:          "sep",
		Variant:     facility.VariantSeparation,
		ProcessTime: 1,
		Capacity:    100,
		Commodities: []facility.CommodityPair{{In: "spent_fuel", InRecipe: "spent"}},
		OutElements: []facility.ElementOutput{
			{Commodity: "sep_u", Z: 92},
			{Commodity: "sep_pu", Z: 94},
		},
		Initial: []facility.InitialLot{
			{Stage: facility.StageReserves, Commodity: "spent_fuel", Recipe: "spent", Quantity: 10},
		},
	}
}

func build(t *testing.T, def facility.Definition) *facility.Facility {
	t.Helper()
	f, err := facility.New(def, testRecipes(t))
	require.NoError(t, err)
	require.NoError(t, f.Deploy(0))
	return f
}

// deliver hands the facility a lot of the given recipe as if the exchange had traded it
func deliver(t *testing.T, f *facility.Facility, commod, recipeName string, qty float64) {
	t.Helper()
	comp, err := testRecipes(t).Composition(recipeName)
	require.NoError(t, err)
	target, err := material.NewLot(qty, comp, commod)
	require.NoError(t, err)
	req, err := market.NewRequest(f.ID(), commod, target, 1)
	require.NoError(t, err)
	trade, err := market.NewTrade(req, nil, qty)
	require.NoError(t, err)
	lot, err := material.NewLot(qty, comp, commod)
	require.NoError(t, err)
	require.NoError(t, f.AcceptTrades(context.Background(), []market.TradeResponse{{Trade: trade, Lot: lot}}))
}

func step(t *testing.T, f *facility.Facility, now int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.Tick(ctx, now))
	require.NoError(t, f.Tock(ctx, now))
}
