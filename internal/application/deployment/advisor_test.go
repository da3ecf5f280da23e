package deployment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/facsim-go/internal/application/deployment"
	"github.com/andrescamacho/facsim-go/internal/domain/facility"
	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/recipe"
	"github.com/andrescamacho/facsim-go/internal/domain/simulation"
)

func TestNumToDecommission(t *testing.T) {
	cases := []struct {
		avail, quantity float64
		want            int
	}{
		{avail: 100, quantity: 30, want: 3},
		{avail: 30, quantity: 30, want: 0},
		{avail: 10, quantity: 30, want: 0},
		{avail: 61, quantity: 30, want: 2},
		{avail: 5, quantity: 0, want: 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, deployment.NumToDecommission(tc.avail, tc.quantity), "avail=%v q=%v", tc.avail, tc.quantity)
	}
}

func stockedConverters(t *testing.T, ids ...string) []*facility.Facility {
	t.Helper()
	reg := recipe.NewRegistry()
	require.NoError(t, reg.Add("leu", material.MustComposition(map[material.Nuclide]float64{92235: 4, 92238: 96})))
	var out []*facility.Facility
	for _, id := range ids {
		f, err := facility.New(facility.Definition{
			ID:          id,
			Variant:     facility.VariantConverter,
			Capacity:    10,
			Commodities: []facility.CommodityPair{{In: "feed", InRecipe: "leu", Out: "leu", OutRecipe: "leu"}},
			Initial:     []facility.InitialLot{{Stage: facility.StageStocks, Commodity: "leu", Recipe: "leu", Quantity: 25}},
		}, reg)
		require.NoError(t, err)
		require.NoError(t, f.Deploy(0))
		out = append(out, f)
	}
	return out
}

func TestAdvisor_RetiresPrototypeInstances(t *testing.T) {
	// Arrange
	facilities := stockedConverters(t, "enrich-1", "enrich-2", "enrich-3", "mill")
	advisor := deployment.NewAdvisor([]simulation.DecommissionRule{
		{Prototype: "enrich", Commodity: "leu", Quantity: 40},
	})

	// Act
	retired := advisor.Apply(context.Background(), 4, facilities)

	// Assert: 100 kg available against 40 kg retires two
	assert.Equal(t, []string{"enrich-1", "enrich-2"}, retired)
	assert.Equal(t, 5, facilities[0].DecommissionTime())
	assert.Equal(t, -1, facilities[2].DecommissionTime())
	assert.Equal(t, -1, facilities[3].DecommissionTime())

	again := advisor.Apply(context.Background(), 4, facilities)
	assert.Equal(t, []string{"enrich-3"}, again, "already scheduled facilities are skipped")
}

func TestAdvisor_NoOversupply(t *testing.T) {
	facilities := stockedConverters(t, "enrich-1")
	advisor := deployment.NewAdvisor([]simulation.DecommissionRule{
		{Prototype: "enrich", Commodity: "leu", Quantity: 25},
	})

	assert.Empty(t, advisor.Apply(context.Background(), 0, facilities))
}
