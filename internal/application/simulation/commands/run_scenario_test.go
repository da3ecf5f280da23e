package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/facsim-go/internal/application/common"
	"github.com/andrescamacho/facsim-go/internal/application/simulation/commands"
	"github.com/andrescamacho/facsim-go/internal/domain/facility"
	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/recipe"
	"github.com/andrescamacho/facsim-go/internal/domain/simulation"
)

func passThroughScenario(t *testing.T) *simulation.Scenario {
	t.Helper()
	reg := recipe.NewRegistry()
	require.NoError(t, reg.Add("u", material.MustComposition(map[material.Nuclide]float64{92238: 1})))
	return &simulation.Scenario{
		Name:     "pass-through",
		Duration: 2,
		Recipes:  reg,
		Facilities: []facility.Definition{{
			ID:          "conv",
			Variant:     facility.VariantConverter,
			Capacity:    10,
			Commodities: []facility.CommodityPair{{In: "a", InRecipe: "u", Out: "b", OutRecipe: "u"}},
		}},
		Deliveries: []simulation.Delivery{{Time: 0, Facility: "conv", Commodity: "a", Recipe: "u", Quantity: 4}},
	}
}

func TestRunScenarioHandler_ThroughMediator(t *testing.T) {
	// Arrange
	m := common.NewMediator()
	m.Use(common.LoggingMiddleware)
	require.NoError(t, common.RegisterHandler[*commands.RunScenarioCommand](m, commands.NewRunScenarioHandler(nil, nil, nil)))

	// Act
	resp, err := m.Send(context.Background(), &commands.RunScenarioCommand{Scenario: passThroughScenario(t)})

	// Assert
	require.NoError(t, err)
	out, ok := resp.(*commands.RunScenarioResponse)
	require.True(t, ok)
	assert.Equal(t, simulation.RunStatusCompleted, out.Run.Status())
	require.Len(t, out.Result.Final, 1)
	assert.InDelta(t, 4.0, out.Result.Final[0].StocksQty, 1e-9)
}

func TestRunScenarioHandler_RejectsWrongRequest(t *testing.T) {
	handler := commands.NewRunScenarioHandler(nil, nil, nil)

	_, err := handler.Handle(context.Background(), "not a command")

	assert.Error(t, err)
}
