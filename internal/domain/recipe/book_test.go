package recipe_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/recipe"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

func TestRegistry_AddAndLookup(t *testing.T) {
	reg := recipe.NewRegistry()
	natU := material.MustComposition(map[material.Nuclide]float64{92235: 0.0072, 92238: 0.9928})

	require.NoError(t, reg.Add("nat_u", natU))
	require.NoError(t, reg.Add("pu", material.MustComposition(map[material.Nuclide]float64{94239: 1})))

	got, err := reg.Composition("nat_u")
	require.NoError(t, err)
	assert.True(t, natU.Equal(got))
	assert.Equal(t, []string{"nat_u", "pu"}, reg.Names())
}

func TestRegistry_UnknownRecipe(t *testing.T) {
	reg := recipe.NewRegistry()

	_, err := reg.Composition("missing")

	var rErr *shared.UnknownRecipeError
	require.True(t, errors.As(err, &rErr))
	assert.Equal(t, "missing", rErr.Recipe)
}

func TestRegistry_RejectsEmptyComposition(t *testing.T) {
	reg := recipe.NewRegistry()

	assert.Error(t, reg.Add("void", material.Composition{}))
	assert.Error(t, reg.Add("", material.MustComposition(map[material.Nuclide]float64{92235: 1})))
}
