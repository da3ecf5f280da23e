package facility

import (
	"fmt"

	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

type commodityPair struct {
	inRecipe  string
	outCommod string
}

// RecipeContext maps input commodities to recipes and outputs and keeps the
// table of live lots owned by the facility.
//
// Invariants:
// - every registration order is preserved for iteration
// - a lot is tracked under exactly one commodity at a time
// - fragments split from a tracked lot resolve to the commodity of their nearest tracked ancestor
type RecipeContext struct {
	inCommods  []string
	outCommods []string
	pairs      map[string]commodityPair
	outRecipes map[string]string
	lots       map[material.LotID]string
}

// NewRecipeContext creates an empty context
func NewRecipeContext() *RecipeContext {
	return &RecipeContext{
		pairs:      make(map[string]commodityPair),
		outRecipes: make(map[string]string),
		lots:       make(map[material.LotID]string),
	}
}

// AddInCommod registers an input commodity with its recipe and, optionally, the
// output commodity and recipe it converts into.
func (c *RecipeContext) AddInCommod(in, inRecipe, out, outRecipe string) error {
	if in == "" {
		return shared.NewConfigError("in_commodity", "name cannot be empty")
	}
	if _, exists := c.pairs[in]; exists {
		return shared.NewConfigError("in_commodity", fmt.Sprintf("%s registered twice", in))
	}
	c.inCommods = append(c.inCommods, in)
	c.pairs[in] = commodityPair{inRecipe: inRecipe, outCommod: out}
	if out != "" {
		return c.AddOutCommod(out, outRecipe)
	}
	return nil
}

// AddOutCommod registers an output commodity. Registering the same output again
// keeps its position and only fills in a missing recipe.
func (c *RecipeContext) AddOutCommod(out, outRecipe string) error {
	if out == "" {
		return shared.NewConfigError("out_commodity", "name cannot be empty")
	}
	existing, exists := c.outRecipes[out]
	if !exists {
		c.outCommods = append(c.outCommods, out)
		c.outRecipes[out] = outRecipe
		return nil
	}
	if existing != "" && outRecipe != "" && existing != outRecipe {
		return shared.NewConfigError("out_commodity", fmt.Sprintf("%s has conflicting recipes %s and %s", out, existing, outRecipe))
	}
	if existing == "" {
		c.outRecipes[out] = outRecipe
	}
	return nil
}

// InCommods returns input commodities in registration order
func (c *RecipeContext) InCommods() []string {
	return append([]string(nil), c.inCommods...)
}

// OutCommods returns output commodities in registration order
func (c *RecipeContext) OutCommods() []string {
	return append([]string(nil), c.outCommods...)
}

// HasInCommod reports whether in is a registered input
func (c *RecipeContext) HasInCommod(in string) bool {
	_, ok := c.pairs[in]
	return ok
}

// HasOutCommod reports whether out is a registered output
func (c *RecipeContext) HasOutCommod(out string) bool {
	_, ok := c.outRecipes[out]
	return ok
}

// InRecipe returns the recipe requested for an input commodity
func (c *RecipeContext) InRecipe(in string) (string, error) {
	pair, ok := c.pairs[in]
	if !ok {
		return "", shared.NewUnregisteredCommodityError(in)
	}
	return pair.inRecipe, nil
}

// SetInRecipe swaps the recipe requested for an input commodity
func (c *RecipeContext) SetInRecipe(in, recipe string) error {
	pair, ok := c.pairs[in]
	if !ok {
		return shared.NewUnregisteredCommodityError(in)
	}
	pair.inRecipe = recipe
	c.pairs[in] = pair
	return nil
}

// OutCommod returns the output commodity paired with an input commodity
func (c *RecipeContext) OutCommod(in string) (string, error) {
	pair, ok := c.pairs[in]
	if !ok || pair.outCommod == "" {
		return "", shared.NewUnregisteredCommodityError(in)
	}
	return pair.outCommod, nil
}

// OutRecipe returns the recipe of the output paired with an input commodity
func (c *RecipeContext) OutRecipe(in string) (string, error) {
	out, err := c.OutCommod(in)
	if err != nil {
		return "", err
	}
	return c.OutRecipeOf(out)
}

// OutRecipeOf returns the recipe registered for an output commodity
func (c *RecipeContext) OutRecipeOf(out string) (string, error) {
	recipe, ok := c.outRecipes[out]
	if !ok || recipe == "" {
		return "", shared.NewUnregisteredCommodityError(out)
	}
	return recipe, nil
}

// Live lot table

// AddRsrc starts tracking a lot under a registered commodity
func (c *RecipeContext) AddRsrc(commod string, lot *material.Lot) error {
	if !c.HasInCommod(commod) && !c.HasOutCommod(commod) {
		return shared.NewUnregisteredCommodityError(commod)
	}
	c.lots[lot.ID()] = commod
	lot.SetCommodity(commod)
	return nil
}

// UpdateRsrc moves a lot, or a fragment of a tracked lot, to another commodity
func (c *RecipeContext) UpdateRsrc(commod string, lot *material.Lot) error {
	if _, err := c.Commod(lot); err != nil {
		return err
	}
	return c.AddRsrc(commod, lot)
}

// RemoveRsrc stops tracking a lot. Removing a fragment of a tracked lot is a
// no-op since the tracked remainder is still owned by the facility.
func (c *RecipeContext) RemoveRsrc(lot *material.Lot) error {
	if _, ok := c.lots[lot.ID()]; ok {
		delete(c.lots, lot.ID())
		return nil
	}
	if _, err := c.Commod(lot); err != nil {
		return err
	}
	return nil
}

// Commod returns the commodity a lot is tracked under
func (c *RecipeContext) Commod(lot *material.Lot) (string, error) {
	if commod, ok := c.lots[lot.ID()]; ok {
		return commod, nil
	}
	for _, ancestor := range lot.Ancestry() {
		if commod, ok := c.lots[ancestor]; ok {
			return commod, nil
		}
	}
	return "", shared.NewUnregisteredCommodityError(fmt.Sprintf("untracked %s", lot.ID()))
}

// TrackedCount returns the number of lots in the live table
func (c *RecipeContext) TrackedCount() int {
	return len(c.lots)
}
