package facility

import (
	"fmt"

	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/recipe"
)

// ConversionEngine turns matured processing batches into stocks.
// times lists the batch arrival times to work on, ascending. flush is set at end of
// life, when material that cannot be converted must leave processing as residue.
type ConversionEngine interface {
	Convert(stages *StageBuffers, times []int, flush bool) (ConversionResult, error)
}

// ConversionResult summarises one engine pass
type ConversionResult struct {
	Consumed float64 // quantity taken out of processing
	Produced float64 // quantity pushed into output stocks
	Residue  float64 // quantity routed to residue
	Lots     int     // lots pushed into stocks
}

func (r *ConversionResult) add(other ConversionResult) {
	r.Consumed += other.Consumed
	r.Produced += other.Produced
	r.Residue += other.Residue
	r.Lots += other.Lots
}

// engineDeps are the collaborators every engine shares with its facility
type engineDeps struct {
	crctx         *RecipeContext
	recipes       recipe.Book
	residueCommod string
}

// stashResidue keeps unconvertible material: in residue stocks when a residue
// commodity is configured, otherwise untracked in the residue buffer.
func (d engineDeps) stashResidue(stages *StageBuffers, lot *material.Lot) error {
	if d.residueCommod != "" {
		if err := d.crctx.UpdateRsrc(d.residueCommod, lot); err != nil {
			return err
		}
		stages.Stocks.Get(d.residueCommod).Push(lot)
		return nil
	}
	if err := d.crctx.RemoveRsrc(lot); err != nil {
		return err
	}
	stages.Residue.Push(lot)
	return nil
}

// RecipeSwapEngine relabels each matured lot with the output recipe of its
// input commodity and moves it to that output's stocks. Quantity is unchanged.
type RecipeSwapEngine struct {
	engineDeps
}

func NewRecipeSwapEngine(crctx *RecipeContext, recipes recipe.Book) *RecipeSwapEngine {
	return &RecipeSwapEngine{engineDeps: engineDeps{crctx: crctx, recipes: recipes}}
}

func (e *RecipeSwapEngine) Convert(stages *StageBuffers, times []int, flush bool) (ConversionResult, error) {
	var result ConversionResult
	for _, t := range times {
		batch, ok := stages.ProcessingAt(t)
		if !ok {
			continue
		}
		for _, in := range batch.Keys() {
			buf := batch.Get(in)
			if buf.Empty() {
				continue
			}
			// resolve before popping so a lookup failure leaves the batch intact
			out, err := e.crctx.OutCommod(in)
			if err != nil {
				return result, err
			}
			outRecipe, err := e.crctx.OutRecipe(in)
			if err != nil {
				return result, err
			}
			comp, err := e.recipes.Composition(outRecipe)
			if err != nil {
				return result, err
			}

			stocks := stages.Stocks.Get(out)
			for {
				lot, ok := buf.TryPop(material.Front)
				if !ok {
					break
				}
				if err := lot.Transmute(comp); err != nil {
					return result, fmt.Errorf("failed to convert %s: %w", lot, err)
				}
				if err := e.crctx.UpdateRsrc(out, lot); err != nil {
					return result, err
				}
				stocks.Push(lot)
				result.Consumed += lot.Quantity()
				result.Produced += lot.Quantity()
				result.Lots++
			}
		}
	}
	return result, nil
}
