package facility

import (
	"fmt"

	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/recipe"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

// ElementOutput routes one element to one output commodity
type ElementOutput struct {
	Commodity string
	Z         int
}

// SeparationEngine splits each matured lot by element. For every configured
// output, in order, the nuclides with that output's atomic number are extracted
// into its stocks. Whatever is left after all passes goes to residue.
type SeparationEngine struct {
	engineDeps
	outputs []ElementOutput
}

// NewSeparationEngine creates a separation engine
func NewSeparationEngine(crctx *RecipeContext, recipes recipe.Book, outputs []ElementOutput, residueCommod string) (*SeparationEngine, error) {
	if len(outputs) == 0 {
		return nil, shared.NewConfigError("out_elements", "separations needs at least one output element")
	}
	seen := make(map[string]bool, len(outputs))
	for _, out := range outputs {
		if out.Commodity == "" || out.Z <= 0 {
			return nil, shared.NewConfigError("out_elements", fmt.Sprintf("invalid output %q -> Z=%d", out.Commodity, out.Z))
		}
		if seen[out.Commodity] {
			return nil, shared.NewConfigError("out_elements", fmt.Sprintf("%s listed twice", out.Commodity))
		}
		seen[out.Commodity] = true
	}
	return &SeparationEngine{
		engineDeps: engineDeps{crctx: crctx, recipes: recipes, residueCommod: residueCommod},
		outputs:    append([]ElementOutput(nil), outputs...),
	}, nil
}

// Outputs returns the configured element outputs in order
func (e *SeparationEngine) Outputs() []ElementOutput {
	return append([]ElementOutput(nil), e.outputs...)
}

func (e *SeparationEngine) Convert(stages *StageBuffers, times []int, flush bool) (ConversionResult, error) {
	var result ConversionResult

	var lots []*material.Lot
	for _, t := range times {
		batch, ok := stages.ProcessingAt(t)
		if !ok {
			continue
		}
		for _, commod := range batch.Keys() {
			buf := batch.Get(commod)
			for {
				lot, ok := buf.TryPop(material.Front)
				if !ok {
					break
				}
				lots = append(lots, lot)
			}
		}
	}

	for _, lot := range lots {
		result.Consumed += lot.Quantity()
		for _, out := range e.outputs {
			mass := lot.ElementMass(out.Z)
			if !shared.IsPositive(mass) {
				continue
			}
			part, err := lot.ExtractComposition(mass, lot.Composition().Element(out.Z))
			if err != nil {
				return result, fmt.Errorf("failed to separate Z=%d from %s: %w", out.Z, lot, err)
			}
			if err := e.crctx.UpdateRsrc(out.Commodity, part); err != nil {
				return result, err
			}
			stages.Stocks.Get(out.Commodity).Push(part)
			result.Produced += part.Quantity()
			result.Lots++
		}

		if shared.IsPositive(lot.Quantity()) {
			if err := e.stashResidue(stages, lot); err != nil {
				return result, err
			}
			result.Residue += lot.Quantity()
			continue
		}
		if err := e.crctx.RemoveRsrc(lot); err != nil {
			return result, err
		}
	}
	return result, nil
}
