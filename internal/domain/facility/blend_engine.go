package facility

import (
	"errors"
	"fmt"
	"math"

	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/recipe"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

// BlendEngine assembles complete units of the goal recipe from several source
// commodities. Each goal nuclide is pulled from its source commodities in
// preference order; a unit is only built when every nuclide can be covered.
//
// Source lots are taken as carriers of the nuclide they are listed for, so
// availability is measured in lot quantity.
type BlendEngine struct {
	engineDeps
	outCommod string
	prefs     map[material.Nuclide][]string
}

// NewBlendEngine creates a blend engine for one output commodity
func NewBlendEngine(crctx *RecipeContext, recipes recipe.Book, outCommod string, prefs map[material.Nuclide][]string, residueCommod string) (*BlendEngine, error) {
	if outCommod == "" {
		return nil, shared.NewConfigError("out_commodity", "blend needs an output commodity")
	}
	copied := make(map[material.Nuclide][]string, len(prefs))
	for nuc, sources := range prefs {
		if len(sources) == 0 {
			return nil, shared.NewConfigError("source_prefs", fmt.Sprintf("nuclide %d has no sources", nuc))
		}
		copied[nuc] = append([]string(nil), sources...)
	}
	return &BlendEngine{
		engineDeps: engineDeps{crctx: crctx, recipes: recipes, residueCommod: residueCommod},
		outCommod:  outCommod,
		prefs:      copied,
	}, nil
}

// SetSources replaces the preference list of one nuclide
func (e *BlendEngine) SetSources(nuc material.Nuclide, sources []string) error {
	if len(sources) == 0 {
		return shared.NewConfigError("source_prefs", fmt.Sprintf("nuclide %d has no sources", nuc))
	}
	e.prefs[nuc] = append([]string(nil), sources...)
	return nil
}

// Sources returns the preference list of one nuclide
func (e *BlendEngine) Sources(nuc material.Nuclide) []string {
	return append([]string(nil), e.prefs[nuc]...)
}

// Goal returns the per-unit composition the engine assembles
func (e *BlendEngine) Goal() (material.Composition, error) {
	outRecipe, err := e.crctx.OutRecipeOf(e.outCommod)
	if err != nil {
		return material.Composition{}, err
	}
	return e.recipes.Composition(outRecipe)
}

// PossibleUnits returns how many complete units the matured material supports.
// Units are planned one after another against the same matured quantities, so a
// source listed for several nuclides is only counted once. With disjoint sources
// this is the minimum over goal nuclides of floor(available / per-unit mass).
func (e *BlendEngine) PossibleUnits(stages *StageBuffers, times []int) (int, error) {
	goal, err := e.Goal()
	if err != nil {
		return 0, err
	}
	if goal.IsEmpty() {
		return 0, nil
	}
	promised := make(map[*material.LotBuffer]float64)
	units := 0
	for {
		pulls, err := e.plan(stages, times, goal, promised)
		var short *shared.InsufficientQuantityError
		if errors.As(err, &short) {
			return units, nil
		}
		if err != nil {
			return 0, err
		}
		if len(pulls) == 0 {
			// goal below tolerance: nothing would ever be consumed
			return units, nil
		}
		units++
	}
}

func (e *BlendEngine) Convert(stages *StageBuffers, times []int, flush bool) (ConversionResult, error) {
	var result ConversionResult
	units, err := e.PossibleUnits(stages, times)
	if err != nil {
		return result, err
	}
	goal, err := e.Goal()
	if err != nil {
		return result, err
	}

	stocks := stages.Stocks.Get(e.outCommod)
	for i := 0; i < units; i++ {
		unit, err := e.assemble(stages, times, goal)
		if err != nil {
			return result, err
		}
		if err := e.crctx.AddRsrc(e.outCommod, unit); err != nil {
			return result, err
		}
		stocks.Push(unit)
		result.Consumed += unit.Quantity()
		result.Produced += unit.Quantity()
		result.Lots++
	}

	if flush {
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
					if err := e.stashResidue(stages, lot); err != nil {
						return result, err
					}
					result.Consumed += lot.Quantity()
					result.Residue += lot.Quantity()
				}
			}
		}
	}
	return result, nil
}

// pull is one planned withdrawal from a processing buffer
type pull struct {
	buf *material.LotBuffer
	qty float64
}

// plan picks where one unit of every goal nuclide comes from without touching
// the buffers. promised holds quantity already claimed per buffer and is updated
// only when the whole unit can be covered.
func (e *BlendEngine) plan(stages *StageBuffers, times []int, goal material.Composition, promised map[*material.LotBuffer]float64) ([]pull, error) {
	var pulls []pull
	claimed := make(map[*material.LotBuffer]float64)
	for _, nuc := range goal.Nuclides() {
		sources, ok := e.prefs[nuc]
		if !ok {
			return nil, shared.NewConfigError("source_prefs", fmt.Sprintf("no sources for goal nuclide %d", nuc))
		}
		need := goal.MassOf(nuc)
		for _, commod := range sources {
			for _, t := range times {
				if !shared.IsPositive(need) {
					break
				}
				batch, ok := stages.ProcessingAt(t)
				if !ok {
					continue
				}
				buf, ok := batch.Lookup(commod)
				if !ok || buf.Empty() {
					continue
				}
				free := buf.Quantity() - promised[buf] - claimed[buf]
				if !shared.IsPositive(free) {
					continue
				}
				take := math.Min(need, free)
				claimed[buf] += take
				pulls = append(pulls, pull{buf: buf, qty: take})
				need -= take
			}
		}
		if shared.IsPositive(need) {
			return nil, shared.NewInsufficientQuantityError(fmt.Sprintf("blend source for nuclide %d", nuc), goal.MassOf(nuc), goal.MassOf(nuc)-need)
		}
	}
	for buf, qty := range claimed {
		promised[buf] += qty
	}
	return pulls, nil
}

// assemble pulls one unit's worth of every goal nuclide and blends the pulls into
// one lot. Nothing is popped unless the whole unit is covered.
func (e *BlendEngine) assemble(stages *StageBuffers, times []int, goal material.Composition) (*material.Lot, error) {
	pulls, err := e.plan(stages, times, goal, make(map[*material.LotBuffer]float64))
	if err != nil {
		return nil, err
	}

	type popped struct {
		buf  *material.LotBuffer
		lots []*material.Lot
	}
	var taken []popped
	for _, p := range pulls {
		lots, err := p.buf.PopExact(p.qty)
		if err != nil {
			for _, back := range taken {
				back.buf.PushAll(back.lots)
			}
			return nil, err
		}
		taken = append(taken, popped{buf: p.buf, lots: lots})
	}

	var unit *material.Lot
	for _, got := range taken {
		for _, lot := range got.lots {
			if err := e.crctx.RemoveRsrc(lot); err != nil {
				return nil, err
			}
			if unit == nil {
				unit = lot
				continue
			}
			unit.Absorb(lot)
		}
	}
	if unit == nil {
		return nil, shared.NewEmptyBufferError("processing")
	}
	return unit, nil
}
