package facility

import (
	"context"
	"fmt"
	"math"

	"github.com/andrescamacho/facsim-go/internal/domain/market"
	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/recipe"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

// StepReport summarises what a facility did during one step
type StepReport struct {
	Time           int
	PhaseBefore    Phase
	PhaseAfter     Phase
	Promoted       float64
	Conversion     ConversionResult
	Received       float64
	Shipped        float64
	AppliedChanges []ScheduledChange
	Decommissioned bool
}

// Facility is a staged-inventory processing facility. Material arrives through
// accepted trades into reserves, is promoted into processing on each tock,
// converted by the variant's engine once it has resided for the process time
// and leaves from stocks through fulfilled trades.
//
// Invariants:
// - material is conserved across stages except through trades
// - no requests are emitted once decommissioned
// - every iteration over commodities follows registration order
type Facility struct {
	id           string
	variant      Variant
	phase        Phase
	lifetime     int
	deployedAt   int
	decommAt     int
	capacity     float64
	policy       InventoryPolicy
	parkWhenIdle bool
	commodPrefs  map[string]float64
	initial      []InitialLot
	crctx        *RecipeContext
	stages       *StageBuffers
	scheduler    *Scheduler
	engine       ConversionEngine
	blend        *BlendEngine
	recipes      recipe.Book
	profile      *ProductionProfile
	schedule     *Schedule
	report       StepReport
}

// New builds a facility from a definition. Every recipe the definition names is
// resolved up front so a missing recipe fails construction.
func New(def Definition, recipes recipe.Book) (*Facility, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	scheduler, err := NewScheduler(def.ProcessTime)
	if err != nil {
		return nil, err
	}
	schedule, err := NewSchedule(def.Changes)
	if err != nil {
		return nil, err
	}

	crctx := NewRecipeContext()
	for _, pair := range def.Commodities {
		if err := crctx.AddInCommod(pair.In, pair.InRecipe, pair.Out, pair.OutRecipe); err != nil {
			return nil, err
		}
	}

	f := &Facility{
		id:           def.ID,
		variant:      def.Variant,
		phase:        PhaseInitial,
		lifetime:     def.Lifetime,
		decommAt:     -1,
		capacity:     def.Capacity,
		policy:       def.inventoryPolicy(),
		parkWhenIdle: def.parkWhenIdle(),
		commodPrefs:  make(map[string]float64, len(def.CommodityPrefs)),
		initial:      append([]InitialLot(nil), def.Initial...),
		crctx:        crctx,
		stages:       NewStageBuffers(),
		scheduler:    scheduler,
		recipes:      recipes,
		profile:      NewProductionProfile(),
		schedule:     schedule,
	}
	for commod, pref := range def.CommodityPrefs {
		if !crctx.HasInCommod(commod) {
			return nil, shared.NewConfigError("commod_prefs", fmt.Sprintf("%s: unknown input commodity %s", def.ID, commod))
		}
		if pref < 0 {
			return nil, shared.NewConfigError("commod_prefs", fmt.Sprintf("%s: negative preference for %s", def.ID, commod))
		}
		f.commodPrefs[commod] = pref
	}

	switch def.Variant {
	case VariantConverter:
		f.engine = NewRecipeSwapEngine(crctx, recipes)
	case VariantFuelFab:
		if err := crctx.AddOutCommod(def.OutCommodity, def.OutRecipe); err != nil {
			return nil, err
		}
		blend, err := NewBlendEngine(crctx, recipes, def.OutCommodity, def.SourcePrefs, def.ResidueCommodity)
		if err != nil {
			return nil, err
		}
		f.engine = blend
		f.blend = blend
	case VariantSeparation:
		for _, out := range def.OutElements {
			if err := crctx.AddOutCommod(out.Commodity, ""); err != nil {
				return nil, err
			}
		}
		sep, err := NewSeparationEngine(crctx, recipes, def.OutElements, def.ResidueCommodity)
		if err != nil {
			return nil, err
		}
		f.engine = sep
	}
	if def.ResidueCommodity != "" {
		if def.Variant == VariantConverter {
			return nil, shared.NewConfigError("residue_commodity", fmt.Sprintf("%s: converters produce no residue", def.ID))
		}
		if err := crctx.AddOutCommod(def.ResidueCommodity, ""); err != nil {
			return nil, err
		}
	}

	for _, decl := range def.Production {
		if err := f.profile.AddCommodity(decl.Commodity, decl.ProductionEntry); err != nil {
			return nil, err
		}
	}

	if err := f.checkRecipes(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Facility) checkRecipes() error {
	for _, in := range f.crctx.InCommods() {
		name, _ := f.crctx.InRecipe(in)
		if _, err := f.recipes.Composition(name); err != nil {
			return err
		}
		if f.variant == VariantConverter {
			outRecipe, err := f.crctx.OutRecipe(in)
			if err != nil {
				return err
			}
			if _, err := f.recipes.Composition(outRecipe); err != nil {
				return err
			}
		}
	}
	if f.blend != nil {
		if _, err := f.blend.Goal(); err != nil {
			return err
		}
		if _, err := f.blend.PossibleUnits(f.stages, nil); err != nil {
			return err
		}
	}
	for _, initial := range f.initial {
		if _, err := f.recipes.Composition(initial.Recipe); err != nil {
			return err
		}
	}
	return nil
}

// Getters

func (f *Facility) ID() string                    { return f.id }
func (f *Facility) Variant() Variant              { return f.variant }
func (f *Facility) Phase() Phase                  { return f.phase }
func (f *Facility) Capacity() float64             { return f.capacity }
func (f *Facility) ProcessTime() int              { return f.scheduler.ProcessTime() }
func (f *Facility) Stages() *StageBuffers         { return f.stages }
func (f *Facility) RecipeContext() *RecipeContext { return f.crctx }
func (f *Facility) Profile() *ProductionProfile   { return f.profile }
func (f *Facility) LastStep() StepReport          { return f.report }

// Preference returns the request weight of an input commodity, 1.0 unless configured
func (f *Facility) Preference(commod string) float64 {
	if pref, ok := f.commodPrefs[commod]; ok {
		return pref
	}
	return 1.0
}

// PhaseDescription returns the status label of the current phase
func (f *Facility) PhaseDescription() string {
	return f.variant.Describe(f.phase)
}

// DecommissionTime returns the step at which the facility flushes and retires, or -1
func (f *Facility) DecommissionTime() int {
	return f.decommAt
}

// Deploy places the facility at time t and loads its initial inventory
func (f *Facility) Deploy(t int) error {
	f.deployedAt = t
	if f.lifetime > 0 {
		f.decommAt = t + f.lifetime
	}
	for _, initial := range f.initial {
		comp, err := f.recipes.Composition(initial.Recipe)
		if err != nil {
			return err
		}
		count := initial.Count
		if count == 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			lot, err := material.NewLot(initial.Quantity, comp, initial.Commodity)
			if err != nil {
				return err
			}
			if err := f.crctx.AddRsrc(initial.Commodity, lot); err != nil {
				return err
			}
			switch initial.Stage {
			case StageReserves:
				f.stages.Reserves.Get(initial.Commodity).Push(lot)
			case StageProcessing:
				f.stages.Processing(t).Get(initial.Commodity).Push(lot)
			case StageStocks:
				f.stages.Stocks.Get(initial.Commodity).Push(lot)
			}
		}
	}
	return nil
}

// ScheduleDecommission moves the retirement step. It is ignored once decommissioned.
func (f *Facility) ScheduleDecommission(t int) {
	if f.phase == PhaseDecommissioned {
		return
	}
	f.decommAt = t
}

// Tick applies scheduled changes and advances the phase machine. At the
// retirement step all processing is flushed through conversion.
func (f *Facility) Tick(ctx context.Context, t int) error {
	f.report = StepReport{Time: t, PhaseBefore: f.phase, PhaseAfter: f.phase}

	for _, change := range f.schedule.Due(t) {
		if err := f.applyChange(change); err != nil {
			return fmt.Errorf("facility %s: failed to apply change %s: %w", f.id, change, err)
		}
		f.report.AppliedChanges = append(f.report.AppliedChanges, change)
	}

	if f.phase != PhaseDecommissioned && f.decommAt >= 0 && t >= f.decommAt {
		result, err := f.scheduler.Flush(f.stages, f.engine)
		f.report.Conversion.add(result)
		if err != nil {
			return fmt.Errorf("facility %s: end of life flush failed: %w", f.id, err)
		}
		f.phase = PhaseDecommissioned
		f.report.Decommissioned = true
		f.report.PhaseAfter = f.phase
		return nil
	}

	switch f.phase {
	case PhaseInitial:
		if f.stages.ProcessingCount() > 0 {
			f.phase = PhaseProcess
		} else {
			f.phase = PhaseWaiting
		}
	case PhaseWaiting:
		if f.stages.ProcessingCount() > 0 {
			f.phase = PhaseProcess
		}
	}
	f.report.PhaseAfter = f.phase
	return nil
}

// Tock promotes reserves into processing and converts whatever has matured
func (f *Facility) Tock(ctx context.Context, t int) error {
	if f.phase == PhaseDecommissioned {
		return nil
	}
	f.report.Promoted += f.scheduler.BeginProcessing(f.stages, t)

	result, err := f.scheduler.DrainReady(f.stages, t, f.engine)
	f.report.Conversion.add(result)
	if err != nil {
		return fmt.Errorf("facility %s: conversion at t=%d failed: %w", f.id, t, err)
	}

	if f.parkWhenIdle && f.phase == PhaseProcess && f.stages.ProcessingCount() == 0 {
		f.phase = PhaseWaiting
	}
	f.report.PhaseAfter = f.phase
	return nil
}

func (f *Facility) applyChange(change ScheduledChange) error {
	switch change.Kind {
	case ChangeRecipe:
		if _, err := f.recipes.Composition(change.Recipe); err != nil {
			return err
		}
		return f.crctx.SetInRecipe(change.InCommod, change.Recipe)
	case ChangePreference:
		if !f.crctx.HasInCommod(change.InCommod) {
			return shared.NewUnregisteredCommodityError(change.InCommod)
		}
		f.commodPrefs[change.InCommod] = change.Preference
		return nil
	case ChangeSourcePrefs:
		if f.blend == nil {
			return shared.NewConfigError("changes", "source preferences only apply to fuel fabs")
		}
		for _, src := range change.Sources {
			if !f.crctx.HasInCommod(src) {
				return shared.NewUnregisteredCommodityError(src)
			}
		}
		return f.blend.SetSources(change.Nuclide, change.Sources)
	}
	return shared.NewConfigError("changes", fmt.Sprintf("unknown change kind %q", change.Kind))
}

// OnHand returns the inventory counted against capacity under the facility's policy
func (f *Facility) OnHand() float64 {
	onHand := f.stages.Reserves.Quantity()
	switch f.policy {
	case InventoryReservesProcessing:
		onHand += f.stages.ProcessingQuantity()
	case InventoryAll:
		onHand += f.stages.ProcessingQuantity() + f.stages.Stocks.Quantity()
	}
	return onHand
}

// OrderSize returns how much the facility asks for this step
func (f *Facility) OrderSize() float64 {
	if math.IsInf(f.capacity, 1) {
		return f.capacity
	}
	return f.capacity - f.OnHand()
}

// Requests emits one request per input commodity, each sized to the open
// capacity and shaped like the commodity's current recipe, plus one capacity
// constraint over all of them.
func (f *Facility) Requests(ctx context.Context) ([]*market.RequestPortfolio, error) {
	if f.phase == PhaseDecommissioned {
		return nil, nil
	}
	orderSize := f.OrderSize()
	if !shared.IsPositive(orderSize) {
		return nil, nil
	}

	portfolio := &market.RequestPortfolio{Requester: f.id}
	for _, in := range f.crctx.InCommods() {
		name, err := f.crctx.InRecipe(in)
		if err != nil {
			return nil, err
		}
		comp, err := f.recipes.Composition(name)
		if err != nil {
			return nil, fmt.Errorf("facility %s: request for %s: %w", f.id, in, err)
		}
		target, err := material.NewLot(orderSize, comp, in)
		if err != nil {
			return nil, err
		}
		req, err := market.NewRequest(f.id, in, target, f.Preference(in))
		if err != nil {
			return nil, err
		}
		portfolio.AddRequest(req)
	}
	portfolio.AddConstraint(market.CapacityConstraint{Capacity: orderSize})
	return []*market.RequestPortfolio{portfolio}, nil
}

// AcceptTrades blends all lots received for the same commodity into one lot and
// files it in that commodity's reserves.
func (f *Facility) AcceptTrades(ctx context.Context, responses []market.TradeResponse) error {
	var order []string
	blended := make(map[string]*material.Lot)
	for _, resp := range responses {
		if resp.Lot == nil {
			continue
		}
		commod := resp.Trade.Commodity()
		if !f.crctx.HasInCommod(commod) {
			return fmt.Errorf("facility %s: %w", f.id, shared.NewUnregisteredCommodityError(commod))
		}
		if lot, ok := blended[commod]; ok {
			lot.Absorb(resp.Lot)
			continue
		}
		blended[commod] = resp.Lot
		order = append(order, commod)
	}

	for _, commod := range order {
		lot := blended[commod]
		if err := f.crctx.AddRsrc(commod, lot); err != nil {
			return err
		}
		f.stages.Reserves.Get(commod).Push(lot)
		f.report.Received += lot.Quantity()
	}
	return nil
}

// Bids offers stock against outstanding requests. Each bid is capped by the
// request quantity and the stock on hand, is shaped like the most recently
// stocked lot, and the portfolio is constrained to the stock on hand.
func (f *Facility) Bids(ctx context.Context, requests *market.CommodityRequests) ([]*market.BidPortfolio, error) {
	if requests == nil {
		return nil, nil
	}
	var portfolios []*market.BidPortfolio
	for _, out := range f.crctx.OutCommods() {
		buf, ok := f.stages.Stocks.Lookup(out)
		if !ok {
			continue
		}
		stock := buf.Quantity()
		reqs := requests.For(out)
		if !shared.IsPositive(stock) || len(reqs) == 0 {
			continue
		}
		back, _ := buf.PeekBack()

		portfolio := &market.BidPortfolio{Bidder: f.id, Commodity: out}
		for _, req := range reqs {
			offer, err := material.NewLot(math.Min(req.Quantity(), stock), back.Composition(), out)
			if err != nil {
				return nil, err
			}
			bid, err := market.NewBid(req, offer, f.id)
			if err != nil {
				return nil, err
			}
			portfolio.AddBid(bid)
		}
		portfolio.AddConstraint(market.CapacityConstraint{Capacity: stock})
		portfolios = append(portfolios, portfolio)
	}
	return portfolios, nil
}

// FulfillTrades pops exactly the traded quantity from stocks for each trade and
// ships it as one blended lot.
func (f *Facility) FulfillTrades(ctx context.Context, trades []market.Trade) ([]market.TradeResponse, error) {
	responses := make([]market.TradeResponse, 0, len(trades))
	for _, trade := range trades {
		if !shared.IsPositive(trade.Amount) {
			continue
		}
		commod := trade.Commodity()
		buf, ok := f.stages.Stocks.Lookup(commod)
		if !ok {
			return nil, fmt.Errorf("facility %s: %w", f.id, shared.NewUnregisteredCommodityError(commod))
		}
		manifest, err := buf.PopExact(trade.Amount)
		if err != nil {
			return nil, fmt.Errorf("facility %s: trade of %s: %w", f.id, commod, err)
		}

		var shipment *material.Lot
		for _, lot := range manifest {
			if err := f.crctx.RemoveRsrc(lot); err != nil {
				return nil, err
			}
			if shipment == nil {
				shipment = lot
				continue
			}
			shipment.Absorb(lot)
		}
		f.report.Shipped += shipment.Quantity()
		responses = append(responses, market.TradeResponse{Trade: trade, Lot: shipment})
	}
	return responses, nil
}
