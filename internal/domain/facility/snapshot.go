package facility

import (
	"fmt"
	"strings"
)

// CommodityLevel is the quantity and lot count held for one commodity
type CommodityLevel struct {
	Commodity string  `json:"commodity" yaml:"commodity"`
	Quantity  float64 `json:"quantity" yaml:"quantity"`
	Lots      int     `json:"lots" yaml:"lots"`
}

// Snapshot is a point-in-time view of a facility's inventory and phase
type Snapshot struct {
	FacilityID       string           `json:"facility_id" yaml:"facility_id"`
	Variant          Variant          `json:"variant" yaml:"variant"`
	Time             int              `json:"time" yaml:"time"`
	Phase            string           `json:"phase" yaml:"phase"`
	PhaseDescription string           `json:"phase_description" yaml:"phase_description"`
	DeployedAt       int              `json:"deployed_at" yaml:"deployed_at"`
	ReservesQty      float64          `json:"reserves_qty" yaml:"reserves_qty"`
	ReservesLots     int              `json:"reserves_lots" yaml:"reserves_lots"`
	ProcessingQty    float64          `json:"processing_qty" yaml:"processing_qty"`
	ProcessingLots   int              `json:"processing_lots" yaml:"processing_lots"`
	StocksQty        float64          `json:"stocks_qty" yaml:"stocks_qty"`
	StocksLots       int              `json:"stocks_lots" yaml:"stocks_lots"`
	ResidueQty       float64          `json:"residue_qty" yaml:"residue_qty"`
	Reserves         []CommodityLevel `json:"reserves" yaml:"reserves"`
	Stocks           []CommodityLevel `json:"stocks" yaml:"stocks"`
}

// Snapshot captures the facility state as of its last Tick/Tock
func (f *Facility) Snapshot() Snapshot {
	snap := Snapshot{
		FacilityID:       f.id,
		Variant:          f.variant,
		Time:             f.report.Time,
		Phase:            f.phase.String(),
		PhaseDescription: f.PhaseDescription(),
		DeployedAt:       f.deployedAt,
		ReservesQty:      f.stages.Reserves.Quantity(),
		ReservesLots:     f.stages.Reserves.Count(),
		ProcessingQty:    f.stages.ProcessingQuantity(),
		ProcessingLots:   f.stages.ProcessingCount(),
		StocksQty:        f.stages.Stocks.Quantity(),
		StocksLots:       f.stages.Stocks.Count(),
		ResidueQty:       f.stages.Residue.Quantity(),
	}
	for _, commod := range f.stages.Reserves.Keys() {
		buf := f.stages.Reserves.Get(commod)
		snap.Reserves = append(snap.Reserves, CommodityLevel{Commodity: commod, Quantity: buf.Quantity(), Lots: buf.Count()})
	}
	for _, commod := range f.stages.Stocks.Keys() {
		buf := f.stages.Stocks.Get(commod)
		snap.Stocks = append(snap.Stocks, CommodityLevel{Commodity: commod, Quantity: buf.Quantity(), Lots: buf.Count()})
	}
	return snap
}

// Total returns the quantity held across every stage
func (s Snapshot) Total() float64 {
	return s.ReservesQty + s.ProcessingQty + s.StocksQty + s.ResidueQty
}

// Render formats the snapshot as stable, human readable text
func (s Snapshot) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] t=%d phase=%s (%s)\n", s.FacilityID, s.Variant, s.Time, s.Phase, s.PhaseDescription)
	fmt.Fprintf(&b, "  reserves   %10.4f kg in %d lots\n", s.ReservesQty, s.ReservesLots)
	fmt.Fprintf(&b, "  processing %10.4f kg in %d lots\n", s.ProcessingQty, s.ProcessingLots)
	fmt.Fprintf(&b, "  stocks     %10.4f kg in %d lots\n", s.StocksQty, s.StocksLots)
	if s.ResidueQty > 0 {
		fmt.Fprintf(&b, "  residue    %10.4f kg\n", s.ResidueQty)
	}
	for _, lvl := range s.Stocks {
		fmt.Fprintf(&b, "    stock %-12s %10.4f kg in %d lots\n", lvl.Commodity, lvl.Quantity, lvl.Lots)
	}
	return b.String()
}
