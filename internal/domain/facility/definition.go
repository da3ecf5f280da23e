package facility

import (
	"fmt"
	"math"

	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

// InventoryPolicy selects which stages count as on-hand when sizing requests
type InventoryPolicy string

const (
	InventoryReserves           InventoryPolicy = "reserves"
	InventoryReservesProcessing InventoryPolicy = "reserves_processing"
	InventoryAll                InventoryPolicy = "all"
)

// Stage names where an initial lot is placed
type Stage string

const (
	StageReserves   Stage = "reserves"
	StageProcessing Stage = "processing"
	StageStocks     Stage = "stocks"
)

// CommodityPair declares an input commodity and, for converters, its output
type CommodityPair struct {
	In        string
	InRecipe  string
	Out       string
	OutRecipe string
}

// InitialLot pre-loads inventory when a facility is deployed
type InitialLot struct {
	Stage     Stage
	Commodity string
	Recipe    string
	Quantity  float64
	Count     int // number of identical lots; 0 means one
}

// ProductionDeclaration declares one produced commodity
type ProductionDeclaration struct {
	Commodity string
	ProductionEntry
}

// Definition is everything needed to build a facility
type Definition struct {
	ID               string
	Variant          Variant
	ProcessTime      int
	Capacity         float64 // +Inf for unbounded
	Lifetime         int     // steps after deployment; <= 0 never decommissions
	InventoryPolicy  InventoryPolicy
	ParkWhenIdle     *bool
	Commodities      []CommodityPair
	OutCommodity     string
	OutRecipe        string
	OutElements      []ElementOutput
	SourcePrefs      map[material.Nuclide][]string
	CommodityPrefs   map[string]float64
	ResidueCommodity string
	Production       []ProductionDeclaration
	Changes          []ScheduledChange
	Initial          []InitialLot
}

// Validate checks the definition for structural problems. Recipe names are
// checked against the recipe book when the facility is built.
func (d Definition) Validate() error {
	if d.ID == "" {
		return shared.NewConfigError("id", "facility id cannot be empty")
	}
	if !d.Variant.Valid() {
		return shared.NewConfigError("variant", fmt.Sprintf("%s: unknown variant %q", d.ID, d.Variant))
	}
	if d.ProcessTime < 0 {
		return shared.NewConfigError("process_time", fmt.Sprintf("%s: must be non-negative", d.ID))
	}
	if math.IsNaN(d.Capacity) || d.Capacity < 0 {
		return shared.NewConfigError("capacity", fmt.Sprintf("%s: must be non-negative", d.ID))
	}
	switch d.InventoryPolicy {
	case "", InventoryReserves, InventoryReservesProcessing, InventoryAll:
	default:
		return shared.NewConfigError("inventory_policy", fmt.Sprintf("%s: unknown policy %q", d.ID, d.InventoryPolicy))
	}
	if len(d.Commodities) == 0 {
		return shared.NewConfigError("commodities", fmt.Sprintf("%s: at least one input commodity is required", d.ID))
	}
	for _, pair := range d.Commodities {
		if pair.In == "" || pair.InRecipe == "" {
			return shared.NewConfigError("commodities", fmt.Sprintf("%s: input commodity and recipe are required", d.ID))
		}
	}

	switch d.Variant {
	case VariantConverter:
		for _, pair := range d.Commodities {
			if pair.Out == "" || pair.OutRecipe == "" {
				return shared.NewConfigError("commodities", fmt.Sprintf("%s: converter input %s needs an output and recipe", d.ID, pair.In))
			}
		}
	case VariantFuelFab:
		if d.OutCommodity == "" || d.OutRecipe == "" {
			return shared.NewConfigError("out_commodity", fmt.Sprintf("%s: fuel fab needs an output commodity and goal recipe", d.ID))
		}
		if len(d.SourcePrefs) == 0 {
			return shared.NewConfigError("source_prefs", fmt.Sprintf("%s: fuel fab needs source preferences", d.ID))
		}
		inputs := make(map[string]bool, len(d.Commodities))
		for _, pair := range d.Commodities {
			inputs[pair.In] = true
		}
		for nuc, sources := range d.SourcePrefs {
			for _, src := range sources {
				if !inputs[src] {
					return shared.NewConfigError("source_prefs", fmt.Sprintf("%s: nuclide %d lists unknown source %s", d.ID, nuc, src))
				}
			}
		}
	case VariantSeparation:
		if len(d.OutElements) == 0 {
			return shared.NewConfigError("out_elements", fmt.Sprintf("%s: separations needs output elements", d.ID))
		}
	}

	for _, initial := range d.Initial {
		if initial.Quantity <= 0 || initial.Count < 0 {
			return shared.NewConfigError("initial", fmt.Sprintf("%s: initial lots need a positive quantity", d.ID))
		}
		switch initial.Stage {
		case StageReserves, StageProcessing, StageStocks:
		default:
			return shared.NewConfigError("initial", fmt.Sprintf("%s: unknown stage %q", d.ID, initial.Stage))
		}
	}
	return nil
}

// parkWhenIdle resolves the variant default: converters keep re-trying, the others park
func (d Definition) parkWhenIdle() bool {
	if d.ParkWhenIdle != nil {
		return *d.ParkWhenIdle
	}
	return d.Variant != VariantConverter
}

func (d Definition) inventoryPolicy() InventoryPolicy {
	if d.InventoryPolicy == "" {
		return InventoryReservesProcessing
	}
	return d.InventoryPolicy
}
