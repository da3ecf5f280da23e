package facility

import (
	"fmt"

	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

// ProductionEntry is the declared capacity and unit cost for one produced commodity
type ProductionEntry struct {
	Capacity float64
	Cost     float64
}

// ProductionProfile records what a facility claims it can produce. It is
// reported to callers as-is and does not constrain conversion.
type ProductionProfile struct {
	order   []string
	entries map[string]ProductionEntry
}

func NewProductionProfile() *ProductionProfile {
	return &ProductionProfile{entries: make(map[string]ProductionEntry)}
}

// AddCommodity declares a produced commodity
func (p *ProductionProfile) AddCommodity(commod string, entry ProductionEntry) error {
	if commod == "" {
		return shared.NewConfigError("production", "commodity name cannot be empty")
	}
	if entry.Capacity < 0 || entry.Cost < 0 {
		return shared.NewConfigError("production", fmt.Sprintf("%s capacity and cost must be non-negative", commod))
	}
	if _, exists := p.entries[commod]; !exists {
		p.order = append(p.order, commod)
	}
	p.entries[commod] = entry
	return nil
}

func (p *ProductionProfile) ProducesCommodity(commod string) bool {
	_, ok := p.entries[commod]
	return ok
}

func (p *ProductionProfile) ProductionCapacity(commod string) float64 {
	return p.entries[commod].Capacity
}

func (p *ProductionProfile) ProductionCost(commod string) float64 {
	return p.entries[commod].Cost
}

// Commodities returns declared commodities in declaration order
func (p *ProductionProfile) Commodities() []string {
	return append([]string(nil), p.order...)
}
