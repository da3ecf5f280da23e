package deployment

import (
	"context"
	"math"

	"github.com/andrescamacho/facsim-go/internal/application/common"
	"github.com/andrescamacho/facsim-go/internal/domain/facility"
	"github.com/andrescamacho/facsim-go/internal/domain/simulation"
)

// Advisor applies supply-driven decommission rules. When the stock of a rule's
// commodity across all facilities exceeds the rule quantity, floor(avail/q)
// live facilities of the rule's prototype are retired on the next step.
type Advisor struct {
	rules []simulation.DecommissionRule
}

func NewAdvisor(rules []simulation.DecommissionRule) *Advisor {
	return &Advisor{rules: append([]simulation.DecommissionRule(nil), rules...)}
}

// NumToDecommission returns how many facilities an available quantity retires
func NumToDecommission(avail, quantity float64) int {
	if quantity <= 0 || avail <= quantity {
		return 0
	}
	return int(math.Floor(avail / quantity))
}

// Available sums the stocks of a commodity held by every facility
func Available(facilities []*facility.Facility, commodity string) float64 {
	total := 0.0
	for _, f := range facilities {
		total += f.Stages().Stocks.QuantityOf(commodity)
	}
	return total
}

// Apply evaluates every rule after step t and returns the ids scheduled for retirement
func (a *Advisor) Apply(ctx context.Context, t int, facilities []*facility.Facility) []string {
	logger := common.LoggerFromContext(ctx)

	var retired []string
	for _, rule := range a.rules {
		avail := Available(facilities, rule.Commodity)
		n := NumToDecommission(avail, rule.Quantity)
		if n == 0 {
			continue
		}
		for _, f := range facilities {
			if n == 0 {
				break
			}
			if !rule.Matches(f.ID()) || f.Phase() == facility.PhaseDecommissioned {
				continue
			}
			if at := f.DecommissionTime(); at >= 0 && at <= t+1 {
				continue
			}
			f.ScheduleDecommission(t + 1)
			retired = append(retired, f.ID())
			n--
			logger.Log("INFO", "Facility scheduled for decommission", map[string]interface{}{
				"facility":  f.ID(),
				"commodity": rule.Commodity,
				"available": avail,
				"threshold": rule.Quantity,
				"at":        t + 1,
			})
		}
	}
	return retired
}
