package simulation

import (
	"fmt"
	"strings"

	"github.com/andrescamacho/facsim-go/internal/domain/facility"
	"github.com/andrescamacho/facsim-go/internal/domain/recipe"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

// Delivery is a scripted shipment offered to a facility at a step. It is
// only accepted up to what the facility requests.
type Delivery struct {
	Time      int
	Facility  string
	Commodity string
	Recipe    string
	Quantity  float64
}

// Withdrawal is a scripted request for a facility's stock at a step
type Withdrawal struct {
	Time      int
	Facility  string
	Commodity string
	Recipe    string
	Quantity  float64
}

// DecommissionRule retires facilities of a prototype while a commodity is in oversupply
type DecommissionRule struct {
	Prototype string
	Commodity string
	Quantity  float64
}

// Matches reports whether a facility id belongs to the rule's prototype.
// Instances of a prototype are named "<prototype>-<n>".
func (r DecommissionRule) Matches(facilityID string) bool {
	return facilityID == r.Prototype || strings.HasPrefix(facilityID, r.Prototype+"-")
}

// Scenario is everything a run needs
type Scenario struct {
	Name        string
	Duration    int
	Recipes     *recipe.Registry
	Facilities  []facility.Definition
	Rules       []DecommissionRule
	Deliveries  []Delivery
	Withdrawals []Withdrawal
}

// Validate checks cross references between facilities, feeds and rules
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return shared.NewConfigError("name", "scenario name cannot be empty")
	}
	if s.Duration <= 0 {
		return shared.NewConfigError("duration", fmt.Sprintf("%s: duration must be positive", s.Name))
	}
	if s.Recipes == nil {
		return shared.NewConfigError("recipes", fmt.Sprintf("%s: no recipes", s.Name))
	}

	ids := make(map[string]bool, len(s.Facilities))
	for _, def := range s.Facilities {
		if ids[def.ID] {
			return shared.NewConfigError("facilities", fmt.Sprintf("%s: facility %s defined twice", s.Name, def.ID))
		}
		ids[def.ID] = true
	}
	for _, d := range s.Deliveries {
		if !ids[d.Facility] {
			return shared.NewConfigError("deliveries", fmt.Sprintf("%s: unknown facility %s", s.Name, d.Facility))
		}
		if d.Quantity <= 0 || d.Time < 0 {
			return shared.NewConfigError("deliveries", fmt.Sprintf("%s: delivery to %s needs a positive quantity and time", s.Name, d.Facility))
		}
		if _, err := s.Recipes.Composition(d.Recipe); err != nil {
			return err
		}
	}
	for _, w := range s.Withdrawals {
		if !ids[w.Facility] {
			return shared.NewConfigError("withdrawals", fmt.Sprintf("%s: unknown facility %s", s.Name, w.Facility))
		}
		if w.Quantity <= 0 || w.Time < 0 {
			return shared.NewConfigError("withdrawals", fmt.Sprintf("%s: withdrawal from %s needs a positive quantity and time", s.Name, w.Facility))
		}
		if _, err := s.Recipes.Composition(w.Recipe); err != nil {
			return err
		}
	}
	for _, r := range s.Rules {
		if r.Prototype == "" || r.Commodity == "" || r.Quantity <= 0 {
			return shared.NewConfigError("decommission_rules", fmt.Sprintf("%s: rules need a prototype, commodity and positive quantity", s.Name))
		}
	}
	return nil
}
