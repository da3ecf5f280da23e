package facility

import "fmt"

// Phase is the operating state of a facility
type Phase int

const (
	PhaseInitial Phase = iota
	PhaseProcess
	PhaseWaiting
	PhaseDecommissioned
)

func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "INITIAL"
	case PhaseProcess:
		return "PROCESS"
	case PhaseWaiting:
		return "WAITING"
	case PhaseDecommissioned:
		return "DECOMM"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Variant selects the conversion behaviour of a facility
type Variant string

const (
	VariantConverter  Variant = "converter"
	VariantFuelFab    Variant = "fuel_fab"
	VariantSeparation Variant = "separations"
)

// phaseDescriptions holds the human readable phase labels used in status logs
var phaseDescriptions = map[Variant]map[Phase]string{
	VariantConverter: {
		PhaseInitial:        "initialization",
		PhaseProcess:        "processing batch(es)",
		PhaseWaiting:        "waiting for fuel",
		PhaseDecommissioned: "decommissioned",
	},
	VariantFuelFab: {
		PhaseInitial:        "initialization",
		PhaseProcess:        "processing commodities",
		PhaseWaiting:        "waiting for stocks",
		PhaseDecommissioned: "decommissioned",
	},
	VariantSeparation: {
		PhaseInitial:        "initialization",
		PhaseProcess:        "processing commodities",
		PhaseWaiting:        "waiting for stocks",
		PhaseDecommissioned: "decommissioned",
	},
}

// Describe returns the status label of a phase for this variant
func (v Variant) Describe(p Phase) string {
	if names, ok := phaseDescriptions[v]; ok {
		if name, ok := names[p]; ok {
			return name
		}
	}
	return p.String()
}

// Valid reports whether v names a known variant
func (v Variant) Valid() bool {
	_, ok := phaseDescriptions[v]
	return ok
}
