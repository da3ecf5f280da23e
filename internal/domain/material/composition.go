package material

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

// Nuclide identifies an isotope in ZZAAA form (92235 is U-235).
// The long ZZAAAMMMM form is accepted as well.
type Nuclide int

// Z returns the atomic number of the nuclide
func (n Nuclide) Z() int {
	if n >= 10000000 {
		return int(n) / 10000000
	}
	return int(n) / 1000
}

// Composition is an immutable nuclide -> mass mapping.
// Masses are relative: a recipe may state absolute per-unit masses while a lot
// stores normalized fractions.
type Composition struct {
	masses map[Nuclide]float64
}

// NewComposition validates and copies a nuclide -> mass map. Zero entries are dropped.
func NewComposition(masses map[Nuclide]float64) (Composition, error) {
	copied := make(map[Nuclide]float64, len(masses))
	for nuc, mass := range masses {
		if math.IsNaN(mass) || math.IsInf(mass, 0) {
			return Composition{}, shared.NewValidationError("composition", fmt.Sprintf("mass of %d is not finite", nuc))
		}
		if mass < 0 {
			return Composition{}, shared.NewValidationError("composition", fmt.Sprintf("mass of %d cannot be negative", nuc))
		}
		if mass == 0 {
			continue
		}
		copied[nuc] = mass
	}
	return Composition{masses: copied}, nil
}

// MustComposition is NewComposition for literal fixtures; it panics on invalid input
func MustComposition(masses map[Nuclide]float64) Composition {
	c, err := NewComposition(masses)
	if err != nil {
		panic(err)
	}
	return c
}

// Mass returns the summed mass over all nuclides
func (c Composition) Mass() float64 {
	total := 0.0
	for _, m := range c.masses {
		total += m
	}
	return total
}

// IsEmpty reports whether the composition carries no mass
func (c Composition) IsEmpty() bool {
	return len(c.masses) == 0
}

// MassOf returns the mass recorded for one nuclide
func (c Composition) MassOf(n Nuclide) float64 {
	return c.masses[n]
}

// Fraction returns the mass fraction of one nuclide (0 for an empty composition)
func (c Composition) Fraction(n Nuclide) float64 {
	total := c.Mass()
	if total == 0 {
		return 0
	}
	return c.masses[n] / total
}

// Nuclides returns the nuclides present, in ascending id order
func (c Composition) Nuclides() []Nuclide {
	out := make([]Nuclide, 0, len(c.masses))
	for n := range c.masses {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Masses returns a copy of the underlying map
func (c Composition) Masses() map[Nuclide]float64 {
	out := make(map[Nuclide]float64, len(c.masses))
	for n, m := range c.masses {
		out[n] = m
	}
	return out
}

// Normalized returns the composition scaled to a total mass of one
func (c Composition) Normalized() Composition {
	return c.Scaled(1)
}

// Scaled returns the composition rescaled to the given total mass
func (c Composition) Scaled(total float64) Composition {
	current := c.Mass()
	out := make(map[Nuclide]float64, len(c.masses))
	if current == 0 {
		return Composition{masses: out}
	}
	for n, m := range c.masses {
		out[n] = m / current * total
	}
	return Composition{masses: out}
}

// Element returns the sub-composition of nuclides with the given atomic number, unscaled
func (c Composition) Element(z int) Composition {
	out := make(map[Nuclide]float64)
	for n, m := range c.masses {
		if n.Z() == z {
			out[n] = m
		}
	}
	return Composition{masses: out}
}

// Equal compares normalized fractions within tolerance
func (c Composition) Equal(other Composition) bool {
	a, b := c.Normalized(), other.Normalized()
	for n, m := range a.masses {
		if !shared.ApproxEqual(m, b.masses[n]) {
			return false
		}
	}
	for n, m := range b.masses {
		if !shared.ApproxEqual(m, a.masses[n]) {
			return false
		}
	}
	return true
}

func (c Composition) String() string {
	parts := make([]string, 0, len(c.masses))
	for _, n := range c.Nuclides() {
		parts = append(parts, fmt.Sprintf("%d:%.6g", n, c.masses[n]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
