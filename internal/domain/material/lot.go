package material

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

// LotID is the stable identity of a lot. Splitting a lot keeps the lineage and
// hands the child the next ordinal of that lineage; ordinal 0 is the original lot.
type LotID struct {
	Lineage uuid.UUID
	Ordinal int
}

func (id LotID) String() string {
	return fmt.Sprintf("%s/%d", id.Lineage, id.Ordinal)
}

// Lot is a discrete quantity of material with a composition and an owning commodity tag.
//
// Invariants:
// - quantity is never negative
// - composition is stored normalized, so mass of a nuclide is quantity * fraction
// - a split conserves total quantity within shared.Epsilon
type Lot struct {
	id        LotID
	ancestry  []LotID
	quantity  float64
	comp      Composition
	commodity string
	splits    *int
}

// NewLot creates a lot that starts a new lineage
func NewLot(quantity float64, comp Composition, commodity string) (*Lot, error) {
	if math.IsNaN(quantity) || quantity < 0 {
		return nil, shared.NewValidationError("quantity", fmt.Sprintf("lot quantity must be non-negative, got %v", quantity))
	}
	if comp.IsEmpty() && quantity > 0 {
		return nil, shared.NewValidationError("composition", "a non-empty lot needs a composition")
	}
	counter := 0
	return &Lot{
		id:        LotID{Lineage: uuid.New()},
		quantity:  quantity,
		comp:      comp.Normalized(),
		commodity: commodity,
		splits:    &counter,
	}, nil
}

// Getters

func (l *Lot) ID() LotID                { return l.id }
func (l *Lot) Lineage() uuid.UUID       { return l.id.Lineage }
func (l *Lot) Quantity() float64        { return l.quantity }
func (l *Lot) Composition() Composition { return l.comp }
func (l *Lot) Commodity() string        { return l.commodity }

// Parent returns the id of the lot this one was split from, or nil for a lineage root
func (l *Lot) Parent() *LotID {
	if len(l.ancestry) == 0 {
		return nil
	}
	parent := l.ancestry[0]
	return &parent
}

// Ancestry returns the ids this lot descends from, nearest first
func (l *Lot) Ancestry() []LotID {
	out := make([]LotID, len(l.ancestry))
	copy(out, l.ancestry)
	return out
}

// SetCommodity retags the lot; called when a facility reassigns its owner
func (l *Lot) SetCommodity(commodity string) {
	l.commodity = commodity
}

// MassOf returns the mass of one nuclide carried by the lot
func (l *Lot) MassOf(n Nuclide) float64 {
	return l.quantity * l.comp.MassOf(n)
}

// ElementMass returns the mass of all nuclides with atomic number z
func (l *Lot) ElementMass(z int) float64 {
	return l.quantity * l.comp.Element(z).Mass()
}

// Extract splits off exactly qty with the same composition.
// The child shares this lot's lineage and records this lot as its parent.
func (l *Lot) Extract(qty float64) (*Lot, error) {
	if math.IsNaN(qty) || qty < 0 {
		return nil, shared.NewValidationError("quantity", fmt.Sprintf("cannot extract %v", qty))
	}
	if !shared.AtLeast(l.quantity, qty) {
		return nil, shared.NewInsufficientQuantityError("lot "+l.id.String(), qty, l.quantity)
	}
	if qty > l.quantity {
		qty = l.quantity
	}
	l.quantity -= qty
	if l.quantity < shared.Epsilon {
		l.quantity = 0
	}
	return l.child(qty, l.comp), nil
}

// ExtractComposition removes qty of material shaped like comp from this lot.
// The remainder keeps whatever mass is left, renormalized.
func (l *Lot) ExtractComposition(qty float64, comp Composition) (*Lot, error) {
	if math.IsNaN(qty) || qty < 0 {
		return nil, shared.NewValidationError("quantity", fmt.Sprintf("cannot extract %v", qty))
	}
	target := comp.Normalized()
	remaining := make(map[Nuclide]float64, len(l.comp.masses))
	for n, frac := range l.comp.masses {
		remaining[n] = l.quantity * frac
	}
	for n, frac := range target.masses {
		want := qty * frac
		left := remaining[n] - want
		if left < -shared.Epsilon {
			return nil, shared.NewInsufficientQuantityError(fmt.Sprintf("lot %s nuclide %d", l.id, n), want, remaining[n])
		}
		if left < 0 {
			left = 0
		}
		remaining[n] = left
	}

	rest, err := NewComposition(remaining)
	if err != nil {
		return nil, err
	}
	l.quantity = rest.Mass()
	if l.quantity < shared.Epsilon {
		l.quantity = 0
	}
	l.comp = rest.Normalized()
	return l.child(qty, target), nil
}

// Absorb blends other into this lot. The blended composition is mass weighted and
// other is left empty. The absorbing lot keeps its identity.
func (l *Lot) Absorb(other *Lot) {
	if other == nil || other == l {
		return
	}
	total := l.quantity + other.quantity
	if total <= 0 {
		other.quantity = 0
		return
	}
	blended := make(map[Nuclide]float64)
	for n, frac := range l.comp.masses {
		blended[n] += l.quantity * frac
	}
	for n, frac := range other.comp.masses {
		blended[n] += other.quantity * frac
	}
	l.comp = Composition{masses: blended}.Normalized()
	l.quantity = total
	other.quantity = 0
}

// Transmute replaces the composition while keeping the quantity
func (l *Lot) Transmute(comp Composition) error {
	if comp.IsEmpty() && l.quantity > 0 {
		return shared.NewValidationError("composition", "cannot transmute into an empty composition")
	}
	l.comp = comp.Normalized()
	return nil
}

func (l *Lot) child(qty float64, comp Composition) *Lot {
	*l.splits++
	ancestry := make([]LotID, 0, len(l.ancestry)+1)
	ancestry = append(ancestry, l.id)
	ancestry = append(ancestry, l.ancestry...)
	return &Lot{
		id:        LotID{Lineage: l.id.Lineage, Ordinal: *l.splits},
		ancestry:  ancestry,
		quantity:  qty,
		comp:      comp,
		commodity: l.commodity,
		splits:    l.splits,
	}
}

func (l *Lot) String() string {
	return fmt.Sprintf("lot %s (%s, %.6g kg)", l.id, l.commodity, l.quantity)
}
