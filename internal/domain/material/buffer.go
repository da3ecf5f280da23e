package material

import (
	"fmt"

	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

// End selects the side of a LotBuffer to pop from
type End int

const (
	Front End = iota
	Back
)

// LotBuffer is an ordered FIFO of lots with aggregate quantity queries.
// Lots are pushed at the back; Pop can take from either end.
type LotBuffer struct {
	name string
	lots []*Lot
}

// NewLotBuffer creates an empty buffer. The name only shows up in errors and logs.
func NewLotBuffer(name string) *LotBuffer {
	return &LotBuffer{name: name}
}

func (b *LotBuffer) Name() string { return b.name }

// Push appends a lot at the back
func (b *LotBuffer) Push(lot *Lot) {
	if lot == nil {
		return
	}
	b.lots = append(b.lots, lot)
}

// PushAll appends lots at the back in order
func (b *LotBuffer) PushAll(lots []*Lot) {
	for _, lot := range lots {
		b.Push(lot)
	}
}

// Pop removes one lot from the requested end
func (b *LotBuffer) Pop(end End) (*Lot, error) {
	lot, ok := b.TryPop(end)
	if !ok {
		return nil, shared.NewEmptyBufferError(b.name)
	}
	return lot, nil
}

// TryPop removes one lot from the requested end, reporting false on an empty buffer
func (b *LotBuffer) TryPop(end End) (*Lot, bool) {
	if len(b.lots) == 0 {
		return nil, false
	}
	var lot *Lot
	if end == Back {
		last := len(b.lots) - 1
		lot = b.lots[last]
		b.lots[last] = nil
		b.lots = b.lots[:last]
	} else {
		lot = b.lots[0]
		b.lots[0] = nil
		b.lots = b.lots[1:]
	}
	return lot, true
}

// PeekBack returns the most recently pushed lot without removing it
func (b *LotBuffer) PeekBack() (*Lot, bool) {
	if len(b.lots) == 0 {
		return nil, false
	}
	return b.lots[len(b.lots)-1], true
}

// PopExact removes exactly qty, taking lots front to back. When the last lot
// overshoots it is split: the requested portion is returned and the remainder
// stays at the front of the buffer.
func (b *LotBuffer) PopExact(qty float64) ([]*Lot, error) {
	if qty < 0 {
		return nil, shared.NewValidationError("quantity", fmt.Sprintf("cannot pop %v from %s", qty, b.name))
	}
	if !shared.IsPositive(qty) {
		return nil, nil
	}
	if available := b.Quantity(); !shared.AtLeast(available, qty) {
		return nil, shared.NewInsufficientQuantityError(b.name, qty, available)
	}

	var manifest []*Lot
	remaining := qty
	for shared.IsPositive(remaining) && len(b.lots) > 0 {
		front := b.lots[0]
		if front.Quantity() <= remaining+shared.Epsilon {
			b.TryPop(Front)
			manifest = append(manifest, front)
			remaining -= front.Quantity()
			continue
		}
		part, err := front.Extract(remaining)
		if err != nil {
			return nil, err
		}
		manifest = append(manifest, part)
		remaining = 0
	}
	return manifest, nil
}

// Quantity returns the summed quantity of all lots
func (b *LotBuffer) Quantity() float64 {
	total := 0.0
	for _, lot := range b.lots {
		total += lot.Quantity()
	}
	return total
}

// Count returns the number of lots held
func (b *LotBuffer) Count() int { return len(b.lots) }

// Empty reports whether the buffer holds no lots
func (b *LotBuffer) Empty() bool { return len(b.lots) == 0 }

// HasSufficient reports whether the buffer could satisfy PopExact(qty)
func (b *LotBuffer) HasSufficient(qty float64) bool {
	return shared.AtLeast(b.Quantity(), qty)
}

// Lots returns a snapshot of the held lots in FIFO order
func (b *LotBuffer) Lots() []*Lot {
	out := make([]*Lot, len(b.lots))
	copy(out, b.lots)
	return out
}
