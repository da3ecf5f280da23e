package facility

import (
	"fmt"
	"sort"

	"github.com/andrescamacho/facsim-go/internal/domain/material"
)

// BufferSet is a commodity-keyed set of lot buffers iterated in first-use order
type BufferSet struct {
	prefix  string
	keys    []string
	buffers map[string]*material.LotBuffer
}

func newBufferSet(prefix string) *BufferSet {
	return &BufferSet{prefix: prefix, buffers: make(map[string]*material.LotBuffer)}
}

// Get returns the buffer for a commodity, creating it on first use
func (s *BufferSet) Get(commod string) *material.LotBuffer {
	buf, ok := s.buffers[commod]
	if !ok {
		buf = material.NewLotBuffer(s.prefix + "/" + commod)
		s.buffers[commod] = buf
		s.keys = append(s.keys, commod)
	}
	return buf
}

// Lookup returns the buffer for a commodity without creating it
func (s *BufferSet) Lookup(commod string) (*material.LotBuffer, bool) {
	buf, ok := s.buffers[commod]
	return buf, ok
}

// Keys returns commodities in first-use order
func (s *BufferSet) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Quantity sums all buffers
func (s *BufferSet) Quantity() float64 {
	total := 0.0
	for _, key := range s.keys {
		total += s.buffers[key].Quantity()
	}
	return total
}

// QuantityOf returns the quantity held for one commodity
func (s *BufferSet) QuantityOf(commod string) float64 {
	if buf, ok := s.buffers[commod]; ok {
		return buf.Quantity()
	}
	return 0
}

// Count sums lot counts over all buffers
func (s *BufferSet) Count() int {
	total := 0
	for _, key := range s.keys {
		total += s.buffers[key].Count()
	}
	return total
}

// Empty reports whether no buffer holds a lot
func (s *BufferSet) Empty() bool {
	return s.Count() == 0
}

// StageBuffers holds a facility's inventory in its three stages:
// reserves by input commodity, processing by arrival time then input commodity,
// and stocks by output commodity. Residue collects material no output accepts.
type StageBuffers struct {
	Reserves   *BufferSet
	Stocks     *BufferSet
	Residue    *material.LotBuffer
	processing map[int]*BufferSet
}

// NewStageBuffers creates empty stages
func NewStageBuffers() *StageBuffers {
	return &StageBuffers{
		Reserves:   newBufferSet("reserves"),
		Stocks:     newBufferSet("stocks"),
		Residue:    material.NewLotBuffer("residue"),
		processing: make(map[int]*BufferSet),
	}
}

// Processing returns the batch filed at time t, creating it on first use
func (s *StageBuffers) Processing(t int) *BufferSet {
	set, ok := s.processing[t]
	if !ok {
		set = newBufferSet(fmt.Sprintf("processing@%d", t))
		s.processing[t] = set
	}
	return set
}

// ProcessingAt returns the batch filed at time t without creating it
func (s *StageBuffers) ProcessingAt(t int) (*BufferSet, bool) {
	set, ok := s.processing[t]
	return set, ok
}

// ProcessingTimes returns the arrival times of non-empty batches in ascending order
func (s *StageBuffers) ProcessingTimes() []int {
	times := make([]int, 0, len(s.processing))
	for t, set := range s.processing {
		if !set.Empty() {
			times = append(times, t)
		}
	}
	sort.Ints(times)
	return times
}

// MaturedTimes returns the non-empty batch times at or before ready
func (s *StageBuffers) MaturedTimes(ready int) []int {
	var out []int
	for _, t := range s.ProcessingTimes() {
		if t <= ready {
			out = append(out, t)
		}
	}
	return out
}

// prune drops empty processing batches
func (s *StageBuffers) prune() {
	for t, set := range s.processing {
		if set.Empty() {
			delete(s.processing, t)
		}
	}
}

// ProcessingQuantity sums all processing batches
func (s *StageBuffers) ProcessingQuantity() float64 {
	total := 0.0
	for _, t := range s.ProcessingTimes() {
		total += s.processing[t].Quantity()
	}
	return total
}

// ProcessingCount counts lots over all processing batches
func (s *StageBuffers) ProcessingCount() int {
	total := 0
	for _, set := range s.processing {
		total += set.Count()
	}
	return total
}

// TotalQuantity sums every stage including residue
func (s *StageBuffers) TotalQuantity() float64 {
	return s.Reserves.Quantity() + s.ProcessingQuantity() + s.Stocks.Quantity() + s.Residue.Quantity()
}
