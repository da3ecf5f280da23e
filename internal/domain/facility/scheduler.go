package facility

import (
	"fmt"

	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

// Scheduler moves reserves into timestamped processing batches and hands
// matured batches to a conversion engine.
type Scheduler struct {
	processTime int
}

// NewScheduler creates a scheduler with a fixed residence time in steps
func NewScheduler(processTime int) (*Scheduler, error) {
	if processTime < 0 {
		return nil, shared.NewConfigError("process_time", fmt.Sprintf("must be non-negative, got %d", processTime))
	}
	return &Scheduler{processTime: processTime}, nil
}

func (s *Scheduler) ProcessTime() int { return s.processTime }

// ReadyTimestamp returns the arrival time of the batch that matures at now
func (s *Scheduler) ReadyTimestamp(now int) int {
	return now - s.processTime
}

// BeginProcessing moves every reserve lot, in FIFO order per commodity, into the batch filed at now.
// It returns the quantity promoted.
func (s *Scheduler) BeginProcessing(stages *StageBuffers, now int) float64 {
	promoted := 0.0
	for _, commod := range stages.Reserves.Keys() {
		reserves := stages.Reserves.Get(commod)
		if reserves.Empty() {
			continue
		}
		batch := stages.Processing(now).Get(commod)
		for {
			lot, ok := reserves.TryPop(material.Front)
			if !ok {
				break
			}
			promoted += lot.Quantity()
			batch.Push(lot)
		}
	}
	return promoted
}

// DrainReady converts everything that has matured by now
func (s *Scheduler) DrainReady(stages *StageBuffers, now int, engine ConversionEngine) (ConversionResult, error) {
	times := stages.MaturedTimes(s.ReadyTimestamp(now))
	if len(times) == 0 {
		return ConversionResult{}, nil
	}
	result, err := engine.Convert(stages, times, false)
	stages.prune()
	return result, err
}

// Flush converts every processing batch regardless of maturity
func (s *Scheduler) Flush(stages *StageBuffers, engine ConversionEngine) (ConversionResult, error) {
	times := stages.ProcessingTimes()
	if len(times) == 0 {
		return ConversionResult{}, nil
	}
	result, err := engine.Convert(stages, times, true)
	stages.prune()
	return result, err
}
