package facility

import (
	"fmt"
	"sort"

	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

// ChangeKind names what a scheduled change modifies
type ChangeKind string

const (
	ChangeRecipe      ChangeKind = "recipe"
	ChangePreference  ChangeKind = "preference"
	ChangeSourcePrefs ChangeKind = "source_prefs"
)

// ScheduledChange modifies facility parameters at an absolute simulation time
type ScheduledChange struct {
	Time       int
	Kind       ChangeKind
	InCommod   string
	Recipe     string
	Preference float64
	Nuclide    material.Nuclide
	Sources    []string
}

func (c ScheduledChange) String() string {
	switch c.Kind {
	case ChangeRecipe:
		return fmt.Sprintf("t=%d recipe of %s -> %s", c.Time, c.InCommod, c.Recipe)
	case ChangePreference:
		return fmt.Sprintf("t=%d preference of %s -> %g", c.Time, c.InCommod, c.Preference)
	case ChangeSourcePrefs:
		return fmt.Sprintf("t=%d sources of %d -> %v", c.Time, c.Nuclide, c.Sources)
	default:
		return fmt.Sprintf("t=%d %s", c.Time, c.Kind)
	}
}

// Schedule holds pending changes keyed by time. Each time is applied at most once.
type Schedule struct {
	byTime  map[int][]ScheduledChange
	applied map[int]bool
}

// NewSchedule validates and indexes changes; changes sharing a time keep their order
func NewSchedule(changes []ScheduledChange) (*Schedule, error) {
	s := &Schedule{byTime: make(map[int][]ScheduledChange), applied: make(map[int]bool)}
	for _, c := range changes {
		if c.Time < 0 {
			return nil, shared.NewConfigError("changes", fmt.Sprintf("negative change time %d", c.Time))
		}
		switch c.Kind {
		case ChangeRecipe:
			if c.InCommod == "" || c.Recipe == "" {
				return nil, shared.NewConfigError("changes", "recipe change needs in_commodity and recipe")
			}
		case ChangePreference:
			if c.InCommod == "" || c.Preference < 0 {
				return nil, shared.NewConfigError("changes", "preference change needs in_commodity and a non-negative weight")
			}
		case ChangeSourcePrefs:
			if c.Nuclide == 0 || len(c.Sources) == 0 {
				return nil, shared.NewConfigError("changes", "source change needs a nuclide and sources")
			}
		default:
			return nil, shared.NewConfigError("changes", fmt.Sprintf("unknown change kind %q", c.Kind))
		}
		s.byTime[c.Time] = append(s.byTime[c.Time], c)
	}
	return s, nil
}

// Due returns the changes scheduled at exactly t, once
func (s *Schedule) Due(t int) []ScheduledChange {
	if s.applied[t] {
		return nil
	}
	changes := s.byTime[t]
	if len(changes) == 0 {
		return nil
	}
	s.applied[t] = true
	return changes
}

// Pending returns the times that still have changes to apply, ascending
func (s *Schedule) Pending() []int {
	var times []int
	for t := range s.byTime {
		if !s.applied[t] {
			times = append(times, t)
		}
	}
	sort.Ints(times)
	return times
}
