package config

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/viper"

	"github.com/andrescamacho/facsim-go/internal/domain/facility"
	"github.com/andrescamacho/facsim-go/internal/domain/material"
	"github.com/andrescamacho/facsim-go/internal/domain/recipe"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
	"github.com/andrescamacho/facsim-go/internal/domain/simulation"
)

// ScenarioFile is the on-disk layout of a scenario. Lists are used instead of
// maps wherever a key is a commodity name, since viper folds map keys to lower case.
type ScenarioFile struct {
	Name        string         `mapstructure:"name" yaml:"name" validate:"required"`
	Duration    int            `mapstructure:"duration" yaml:"duration" validate:"min=0"`
	Recipes     []RecipeFile   `mapstructure:"recipes" yaml:"recipes" validate:"required,min=1,dive"`
	Facilities  []FacilityFile `mapstructure:"facilities" yaml:"facilities" validate:"required,min=1,dive"`
	Rules       []RuleFile     `mapstructure:"decommission_rules" yaml:"decommission_rules,omitempty" validate:"dive"`
	Deliveries  []FeedFile     `mapstructure:"deliveries" yaml:"deliveries,omitempty" validate:"dive"`
	Withdrawals []FeedFile     `mapstructure:"withdrawals" yaml:"withdrawals,omitempty" validate:"dive"`
}

// RecipeFile is a named composition keyed by nuclide id (ZZAAA)
type RecipeFile struct {
	Name        string             `mapstructure:"name" yaml:"name" validate:"required"`
	Composition map[string]float64 `mapstructure:"composition" yaml:"composition" validate:"required,min=1"`
}

// FacilityFile declares one facility prototype. Count > 1 deploys instances
// named "<id>-1" .. "<id>-<count>".
type FacilityFile struct {
	ID               string           `mapstructure:"id" yaml:"id" validate:"required"`
	Variant          string           `mapstructure:"variant" yaml:"variant" validate:"required,variant"`
	Count            int              `mapstructure:"count" yaml:"count,omitempty" validate:"min=0"`
	ProcessTime      int              `mapstructure:"process_time" yaml:"process_time" validate:"min=0"`
	Capacity         *float64         `mapstructure:"capacity" yaml:"capacity,omitempty" validate:"omitempty,gte=0"`
	Lifetime         int              `mapstructure:"lifetime" yaml:"lifetime,omitempty"`
	InventoryPolicy  string           `mapstructure:"inventory_policy" yaml:"inventory_policy,omitempty" validate:"omitempty,oneof=reserves reserves_processing all"`
	ParkWhenIdle     *bool            `mapstructure:"park_when_idle" yaml:"park_when_idle,omitempty"`
	Commodities      []PairFile       `mapstructure:"commodities" yaml:"commodities" validate:"required,min=1,dive"`
	OutCommodity     string           `mapstructure:"out_commodity" yaml:"out_commodity,omitempty"`
	OutRecipe        string           `mapstructure:"out_recipe" yaml:"out_recipe,omitempty"`
	OutElements      []ElementFile    `mapstructure:"out_elements" yaml:"out_elements,omitempty" validate:"dive"`
	SourcePrefs      []SourcePrefFile `mapstructure:"source_prefs" yaml:"source_prefs,omitempty" validate:"dive"`
	CommodityPrefs   []PreferenceFile `mapstructure:"commodity_prefs" yaml:"commodity_prefs,omitempty" validate:"dive"`
	ResidueCommodity string           `mapstructure:"residue_commodity" yaml:"residue_commodity,omitempty"`
	Production       []ProductionFile `mapstructure:"production" yaml:"production,omitempty" validate:"dive"`
	Changes          []ChangeFile     `mapstructure:"changes" yaml:"changes,omitempty" validate:"dive"`
	Initial          []InitialFile    `mapstructure:"initial" yaml:"initial,omitempty" validate:"dive"`
}

type PairFile struct {
	In        string `mapstructure:"in" yaml:"in" validate:"required"`
	InRecipe  string `mapstructure:"in_recipe" yaml:"in_recipe" validate:"required"`
	Out       string `mapstructure:"out" yaml:"out,omitempty"`
	OutRecipe string `mapstructure:"out_recipe" yaml:"out_recipe,omitempty"`
}

type ElementFile struct {
	Commodity string `mapstructure:"commodity" yaml:"commodity" validate:"required"`
	Z         int    `mapstructure:"z" yaml:"z" validate:"min=1"`
}

type SourcePrefFile struct {
	Nuclide int      `mapstructure:"nuclide" yaml:"nuclide" validate:"nuclide"`
	Sources []string `mapstructure:"sources" yaml:"sources" validate:"required,min=1"`
}

type PreferenceFile struct {
	Commodity  string  `mapstructure:"commodity" yaml:"commodity" validate:"required"`
	Preference float64 `mapstructure:"preference" yaml:"preference" validate:"gte=0"`
}

type ProductionFile struct {
	Commodity string  `mapstructure:"commodity" yaml:"commodity" validate:"required"`
	Capacity  float64 `mapstructure:"capacity" yaml:"capacity" validate:"gte=0"`
	Cost      float64 `mapstructure:"cost" yaml:"cost,omitempty" validate:"gte=0"`
}

type ChangeFile struct {
	Time        int      `mapstructure:"time" yaml:"time" validate:"min=0"`
	Kind        string   `mapstructure:"kind" yaml:"kind" validate:"required,oneof=recipe preference source_prefs"`
	InCommodity string   `mapstructure:"in_commodity" yaml:"in_commodity,omitempty"`
	Recipe      string   `mapstructure:"recipe" yaml:"recipe,omitempty"`
	Preference  float64  `mapstructure:"preference" yaml:"preference,omitempty"`
	Nuclide     int      `mapstructure:"nuclide" yaml:"nuclide,omitempty" validate:"omitempty,nuclide"`
	Sources     []string `mapstructure:"sources" yaml:"sources,omitempty"`
}

type InitialFile struct {
	Stage     string  `mapstructure:"stage" yaml:"stage" validate:"required,oneof=reserves processing stocks"`
	Commodity string  `mapstructure:"commodity" yaml:"commodity" validate:"required"`
	Recipe    string  `mapstructure:"recipe" yaml:"recipe" validate:"required"`
	Quantity  float64 `mapstructure:"quantity" yaml:"quantity" validate:"gt=0"`
	Count     int     `mapstructure:"count" yaml:"count,omitempty" validate:"min=0"`
}

type RuleFile struct {
	Prototype string  `mapstructure:"prototype" yaml:"prototype" validate:"required"`
	Commodity string  `mapstructure:"commodity" yaml:"commodity" validate:"required"`
	Quantity  float64 `mapstructure:"quantity" yaml:"quantity" validate:"gt=0"`
}

// FeedFile is one scripted delivery or withdrawal
type FeedFile struct {
	Time      int     `mapstructure:"time" yaml:"time" validate:"min=0"`
	Facility  string  `mapstructure:"facility" yaml:"facility" validate:"required"`
	Commodity string  `mapstructure:"commodity" yaml:"commodity" validate:"required"`
	Recipe    string  `mapstructure:"recipe" yaml:"recipe" validate:"required"`
	Quantity  float64 `mapstructure:"quantity" yaml:"quantity" validate:"gt=0"`
}

// LoadScenarioFile reads and validates a scenario file without building it
func LoadScenarioFile(path string) (*ScenarioFile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}

	var file ScenarioFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, shared.NewConfigError("scenario", fmt.Sprintf("%s: %v", path, err))
	}
	if err := NewValidator().Validate(&file); err != nil {
		return nil, shared.NewConfigError("scenario", fmt.Sprintf("%s: %v", path, err))
	}
	return &file, nil
}

// LoadScenario reads a scenario file and builds it, filling the duration
// from sim when the file has none.
func LoadScenario(path string, sim SimulationConfig) (*simulation.Scenario, error) {
	file, err := LoadScenarioFile(path)
	if err != nil {
		return nil, err
	}
	file.Normalize(sim)
	return file.Build()
}

// Normalize fills defaults and expands counted facilities into named instances
func (f *ScenarioFile) Normalize(sim SimulationConfig) {
	if f.Duration == 0 {
		f.Duration = sim.Duration
	}

	var expanded []FacilityFile
	for _, fac := range f.Facilities {
		if fac.Count <= 1 {
			fac.Count = 0
			expanded = append(expanded, fac)
			continue
		}
		for i := 1; i <= fac.Count; i++ {
			instance := fac
			instance.ID = fmt.Sprintf("%s-%d", fac.ID, i)
			instance.Count = 0
			expanded = append(expanded, instance)
		}
	}
	f.Facilities = expanded
}

// Build converts the file into a validated scenario
func (f *ScenarioFile) Build() (*simulation.Scenario, error) {
	reg := recipe.NewRegistry()
	for _, r := range f.Recipes {
		comp, err := parseComposition(r.Composition)
		if err != nil {
			return nil, shared.NewConfigError("recipes", fmt.Sprintf("%s: %v", r.Name, err))
		}
		if err := reg.Add(r.Name, comp); err != nil {
			return nil, err
		}
	}

	scenario := &simulation.Scenario{
		Name:     f.Name,
		Duration: f.Duration,
		Recipes:  reg,
	}
	for _, fac := range f.Facilities {
		def := fac.definition()
		if err := def.Validate(); err != nil {
			return nil, err
		}
		scenario.Facilities = append(scenario.Facilities, def)
	}
	for _, r := range f.Rules {
		scenario.Rules = append(scenario.Rules, simulation.DecommissionRule{
			Prototype: r.Prototype,
			Commodity: r.Commodity,
			Quantity:  r.Quantity,
		})
	}
	for _, d := range f.Deliveries {
		scenario.Deliveries = append(scenario.Deliveries, simulation.Delivery(d))
	}
	for _, w := range f.Withdrawals {
		scenario.Withdrawals = append(scenario.Withdrawals, simulation.Withdrawal(w))
	}

	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return scenario, nil
}

func (f FacilityFile) definition() facility.Definition {
	def := facility.Definition{
		ID:               f.ID,
		Variant:          facility.Variant(f.Variant),
		ProcessTime:      f.ProcessTime,
		Capacity:         math.Inf(1),
		Lifetime:         f.Lifetime,
		InventoryPolicy:  facility.InventoryPolicy(f.InventoryPolicy),
		ParkWhenIdle:     f.ParkWhenIdle,
		OutCommodity:     f.OutCommodity,
		OutRecipe:        f.OutRecipe,
		ResidueCommodity: f.ResidueCommodity,
	}
	if f.Capacity != nil {
		def.Capacity = *f.Capacity
	}
	for _, p := range f.Commodities {
		def.Commodities = append(def.Commodities, facility.CommodityPair{
			In: p.In, InRecipe: p.InRecipe, Out: p.Out, OutRecipe: p.OutRecipe,
		})
	}
	for _, e := range f.OutElements {
		def.OutElements = append(def.OutElements, facility.ElementOutput{Commodity: e.Commodity, Z: e.Z})
	}
	if len(f.SourcePrefs) > 0 {
		def.SourcePrefs = make(map[material.Nuclide][]string, len(f.SourcePrefs))
		for _, sp := range f.SourcePrefs {
			def.SourcePrefs[material.Nuclide(sp.Nuclide)] = append([]string(nil), sp.Sources...)
		}
	}
	if len(f.CommodityPrefs) > 0 {
		def.CommodityPrefs = make(map[string]float64, len(f.CommodityPrefs))
		for _, cp := range f.CommodityPrefs {
			def.CommodityPrefs[cp.Commodity] = cp.Preference
		}
	}
	for _, p := range f.Production {
		def.Production = append(def.Production, facility.ProductionDeclaration{
			Commodity:       p.Commodity,
			ProductionEntry: facility.ProductionEntry{Capacity: p.Capacity, Cost: p.Cost},
		})
	}
	for _, c := range f.Changes {
		def.Changes = append(def.Changes, facility.ScheduledChange{
			Time:       c.Time,
			Kind:       facility.ChangeKind(c.Kind),
			InCommod:   c.InCommodity,
			Recipe:     c.Recipe,
			Preference: c.Preference,
			Nuclide:    material.Nuclide(c.Nuclide),
			Sources:    c.Sources,
		})
	}
	for _, in := range f.Initial {
		def.Initial = append(def.Initial, facility.InitialLot{
			Stage:     facility.Stage(in.Stage),
			Commodity: in.Commodity,
			Recipe:    in.Recipe,
			Quantity:  in.Quantity,
			Count:     in.Count,
		})
	}
	return def
}

func parseComposition(raw map[string]float64) (material.Composition, error) {
	masses := make(map[material.Nuclide]float64, len(raw))
	for k, mass := range raw {
		id, err := strconv.Atoi(k)
		if err != nil || id <= 0 {
			return material.Composition{}, fmt.Errorf("bad nuclide id %q", k)
		}
		masses[material.Nuclide(id)] = mass
	}
	return material.NewComposition(masses)
}
