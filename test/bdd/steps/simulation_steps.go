package steps

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/cucumber/godog"
	messages "github.com/cucumber/messages/go/v21"
	"gopkg.in/yaml.v3"

	appsim "github.com/andrescamacho/facsim-go/internal/application/simulation"
	"github.com/andrescamacho/facsim-go/internal/domain/facility"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
	"github.com/andrescamacho/facsim-go/internal/domain/simulation"
	"github.com/andrescamacho/facsim-go/internal/infrastructure/config"
)

// defaultSimulation fills scenarios that leave out their duration
var defaultSimulation = config.SimulationConfig{Duration: 10, Parallelism: 1}

type simulationContext struct {
	scenario *simulation.Scenario
	runner   *appsim.Runner
	next     int
	err      error
}

func (sc *simulationContext) reset() {
	sc.scenario = nil
	sc.runner = nil
	sc.next = 0
	sc.err = nil
}

// buildScenario parses a scenario document the same way scenario files are loaded
func buildScenario(doc *messages.PickleDocString) (*simulation.Scenario, error) {
	var file config.ScenarioFile
	if err := yaml.Unmarshal([]byte(doc.Content), &file); err != nil {
		return nil, fmt.Errorf("invalid scenario document: %w", err)
	}
	if err := config.NewValidator().Validate(&file); err != nil {
		return nil, err
	}
	file.Normalize(defaultSimulation)
	return file.Build()
}

// tableRows maps every data row of a table by its header cells
func tableRows(table *messages.PickleTable) []map[string]string {
	if len(table.Rows) == 0 {
		return nil
	}
	header := table.Rows[0].Cells
	rows := make([]map[string]string, 0, len(table.Rows)-1)
	for _, row := range table.Rows[1:] {
		m := make(map[string]string, len(header))
		for i, cell := range row.Cells {
			m[header[i].Value] = cell.Value
		}
		rows = append(rows, m)
	}
	return rows
}

func (sc *simulationContext) theScenario(doc *messages.PickleDocString) error {
	scenario, err := buildScenario(doc)
	if err != nil {
		return err
	}
	sc.scenario = scenario
	sc.runner, err = appsim.NewRunner(scenario)
	return err
}

func (sc *simulationContext) iTryToLoadTheScenario(doc *messages.PickleDocString) error {
	scenario, err := buildScenario(doc)
	if err == nil {
		_, err = appsim.NewRunner(scenario)
	}
	sc.err = err
	return nil
}

func (sc *simulationContext) loadingShouldFailOnField(field string) error {
	if sc.err == nil {
		return fmt.Errorf("expected a configuration error on %q but loading succeeded", field)
	}
	var cErr *shared.ConfigError
	if !errors.As(sc.err, &cErr) {
		return fmt.Errorf("expected a configuration error, got %v", sc.err)
	}
	if cErr.Field != field {
		return fmt.Errorf("expected error on field %q, got %q (%v)", field, cErr.Field, sc.err)
	}
	return nil
}

func (sc *simulationContext) iRunSteps(n int) error {
	if sc.runner == nil {
		return fmt.Errorf("no scenario loaded")
	}
	ctx := context.Background()
	for i := 0; i < n; i++ {
		if err := sc.runner.Step(ctx, sc.next); err != nil {
			return fmt.Errorf("step %d failed: %w", sc.next, err)
		}
		sc.next++
	}
	return nil
}

func (sc *simulationContext) facility(id string) (*facility.Facility, error) {
	if sc.runner == nil {
		return nil, fmt.Errorf("no scenario loaded")
	}
	for _, f := range sc.runner.Facilities() {
		if f.ID() == id {
			return f, nil
		}
	}
	return nil, fmt.Errorf("facility %s not found", id)
}

// stageQuantity reads the quantity of a commodity in one stage; the residue
// stage ignores the commodity
func stageQuantity(f *facility.Facility, stage, commod string) (float64, error) {
	stages := f.Stages()
	switch stage {
	case "reserves":
		return stages.Reserves.QuantityOf(commod), nil
	case "processing":
		total := 0.0
		for _, t := range stages.ProcessingTimes() {
			if batch, ok := stages.ProcessingAt(t); ok {
				total += batch.QuantityOf(commod)
			}
		}
		return total, nil
	case "stocks":
		return stages.Stocks.QuantityOf(commod), nil
	case "residue":
		return stages.Residue.Quantity(), nil
	default:
		return 0, fmt.Errorf("unknown stage %q", stage)
	}
}

func (sc *simulationContext) facilityShouldHold(id string, table *messages.PickleTable) error {
	f, err := sc.facility(id)
	if err != nil {
		return err
	}
	for _, row := range tableRows(table) {
		want, err := strconv.ParseFloat(row["quantity"], 64)
		if err != nil {
			return fmt.Errorf("invalid quantity %q: %w", row["quantity"], err)
		}
		got, err := stageQuantity(f, row["stage"], row["commodity"])
		if err != nil {
			return err
		}
		if math.Abs(got-want) > 1e-6 {
			return fmt.Errorf("%s %s of %s: expected %.4f kg, got %.4f kg", id, row["stage"], row["commodity"], want, got)
		}
	}
	return nil
}

func (sc *simulationContext) facilityShouldBeInPhase(id, phase string) error {
	f, err := sc.facility(id)
	if err != nil {
		return err
	}
	if f.Phase().String() != phase {
		return fmt.Errorf("expected %s in phase %s, got %s", id, phase, f.Phase())
	}
	return nil
}

func (sc *simulationContext) stockLotsShouldWeigh(id string, count int, commod string, qty float64) error {
	f, err := sc.facility(id)
	if err != nil {
		return err
	}
	buf, ok := f.Stages().Stocks.Lookup(commod)
	if !ok {
		return fmt.Errorf("%s holds no %s", id, commod)
	}
	if buf.Count() != count {
		return fmt.Errorf("expected %d lots of %s, got %d", count, commod, buf.Count())
	}
	for _, lot := range buf.Lots() {
		if math.Abs(lot.Quantity()-qty) > 1e-6 {
			return fmt.Errorf("expected every %s lot to weigh %.4f kg, got %.4f kg", commod, qty, lot.Quantity())
		}
	}
	return nil
}

func (sc *simulationContext) kgShouldHaveBeenWithdrawn(qty float64, commod string) error {
	got := sc.runner.Exchange().Withdrawn()[commod]
	if math.Abs(got-qty) > 1e-6 {
		return fmt.Errorf("expected %.4f kg of %s withdrawn, got %.4f kg", qty, commod, got)
	}
	return nil
}

func (sc *simulationContext) materialShouldBeConserved(id string, total float64) error {
	f, err := sc.facility(id)
	if err != nil {
		return err
	}
	withdrawn := 0.0
	for _, qty := range sc.runner.Exchange().Withdrawn() {
		withdrawn += qty
	}
	got := f.Stages().TotalQuantity() + withdrawn
	if math.Abs(got-total) > 1e-6 {
		return fmt.Errorf("expected %.4f kg accounted for, got %.4f kg", total, got)
	}
	return nil
}

func InitializeSimulationScenario(ctx *godog.ScenarioContext) {
	sc := &simulationContext{}

	ctx.Before(func(gCtx context.Context, s *godog.Scenario) (context.Context, error) {
		sc.reset()
		return gCtx, nil
	})

	// Setup steps
	ctx.Step(`^the scenario:$`, sc.theScenario)
	ctx.Step(`^I try to load the scenario:$`, sc.iTryToLoadTheScenario)

	// Action steps
	ctx.Step(`^I run (\d+) steps?$`, sc.iRunSteps)

	// Assertion steps
	ctx.Step(`^loading should fail on "([^"]*)"$`, sc.loadingShouldFailOnField)
	ctx.Step(`^facility "([^"]*)" should hold:$`, sc.facilityShouldHold)
	ctx.Step(`^facility "([^"]*)" should be in phase "([^"]*)"$`, sc.facilityShouldBeInPhase)
	ctx.Step(`^facility "([^"]*)" should stock (\d+) lots of "([^"]*)" weighing (\d+(?:\.\d+)?) kg each$`, sc.stockLotsShouldWeigh)
	ctx.Step(`^(\d+(?:\.\d+)?) kg of "([^"]*)" should have been withdrawn$`, sc.kgShouldHaveBeenWithdrawn)
	ctx.Step(`^facility "([^"]*)" and the exchange should account for (\d+(?:\.\d+)?) kg$`, sc.materialShouldBeConserved)
}
