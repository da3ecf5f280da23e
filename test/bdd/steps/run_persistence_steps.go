package steps

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
	messages "github.com/cucumber/messages/go/v21"

	"github.com/andrescamacho/facsim-go/internal/adapters/persistence"
	"github.com/andrescamacho/facsim-go/internal/application/common"
	"github.com/andrescamacho/facsim-go/internal/application/simulation/commands"
	"github.com/andrescamacho/facsim-go/internal/application/simulation/queries"
	"github.com/andrescamacho/facsim-go/test/helpers"
)

type runPersistenceContext struct {
	runs      *persistence.GormRunRepository
	snapshots *persistence.GormSnapshotRepository
	logs      *persistence.GormFacilityLogRepository
	mediator  common.Mediator
	runID     string
	err       error
}

func (rc *runPersistenceContext) reset() {
	*rc = runPersistenceContext{}
}

func (rc *runPersistenceContext) aRunDatabase() error {
	if err := helpers.TruncateAllTables(); err != nil {
		return err
	}
	db := helpers.SharedTestDB
	rc.runs = persistence.NewGormRunRepository(db, nil)
	rc.snapshots = persistence.NewGormSnapshotRepository(db)
	rc.logs = persistence.NewGormFacilityLogRepository(db, nil)

	rc.mediator = common.NewMediator()
	rc.mediator.Use(common.LoggingMiddleware)
	if err := common.RegisterHandler[*commands.RunScenarioCommand](rc.mediator,
		commands.NewRunScenarioHandler(rc.runs, rc.snapshots, nil, commands.WithRunLogger(rc.logs.ForRun))); err != nil {
		return err
	}
	return common.RegisterHandler[*queries.GetRunHistoryQuery](rc.mediator,
		queries.NewGetRunHistoryHandler(rc.runs, rc.snapshots))
}

func (rc *runPersistenceContext) iRunTheScenario(doc *messages.PickleDocString) error {
	scenario, err := buildScenario(doc)
	if err != nil {
		return err
	}
	resp, err := rc.mediator.Send(context.Background(), &commands.RunScenarioCommand{Scenario: scenario})
	if err != nil {
		rc.err = err
		return nil
	}
	rc.runID = resp.(*commands.RunScenarioResponse).Run.ID()
	return nil
}

func (rc *runPersistenceContext) theStoredRunShouldBe(status string) error {
	if rc.err != nil {
		return fmt.Errorf("run failed: %w", rc.err)
	}
	run, err := rc.runs.FindByID(context.Background(), rc.runID)
	if err != nil {
		return err
	}
	if string(run.Status()) != status {
		return fmt.Errorf("expected run status %s, got %s", status, run.Status())
	}
	return nil
}

func (rc *runPersistenceContext) snapshotsShouldBeRecordedForFacility(count int, id string) error {
	resp, err := rc.mediator.Send(context.Background(), &queries.GetRunHistoryQuery{RunID: rc.runID, Facility: id})
	if err != nil {
		return err
	}
	history := resp.(*queries.GetRunHistoryResponse)
	if len(history.Snapshots) != count {
		return fmt.Errorf("expected %d snapshots of %s, got %d", count, id, len(history.Snapshots))
	}
	for i, snap := range history.Snapshots {
		if snap.Time != i {
			return fmt.Errorf("snapshot %d recorded at time %d", i, snap.Time)
		}
	}
	return nil
}

func (rc *runPersistenceContext) theRunLogShouldContain(level, message string) error {
	filter := level
	entries, err := rc.logs.GetLogs(context.Background(), rc.runID, 0, 0, &filter)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Message == message {
			return nil
		}
	}
	return fmt.Errorf("no %s log %q among %d entries", level, message, len(entries))
}

func InitializeRunPersistenceScenario(ctx *godog.ScenarioContext) {
	rc := &runPersistenceContext{}

	ctx.Before(func(gCtx context.Context, s *godog.Scenario) (context.Context, error) {
		rc.reset()
		return gCtx, nil
	})

	ctx.Step(`^a run database$`, rc.aRunDatabase)
	ctx.Step(`^I run the scenario through the mediator:$`, rc.iRunTheScenario)
	ctx.Step(`^the stored run should be "([^"]*)"$`, rc.theStoredRunShouldBe)
	ctx.Step(`^(\d+) snapshots should be recorded for facility "([^"]*)"$`, rc.snapshotsShouldBeRecordedForFacility)
	ctx.Step(`^the run log should contain (\w+) "([^"]*)"$`, rc.theRunLogShouldContain)
}
