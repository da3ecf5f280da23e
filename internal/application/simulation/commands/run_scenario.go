package commands

import (
	"context"
	"fmt"

	"github.com/andrescamacho/facsim-go/internal/application/common"
	appsim "github.com/andrescamacho/facsim-go/internal/application/simulation"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
	"github.com/andrescamacho/facsim-go/internal/domain/simulation"
)

// RunScenarioCommand runs one scenario to completion
type RunScenarioCommand struct {
	Scenario *simulation.Scenario
	StepRate float64 // steps per second; 0 runs unpaced
}

// RunScenarioResponse carries the finished run and its result
type RunScenarioResponse struct {
	Run    *simulation.Run
	Result *appsim.Result
}

// RunScenarioHandler handles the RunScenario command
type RunScenarioHandler struct {
	runRepo   simulation.RunRepository
	recorder  simulation.SnapshotRecorder
	runLogger RunLoggerFactory
	clock     shared.Clock
}

// RunLoggerFactory builds an extra logger bound to one run, such as a
// database-backed log table keyed by run id
type RunLoggerFactory func(runID string) common.FacilityLogger

// HandlerOption configures a RunScenarioHandler
type HandlerOption func(*RunScenarioHandler)

// WithRunLogger also sends the run's log entries to a per-run logger
func WithRunLogger(factory RunLoggerFactory) HandlerOption {
	return func(h *RunScenarioHandler) { h.runLogger = factory }
}

// NewRunScenarioHandler creates a new RunScenarioHandler. Both the repository
// and the recorder are optional.
func NewRunScenarioHandler(
	runRepo simulation.RunRepository,
	recorder simulation.SnapshotRecorder,
	clock shared.Clock,
	opts ...HandlerOption,
) *RunScenarioHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}

	h := &RunScenarioHandler{
		runRepo:  runRepo,
		recorder: recorder,
		clock:    clock,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle executes the RunScenario command
func (h *RunScenarioHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*RunScenarioCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *RunScenarioCommand")
	}
	if cmd.Scenario == nil {
		return nil, fmt.Errorf("scenario is required")
	}

	run, err := simulation.NewRun(cmd.Scenario.Name, cmd.Scenario.Duration, h.clock)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	opts := []appsim.RunnerOption{appsim.WithStepRate(cmd.StepRate)}
	if h.recorder != nil {
		opts = append(opts, appsim.WithSnapshotRecorder(h.recorder))
	}
	runner, err := appsim.NewRunner(cmd.Scenario, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", cmd.Scenario.Name, err)
	}

	if h.runRepo != nil {
		if err := h.runRepo.Add(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to persist run: %w", err)
		}
	}

	if h.runLogger != nil {
		ctx = common.WithLogger(ctx, common.MultiLogger{common.LoggerFromContext(ctx), h.runLogger(run.ID())})
	}

	result, runErr := runner.Run(ctx, run)

	if h.runRepo != nil {
		// the run may have been cancelled; persist its final state regardless
		if err := h.runRepo.Update(context.WithoutCancel(ctx), run); err != nil && runErr == nil {
			return nil, fmt.Errorf("failed to persist run: %w", err)
		}
	}
	if runErr != nil {
		return nil, fmt.Errorf("run %s failed: %w", run.ID(), runErr)
	}

	return &RunScenarioResponse{Run: run, Result: result}, nil
}
