package simulation

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/andrescamacho/facsim-go/internal/adapters/metrics"
	"github.com/andrescamacho/facsim-go/internal/application/common"
	"github.com/andrescamacho/facsim-go/internal/application/deployment"
	"github.com/andrescamacho/facsim-go/internal/domain/facility"
	"github.com/andrescamacho/facsim-go/internal/domain/market"
	"github.com/andrescamacho/facsim-go/internal/domain/simulation"
)

var tracer = otel.Tracer("facsim.simulation")

// Result summarises a finished run
type Result struct {
	RunID     string
	Scenario  string
	Steps     int
	Final     []facility.Snapshot
	Withdrawn map[string]float64
}

// Runner drives every facility of a scenario through the step order
// Tick → supply exchange → Tock → demand exchange → decommission rules.
type Runner struct {
	scenario   *simulation.Scenario
	facilities []*facility.Facility
	exchange   *ScriptedExchange
	advisor    *deployment.Advisor
	recorder   simulation.SnapshotRecorder
	limiter    *rate.Limiter
	runID      string
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithSnapshotRecorder records every facility snapshot at the end of each step
func WithSnapshotRecorder(recorder simulation.SnapshotRecorder) RunnerOption {
	return func(r *Runner) { r.recorder = recorder }
}

// WithStepRate paces the run to at most stepsPerSecond; zero or less runs unpaced
func WithStepRate(stepsPerSecond float64) RunnerOption {
	return func(r *Runner) {
		if stepsPerSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(stepsPerSecond), 1)
		}
	}
}

// NewRunner validates the scenario, builds its facilities and deploys them at step 0
func NewRunner(scenario *simulation.Scenario, opts ...RunnerOption) (*Runner, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		scenario: scenario,
		exchange: NewScriptedExchange(scenario.Recipes, scenario.Deliveries, scenario.Withdrawals),
		advisor:  deployment.NewAdvisor(scenario.Rules),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, def := range scenario.Facilities {
		f, err := facility.New(def, scenario.Recipes)
		if err != nil {
			return nil, fmt.Errorf("failed to build facility %s: %w", def.ID, err)
		}
		if err := f.Deploy(0); err != nil {
			return nil, fmt.Errorf("failed to deploy facility %s: %w", def.ID, err)
		}
		r.facilities = append(r.facilities, f)
	}
	return r, nil
}

func (r *Runner) Facilities() []*facility.Facility { return r.facilities }
func (r *Runner) Exchange() *ScriptedExchange      { return r.exchange }

// Run executes every step of the scenario, driving the run through its lifecycle
func (r *Runner) Run(ctx context.Context, run *simulation.Run) (*Result, error) {
	logger := common.LoggerFromContext(ctx)
	r.runID = run.ID()

	ctx, span := tracer.Start(ctx, "simulation.Run",
		trace.WithAttributes(
			attribute.String("scenario", r.scenario.Name),
			attribute.String("run_id", run.ID()),
			attribute.Int("duration", r.scenario.Duration),
			attribute.Int("facilities", len(r.facilities)),
		),
	)
	defer span.End()

	if err := run.Start(); err != nil {
		return nil, err
	}
	logger.Log("INFO", "Simulation run started", map[string]interface{}{
		"run_id":     run.ID(),
		"scenario":   r.scenario.Name,
		"duration":   r.scenario.Duration,
		"facilities": len(r.facilities),
	})

	for t := 0; t < r.scenario.Duration; t++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return r.abort(ctx, span, run, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return r.abort(ctx, span, run, err)
		}
		if err := r.Step(ctx, t); err != nil {
			_ = run.Fail(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			fields := map[string]interface{}{
				"run_id": run.ID(),
				"step":   t,
				"error":  err.Error(),
			}
			var hookErr *HookError
			if errors.As(err, &hookErr) {
				hookErr.describe(fields)
			}
			logger.Log("ERROR", "Simulation run failed", fields)
			return nil, err
		}
		if err := run.Advance(t); err != nil {
			return nil, err
		}
	}

	if err := run.Complete(); err != nil {
		return nil, err
	}
	span.SetStatus(codes.Ok, "")

	result := &Result{
		RunID:     run.ID(),
		Scenario:  r.scenario.Name,
		Steps:     r.scenario.Duration,
		Withdrawn: r.exchange.Withdrawn(),
	}
	for _, f := range r.facilities {
		result.Final = append(result.Final, f.Snapshot())
	}
	logger.Log("INFO", "Simulation run completed", map[string]interface{}{
		"run_id":  run.ID(),
		"steps":   result.Steps,
		"runtime": run.RuntimeDuration().String(),
	})
	return result, nil
}

func (r *Runner) abort(ctx context.Context, span trace.Span, run *simulation.Run, err error) (*Result, error) {
	_ = run.Stop()
	span.RecordError(err)
	span.SetStatus(codes.Error, "context canceled")
	common.LoggerFromContext(ctx).Log("WARNING", "Simulation run stopped", map[string]interface{}{
		"run_id": run.ID(),
		"step":   run.CurrentStep(),
	})
	return nil, err
}

// Step executes one simulation step across all facilities
func (r *Runner) Step(ctx context.Context, t int) error {
	ctx, span := tracer.Start(ctx, "simulation.Step", trace.WithAttributes(attribute.Int("step", t)))
	defer span.End()

	phases := make(map[string]facility.Phase, len(r.facilities))
	for _, f := range r.facilities {
		phases[f.ID()] = f.Phase()
	}

	if err := r.each(ctx, "tick", func(ctx context.Context, f *facility.Facility) error {
		return f.Tick(ctx, t)
	}); err != nil {
		return r.fail(span, err)
	}
	if err := r.each(ctx, "supply", func(ctx context.Context, f *facility.Facility) error {
		responses, err := r.exchange.Supply(ctx, t, f)
		r.recordTrades(f, responses, metrics.DirectionReceived)
		return err
	}); err != nil {
		return r.fail(span, err)
	}
	if err := r.each(ctx, "tock", func(ctx context.Context, f *facility.Facility) error {
		return f.Tock(ctx, t)
	}); err != nil {
		return r.fail(span, err)
	}
	if err := r.each(ctx, "demand", func(ctx context.Context, f *facility.Facility) error {
		responses, err := r.exchange.Demand(ctx, t, f)
		r.recordTrades(f, responses, metrics.DirectionShipped)
		return err
	}); err != nil {
		return r.fail(span, err)
	}

	r.advisor.Apply(ctx, t, r.facilities)

	logger := common.LoggerFromContext(ctx)
	for _, f := range r.facilities {
		snap := f.Snapshot()
		report := f.LastStep()
		metrics.RecordFacilityStep(r.scenario.Name, snap, report)
		if r.recorder != nil {
			if err := r.recorder.Record(ctx, r.runID, snap); err != nil {
				return r.fail(span, fmt.Errorf("failed to record snapshot of %s: %w", f.ID(), err))
			}
		}
		if before := phases[f.ID()]; before != f.Phase() {
			logger.Log("INFO", fmt.Sprintf("Facility %s is %s", f.ID(), f.PhaseDescription()), map[string]interface{}{
				"facility": f.ID(),
				"step":     t,
				"from":     before.String(),
				"to":       f.Phase().String(),
			})
		}
		for _, change := range report.AppliedChanges {
			logger.Log("INFO", "Scheduled change applied", map[string]interface{}{
				"facility": f.ID(),
				"change":   change.String(),
			})
		}
	}
	return nil
}

// each runs one hook on every facility in a child span
func (r *Runner) each(ctx context.Context, hook string, fn func(context.Context, *facility.Facility) error) error {
	ctx, span := tracer.Start(ctx, "simulation."+hook)
	defer span.End()

	for _, f := range r.facilities {
		if err := fn(ctx, f); err != nil {
			metrics.RecordFacilityError(r.scenario.Name, f.ID(), hook)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return &HookError{Hook: hook, Facility: f, Err: err}
		}
	}
	return nil
}

// HookError is a facility hook failure, kept with the facility so its state can be reported
type HookError struct {
	Hook     string
	Facility *facility.Facility
	Err      error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s of %s failed: %v", e.Hook, e.Facility.ID(), e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// describe adds the facility's phase and buffer state to log metadata
func (e *HookError) describe(fields map[string]interface{}) {
	snap := e.Facility.Snapshot()
	fields["facility"] = snap.FacilityID
	fields["hook"] = e.Hook
	fields["phase"] = snap.Phase
	fields["reserves_qty"] = snap.ReservesQty
	fields["reserves_lots"] = snap.ReservesLots
	fields["processing_qty"] = snap.ProcessingQty
	fields["processing_lots"] = snap.ProcessingLots
	fields["stocks_qty"] = snap.StocksQty
	fields["stocks_lots"] = snap.StocksLots
	fields["residue_qty"] = snap.ResidueQty
}

func (r *Runner) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (r *Runner) recordTrades(f *facility.Facility, responses []market.TradeResponse, direction string) {
	// accepted lots may already be blended away, so the traded amount is recorded
	for _, resp := range responses {
		metrics.RecordTrade(r.scenario.Name, f.ID(), resp.Trade.Commodity(), direction, resp.Trade.Amount)
	}
}
