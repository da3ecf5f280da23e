package simulation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

// RunStatus is the lifecycle state of a simulation run
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusStopped   RunStatus = "STOPPED"
)

// Run tracks one execution of a scenario: PENDING → RUNNING → COMPLETED/FAILED/STOPPED.
//
// Invariants:
// - transitions only follow valid paths
// - the current step never exceeds the duration
// - timestamps come from the injected clock
type Run struct {
	id          string
	scenario    string
	duration    int
	currentStep int
	status      RunStatus
	createdAt   time.Time
	updatedAt   time.Time
	startedAt   *time.Time
	stoppedAt   *time.Time
	lastError   error
	clock       shared.Clock
}

// NewRun creates a pending run of duration steps
func NewRun(scenario string, duration int, clock shared.Clock) (*Run, error) {
	if scenario == "" {
		return nil, shared.NewValidationError("scenario", "scenario name cannot be empty")
	}
	if duration < 0 {
		return nil, shared.NewValidationError("duration", fmt.Sprintf("must be non-negative, got %d", duration))
	}
	if clock == nil {
		clock = shared.NewRealClock()
	}

	now := clock.Now()
	return &Run{
		id:          uuid.NewString(),
		scenario:    scenario,
		duration:    duration,
		currentStep: -1,
		status:      RunStatusPending,
		createdAt:   now,
		updatedAt:   now,
		clock:       clock,
	}, nil
}

// Getters

func (r *Run) ID() string            { return r.id }
func (r *Run) Scenario() string      { return r.scenario }
func (r *Run) Duration() int         { return r.duration }
func (r *Run) CurrentStep() int      { return r.currentStep }
func (r *Run) Status() RunStatus     { return r.status }
func (r *Run) CreatedAt() time.Time  { return r.createdAt }
func (r *Run) UpdatedAt() time.Time  { return r.updatedAt }
func (r *Run) StartedAt() *time.Time { return r.startedAt }
func (r *Run) StoppedAt() *time.Time { return r.stoppedAt }
func (r *Run) LastError() error      { return r.lastError }

// Start transitions from PENDING to RUNNING
func (r *Run) Start() error {
	if r.status != RunStatusPending {
		return fmt.Errorf("cannot start run from %s state", r.status)
	}

	now := r.clock.Now()
	r.status = RunStatusRunning
	r.startedAt = &now
	r.updatedAt = now
	return nil
}

// Advance records that step t has been executed
func (r *Run) Advance(t int) error {
	if r.status != RunStatusRunning {
		return fmt.Errorf("cannot advance run in %s state", r.status)
	}
	if t != r.currentStep+1 {
		return fmt.Errorf("steps must advance one at a time: at %d, got %d", r.currentStep, t)
	}
	if t >= r.duration {
		return fmt.Errorf("step %d is beyond the run duration %d", t, r.duration)
	}
	r.currentStep = t
	r.updatedAt = r.clock.Now()
	return nil
}

// Complete transitions from RUNNING to COMPLETED
func (r *Run) Complete() error {
	if r.status != RunStatusRunning {
		return fmt.Errorf("cannot complete run from %s state", r.status)
	}

	now := r.clock.Now()
	r.status = RunStatusCompleted
	r.stoppedAt = &now
	r.updatedAt = now
	return nil
}

// Fail transitions to FAILED from any non-terminal state
func (r *Run) Fail(err error) error {
	if r.IsFinished() {
		return fmt.Errorf("cannot fail run from %s state", r.status)
	}

	now := r.clock.Now()
	r.status = RunStatusFailed
	r.lastError = err
	r.stoppedAt = &now
	r.updatedAt = now
	return nil
}

// Stop transitions to STOPPED from any non-terminal state
func (r *Run) Stop() error {
	if r.IsFinished() {
		return fmt.Errorf("cannot stop run from %s state", r.status)
	}

	now := r.clock.Now()
	r.status = RunStatusStopped
	r.stoppedAt = &now
	r.updatedAt = now
	return nil
}

func (r *Run) IsRunning() bool {
	return r.status == RunStatusRunning
}

// IsFinished returns true once the run has completed, failed or stopped
func (r *Run) IsFinished() bool {
	return r.status == RunStatusCompleted ||
		r.status == RunStatusFailed ||
		r.status == RunStatusStopped
}

// RuntimeDuration returns wall time spent running, 0 if not started
func (r *Run) RuntimeDuration() time.Duration {
	if r.startedAt == nil {
		return 0
	}

	endTime := r.clock.Now()
	if r.stoppedAt != nil {
		endTime = *r.stoppedAt
	}
	return endTime.Sub(*r.startedAt)
}

// RecoverRun rebuilds a run from persisted data
func RecoverRun(
	id, scenario string,
	duration, currentStep int,
	status RunStatus,
	createdAt, updatedAt time.Time,
	startedAt, stoppedAt *time.Time,
	lastError error,
	clock shared.Clock,
) *Run {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Run{
		id:          id,
		scenario:    scenario,
		duration:    duration,
		currentStep: currentStep,
		status:      status,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
		startedAt:   startedAt,
		stoppedAt:   stoppedAt,
		lastError:   lastError,
		clock:       clock,
	}
}
