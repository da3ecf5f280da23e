package report

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/andrescamacho/facsim-go/internal/application/common"
	appsim "github.com/andrescamacho/facsim-go/internal/application/simulation"
	"github.com/andrescamacho/facsim-go/internal/domain/facility"
	"github.com/andrescamacho/facsim-go/internal/domain/simulation"
)

// Report is the summary written after each run
type Report struct {
	RunID      string              `yaml:"run_id"`
	Scenario   string              `yaml:"scenario"`
	Status     string              `yaml:"status"`
	Steps      int                 `yaml:"steps"`
	StartedAt  *time.Time          `yaml:"started_at,omitempty"`
	StoppedAt  *time.Time          `yaml:"stopped_at,omitempty"`
	Withdrawn  map[string]float64  `yaml:"withdrawn,omitempty"`
	Facilities []facility.Snapshot `yaml:"facilities"`
}

// New builds a report from a finished run and its result
func New(run *simulation.Run, result *appsim.Result) Report {
	r := Report{
		RunID:     run.ID(),
		Scenario:  run.Scenario(),
		Status:    string(run.Status()),
		Steps:     run.CurrentStep() + 1,
		StartedAt: run.StartedAt(),
		StoppedAt: run.StoppedAt(),
	}
	if result != nil {
		r.Withdrawn = result.Withdrawn
		r.Facilities = result.Final
	}
	return r
}

// Key is the object name of the report, "<scenario>/<run id>.yaml"
func (r Report) Key() string {
	return path.Join(r.Scenario, r.RunID+".yaml")
}

// Encode renders the report as YAML
func (r Report) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return buf.Bytes(), nil
}

// Sink stores an encoded report under a key
type Sink interface {
	Put(ctx context.Context, key string, body []byte) error
}

// Publisher writes every report to all of its sinks
type Publisher struct {
	sinks []Sink
}

func NewPublisher(sinks ...Sink) *Publisher {
	return &Publisher{sinks: sinks}
}

// Enabled reports whether any sink is configured
func (p *Publisher) Enabled() bool { return len(p.sinks) > 0 }

// Publish encodes the report once and writes it to each sink
func (p *Publisher) Publish(ctx context.Context, r Report) error {
	if !p.Enabled() {
		return nil
	}
	body, err := r.Encode()
	if err != nil {
		return err
	}
	for _, sink := range p.sinks {
		if err := sink.Put(ctx, r.Key(), body); err != nil {
			return fmt.Errorf("failed to publish report %s: %w", r.Key(), err)
		}
	}
	common.LoggerFromContext(ctx).Log("INFO", "Run report published", map[string]interface{}{
		"run_id": r.RunID,
		"key":    r.Key(),
		"sinks":  len(p.sinks),
	})
	return nil
}
