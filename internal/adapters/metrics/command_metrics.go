package metrics

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/andrescamacho/facsim-go/internal/application/common"
)

// CommandMetricsCollector times simulation commands and queries dispatched through the mediator
type CommandMetricsCollector struct {
	commandDuration *prometheus.HistogramVec
	commandsTotal   *prometheus.CounterVec
}

func NewCommandMetricsCollector() *CommandMetricsCollector {
	return &CommandMetricsCollector{
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "command_duration_seconds",
				Help:      "Simulation command execution duration distribution",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 15.0, 60.0, 300.0},
			},
			[]string{"command", "status"},
		),
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "commands_total",
				Help:      "Simulation commands executed by type and status",
			},
			[]string{"command", "status"},
		),
	}
}

// Register registers command metrics with the global registry; a no-op when metrics are off
func (c *CommandMetricsCollector) Register() error {
	if Registry == nil {
		return nil
	}
	for _, metric := range []prometheus.Collector{c.commandDuration, c.commandsTotal} {
		if err := Registry.Register(metric); err != nil {
			return err
		}
	}
	return nil
}

func (c *CommandMetricsCollector) RecordCommandExecution(command string, duration float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	c.commandDuration.WithLabelValues(command, status).Observe(duration)
	c.commandsTotal.WithLabelValues(command, status).Inc()
}

// PrometheusMiddleware records duration and outcome of every mediator request.
// A nil collector passes requests straight through.
func PrometheusMiddleware(collector *CommandMetricsCollector) common.Middleware {
	return func(ctx context.Context, request common.Request, next common.HandlerFunc) (common.Response, error) {
		if collector == nil {
			return next(ctx, request)
		}
		start := time.Now()
		response, err := next(ctx, request)
		collector.RecordCommandExecution(commandName(request), time.Since(start).Seconds(), err == nil)
		return response, err
	}
}

// commandName strips pointer and package: "*commands.RunScenarioCommand" → "RunScenarioCommand"
func commandName(request common.Request) string {
	if request == nil {
		return "UnknownCommand"
	}
	name := strings.TrimPrefix(reflect.TypeOf(request).String(), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
