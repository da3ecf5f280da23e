package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/andrescamacho/facsim-go/internal/domain/facility"
)

// Trade directions
const (
	DirectionReceived = "received"
	DirectionShipped  = "shipped"
)

var allPhases = []facility.Phase{
	facility.PhaseInitial,
	facility.PhaseProcess,
	facility.PhaseWaiting,
	facility.PhaseDecommissioned,
}

// FacilityMetricsCollector handles inventory, phase, conversion and trade metrics
type FacilityMetricsCollector struct {
	// Inventory metrics
	stageQuantity *prometheus.GaugeVec
	stageLots     *prometheus.GaugeVec
	phase         *prometheus.GaugeVec

	// Flow metrics
	conversionTotal *prometheus.CounterVec
	tradeTotal      *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	stepsTotal      *prometheus.CounterVec
}

// NewFacilityMetricsCollector creates a new facility metrics collector
func NewFacilityMetricsCollector() *FacilityMetricsCollector {
	return &FacilityMetricsCollector{
		stageQuantity: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stage_quantity_kg",
				Help:      "Material held per facility stage",
			},
			[]string{"scenario", "facility", "variant", "stage"},
		),

		stageLots: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stage_lots",
				Help:      "Number of lots held per facility stage",
			},
			[]string{"scenario", "facility", "variant", "stage"},
		),

		// 1 for the current phase, 0 for the others
		phase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "facility_phase",
				Help:      "Current operating phase of each facility",
			},
			[]string{"scenario", "facility", "phase"},
		),

		conversionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "conversion_kg_total",
				Help:      "Material consumed, produced and sent to residue by conversion",
			},
			[]string{"scenario", "facility", "kind"},
		),

		tradeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "trade_kg_total",
				Help:      "Material received and shipped through trades",
			},
			[]string{"scenario", "facility", "commodity", "direction"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "facility_errors_total",
				Help:      "Failed facility hook invocations",
			},
			[]string{"scenario", "facility", "hook"},
		),

		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "facility_steps_total",
				Help:      "Steps executed per facility",
			},
			[]string{"scenario", "facility"},
		),
	}
}

// Register registers all facility metrics with the Prometheus registry
func (c *FacilityMetricsCollector) Register() error {
	if Registry == nil {
		return nil // Metrics not enabled
	}

	metrics := []prometheus.Collector{
		c.stageQuantity,
		c.stageLots,
		c.phase,
		c.conversionTotal,
		c.tradeTotal,
		c.errorsTotal,
		c.stepsTotal,
	}

	for _, metric := range metrics {
		if err := Registry.Register(metric); err != nil {
			return err
		}
	}

	return nil
}

// RecordFacilityStep updates stage gauges and conversion counters from one step
func (c *FacilityMetricsCollector) RecordFacilityStep(scenario string, snap facility.Snapshot, report facility.StepReport) {
	variant := string(snap.Variant)
	stages := []struct {
		name string
		qty  float64
		lots int
	}{
		{"reserves", snap.ReservesQty, snap.ReservesLots},
		{"processing", snap.ProcessingQty, snap.ProcessingLots},
		{"stocks", snap.StocksQty, snap.StocksLots},
	}
	for _, s := range stages {
		c.stageQuantity.WithLabelValues(scenario, snap.FacilityID, variant, s.name).Set(s.qty)
		c.stageLots.WithLabelValues(scenario, snap.FacilityID, variant, s.name).Set(float64(s.lots))
	}
	c.stageQuantity.WithLabelValues(scenario, snap.FacilityID, variant, "residue").Set(snap.ResidueQty)

	for _, p := range allPhases {
		value := 0.0
		if p.String() == snap.Phase {
			value = 1
		}
		c.phase.WithLabelValues(scenario, snap.FacilityID, p.String()).Set(value)
	}

	conv := report.Conversion
	c.conversionTotal.WithLabelValues(scenario, snap.FacilityID, "consumed").Add(conv.Consumed)
	c.conversionTotal.WithLabelValues(scenario, snap.FacilityID, "produced").Add(conv.Produced)
	c.conversionTotal.WithLabelValues(scenario, snap.FacilityID, "residue").Add(conv.Residue)
	c.stepsTotal.WithLabelValues(scenario, snap.FacilityID).Inc()
}

// RecordTrade adds traded quantity
func (c *FacilityMetricsCollector) RecordTrade(scenario, facilityID, commodity, direction string, quantity float64) {
	if quantity <= 0 {
		return
	}
	c.tradeTotal.WithLabelValues(scenario, facilityID, commodity, direction).Add(quantity)
}

// RecordFacilityError counts a failed hook
func (c *FacilityMetricsCollector) RecordFacilityError(scenario, facilityID, hook string) {
	c.errorsTotal.WithLabelValues(scenario, facilityID, hook).Inc()
}
