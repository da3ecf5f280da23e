package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/andrescamacho/facsim-go/internal/domain/facility"
)

const (
	// Namespace for all metrics
	namespace = "facsim"
	// Subsystem for simulation metrics
	subsystem = "simulation"
)

var (
	// Registry is the global Prometheus registry for all metrics
	Registry *prometheus.Registry

	// globalFacilityCollector is the singleton facility metrics collector
	// Set by SetGlobalFacilityCollector() when metrics are enabled
	globalFacilityCollector FacilityMetricsRecorder
)

// FacilityMetricsRecorder defines the interface for recording facility metrics
// This interface is used by application code to record metrics
type FacilityMetricsRecorder interface {
	RecordFacilityStep(scenario string, snap facility.Snapshot, report facility.StepReport)
	RecordTrade(scenario, facilityID, commodity, direction string, quantity float64)
	RecordFacilityError(scenario, facilityID, hook string)
}

// InitRegistry initializes the Prometheus registry
// Should be called once at application startup if metrics are enabled
func InitRegistry() {
	Registry = prometheus.NewRegistry()
}

// GetRegistry returns the global Prometheus registry
// Returns nil if metrics are not initialized
func GetRegistry() *prometheus.Registry {
	return Registry
}

// IsEnabled returns true if metrics collection is enabled
func IsEnabled() bool {
	return Registry != nil
}

// SetGlobalFacilityCollector sets the global facility metrics collector
func SetGlobalFacilityCollector(collector FacilityMetricsRecorder) {
	globalFacilityCollector = collector
}

// RecordFacilityStep records the end-of-step state of a facility globally
func RecordFacilityStep(scenario string, snap facility.Snapshot, report facility.StepReport) {
	if globalFacilityCollector != nil {
		globalFacilityCollector.RecordFacilityStep(scenario, snap, report)
	}
}

// RecordTrade records material moving into or out of a facility globally
func RecordTrade(scenario, facilityID, commodity, direction string, quantity float64) {
	if globalFacilityCollector != nil {
		globalFacilityCollector.RecordTrade(scenario, facilityID, commodity, direction, quantity)
	}
}

// RecordFacilityError records a failed facility hook globally
func RecordFacilityError(scenario, facilityID, hook string) {
	if globalFacilityCollector != nil {
		globalFacilityCollector.RecordFacilityError(scenario, facilityID, hook)
	}
}
