package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/facsim-go/internal/application/common"
	"github.com/andrescamacho/facsim-go/internal/domain/facility"
)

func TestFacilityMetricsCollector_RecordFacilityStep(t *testing.T) {
	// Arrange
	InitRegistry()
	t.Cleanup(func() { Registry = nil })
	collector := NewFacilityMetricsCollector()
	require.NoError(t, collector.Register())

	snap := facility.Snapshot{
		FacilityID:    "conv",
		Variant:       facility.VariantConverter,
		Phase:         "PROCESS",
		ReservesQty:   2,
		ProcessingQty: 5,
		StocksQty:     7,
		StocksLots:    3,
	}
	report := facility.StepReport{Conversion: facility.ConversionResult{Consumed: 4, Produced: 4}}

	// Act
	collector.RecordFacilityStep("demo", snap, report)
	collector.RecordFacilityStep("demo", snap, report)
	collector.RecordTrade("demo", "conv", "leu", DirectionShipped, 1.5)
	collector.RecordTrade("demo", "conv", "leu", DirectionShipped, 0)

	// Assert
	assert.Equal(t, 7.0, testutil.ToFloat64(collector.stageQuantity.WithLabelValues("demo", "conv", "converter", "stocks")))
	assert.Equal(t, 3.0, testutil.ToFloat64(collector.stageLots.WithLabelValues("demo", "conv", "converter", "stocks")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.phase.WithLabelValues("demo", "conv", "PROCESS")))
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.phase.WithLabelValues("demo", "conv", "WAITING")))
	assert.Equal(t, 8.0, testutil.ToFloat64(collector.conversionTotal.WithLabelValues("demo", "conv", "produced")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.stepsTotal.WithLabelValues("demo", "conv")))
	assert.Equal(t, 1.5, testutil.ToFloat64(collector.tradeTotal.WithLabelValues("demo", "conv", "leu", DirectionShipped)))
}

func TestGlobalRecorders_NoopWithoutCollector(t *testing.T) {
	SetGlobalFacilityCollector(nil)

	assert.NotPanics(t, func() {
		RecordFacilityStep("demo", facility.Snapshot{}, facility.StepReport{})
		RecordTrade("demo", "conv", "leu", DirectionReceived, 1)
		RecordFacilityError("demo", "conv", "tick")
	})
	assert.False(t, IsEnabled())
	assert.Nil(t, Handler())
}

func TestPrometheusMiddleware_RecordsOutcome(t *testing.T) {
	collector := NewCommandMetricsCollector()
	mw := PrometheusMiddleware(collector)
	type probeCommand struct{}

	_, err := mw(context.Background(), &probeCommand{}, func(ctx context.Context, request common.Request) (common.Response, error) {
		return nil, errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.commandsTotal.WithLabelValues("probeCommand", "error")))
}
