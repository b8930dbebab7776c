package validate

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamforge/pipeline/internal/bus"
	"github.com/streamforge/pipeline/internal/metrics"
	"github.com/streamforge/pipeline/internal/signals"
)

func validSignal() signals.Signal {
	return signals.Signal{
		ID:              "signal-AAA-1000",
		Symbol:          "AAA",
		Side:            "LONG",
		SignalType:      "SCALP",
		GeneratedTsMs:   1000,
		EntryPriceTicks: 100,
		StopPriceTicks:  90,
	}
}

func TestValidateAndPublishAcceptsWellFormedSignal(t *testing.T) {
	b := bus.NewMemoryBus()
	ctx := context.Background()
	v := New(b, func() int64 { return 0 })

	sig := validSignal()
	sig.ConfidencePct = 60
	result, err := v.ValidateAndPublishSignal(ctx, sig)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, result.Status)

	raws, err := b.ReadAll(ctx, bus.TopicSignalDisplay)
	require.NoError(t, err)
	assert.Len(t, raws, 1)
}

func TestValidateAndPublishRejectsInvalidSide(t *testing.T) {
	b := bus.NewMemoryBus()
	ctx := context.Background()
	v := New(b, func() int64 { return 0 })

	sig := validSignal()
	sig.Side = "SIDEWAYS"
	sig.ConfidencePct = 60
	result, err := v.ValidateAndPublishSignal(ctx, sig)
	require.NoError(t, err)
	assert.Equal(t, StatusReject, result.Status)
	assert.NotEmpty(t, result.Errors)

	raws, err := b.ReadAll(ctx, bus.TopicSignalDisplay)
	require.NoError(t, err)
	assert.Empty(t, raws, "rejected signal must not be forwarded")

	auditRaws, err := b.ReadAll(ctx, bus.TopicAuditRecords)
	require.NoError(t, err)
	assert.NotEmpty(t, auditRaws)
}

func TestValidateAndPublishRejectsOutOfRangeConfidence(t *testing.T) {
	b := bus.NewMemoryBus()
	ctx := context.Background()
	v := New(b, func() int64 { return 0 })

	sig := validSignal()
	sig.ConfidencePct = 150
	result, err := v.ValidateAndPublishSignal(ctx, sig)
	require.NoError(t, err)
	assert.Equal(t, StatusReject, result.Status)
}

func TestValidateAndPublishRejectsShortID(t *testing.T) {
	b := bus.NewMemoryBus()
	ctx := context.Background()
	v := New(b, func() int64 { return 0 })

	sig := validSignal()
	sig.ID = "short"
	sig.ConfidencePct = 60
	result, err := v.ValidateAndPublishSignal(ctx, sig)
	require.NoError(t, err)
	assert.Equal(t, StatusReject, result.Status)
}

func TestValidateAndPublishReportsSignalsEmittedOnlyForAccepted(t *testing.T) {
	b := bus.NewMemoryBus()
	ctx := context.Background()
	v := New(b, func() int64 { return 0 })

	reg := prometheus.NewRegistry()
	metricsRegistry := metrics.NewRegistry(reg)
	v.SetMetrics(metricsRegistry)

	accepted := validSignal()
	accepted.ConfidencePct = 60
	result, err := v.ValidateAndPublishSignal(ctx, accepted)
	require.NoError(t, err)
	require.Equal(t, StatusOK, result.Status)
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsRegistry.SignalsEmitted.WithLabelValues("SCALP")))

	rejected := validSignal()
	rejected.Side = "SIDEWAYS"
	rejected.ConfidencePct = 60
	result, err = v.ValidateAndPublishSignal(ctx, rejected)
	require.NoError(t, err)
	require.Equal(t, StatusReject, result.Status)
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsRegistry.SignalsEmitted.WithLabelValues("SCALP")),
		"a rejected signal must not increment signals_emitted")
}
