package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewProvider_DisabledStillCreatesSpans(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	p, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	ctx, span := StartToolSpan(context.Background(), p.Tracer("test"), "odoo_core_read")
	traceID, spanID := TraceFields(ctx)
	assert.NotEmpty(t, traceID)
	assert.NotEmpty(t, spanID)
	EndWithError(span, nil)
}

func TestNewProvider_EnabledExportsToStdout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true

	p, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	_, span := StartAdapterSpan(context.Background(), p.Tracer("test"), "res.partner", "search_read")
	EndWithError(span, assertError{})
	require.NoError(t, p.ForceFlush(context.Background()))
}

type assertError struct{}

func (assertError) Error() string { return "boom" }

func TestNewSampler_AlwaysSamplesErrorsRegardlessOfRatio(t *testing.T) {
	cfg := Config{SampleRatio: 0, AlwaysSampleErrors: true}
	sampler := newSampler(cfg)

	_, ok := sampler.(*errorAwareSampler)
	require.True(t, ok)
	assert.Contains(t, sampler.Description(), "errorAwareSampler")
}

func TestNewSampler_FullRatioIsAlwaysSample(t *testing.T) {
	cfg := Config{SampleRatio: 1.0, AlwaysSampleErrors: false}
	sampler := newSampler(cfg)
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler.Description())
}

func TestTraceFields_EmptyWithoutSpan(t *testing.T) {
	traceID, spanID := TraceFields(context.Background())
	assert.Empty(t, traceID)
	assert.Empty(t, spanID)
}
