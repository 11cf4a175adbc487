package tracing

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// newSampler builds the OpenTelemetry sampler for cfg: ratio-based, with an
// error-aware wrapper that always records spans carrying an error status
// when AlwaysSampleErrors is set.
func newSampler(cfg Config) sdktrace.Sampler {
	var base sdktrace.Sampler
	switch {
	case cfg.SampleRatio >= 1.0:
		base = sdktrace.AlwaysSample()
	case cfg.SampleRatio <= 0.0:
		base = sdktrace.NeverSample()
	default:
		base = sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	}

	if !cfg.AlwaysSampleErrors {
		return base
	}
	return &errorAwareSampler{base: base}
}

// errorAwareSampler defers to a base sampler but always records spans
// whose starting attributes already mark them as an error, so a failed
// tool call is never dropped by ratio sampling.
type errorAwareSampler struct {
	base sdktrace.Sampler
}

func (s *errorAwareSampler) ShouldSample(params sdktrace.SamplingParameters) sdktrace.SamplingResult {
	for _, attr := range params.Attributes {
		if attr.Key == "error" && attr.Value.AsBool() {
			return sdktrace.SamplingResult{
				Decision:   sdktrace.RecordAndSample,
				Tracestate: trace.SpanContextFromContext(params.ParentContext).TraceState(),
			}
		}
	}
	return s.base.ShouldSample(params)
}

func (s *errorAwareSampler) Description() string {
	return "errorAwareSampler{" + s.base.Description() + "}"
}
