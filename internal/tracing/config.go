package tracing

import "time"

// Config holds tracing configuration. Export is opt-in: with Enabled
// false, NewProvider still creates spans (for trace-ID correlation in
// logs) but attaches no exporter.
type Config struct {
	// Enabled activates OpenTelemetry export.
	Enabled bool

	// ServiceName identifies this process in exported traces.
	ServiceName string

	// ServiceVersion is the running build version.
	ServiceVersion string

	// OTLPEndpoint is the OTLP/HTTP collector endpoint. Empty, with
	// Enabled set, means spans are exported to stdout instead.
	OTLPEndpoint string

	// Insecure disables TLS to OTLPEndpoint, for local collectors.
	Insecure bool

	// Headers are additional HTTP headers sent with each export.
	Headers map[string]string

	// SampleRatio is the fraction of traces recorded, 0.0-1.0.
	// AlwaysSampleErrors overrides this per-span.
	SampleRatio float64

	// AlwaysSampleErrors forces recording of any span carrying an
	// error status regardless of SampleRatio.
	AlwaysSampleErrors bool

	// BatchTimeout is how often buffered spans are flushed.
	BatchTimeout time.Duration
}

// DefaultConfig returns tracing disabled by default, consistent with the
// safety-first posture of the rest of the bridge.
func DefaultConfig() Config {
	return Config{
		Enabled:            false,
		ServiceName:        "odoo-mcp-bridge",
		ServiceVersion:     "unknown",
		SampleRatio:        1.0,
		AlwaysSampleErrors: true,
		BatchTimeout:       5 * time.Second,
	}
}
