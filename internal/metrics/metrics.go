// Package metrics exposes the Prometheus instrumentation surface for the
// bridge: tool call outcomes, adapter round-trips, registry rebuilds, and
// rate-limit rejections.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "odoo_mcp_tool_call_duration_seconds",
			Help:    "Duration of MCP tool calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool", "status"},
	)

	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odoo_mcp_tool_calls_total",
			Help: "Total MCP tool calls by tool and status",
		},
		[]string{"tool", "status"},
	)

	adapterCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "odoo_mcp_adapter_call_duration_seconds",
			Help:    "Duration of backend adapter round-trips",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model", "method", "status"},
	)

	adapterCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odoo_mcp_adapter_calls_total",
			Help: "Total backend adapter round-trips by model, method and status",
		},
		[]string{"model", "method", "status"},
	)

	registryBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odoo_mcp_registry_builds_total",
			Help: "Total registry rebuilds by mode and outcome",
		},
		[]string{"mode", "status"},
	)

	registryModelCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "odoo_mcp_registry_model_count",
			Help: "Number of models in the current registry",
		},
	)

	registryFieldCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "odoo_mcp_registry_field_count",
			Help: "Number of fields in the current registry",
		},
	)

	rateLimitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odoo_mcp_rate_limit_rejections_total",
			Help: "Total requests rejected by the rate limiter by session bucket kind",
		},
		[]string{"kind"},
	)

	subscriptionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "odoo_mcp_resource_subscriptions_active",
			Help: "Number of active resource subscriptions across all clients",
		},
	)
)

// RecordToolCall records the outcome and duration of one MCP tool call.
func RecordToolCall(tool, status string, duration time.Duration) {
	toolCallDuration.WithLabelValues(tool, status).Observe(duration.Seconds())
	toolCallsTotal.WithLabelValues(tool, status).Inc()
}

// RecordAdapterCall records the outcome and duration of one backend RPC.
func RecordAdapterCall(model, method, status string, duration time.Duration) {
	adapterCallDuration.WithLabelValues(model, method, status).Observe(duration.Seconds())
	adapterCallsTotal.WithLabelValues(model, method, status).Inc()
}

// RecordRegistryBuild records a registry (re)build attempt and, on success,
// updates the model/field gauges to the freshly built counts.
func RecordRegistryBuild(mode, status string, modelCount, fieldCount int) {
	registryBuildsTotal.WithLabelValues(mode, status).Inc()
	if status == "success" {
		registryModelCount.Set(float64(modelCount))
		registryFieldCount.Set(float64(fieldCount))
	}
}

// RecordRateLimitRejection increments the rejection counter for a bucket
// kind ("read", "write", or "burst").
func RecordRateLimitRejection(kind string) {
	rateLimitRejectionsTotal.WithLabelValues(kind).Inc()
}

// SetActiveSubscriptions reflects the current count of live resource
// subscriptions across all connected clients.
func SetActiveSubscriptions(n int) {
	subscriptionsActive.Set(float64(n))
}
