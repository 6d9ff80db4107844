package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bigboost_queries_total",
			Help: "Total number of provider queries by outcome",
		},
		[]string{"endpoint", "dataset", "outcome"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bigboost_query_duration_seconds",
			Help:    "Provider query duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"endpoint"},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bigboost_rate_limit_hits_total",
			Help: "Requests rejected for rate limiting (local bucket or provider 429)",
		},
		[]string{"source"},
	)

	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bigboost_provider_errors_total",
			Help: "Total number of provider errors by kind and status category",
		},
		[]string{"kind", "category"},
	)

	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bigboost_tool_calls_total",
			Help: "Total number of tool invocations",
		},
		[]string{"tool", "status"},
	)

	ToolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bigboost_tool_call_duration_seconds",
			Help:    "Tool invocation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"tool"},
	)

	InstanceInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bigboost_instance_info",
			Help: "Instance information (always 1)",
		},
		[]string{"version", "rate_limiter"},
	)
)

const (
	SourceLocal    = "local"
	SourceProvider = "provider"
)

func RecordQuery(endpoint, dataset, outcome string, durationSec float64) {
	QueriesTotal.WithLabelValues(endpoint, dataset, outcome).Inc()
	QueryDuration.WithLabelValues(endpoint).Observe(durationSec)
}

func RecordRateLimitHit(source string) {
	RateLimitHits.WithLabelValues(source).Inc()
}

func RecordProviderError(kind, category string) {
	ProviderErrors.WithLabelValues(kind, category).Inc()
}

func RecordToolCall(tool, status string, durationSec float64) {
	ToolCallsTotal.WithLabelValues(tool, status).Inc()
	ToolCallDuration.WithLabelValues(tool).Observe(durationSec)
}

// InitInstanceMetrics should be called once at startup.
func InitInstanceMetrics(version, rateLimiter string) {
	InstanceInfo.WithLabelValues(version, rateLimiter).Set(1)
}
