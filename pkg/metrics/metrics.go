package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	DocumentsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "muster_documents_total",
			Help: "Total number of document records by status",
		},
		[]string{"status"},
	)

	ExecutionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "muster_executions_started_total",
			Help: "Total number of orchestrator executions started",
		},
	)

	ExecutionsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "muster_executions_completed_total",
			Help: "Total number of orchestrator executions finished by outcome",
		},
		[]string{"outcome"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "muster_stage_duration_seconds",
			Help:    "Stage duration in seconds by step name",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"step"},
	)

	StageRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "muster_stage_retries_total",
			Help: "Total number of stage retries by step name",
		},
		[]string{"step"},
	)

	IngressEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "muster_ingress_events_total",
			Help: "Total number of upload events handled by outcome",
		},
		[]string{"outcome"},
	)

	// OCR metrics
	OCRPollsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "muster_ocr_polls_total",
			Help: "Total number of OCR job status polls",
		},
	)

	OCRBlocksFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "muster_ocr_blocks_fetched_total",
			Help: "Total number of OCR blocks fetched across all jobs",
		},
	)

	// LLM metrics
	LLMInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "muster_llm_invocations_total",
			Help: "Total number of LLM invocations by variant and outcome",
		},
		[]string{"variant", "outcome"},
	)

	LLMInvocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "muster_llm_invocation_duration_seconds",
			Help:    "LLM invocation duration in seconds by variant",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"variant"},
	)

	FallbackInsights = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "muster_fallback_insights_total",
			Help: "Total number of fallback insight artifacts produced",
		},
	)

	// PII metrics
	PIIFindingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "muster_pii_findings_total",
			Help: "Total number of PII findings by source",
		},
		[]string{"source"},
	)

	// Retention metrics
	RecordsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "muster_records_expired_total",
			Help: "Total number of records removed by the TTL sweep",
		},
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "muster_sweep_duration_seconds",
			Help:    "TTL sweep cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(DocumentsTotal)
	prometheus.MustRegister(ExecutionsStarted)
	prometheus.MustRegister(ExecutionsCompleted)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(StageRetries)
	prometheus.MustRegister(IngressEvents)
	prometheus.MustRegister(OCRPollsTotal)
	prometheus.MustRegister(OCRBlocksFetched)
	prometheus.MustRegister(LLMInvocations)
	prometheus.MustRegister(LLMInvocationDuration)
	prometheus.MustRegister(FallbackInsights)
	prometheus.MustRegister(PIIFindingsTotal)
	prometheus.MustRegister(RecordsExpired)
	prometheus.MustRegister(SweepDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
