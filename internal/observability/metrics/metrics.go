// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_script_adherence"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Completion collaborator metrics
	CompletionRequests *prometheus.CounterVec
	CompletionLatency  *prometheus.HistogramVec

	// Normalizer metrics
	FragmentsCorrected prometheus.Counter
	NormalizeFailures  *prometheus.CounterVec

	// Evaluator metrics
	Evaluations *prometheus.CounterVec

	// Pipeline metrics
	PipelineRuns     *prometheus.CounterVec
	PipelineDuration prometheus.Histogram

	// Interaction collector metrics
	InteractionsActive  prometheus.Gauge
	InteractionsFlushed prometheus.Counter
	InteractionsDropped *prometheus.CounterVec

	// Kafka metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
	KafkaEventsConsumed *prometheus.CounterVec

	// HTTP API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance registered with the default registry.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CompletionRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_requests_total",
			Help:      "Total number of completion requests by provider, operation and outcome",
		}, []string{"provider", "operation", "outcome"}),
		CompletionLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_latency_seconds",
			Help:      "Completion request latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}, []string{"provider", "operation"}),

		FragmentsCorrected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_corrected_total",
			Help:      "Total number of transcript fragments corrected",
		}),
		NormalizeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalize_failures_total",
			Help:      "Total number of failed transcript corrections",
		}, []string{"kind"}),

		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Total number of checklist evaluations by topic and result",
		}, []string{"topic", "result"}),

		PipelineRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Total number of pipeline runs by outcome",
		}, []string{"outcome"}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of full pipeline runs in seconds",
			Buckets:   []float64{1, 2, 5, 10, 20, 40, 60, 120, 300},
		}),

		InteractionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "interactions_active",
			Help:      "Number of interactions currently collecting transcript fragments",
		}),
		InteractionsFlushed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_flushed_total",
			Help:      "Total number of interactions flushed through the pipeline",
		}),
		InteractionsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_dropped_total",
			Help:      "Total number of interactions dropped without a report",
		}, []string{"reason"}),

		KafkaPublishTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
		KafkaEventsConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_events_consumed_total",
			Help:      "Total number of Kafka events consumed by event type",
		}, []string{"event_type"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP API requests",
		}, []string{"method", "route", "code"}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP API request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"method", "route"}),
	}
}

// RecordCompletion records one completion request.
func (m *Metrics) RecordCompletion(provider, operation, outcome string, latencySeconds float64) {
	m.CompletionRequests.WithLabelValues(provider, operation, outcome).Inc()
	m.CompletionLatency.WithLabelValues(provider, operation).Observe(latencySeconds)
}

// RecordFragmentCorrected records a successfully corrected fragment.
func (m *Metrics) RecordFragmentCorrected() {
	m.FragmentsCorrected.Inc()
}

// RecordNormalizeFailure records a failed correction by error kind.
func (m *Metrics) RecordNormalizeFailure(kind string) {
	m.NormalizeFailures.WithLabelValues(kind).Inc()
}

// RecordEvaluation records a checklist verdict or failure.
func (m *Metrics) RecordEvaluation(topic, result string) {
	m.Evaluations.WithLabelValues(topic, result).Inc()
}

// RecordPipelineRun records a finished pipeline run.
func (m *Metrics) RecordPipelineRun(outcome string, durationSeconds float64) {
	m.PipelineRuns.WithLabelValues(outcome).Inc()
	m.PipelineDuration.Observe(durationSeconds)
}

// RecordInteractionOpened records an interaction starting to collect fragments.
func (m *Metrics) RecordInteractionOpened() {
	m.InteractionsActive.Inc()
}

// RecordInteractionFlushed records an interaction leaving the collecting state.
func (m *Metrics) RecordInteractionFlushed() {
	m.InteractionsActive.Dec()
	m.InteractionsFlushed.Inc()
}

// RecordInteractionDropped records an interaction dropped without a report.
func (m *Metrics) RecordInteractionDropped(reason string) {
	m.InteractionsDropped.WithLabelValues(reason).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordKafkaConsumed records a consumed Kafka event.
func (m *Metrics) RecordKafkaConsumed(eventType string) {
	m.KafkaEventsConsumed.WithLabelValues(eventType).Inc()
}

// RecordHTTPRequest records an HTTP API request.
func (m *Metrics) RecordHTTPRequest(method, route, code string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, route, code).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(durationSeconds)
}
