package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordCompletion(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordCompletion("openai", "structured", "ok", 1.2)
	m.RecordCompletion("openai", "structured", "ok", 0.8)
	m.RecordCompletion("openai", "structured", "upstream_unavailable", 0.1)

	if got := testutil.ToFloat64(m.CompletionRequests.WithLabelValues("openai", "structured", "ok")); got != 2 {
		t.Errorf("expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.CompletionRequests.WithLabelValues("openai", "structured", "upstream_unavailable")); got != 1 {
		t.Errorf("expected 1 failed request, got %v", got)
	}
}

func TestRecordInteractionLifecycle(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordInteractionOpened()
	m.RecordInteractionOpened()
	m.RecordInteractionFlushed()

	if got := testutil.ToFloat64(m.InteractionsActive); got != 1 {
		t.Errorf("expected 1 active interaction, got %v", got)
	}
	if got := testutil.ToFloat64(m.InteractionsFlushed); got != 1 {
		t.Errorf("expected 1 flushed interaction, got %v", got)
	}
}

func TestRecordKafkaPublish_CountsErrors(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordKafkaPublish("reports", "report", nil, 0.01)
	m.RecordKafkaPublish("reports", "report", errors.New("broker down"), 0.02)

	if got := testutil.ToFloat64(m.KafkaPublishTotal.WithLabelValues("reports", "report")); got != 2 {
		t.Errorf("expected 2 publishes, got %v", got)
	}
	if got := testutil.ToFloat64(m.KafkaPublishErrors.WithLabelValues("reports", "report")); got != 1 {
		t.Errorf("expected 1 publish error, got %v", got)
	}
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	// Independent registries must not collide on metric names.
	a := NewMetrics(prometheus.NewRegistry())
	b := NewMetrics(prometheus.NewRegistry())

	a.RecordEvaluation("benefits", "covered")

	if got := testutil.ToFloat64(b.Evaluations.WithLabelValues("benefits", "covered")); got != 0 {
		t.Errorf("expected registries to be independent, got %v", got)
	}
}
