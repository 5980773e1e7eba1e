package completion

import (
	"context"
	"time"

	"ai-script-adherence-service/internal/models"
	"ai-script-adherence-service/internal/observability/metrics"
)

const (
	operationComplete   = "complete"
	operationStructured = "structured"
)

// Instrumented decorates a Client with request metrics.
type Instrumented struct {
	next    Client
	metrics *metrics.Metrics
}

// Instrument wraps client so every call records its outcome and latency.
// A nil metrics instance falls back to the default registry.
func Instrument(client Client, m *metrics.Metrics) *Instrumented {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Instrumented{next: client, metrics: m}
}

// Name returns the wrapped provider's name.
func (c *Instrumented) Name() string {
	return c.next.Name()
}

// Complete forwards to the wrapped client.
func (c *Instrumented) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	text, err := c.next.Complete(ctx, req)
	c.metrics.RecordCompletion(c.next.Name(), operationComplete, outcome(err), time.Since(start).Seconds())
	return text, err
}

// CompleteStructured forwards to the wrapped client.
func (c *Instrumented) CompleteStructured(ctx context.Context, req Request, shape Shape) ([]byte, error) {
	start := time.Now()
	payload, err := c.next.CompleteStructured(ctx, req, shape)
	c.metrics.RecordCompletion(c.next.Name(), operationStructured, outcome(err), time.Since(start).Seconds())
	return payload, err
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return models.KindOf(err)
}
