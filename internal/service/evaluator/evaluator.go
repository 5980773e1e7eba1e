// Package evaluator judges a cleaned transcript against one reference checklist.
package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ai-script-adherence-service/internal/checklist"
	"ai-script-adherence-service/internal/completion"
	"ai-script-adherence-service/internal/models"
	"ai-script-adherence-service/internal/observability/logging"
	"ai-script-adherence-service/internal/observability/metrics"
	"ai-script-adherence-service/internal/schema"
)

const (
	DefaultModel   = "gpt-4o"
	DefaultCompany = "Choice Finx"
)

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithModel sets the evaluation model.
func WithModel(model string) Option {
	return func(e *Evaluator) {
		if model != "" {
			e.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(e *Evaluator) { e.temperature = t }
}

// WithCompany sets the company named in the instruction.
func WithCompany(company string) Option {
	return func(e *Evaluator) {
		if company != "" {
			e.company = company
		}
	}
}

// WithMetrics sets the metrics instance.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Evaluator) { e.metrics = m }
}

// Evaluator is one generic checklist judge, parametrized per call by the checklist.
// It holds no per-call state and is safe for concurrent use.
type Evaluator struct {
	client      completion.Client
	model       string
	temperature float64
	company     string
	metrics     *metrics.Metrics
}

// New creates an Evaluator.
func New(client completion.Client, opts ...Option) *Evaluator {
	e := &Evaluator{
		client:  client,
		model:   DefaultModel,
		company: DefaultCompany,
		metrics: metrics.DefaultMetrics,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// scoringPayload uses pointers so absent fields can be told apart from zero values.
type scoringPayload struct {
	FullyCovered *bool   `json:"fully_covered"`
	Feedback     *string `json:"feedback"`
}

// Evaluate decides whether cleaned fully covers every point of c.
func (e *Evaluator) Evaluate(ctx context.Context, cleaned string, c checklist.ReferenceChecklist) (models.ScoringResult, error) {
	result, err := e.evaluate(ctx, cleaned, c)
	if err != nil {
		e.metrics.RecordEvaluation(c.ID, models.KindOf(err))
		if ctx.Err() == nil {
			logger := logging.WithTopic(logging.InteractionFrom(ctx), c.ID)
			logger.Error().Err(err).Msg("Checklist evaluation failed")
		}
		return models.ScoringResult{}, &models.StageError{
			Stage:    models.StageEvaluate,
			Fragment: -1,
			Topic:    c.ID,
			Err:      err,
		}
	}

	verdict := "not_covered"
	if result.FullyCovered {
		verdict = "covered"
	}
	e.metrics.RecordEvaluation(c.ID, verdict)

	logger := logging.WithTopic(logging.InteractionFrom(ctx), c.ID)
	logger.Debug().Bool("fullyCovered", result.FullyCovered).Msg("Checklist evaluated")

	return result, nil
}

func (e *Evaluator) evaluate(ctx context.Context, cleaned string, c checklist.ReferenceChecklist) (models.ScoringResult, error) {
	if strings.TrimSpace(cleaned) == "" {
		return models.ScoringResult{}, fmt.Errorf("empty cleaned transcript: %w", models.ErrInvalidInput)
	}
	if len(c.Points) == 0 {
		return models.ScoringResult{}, fmt.Errorf("checklist has no points: %w", models.ErrInvalidInput)
	}

	shape, err := schema.ScoringResultShape()
	if err != nil {
		return models.ScoringResult{}, err
	}

	payload, err := e.client.CompleteStructured(ctx, completion.Request{
		Model:       e.model,
		Instruction: checklist.BuildInstruction(c, e.company),
		Content:     cleaned,
		Temperature: e.temperature,
	}, shape)
	if err != nil {
		return models.ScoringResult{}, classify(err)
	}

	return Decode(payload)
}

// Decode parses a structured reply. Both fields must be present with the right types.
func Decode(payload []byte) (models.ScoringResult, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return models.ScoringResult{}, fmt.Errorf("empty structured reply: %w", models.ErrSchemaViolation)
	}

	var p scoringPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return models.ScoringResult{}, fmt.Errorf("undecodable structured reply: %v: %w", err, models.ErrSchemaViolation)
	}
	if p.FullyCovered == nil {
		return models.ScoringResult{}, fmt.Errorf("structured reply missing fully_covered: %w", models.ErrSchemaViolation)
	}
	if p.Feedback == nil {
		return models.ScoringResult{}, fmt.Errorf("structured reply missing feedback: %w", models.ErrSchemaViolation)
	}

	return models.ScoringResult{FullyCovered: *p.FullyCovered, Feedback: *p.Feedback}, nil
}

// classify maps collaborator errors onto the evaluator's error kinds. A reply the
// provider could not shape is a schema violation here.
func classify(err error) error {
	switch {
	case errors.Is(err, models.ErrSchemaViolation), errors.Is(err, models.ErrUpstreamUnavailable):
		return err
	case errors.Is(err, models.ErrMalformedResponse):
		return fmt.Errorf("%v: %w", err, models.ErrSchemaViolation)
	default:
		return fmt.Errorf("%v: %w", err, models.ErrUpstreamUnavailable)
	}
}
