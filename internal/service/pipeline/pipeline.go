// Package pipeline runs the transcript normalizer once and fans the cleaned transcript
// out to one evaluator per configured checklist.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ai-script-adherence-service/internal/checklist"
	"ai-script-adherence-service/internal/models"
	"ai-script-adherence-service/internal/observability/logging"
	"ai-script-adherence-service/internal/observability/metrics"
)

// DefaultConcurrency bounds the evaluators running at once.
const DefaultConcurrency = 8

// Corrector produces the corrected and cleaned transcript.
type Corrector interface {
	Correct(ctx context.Context, raw models.RawTranscriptSet) (models.CorrectedTranscript, string, error)
}

// Judge evaluates a cleaned transcript against one checklist.
type Judge interface {
	Evaluate(ctx context.Context, cleaned string, c checklist.ReferenceChecklist) (models.ScoringResult, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConcurrency bounds the number of evaluators in flight.
func WithConcurrency(limit int) Option {
	return func(p *Pipeline) {
		if limit > 0 {
			p.concurrency = limit
		}
	}
}

// WithMetrics sets the metrics instance.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline is the transcript evaluation pipeline.
type Pipeline struct {
	corrector   Corrector
	judge       Judge
	checklists  *checklist.Set
	concurrency int
	metrics     *metrics.Metrics
	now         func() time.Time
}

// New creates a pipeline over the given checklist set.
func New(corrector Corrector, judge Judge, checklists *checklist.Set, opts ...Option) *Pipeline {
	p := &Pipeline{
		corrector:   corrector,
		judge:       judge,
		checklists:  checklists,
		concurrency: DefaultConcurrency,
		metrics:     metrics.DefaultMetrics,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Checklists returns the configured checklist set.
func (p *Pipeline) Checklists() *checklist.Set {
	return p.checklists
}

// Correct runs the normalizer alone.
func (p *Pipeline) Correct(ctx context.Context, raw models.RawTranscriptSet) (models.CorrectedTranscript, string, error) {
	return p.corrector.Correct(ctx, raw)
}

// Run normalizes the request's fragments once, evaluates the cleaned transcript
// against every selected checklist and assembles the report.
func (p *Pipeline) Run(ctx context.Context, req models.EvaluationRequest) (*models.AdherenceReport, error) {
	start := time.Now()

	report, err := p.run(ctx, req)

	outcome := models.KindOf(err)
	if err == nil {
		outcome = "non_compliant"
		if report.FullyCompliant {
			outcome = "compliant"
		}
	}
	p.metrics.RecordPipelineRun(outcome, time.Since(start).Seconds())

	return report, err
}

func (p *Pipeline) run(ctx context.Context, req models.EvaluationRequest) (*models.AdherenceReport, error) {
	// Unknown topics fail before any model call.
	selected, err := p.checklists.Select(req.Topics)
	if err != nil {
		return nil, err
	}

	reportID := uuid.NewString()
	interactionID := req.InteractionID
	if interactionID == "" {
		interactionID = reportID
	}

	logger := logging.WithInteraction(interactionID, req.TenantID)
	ctx = logging.ContextWithInteraction(ctx, interactionID)

	logger.Info().
		Int("fragments", len(req.Fragments)).
		Int("topics", len(selected)).
		Msg("Pipeline run started")

	_, cleaned, err := p.corrector.Correct(ctx, req.Fragments)
	if err != nil {
		logger.Error().Err(err).Msg("Transcript normalization failed")
		return nil, err
	}

	results, err := p.evaluate(ctx, cleaned, selected)
	if err != nil {
		logger.Error().Err(err).Msg("Checklist evaluation failed")
		return nil, err
	}

	report := &models.AdherenceReport{
		EventType:         models.EventTypeAdherenceReport,
		ReportID:          reportID,
		InteractionID:     interactionID,
		TenantID:          req.TenantID,
		CleanedTranscript: cleaned,
		Results:           results,
		FullyCompliant:    allCovered(results),
		Timestamp:         p.now().UnixMilli(),
	}

	logger.Info().
		Str("reportId", reportID).
		Bool("fullyCompliant", report.FullyCompliant).
		Msg("Pipeline run completed")

	return report, nil
}

// EvaluateCleaned evaluates an already cleaned transcript against the selected topics.
// Results are returned in configured order.
func (p *Pipeline) EvaluateCleaned(ctx context.Context, cleaned string, topics []string) ([]models.TopicResult, error) {
	selected, err := p.checklists.Select(topics)
	if err != nil {
		return nil, err
	}
	return p.evaluate(ctx, cleaned, selected)
}

// EvaluateTopic runs a single evaluator in isolation.
func (p *Pipeline) EvaluateTopic(ctx context.Context, cleaned, topic string) (models.TopicResult, error) {
	c, ok := p.checklists.Get(topic)
	if !ok {
		return models.TopicResult{}, fmt.Errorf("unknown checklist topic %q: %w", topic, models.ErrInvalidInput)
	}

	res, err := p.judge.Evaluate(ctx, cleaned, c)
	if err != nil {
		return models.TopicResult{}, err
	}
	return models.TopicResult{Topic: c.ID, Title: c.Title, ScoringResult: res}, nil
}

// evaluate fans out one evaluator per checklist and fans results back in by index.
// The first failure cancels the remaining evaluations.
func (p *Pipeline) evaluate(ctx context.Context, cleaned string, selected []checklist.ReferenceChecklist) ([]models.TopicResult, error) {
	results := make([]models.TopicResult, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, c := range selected {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &models.StageError{Stage: models.StageEvaluate, Fragment: -1, Topic: c.ID, Err: err}
			}

			res, err := p.judge.Evaluate(gctx, cleaned, c)
			if err != nil {
				return err
			}
			results[i] = models.TopicResult{Topic: c.ID, Title: c.Title, ScoringResult: res}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func allCovered(results []models.TopicResult) bool {
	for _, r := range results {
		if !r.FullyCovered {
			return false
		}
	}
	return true
}
