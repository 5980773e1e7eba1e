// Package normalizer corrects raw transcript fragments with a keyword-biased completion prompt.
package normalizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"ai-script-adherence-service/internal/completion"
	"ai-script-adherence-service/internal/keywords"
	"ai-script-adherence-service/internal/models"
	"ai-script-adherence-service/internal/observability/logging"
	"ai-script-adherence-service/internal/observability/metrics"
)

const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultCompany     = "Choice Finx"
	DefaultConcurrency = 8
)

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithModel sets the correction model.
func WithModel(model string) Option {
	return func(n *Normalizer) {
		if model != "" {
			n.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(n *Normalizer) { n.temperature = t }
}

// WithCompany sets the company named in the instruction.
func WithCompany(company string) Option {
	return func(n *Normalizer) {
		if company != "" {
			n.company = company
		}
	}
}

// WithConcurrency bounds the number of in-flight correction calls.
func WithConcurrency(limit int) Option {
	return func(n *Normalizer) {
		if limit > 0 {
			n.concurrency = limit
		}
	}
}

// WithMetrics sets the metrics instance.
func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Normalizer) { n.metrics = m }
}

// Normalizer turns a RawTranscriptSet into a CorrectedTranscript and CleanedTranscript.
// Safe for concurrent use; all fields are read-only after New.
type Normalizer struct {
	client      completion.Client
	keywords    keywords.List
	model       string
	temperature float64
	company     string
	concurrency int
	metrics     *metrics.Metrics
	instruction string
}

// New creates a Normalizer with keywords bound for its lifetime.
func New(client completion.Client, kw keywords.List, opts ...Option) *Normalizer {
	n := &Normalizer{
		client:      client,
		keywords:    kw,
		model:       DefaultModel,
		company:     DefaultCompany,
		concurrency: DefaultConcurrency,
		metrics:     metrics.DefaultMetrics,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.instruction = correctionInstruction(n.company, n.keywords)
	return n
}

// Instruction returns the correction instruction sent with every fragment.
func (n *Normalizer) Instruction() string {
	return n.instruction
}

// Correct corrects every fragment and returns them in input order together with
// their single-space join. The first failing fragment cancels the rest and fails
// the whole call; failed fragments are never replaced with raw text.
func (n *Normalizer) Correct(ctx context.Context, raw models.RawTranscriptSet) (models.CorrectedTranscript, string, error) {
	if len(raw) == 0 {
		return nil, "", &models.StageError{
			Stage:    models.StageNormalize,
			Fragment: -1,
			Err:      fmt.Errorf("no transcript fragments: %w", models.ErrInvalidInput),
		}
	}

	interactionID := logging.InteractionFrom(ctx)
	corrected := make(models.CorrectedTranscript, len(raw))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.concurrency)

	for i, fragment := range raw {
		if strings.TrimSpace(fragment) == "" {
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return &models.StageError{Stage: models.StageNormalize, Fragment: i, Err: err}
			}

			text, err := n.correctOne(gctx, fragment)
			if err != nil {
				// Calls aborted by an earlier failure are not failures of their own.
				if gctx.Err() == nil {
					n.metrics.RecordNormalizeFailure(models.KindOf(err))
					logger := logging.WithFragment(interactionID, i)
					logger.Error().Err(err).Msg("Fragment correction failed")
				}
				return &models.StageError{Stage: models.StageNormalize, Fragment: i, Err: err}
			}

			corrected[i] = text
			n.metrics.RecordFragmentCorrected()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	return corrected, Join(corrected), nil
}

func (n *Normalizer) correctOne(ctx context.Context, fragment string) (string, error) {
	text, err := n.client.Complete(ctx, completion.Request{
		Model:       n.model,
		Instruction: n.instruction,
		Content:     fragment,
		Temperature: n.temperature,
	})
	if err != nil {
		if !isKnownKind(err) {
			err = fmt.Errorf("%v: %w", err, models.ErrUpstreamUnavailable)
		}
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty correction: %w", models.ErrMalformedResponse)
	}
	return text, nil
}

// Join builds the CleanedTranscript from corrected fragments.
func Join(corrected models.CorrectedTranscript) string {
	return strings.Join(corrected, " ")
}

func isKnownKind(err error) bool {
	return errors.Is(err, models.ErrUpstreamUnavailable) ||
		errors.Is(err, models.ErrMalformedResponse) ||
		errors.Is(err, models.ErrSchemaViolation) ||
		errors.Is(err, models.ErrInvalidInput)
}
