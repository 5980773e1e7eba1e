package pipeline

import (
	"github.com/rs/zerolog/log"

	"ai-script-adherence-service/internal/checklist"
	"ai-script-adherence-service/internal/completion"
	"ai-script-adherence-service/internal/config"
	"ai-script-adherence-service/internal/keywords"
	"ai-script-adherence-service/internal/observability/metrics"
	"ai-script-adherence-service/internal/service/evaluator"
	"ai-script-adherence-service/internal/service/normalizer"
)

// LoadChecklists returns the checklist override file when configured, else the embedded set.
func LoadChecklists(cfg *config.Config) (*checklist.Set, error) {
	if cfg.Pipeline.ChecklistFile == "" {
		return checklist.Default(), nil
	}
	set, err := checklist.Load(cfg.Pipeline.ChecklistFile)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("file", cfg.Pipeline.ChecklistFile).
		Strs("topics", set.IDs()).
		Msg("Loaded checklist override")
	return set, nil
}

// LoadKeywords reads the keyword file. A missing file is logged and yields an empty list.
func LoadKeywords(cfg *config.Config) keywords.List {
	kw, err := keywords.Load(cfg.Pipeline.KeywordsFile)
	if err != nil {
		log.Warn().Err(err).Msg("Keyword file unavailable, correcting without product keywords")
		return kw
	}
	log.Info().
		Str("file", cfg.Pipeline.KeywordsFile).
		Int("keywords", len(kw)).
		Msg("Loaded keyword list")
	return kw
}

// FromConfig wires the normalizer, evaluator and pipeline from configuration.
func FromConfig(cfg *config.Config, client completion.Client, set *checklist.Set, m *metrics.Metrics) *Pipeline {
	n := normalizer.New(client, LoadKeywords(cfg),
		normalizer.WithModel(cfg.Completion.CorrectionModel),
		normalizer.WithTemperature(cfg.Completion.Temperature),
		normalizer.WithCompany(cfg.Pipeline.CompanyName),
		normalizer.WithConcurrency(cfg.Pipeline.MaxConcurrency),
		normalizer.WithMetrics(m),
	)
	e := evaluator.New(client,
		evaluator.WithModel(cfg.Completion.EvaluationModel),
		evaluator.WithTemperature(cfg.Completion.Temperature),
		evaluator.WithCompany(cfg.Pipeline.CompanyName),
		evaluator.WithMetrics(m),
	)
	return New(n, e, set,
		WithConcurrency(cfg.Pipeline.MaxConcurrency),
		WithMetrics(m),
	)
}
