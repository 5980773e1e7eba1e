// Package provider selects the completion client named by configuration.
package provider

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"ai-script-adherence-service/internal/checklist"
	"ai-script-adherence-service/internal/completion"
	"ai-script-adherence-service/internal/completion/gemini"
	"ai-script-adherence-service/internal/completion/mock"
	"ai-script-adherence-service/internal/completion/openai"
	"ai-script-adherence-service/internal/config"
	"ai-script-adherence-service/internal/models"
	"ai-script-adherence-service/internal/observability/metrics"
)

// New builds the configured provider client wrapped with metrics. The mock
// provider judges coverage by key phrases from set.
func New(cfg config.CompletionConfig, set *checklist.Set, m *metrics.Metrics) (completion.Client, error) {
	var (
		client completion.Client
		err    error
	)

	switch cfg.Provider {
	case config.ProviderMock, "":
		log.Warn().Msg("Using mock completion provider, verdicts come from key-phrase matching")
		client = mock.NewPhraseMatcher(set)
	case config.ProviderOpenAI:
		client, err = openai.New(openai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		})
	case config.ProviderGemini:
		client, err = gemini.New(gemini.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown completion provider %q: %w", cfg.Provider, models.ErrConfigurationMissing)
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("provider", client.Name()).Msg("Completion provider initialized")
	return completion.Instrument(client, m), nil
}
