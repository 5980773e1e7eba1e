package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ai-script-adherence-service/internal/completion/provider"
	"ai-script-adherence-service/internal/models"
	"ai-script-adherence-service/internal/observability/metrics"
	"ai-script-adherence-service/internal/service/pipeline"
)

func newEvaluateCmd() *cobra.Command {
	var jsonOutput bool
	var showTranscript bool
	var providerName string
	var interactionID string
	var topics []string

	cmd := &cobra.Command{
		Use:   "evaluate <transcript-file>",
		Short: "Run the adherence pipeline locally on a transcript file",
		Long: "Run the normalizer and checklist evaluators on a transcript file. " +
			"Text files hold one fragment per line; .json files hold an array of fragments " +
			"or an evaluation request object.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fragments, err := readTranscript(args[0])
			if err != nil {
				return err
			}

			cfg := loadConfig()
			if providerName != "" {
				cfg.Completion.Provider = providerName
			}

			set, err := pipeline.LoadChecklists(cfg)
			if err != nil {
				return fmt.Errorf("failed to load checklists: %w", err)
			}
			client, err := provider.New(cfg.Completion, set, metrics.DefaultMetrics)
			if err != nil {
				return fmt.Errorf("failed to configure completion provider: %w", err)
			}
			p := pipeline.FromConfig(cfg, client, set, metrics.DefaultMetrics)

			report, err := p.Run(cmd.Context(), models.EvaluationRequest{
				InteractionID: interactionID,
				Fragments:     fragments,
				Topics:        topics,
			})
			if err != nil {
				return fmt.Errorf("evaluation failed (%s): %w", models.KindOf(err), err)
			}

			if jsonOutput {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal report to JSON: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}
			renderReport(os.Stdout, report, showTranscript)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&showTranscript, "show-transcript", false, "Include the cleaned transcript in the output")
	cmd.Flags().StringVar(&providerName, "provider", "", "Override COMPLETION_PROVIDER (mock, openai, gemini)")
	cmd.Flags().StringVar(&interactionID, "interaction", "", "Interaction ID to stamp on the report")
	cmd.Flags().StringSliceVar(&topics, "topic", nil, "Evaluate only these checklist topics (repeatable)")

	return cmd
}
