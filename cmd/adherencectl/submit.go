package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ai-script-adherence-service/internal/models"
)

type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func newSubmitCmd() *cobra.Command {
	var addr string
	var jsonOutput bool
	var interactionID string
	var tenantID string
	var topics []string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "submit <transcript-file>",
		Short: "Submit a transcript file to a running adherence service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fragments, err := readTranscript(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			report, err := submit(ctx, http.DefaultClient, addr, models.EvaluationRequest{
				InteractionID: interactionID,
				TenantID:      tenantID,
				Fragments:     fragments,
				Topics:        topics,
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal report to JSON: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}
			renderReport(os.Stdout, report, false)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "Base URL of the adherence service")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	cmd.Flags().StringVar(&interactionID, "interaction", "", "Interaction ID to stamp on the report")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID to stamp on the report")
	cmd.Flags().StringSliceVar(&topics, "topic", nil, "Evaluate only these checklist topics (repeatable)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Request timeout")

	return cmd
}

// submit posts req to the evaluations endpoint and decodes the report.
func submit(ctx context.Context, client *http.Client, addr string, req models.EvaluationRequest) (*models.AdherenceReport, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(addr, "/") + "/v1/evaluations"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("service returned %d (%s): %s", resp.StatusCode, apiErr.Kind, apiErr.Error)
		}
		return nil, fmt.Errorf("service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var report models.AdherenceReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}
