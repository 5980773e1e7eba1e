package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ai-script-adherence-service/internal/service/pipeline"
)

func newChecklistsCmd() *cobra.Command {
	var jsonOutput bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "checklists",
		Short: "List the configured reference checklists",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := pipeline.LoadChecklists(loadConfig())
			if err != nil {
				return fmt.Errorf("failed to load checklists: %w", err)
			}

			if jsonOutput {
				data, err := json.MarshalIndent(set.All(), "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal checklists to JSON: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}
			renderChecklists(os.Stdout, set, verbose)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print checklists as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every reference point")

	return cmd
}
