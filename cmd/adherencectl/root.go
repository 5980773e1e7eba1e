package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ai-script-adherence-service/internal/config"
	"ai-script-adherence-service/internal/observability/logging"
)

// newRootCmd creates the root command for adherencectl.
func newRootCmd() *cobra.Command {
	var envFile string
	var logLevel string

	rootCmd := &cobra.Command{
		Use:          "adherencectl",
		Short:        "Script adherence evaluation from the command line",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return err
				}
			} else {
				_ = godotenv.Load()
			}
			logging.Init(logging.Config{Level: logLevel, Format: "console"})
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file instead of ./.env")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newEvaluateCmd())
	rootCmd.AddCommand(newSubmitCmd())
	rootCmd.AddCommand(newChecklistsCmd())
	rootCmd.AddCommand(newSchemaCmd())

	return rootCmd
}

// loadConfig reads configuration after the .env file has been applied.
func loadConfig() *config.Config {
	return config.Load()
}
