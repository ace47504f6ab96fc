package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crm-assist/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "crm-assist",
	Short: "AI assistance for the CRM with provider fallback",
	Long:  "Scores leads, drafts client messages, ranks clients for search and suggests follow-up tasks using a prioritized list of generative providers, with deterministic fallbacks when none respond.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
