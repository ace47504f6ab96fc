package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <client-id>",
	Short: "Score a client and store the lead analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		c, err := env.Store.GetClient(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "analyze")
		}
		history, err := env.Store.ListInteractions(ctx, c.ID, env.Lead.HistoryLimit())
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		analysis := env.Lead.Analyze(ctx, *c, history)

		if dryRun, _ := cmd.Flags().GetBool("dry-run"); !dryRun {
			if err := env.Store.UpdateLeadAnalysis(ctx, c.ID, analysis); err != nil {
				return eris.Wrap(err, "analyze")
			}
		}

		zap.L().Info("lead analyzed",
			zap.String("client_id", c.ID),
			zap.Int("lead_score", analysis.LeadScore),
			zap.String("source", string(analysis.Source)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	},
}

func init() {
	analyzeCmd.Flags().Bool("dry-run", false, "print the analysis without storing it")
	rootCmd.AddCommand(analyzeCmd)
}
