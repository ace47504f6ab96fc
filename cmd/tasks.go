package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crm-assist/internal/model"
	"github.com/sells-group/crm-assist/internal/store"
	"github.com/sells-group/crm-assist/internal/tasks"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Generate and inspect suggested follow-up tasks",
}

// -- tasks generate --

var tasksGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Suggest and store follow-up tasks for clients",
	Long:  "Suggests follow-up tasks for the given clients (or every active client) and stores the corrected tasks. A storage failure for one client does not stop the batch.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		ids, _ := cmd.Flags().GetStringSlice("client")
		clients, err := batchClients(ctx, env.Store, ids)
		if err != nil {
			return eris.Wrap(err, "tasks generate")
		}
		if len(clients) == 0 {
			zap.L().Info("no active clients found")
			return nil
		}

		report := env.Batch.Run(ctx, clients)
		formatTasks(os.Stdout, report.Created)
		formatFailures(os.Stderr, report.Failures)

		zap.L().Info("task batch complete",
			zap.Int("clients", report.Clients),
			zap.Int("created", len(report.Created)),
			zap.Int("failed", len(report.Failures)),
			zap.Duration("duration", report.Duration),
		)
		if report.Cancelled {
			return eris.New("tasks generate: cancelled")
		}
		return nil
	},
}

// -- tasks list --

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored tasks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		clientID, _ := cmd.Flags().GetString("client")
		limit, _ := cmd.Flags().GetInt("limit")

		list, err := st.ListTasks(ctx, store.TaskFilter{ClientID: clientID, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "tasks list")
		}
		if len(list) == 0 {
			fmt.Fprintln(os.Stderr, "No tasks found.")
			return nil
		}
		formatTasks(os.Stdout, list)
		return nil
	},
}

func init() {
	tasksGenerateCmd.Flags().StringSlice("client", nil, "client IDs (default: all active clients)")
	tasksListCmd.Flags().String("client", "", "filter by client ID")
	tasksListCmd.Flags().Int("limit", 50, "maximum number of tasks")

	tasksCmd.AddCommand(tasksGenerateCmd, tasksListCmd)
	rootCmd.AddCommand(tasksCmd)
}

func formatTasks(out io.Writer, list []model.SuggestedTask) {
	if len(list) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CLIENT\tDUE\tPRIORITY\tTYPE\tMIN\tSOURCE\tTITLE")
	_, _ = fmt.Fprintln(w, "------\t---\t--------\t----\t---\t------\t-----")
	for _, t := range list {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			t.ClientID,
			t.DueDate.Format("2006-01-02 15:04"),
			t.Priority,
			t.Type,
			t.EstimatedDuration,
			t.Source,
			truncate(t.Title, 60),
		)
	}
	_ = w.Flush()
}

func formatFailures(out io.Writer, failures []tasks.Failure) {
	for _, f := range failures {
		_, _ = fmt.Fprintf(out, "failed: client %s task %q: %s\n", f.ClientID, f.Task, f.Error)
	}
}

// truncate shortens s to max runes, ending in "..." when cut.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
