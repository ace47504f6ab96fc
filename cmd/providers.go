package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/crm-assist/internal/config"
	"github.com/sells-group/crm-assist/internal/provider"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured generative providers in fallback order",
	RunE: func(_ *cobra.Command, _ []string) error {
		reg, err := provider.NewRegistry(cfg.ProviderConfigs())
		if err != nil {
			return err
		}
		formatProviders(os.Stdout, reg.Describe())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

// formatProviders writes a table of providers to out. Disabled providers are
// listed with the environment variable that would enable them.
func formatProviders(out io.Writer, infos []provider.Info) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PRIORITY\tNAME\tKIND\tMODEL\tSTATUS")
	_, _ = fmt.Fprintln(w, "--------\t----\t----\t-----\t------")

	for _, p := range infos {
		status := "enabled"
		if !p.Enabled {
			status = "disabled (set " + config.ProviderKeyEnv(p.Name) + ")"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.Priority, p.Name, p.Kind, p.Model, status)
	}
	_ = w.Flush()
}
