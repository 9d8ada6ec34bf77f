// Package cli wires the outage-analyzer cobra commands.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd wires the cobra root command.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "outage-analyzer",
		Short: "Derive downtime, overload and subnet outages from health-check logs",
		Long: "outage-analyzer reads health-check lines (TIMESTAMP,ADDRESS,STATUS), detects\n" +
			"per-host downtime and overload, and infers subnet-wide outages.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (default $MIRADOR_OUTAGE_CONFIG)")

	root.AddCommand(newAnalyzeCommand(&configPath))
	root.AddCommand(newServeCommand(&configPath))
	return root
}
