// Package cmd implements the harvester command line shell.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fkoehler/gearharvest/sites"
	"github.com/fkoehler/gearharvest/sites/edelrid"
	"github.com/fkoehler/gearharvest/sites/petzl"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Harvest vendor product catalogs into one JSON snapshot per run.",
		Long: `harvester walks a vendor site's category tree, fetches every product
page under a bounded concurrency cap, and writes one category-keyed JSON
snapshot. Per-page failures are recorded in the snapshot instead of aborting
the run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./harvester.yaml)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newSitesCmd())
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func defaultRegistry() *sites.Registry {
	return sites.NewRegistry(petzl.New(), edelrid.New())
}
