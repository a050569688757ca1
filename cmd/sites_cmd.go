package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List the sites this build can harvest",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			registry := defaultRegistry()
			for _, name := range registry.Names() {
				adapter, _ := registry.Lookup(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", name, adapter.EntryURL())
			}
		},
	}
}
