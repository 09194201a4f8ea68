package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/buildtools/provider"
)

func newProvidersCommand(a *app) *cobra.Command {
	var capability string
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List the providers compiled into this binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, ok := provider.ParseCapability(capability)
			if !ok {
				return fmt.Errorf("unknown capability %q (want any, git, ci or site)", capability)
			}
			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ALIAS\tPROVIDER\tCAPABILITIES")
			for _, reg := range a.providers.AvailableProviders(c) {
				fmt.Fprintf(w, "%s\t%s\t%s\n", reg.Label, reg.Name, strings.Join(reg.CapabilityNames(), ","))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&capability, "capability", "any", "only list providers filling this role (git, ci, site)")
	return cmd
}
