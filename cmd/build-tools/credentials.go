package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/buildtools/provider"
)

func newCredentialsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage cached provider credentials",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear [provider...]",
		Short: "Forget cached credentials for the given providers, or all of them",
		RunE: func(cmd *cobra.Command, args []string) error {
			aliases := args
			if len(aliases) == 0 {
				for _, reg := range a.providers.AvailableProviders(provider.CapabilityAny) {
					aliases = append(aliases, reg.Name)
				}
			}
			for _, alias := range aliases {
				p, err := a.providers.CreateProvider(alias, provider.CapabilityAny)
				if err != nil {
					return err
				}
				a.providers.InitializeProvider(p)
			}
			if err := a.creds.ClearAll(); err != nil {
				return err
			}
			for _, r := range a.creds.Requests() {
				fmt.Fprintf(a.out, "cleared %s\n", r.ID)
			}
			return nil
		},
	})
	return cmd
}
