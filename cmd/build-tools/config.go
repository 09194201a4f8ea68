package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/buildtools/config"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change build-tools settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print every setting with the file or variable it came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tVALUE\tFROM")
			for _, key := range config.ValidKeys() {
				value, src := a.resolved.GetWithSource(key)
				fmt.Fprintf(w, "%s\t%s\t%s\n", key, value, a.resolver.Origin(key, src))
			}
			return w.Flush()
		},
	})

	var local bool
	set := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Save a setting to the global config, or the repository's with --local",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			saver := config.AppSaveConfig()
			if local {
				if err := saver.SaveLocal(a.resolver.GitRoot(), key, value); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s saved to %s\n", key, a.resolver.LocalPath())
				return nil
			}
			if err := saver.SaveGlobal(key, value); err != nil {
				return err
			}
			path, _ := saver.GlobalPath()
			fmt.Fprintf(a.out, "%s saved to %s\n", key, path)
			return nil
		},
	}
	set.Flags().BoolVar(&local, "local", false, "write .build-tools.yaml in the git root")
	cmd.AddCommand(set)

	var unsetLocal bool
	unset := &cobra.Command{
		Use:   "unset KEY",
		Short: "Remove a setting from the global config, or the repository's with --local",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			saver := config.AppSaveConfig()
			if unsetLocal {
				return saver.DeleteLocalKey(a.resolver.GitRoot(), args[0])
			}
			return saver.DeleteGlobalKey(args[0])
		},
	}
	unset.Flags().BoolVar(&unsetLocal, "local", false, "edit .build-tools.yaml in the git root")
	cmd.AddCommand(unset)
	return cmd
}
