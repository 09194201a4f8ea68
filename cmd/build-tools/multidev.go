package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/buildtools/multidev"
	"github.com/randalmurphal/buildtools/workflow"
)

type cleanupFlags struct {
	siteProvider string
	gitProvider  string
	site         string
	project      string
	pattern      string
	keep         int
	dryRun       bool
	wait         bool
}

func newMultidevCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "multidev",
		Short: "Manage multidev environments",
	}

	var f cleanupFlags
	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete multidevs whose pull request is closed, keeping the newest",
		Long: `Delete multidev environments that are no longer needed.

An environment named <pattern><number> is deleted when pull request <number>
is closed or merged and kept while it is open. With --keep, environments
without a pull request are deleted too, except the newest --keep of them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("pattern") {
				f.pattern = a.settings.MultidevPattern
			}
			if !cmd.Flags().Changed("keep") {
				f.keep = a.settings.MultidevKeep
			}
			return a.cleanupMultidevs(cmd, f)
		},
	}
	fl := cleanup.Flags()
	fl.StringVar(&f.siteProvider, "site-provider", "pantheon", "site provider alias")
	fl.StringVar(&f.gitProvider, "git-provider", "", "git provider alias (default inferred from origin)")
	fl.StringVar(&f.site, "site", "", "site name")
	fl.StringVar(&f.project, "project", "", "org/repo holding the pull requests (default from origin)")
	fl.StringVar(&f.pattern, "pattern", "", "environment name prefix followed by the PR number (default from multidev_pattern)")
	fl.IntVar(&f.keep, "keep", 0, "also delete unmatched environments except the newest N (default from multidev_keep)")
	fl.BoolVar(&f.dryRun, "dry-run", false, "print what would be deleted")
	fl.BoolVar(&f.wait, "wait", false, "wait for each deletion workflow to finish")
	_ = cleanup.MarkFlagRequired("site")

	cmd.AddCommand(cleanup)
	return cmd
}

func (a *app) cleanupMultidevs(cmd *cobra.Command, f cleanupFlags) error {
	ctx := cmd.Context()

	sp, err := a.siteProvider(f.siteProvider)
	if err != nil {
		return err
	}
	gp, err := a.gitProvider(ctx, f.gitProvider)
	if err != nil {
		return err
	}
	project := f.project
	if project == "" {
		if _, project, err = a.origin(ctx); err != nil {
			return err
		}
	}
	if err := a.authenticate(ctx, sp, gp); err != nil {
		return err
	}

	envs, err := sp.ListEnvironments(ctx, f.site)
	if err != nil {
		return err
	}
	candidates := multidev.FilterByPattern(envs, f.pattern)
	retention := multidev.NewRetention(f.pattern, candidates)
	if err := retention.EligibleIfClosedPRExists(ctx, gp, project); err != nil {
		return err
	}
	if f.keep > 0 {
		retention.EligibleIfOldest(f.keep)
	}

	for _, name := range retention.Retain() {
		fmt.Fprintf(a.out, "keep    %s\n", name)
	}
	eligible := retention.Eligible()
	if f.dryRun {
		for _, name := range eligible {
			fmt.Fprintf(a.out, "delete  %s (dry run)\n", name)
		}
		return nil
	}

	for _, name := range eligible {
		rec, err := sp.DeleteEnvironment(ctx, f.site, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "delete  %s\n", name)
		if !f.wait {
			continue
		}
		poller := workflow.NewPoller(sp.Workflows(f.site), workflow.PollerConfig{Logger: a.logger})
		outcome, err := poller.Wait(ctx, workflow.Options{
			Since:               rec.CreatedAt,
			Description:         rec.Description,
			MaxWait:             a.settings.WorkflowMaxWait,
			MaxNotFoundAttempts: a.settings.WorkflowNotFoundAttempts,
		})
		if err != nil {
			return err
		}
		if !outcome.OK() {
			a.logger.Warn("multidev deletion did not confirm", "env", name, "outcome", outcome.String())
		}
	}
	return nil
}
