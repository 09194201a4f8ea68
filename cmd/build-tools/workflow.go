package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/buildtools/workflow"
)

// parseSince accepts an RFC 3339 timestamp or a duration before now.
func parseSince(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--since %q is neither a timestamp nor a duration", value)
	}
	return now.Add(-d), nil
}

func newWorkflowCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Inspect site workflows",
	}

	var (
		siteProvider string
		site         string
		description  string
		since        string
		maxWait      time.Duration
		notFound     int
		interval     time.Duration
	)
	wait := &cobra.Command{
		Use:   "wait",
		Short: "Wait for a site workflow to finish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			start, err := parseSince(since, time.Now())
			if err != nil {
				return err
			}
			sp, err := a.siteProvider(siteProvider)
			if err != nil {
				return err
			}
			if err := a.authenticate(ctx, sp); err != nil {
				return err
			}

			opts := workflow.Options{
				Since:               start,
				Description:         description,
				MaxWait:             a.settings.WorkflowMaxWait,
				MaxNotFoundAttempts: a.settings.WorkflowNotFoundAttempts,
				Interval:            interval,
			}
			if cmd.Flags().Changed("max-wait") {
				opts.MaxWait = maxWait
			}
			if cmd.Flags().Changed("not-found-attempts") {
				opts.MaxNotFoundAttempts = notFound
			}

			poller := workflow.NewPoller(sp.Workflows(site), workflow.PollerConfig{Logger: a.logger})
			outcome, err := poller.Wait(ctx, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: %s\n", description, outcome)
			if !outcome.OK() {
				return fmt.Errorf("workflow %q did not succeed: %s", description, outcome)
			}
			return nil
		},
	}
	f := wait.Flags()
	f.StringVar(&siteProvider, "site-provider", "pantheon", "site provider alias")
	f.StringVar(&site, "site", "", "site name")
	f.StringVar(&description, "description", "", "exact workflow description to wait for")
	f.StringVar(&since, "since", "", "ignore workflows created before this RFC 3339 time or duration ago")
	f.DurationVar(&maxWait, "max-wait", 0, "give up after this long (default from workflow_max_wait)")
	f.IntVar(&notFound, "not-found-attempts", 0, "give up after this many polls without a match (default from workflow_not_found_attempts)")
	f.DurationVar(&interval, "interval", workflow.DefaultInterval, "time between polls")
	_ = wait.MarkFlagRequired("site")
	_ = wait.MarkFlagRequired("description")

	cmd.AddCommand(wait)
	return cmd
}
