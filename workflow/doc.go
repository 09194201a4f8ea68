// Package workflow waits for asynchronous operations on a hosting
// provider to finish.
//
// A hosting provider reports recent workflows (code syncs, database
// upgrades, environment deletions) newest first. A Poller watches that
// list for a workflow started after a known moment:
//
//	p := workflow.NewPoller(site, workflow.PollerConfig{})
//	outcome, err := p.Wait(ctx, workflow.Options{
//	    Since:       started,
//	    Description: "Sync code on dev",
//	    MaxWait:     10 * time.Minute,
//	})
//	if err != nil {
//	    return err
//	}
//	if !outcome.OK() {
//	    // unconfirmed; the caller decides whether that is fatal
//	}
//
// Timing out, running out of not-found attempts and a failed workflow are
// reported as outcomes rather than errors. Errors are reserved for lister
// failures and context cancellation.
package workflow
