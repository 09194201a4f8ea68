// Package multidev decides which ephemeral per-PR environments can be
// deleted.
//
// A Retention starts with every environment under examination and moves
// each one to either the eligible set or the retain set as rules classify
// it. Anything never classified is retained.
//
//	r := multidev.NewRetention("pr-", envs)
//	if err := r.EligibleIfClosedPRExists(ctx, git, "org/repo"); err != nil {
//	    return err
//	}
//	r.EligibleIfOldest(5)
//	for _, name := range r.Eligible() {
//	    site.DeleteEnvironment(ctx, name)
//	}
package multidev
