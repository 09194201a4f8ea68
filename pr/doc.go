// Package pr describes pull requests as the build tooling sees them.
//
// Core types:
//   - PullRequestInfo: number, closed flag and source branch of one PR
//   - Lister: implemented by git providers that can page through PRs
//   - Repo: host, organization and name parsed from a remote URL
//
// Listing is page-at-a-time so that callers can stop once they have what
// they need:
//
//	err := lister.ListPullRequests(ctx, "org/repo", pr.StateAll,
//	    func(page []pr.PullRequestInfo) bool {
//	        for _, p := range page {
//	            record(p)
//	        }
//	        return !done()
//	    })
package pr
