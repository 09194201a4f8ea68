// Package git runs the handful of git commands the build tooling needs:
// reading the origin remote to infer a provider, and pushing a freshly
// created project to its new remote.
//
// Commands run through a shell.Executor, so tokens embedded in remote
// URLs never reach logs or errors.
//
// Example usage:
//
//	red := shell.NewRedactor(token)
//	g := git.NewContext(dir, shell.NewExecutor(nil, red, logger))
//	remote, _ := git.AuthenticatedURL("git@github.com:org/repo.git", "x-access-token", token)
//	err := g.Push(ctx, remote, "HEAD", false)
package git
