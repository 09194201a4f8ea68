package git

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/randalmurphal/buildtools/pr"
	"github.com/randalmurphal/buildtools/shell"
)

// Context runs git commands in one working directory.
type Context struct {
	dir  string
	exec *shell.Executor
}

// NewContext creates a Context for dir. A nil executor runs real commands
// without redaction.
func NewContext(dir string, exec *shell.Executor) *Context {
	if exec == nil {
		exec = shell.NewExecutor(nil, nil, nil)
	}
	return &Context{dir: dir, exec: exec}
}

// Dir returns the working directory.
func (g *Context) Dir() string {
	return g.dir
}

// IsRepo reports whether the directory is inside a git work tree.
func (g *Context) IsRepo(ctx context.Context) bool {
	out, err := g.run(ctx, "check repository", "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// CurrentBranch returns the current branch name.
func (g *Context) CurrentBranch(ctx context.Context) (string, error) {
	return g.run(ctx, "get current branch", "rev-parse", "--abbrev-ref", "HEAD")
}

// HeadCommit returns the current HEAD commit SHA.
func (g *Context) HeadCommit(ctx context.Context) (string, error) {
	return g.run(ctx, "get HEAD commit", "rev-parse", "HEAD")
}

// RemoteURL returns the URL of the named remote.
func (g *Context) RemoteURL(ctx context.Context, remote string) (string, error) {
	out, err := g.run(ctx, "get remote URL", "remote", "get-url", remote)
	if err != nil {
		var shellErr *shell.Error
		if errors.As(err, &shellErr) && strings.Contains(shellErr.Output, "No such remote") {
			return "", fmt.Errorf("%w: %s", ErrNoRemote, remote)
		}
		return "", err
	}
	return out, nil
}

// Push pushes refspec to remote, which may be a remote name or a URL.
func (g *Context) Push(ctx context.Context, remote, refspec string, force bool) error {
	args := []string{"push", "--progress"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, remote, refspec)

	if _, err := g.run(ctx, "push", args...); err != nil {
		return fmt.Errorf("%w: %w", ErrPushFailed, err)
	}
	return nil
}

func (g *Context) run(ctx context.Context, op string, args ...string) (string, error) {
	return g.exec.Run(ctx, op, g.dir, "git", args...)
}

// AuthenticatedURL returns remoteURL carrying user and password. http and
// https remotes keep their scheme, host and port. SCP-style and ssh
// remotes become https URLs on the same host. Register password with the
// executor's redactor before using the result.
func AuthenticatedURL(remoteURL, user, password string) (string, error) {
	repo, err := pr.ParseRepoURL(remoteURL)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "https", Host: repo.Host}
	if parsed, err := url.Parse(remoteURL); err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") {
		u.Scheme = parsed.Scheme
		u.Host = parsed.Host
	}
	u.User = url.UserPassword(user, password)
	u.Path = "/" + repo.Project() + ".git"
	return u.String(), nil
}
